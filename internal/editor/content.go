package editor

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
	"github.com/starford/folio/internal/htmlcodec"
	"github.com/starford/folio/internal/snapshot"
)

// LoadText replaces the document with one paragraph holding text and clears
// the history.
func (e *Editor) LoadText(text string) error {
	tree := document.NewTree()
	if _, err := tree.Update("load", func(tx *document.Tx) error {
		if err := tx.SetText(tx.FirstText(tx.RootKey()), norm.NFC.String(text)); err != nil {
			return err
		}
		tx.SelectEnd(tx.RootKey())
		return nil
	}); err != nil {
		return fmt.Errorf("editor: load text: %w", err)
	}
	e.replaceTree(tree)
	return nil
}

// LoadSnapshot replaces the document with a decoded JSON snapshot and clears
// the history.
func (e *Editor) LoadSnapshot(data []byte) error {
	tree, err := snapshot.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("editor: load snapshot: %w", err)
	}
	e.replaceTree(tree)
	return nil
}

func (e *Editor) replaceTree(tree *document.Tree) {
	e.tree = tree
	e.history.Clear()
	e.changed("load")
}

// Snapshot encodes the document as JSON.
func (e *Editor) Snapshot() ([]byte, error) {
	return snapshot.Marshal(e.tree.View)
}

// HTML exports the document.
func (e *Editor) HTML(mode htmlcodec.Mode) (string, error) {
	return e.codec.Export(e.tree.View, mode)
}

// InsertHTML inserts host-supplied HTML after the block holding the
// selection, replacing that block when it is an empty paragraph. Newlines
// are removed before parsing.
func (e *Editor) InsertHTML(src string) error {
	return e.insertHTML("insert html", strings.ReplaceAll(src, "\n", ""))
}

func (e *Editor) insertHTML(label, src string) error {
	return e.apply(label, func(tx *document.Tx) error {
		pos, replaced := insertionPoint(tx)
		keys, err := e.codec.Insert(tx, src, pos)
		if err != nil {
			return err
		}
		if replaced != "" {
			if err := tx.Remove(replaced); err != nil {
				return err
			}
		}
		if len(keys) > 0 {
			tx.SelectEnd(keys[len(keys)-1])
		}
		return nil
	})
}

// insertionPoint returns where pasted blocks go and the empty paragraph
// they replace, if any.
func insertionPoint(tx *document.Tx) (document.Position, document.NodeKey) {
	var block document.NodeKey
	switch s := tx.Selection().(type) {
	case *document.RangeSelection:
		block = pointBlock(tx, s.Focus)
	case *document.NodeSelection:
		if len(s.Keys) > 0 {
			block = tx.TopLevel(s.Keys[len(s.Keys)-1])
		}
	}
	b := tx.Get(block)
	if b == nil {
		return document.AppendTo(tx.RootKey()), ""
	}
	if b.Type() == document.TypeParagraph && tx.TextContent(block) == "" && !hasDecorator(tx, block) {
		return document.Before(block), block
	}
	return document.After(block), ""
}

func hasDecorator(tx *document.Tx, key document.NodeKey) bool {
	for n := range tx.Traverse(key) {
		if n.IsDecorator() {
			return true
		}
	}
	return false
}

// ImportClipboard replaces the whole document with pasted HTML. Empty
// clipboard content is a no-op.
func (e *Editor) ImportClipboard(src string) error {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	return e.apply("import clipboard", func(tx *document.Tx) error {
		root := tx.RootKey()
		if err := tx.Clear(root); err != nil {
			return err
		}
		if _, err := e.codec.Insert(tx, src, document.AppendTo(root)); err != nil {
			return err
		}
		tx.SelectEnd(root)
		return nil
	})
}

// Paste inserts clipboard data at the selection. A JSON snapshot is decoded,
// a lone provider URL is auto-embedded and anything else goes through the
// HTML importer.
func (e *Editor) Paste(data string) error {
	trimmed := strings.TrimSpace(data)
	switch {
	case trimmed == "":
		return nil
	case snapshot.IsSnapshot([]byte(trimmed)):
		return e.apply("paste", func(tx *document.Tx) error {
			pos, replaced := insertionPoint(tx)
			keys, err := snapshot.DecodeInto(tx, []byte(trimmed), pos)
			if err != nil {
				return err
			}
			if replaced != "" {
				if err := tx.Remove(replaced); err != nil {
					return err
				}
			}
			if len(keys) > 0 {
				tx.SelectEnd(keys[len(keys)-1])
			}
			return nil
		})
	case !strings.ContainsAny(trimmed, " \t\n<"):
		if _, ok := embed.MatchURL(trimmed); ok {
			_, err := e.AutoEmbed(trimmed)
			return err
		}
	}
	return e.insertHTML("paste", data)
}
