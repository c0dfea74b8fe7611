package editor

import (
	"fmt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
)

// FormatText toggles bold or strikethrough. On a collapsed caret it toggles
// the pending format for the next typed text; otherwise the format is set on
// every selected text run, or cleared when all of them already carry it.
func (e *Editor) FormatText(f document.Format) error {
	if f != document.FormatBold && f != document.FormatStrikethrough {
		return fmt.Errorf("editor: format %d: %w", f, apperr.ErrValidation)
	}
	return e.apply("format text", func(tx *document.Tx) error {
		rs := tx.Range()
		if rs == nil {
			return fmt.Errorf("no range selection: %w", apperr.ErrPreconditionFailed)
		}
		if rs.IsCollapsed() {
			rs.Format = rs.Format.Toggle(f)
			tx.SetSelection(rs)
			return nil
		}

		keys, err := tx.Extract()
		if err != nil {
			return err
		}
		var texts []*document.Node
		for _, k := range keys {
			if n := tx.Get(k); n.IsText() && n.Text() != "" {
				texts = append(texts, n)
			}
		}
		if len(texts) == 0 {
			return nil
		}
		all := true
		for _, n := range texts {
			all = all && n.Format().Has(f)
		}
		for _, n := range texts {
			next := n.Format() | f
			if all {
				next = n.Format() &^ f
			}
			if err := tx.SetFormat(n.Key(), next); err != nil {
				return err
			}
		}
		rs = tx.Range()
		rs.Format = tx.Get(texts[0].Key()).Format()
		tx.SetSelection(rs)
		return nil
	})
}

// ToggleBlockType converts the selected top-level blocks to t. When every
// selected block already has type t they become paragraphs.
func (e *Editor) ToggleBlockType(t document.NodeType) error {
	switch t {
	case document.TypeParagraph, document.TypeHeading, document.TypeQuote:
	default:
		return fmt.Errorf("editor: block type %q: %w", t, apperr.ErrValidation)
	}
	return e.apply("toggle block type", func(tx *document.Tx) error {
		var blocks []document.NodeKey
		for _, k := range selectedBlocks(tx) {
			if tx.Get(k).IsElement() {
				blocks = append(blocks, k)
			}
		}
		if len(blocks) == 0 {
			return nil
		}
		target := t
		all := true
		for _, k := range blocks {
			all = all && tx.Get(k).Type() == t
		}
		if all {
			target = document.TypeParagraph
		}
		for _, k := range blocks {
			if tx.Get(k).Type() == target {
				continue
			}
			if _, err := convertBlock(tx, k, target); err != nil {
				return err
			}
		}
		return nil
	})
}

// convertBlock replaces block with a new block of type t holding the same
// children and attributes. Selection points on the old block follow.
func convertBlock(tx *document.Tx, block document.NodeKey, t document.NodeType) (document.NodeKey, error) {
	old := tx.Get(block)
	var (
		n   *document.Node
		err error
	)
	switch t {
	case document.TypeHeading:
		n, err = document.NewHeading(document.HeadingTag)
	case document.TypeQuote:
		n = document.NewQuote()
	default:
		n = document.NewParagraph()
	}
	if err != nil {
		return "", err
	}
	rs := tx.Range()
	nk, err := tx.Replace(block, n)
	if err != nil {
		return "", err
	}
	if err := tx.SetBlockAttrs(nk, old.Direction(), old.Indent(), old.Align()); err != nil {
		return "", err
	}
	if rs != nil {
		for _, p := range []*document.Point{&rs.Anchor, &rs.Focus} {
			if p.Key == block {
				p.Key = nk
			}
		}
		tx.SetSelection(rs)
	}
	return nk, nil
}

// selectedBlocks returns the top-level blocks touched by the selection.
func selectedBlocks(tx *document.Tx) []document.NodeKey {
	switch s := tx.Selection().(type) {
	case *document.NodeSelection:
		var out []document.NodeKey
		for _, k := range s.Keys {
			out = append(out, tx.TopLevel(k))
		}
		return out
	case *document.RangeSelection:
		a, b := pointBlock(tx, s.Anchor), pointBlock(tx, s.Focus)
		if a == "" || b == "" {
			return nil
		}
		return tx.Blocks(a, b)
	}
	return nil
}

// pointBlock returns the top-level block holding p.
func pointBlock(tx *document.Tx, p document.Point) document.NodeKey {
	if p.Key != tx.RootKey() {
		return tx.TopLevel(p.Key)
	}
	root := tx.Root()
	return root.Child(min(p.Offset, root.ChildCount()-1))
}
