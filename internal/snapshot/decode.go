package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
)

type wireState struct {
	Root *wireNode `json:"root"`
}

type wireNode struct {
	Type     string     `json:"type"`
	Version  *int       `json:"version"`
	Children []wireNode `json:"children"`

	Text      string          `json:"text"`
	Format    json.RawMessage `json:"format"`
	Style     string          `json:"style"`
	Direction *string         `json:"direction"`
	Indent    int             `json:"indent"`
	Tag       string          `json:"tag"`

	URL    string  `json:"url"`
	Rel    *string `json:"rel"`
	Target *string `json:"target"`
	Title  *string `json:"title"`

	Src             string          `json:"src"`
	AltText         string          `json:"altText"`
	Width           json.RawMessage `json:"width"`
	Height          json.RawMessage `json:"height"`
	MaxWidth        int             `json:"maxWidth"`
	ShowCaption     bool            `json:"showCaption"`
	CaptionsEnabled bool            `json:"captionsEnabled"`
	Caption         *struct {
		EditorState *wireState `json:"editorState"`
	} `json:"caption"`

	VideoID string `json:"videoID"`
	ID      string `json:"id"`
	Owner   string `json:"owner"`
}

type decodeFunc func(w *wireNode) (*document.Node, error)

var decoders map[string]decodeFunc

func init() {
	decoders = map[string]decodeFunc{
		"paragraph": func(*wireNode) (*document.Node, error) { return document.NewParagraph(), nil },
		"heading":   func(w *wireNode) (*document.Node, error) { return document.NewHeading(w.Tag) },
		QuoteType:   func(*wireNode) (*document.Node, error) { return document.NewQuote(), nil },
		"quote":     func(*wireNode) (*document.Node, error) { return document.NewQuote(), nil },
		"text": func(w *wireNode) (*document.Node, error) {
			return document.NewText(w.Text, document.Format(formatBits(w.Format))), nil
		},
		"link": func(w *wireNode) (*document.Node, error) {
			return document.NewLink(linkAttrs(w))
		},
		"autolink": func(w *wireNode) (*document.Node, error) {
			return document.NewAutoLink(linkAttrs(w))
		},
		"image":   decodeImage,
		"youtube": func(w *wireNode) (*document.Node, error) { return document.NewYouTube(w.VideoID) },
		"tweet":   decodeTweet,
		"instagram": func(w *wireNode) (*document.Node, error) {
			return document.NewInstagram(w.ID)
		},
	}
}

// Unmarshal decodes an editor state into a new tree. The caret is placed at
// the start of the document.
func Unmarshal(data []byte) (*document.Tree, error) {
	h, err := Peek(data)
	if err != nil {
		return nil, err
	}
	if h.RootType != "root" {
		return nil, &document.UnknownTypeError{Type: h.RootType}
	}
	var st wireState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %v: %w", err, apperr.ErrImportParse)
	}
	return decodeState(&st)
}

func decodeState(st *wireState) (*document.Tree, error) {
	if st == nil || st.Root == nil {
		return nil, fmt.Errorf("snapshot: missing root: %w", apperr.ErrImportParse)
	}
	if err := checkVersion(st.Root); err != nil {
		return nil, err
	}
	tree := document.NewEmptyTree()
	_, err := tree.Update("import", func(tx *document.Tx) error {
		root := tx.RootKey()
		if err := tx.SetBlockAttrs(root, deref(st.Root.Direction), st.Root.Indent, formatString(st.Root.Format)); err != nil {
			return err
		}
		if err := decodeChildren(tx, st.Root.Children, root); err != nil {
			return err
		}
		tx.SelectStart(root)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

// DecodeInto inserts the blocks of an editor state at pos inside an open
// transaction and returns the inserted top-level keys.
func DecodeInto(tx *document.Tx, data []byte, pos document.Position) ([]document.NodeKey, error) {
	var st wireState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %v: %w", err, apperr.ErrImportParse)
	}
	if st.Root == nil {
		return nil, fmt.Errorf("snapshot: missing root: %w", apperr.ErrImportParse)
	}
	var keys []document.NodeKey
	for i := range st.Root.Children {
		k, err := decodeNode(tx, &st.Root.Children[i], pos)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		pos = document.After(k)
	}
	return keys, nil
}

func decodeChildren(tx *document.Tx, children []wireNode, parent document.NodeKey) error {
	var prev *wireNode
	for i := range children {
		w := &children[i]
		if w.Type == "linebreak" {
			if err := checkVersion(w); err != nil {
				return err
			}
			// A line break joins the text run before it.
			br := &wireNode{Type: "text", Text: "\n"}
			if prev != nil && prev.Type == "text" {
				br.Format, br.Style = prev.Format, prev.Style
			}
			w = br
		}
		if _, err := decodeNode(tx, w, document.AppendTo(parent)); err != nil {
			return err
		}
		prev = w
	}
	return nil
}

func decodeNode(tx *document.Tx, w *wireNode, pos document.Position) (document.NodeKey, error) {
	if err := checkVersion(w); err != nil {
		return "", err
	}
	dec, ok := decoders[w.Type]
	if !ok {
		return "", &document.UnknownTypeError{Type: w.Type}
	}
	n, err := dec(w)
	if err != nil {
		return "", err
	}
	key, err := tx.Insert(n, pos)
	if err != nil {
		return "", err
	}
	switch {
	case n.IsText():
		if w.Style != "" {
			if err := tx.SetStyle(key, w.Style); err != nil {
				return "", err
			}
		}
	case n.IsElement():
		if err := tx.SetBlockAttrs(key, deref(w.Direction), w.Indent, formatString(w.Format)); err != nil {
			return "", err
		}
		if err := decodeChildren(tx, w.Children, key); err != nil {
			return "", err
		}
	case n.IsEmbed():
		if err := tx.SetBlockAttrs(key, "", 0, formatString(w.Format)); err != nil {
			return "", err
		}
	}
	return key, nil
}

func decodeImage(w *wireNode) (*document.Node, error) {
	attrs := document.ImageAttrs{
		Src:             w.Src,
		AltText:         w.AltText,
		Width:           dimensionPx(w.Width),
		Height:          dimensionPx(w.Height),
		MaxWidth:        w.MaxWidth,
		ShowCaption:     w.ShowCaption,
		CaptionsEnabled: w.CaptionsEnabled,
	}
	if w.CaptionsEnabled && w.Caption != nil && w.Caption.EditorState != nil {
		caption, err := decodeState(w.Caption.EditorState)
		if err != nil {
			return nil, fmt.Errorf("snapshot: caption: %w", err)
		}
		attrs.Caption = caption
	}
	return document.NewImage(attrs)
}

func decodeTweet(w *wireNode) (*document.Node, error) {
	id, owner := w.ID, w.Owner
	if (id == "" || owner == "") && w.URL != "" {
		if m, ok := embed.MatchTweet(w.URL); ok {
			id, owner = m.ID, m.Owner
		}
	}
	return document.NewTweet(id, owner)
}

func checkVersion(w *wireNode) error {
	if w.Version != nil && *w.Version != Version {
		return &document.ValidationError{
			Type: document.NodeType(w.Type),
			Err:  fmt.Errorf("unsupported version %d", *w.Version),
		}
	}
	return nil
}

func linkAttrs(w *wireNode) document.LinkAttrs {
	return document.LinkAttrs{URL: w.URL, Rel: deref(w.Rel), Target: deref(w.Target), Title: deref(w.Title)}
}

// formatBits reads a numeric text format. Element formats are strings and
// yield zero.
func formatBits(raw json.RawMessage) uint32 {
	var n uint32
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	return n
}

// formatString reads an element alignment. Older states store it as a number.
func formatString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	switch formatBits(raw) {
	case 1:
		return "left"
	case 2:
		return "center"
	case 3:
		return "right"
	case 4:
		return "justify"
	}
	return ""
}

func dimensionPx(raw json.RawMessage) int {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return 0
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
