package docservice

import (
	"fmt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/editor"
	"github.com/starford/folio/internal/htmlcodec"
	"github.com/starford/folio/internal/markdown"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/snapshot"
)

// Formats a document can be read or written in.
const (
	FormatJSON     = "json"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Converter turns content between formats. Snapshots are the storage
// format; everything else passes through a document tree.
type Converter struct {
	codec *htmlcodec.Codec
}

// NewConverter returns a converter using codec for HTML.
func NewConverter(codec *htmlcodec.Codec) *Converter {
	if codec == nil {
		codec = htmlcodec.New()
	}
	return &Converter{codec: codec}
}

// ToSnapshot converts content in format from into a stored snapshot.
// Markdown is an output-only format.
func (c *Converter) ToSnapshot(data []byte, from string) ([]byte, error) {
	switch from {
	case FormatJSON, "":
		t, err := snapshot.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		return snapshot.Marshal(t.View)
	case FormatHTML:
		t, err := c.codec.Import(string(data))
		if err != nil {
			return nil, err
		}
		return snapshot.Marshal(t.View)
	case FormatText:
		e := editor.New(editor.WithCodec(c.codec))
		if err := e.LoadText(string(data)); err != nil {
			return nil, err
		}
		return e.Snapshot()
	default:
		return nil, fmt.Errorf("docservice: cannot import %q: %w", from, apperr.ErrValidation)
	}
}

// Render converts a stored snapshot to format to.
func (c *Converter) Render(snap []byte, to string) ([]byte, error) {
	if to == FormatJSON || to == "" {
		t, err := snapshot.Unmarshal(snap)
		if err != nil {
			return nil, err
		}
		return snapshot.MarshalIndent(t.View)
	}
	if to == FormatText {
		res, err := parser.Parse(snap)
		if err != nil {
			return nil, err
		}
		return []byte(res.Body), nil
	}

	t, err := snapshot.Unmarshal(snap)
	if err != nil {
		return nil, err
	}
	switch to {
	case FormatHTML:
		out, err := c.codec.Export(t.View, htmlcodec.ModeFull)
		return []byte(out), err
	case FormatMarkdown:
		res, err := parser.Parse(snap)
		if err != nil {
			return nil, err
		}
		out, err := markdown.RenderWithMeta(t.View, metaFor(t.View, res))
		return []byte(out), err
	default:
		return nil, fmt.Errorf("docservice: cannot render %q: %w", to, apperr.ErrValidation)
	}
}

// Convert is ToSnapshot followed by Render.
func (c *Converter) Convert(data []byte, from, to string) ([]byte, error) {
	snap, err := c.ToSnapshot(data, from)
	if err != nil {
		return nil, err
	}
	return c.Render(snap, to)
}

func metaFor(v document.View, res *parser.Result) markdown.Meta {
	return markdown.Meta{
		Title:  res.Title,
		Tags:   res.Tags,
		Links:  res.URLs(),
		Images: v.Count(document.TypeImage),
		Embeds: res.Embeds,
	}
}
