package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
)

type record = map[string]any

// QuoteType is the JSON tag of quote blocks.
const QuoteType = "custom-quote"

type encodeFunc func(v document.View, n *document.Node) (record, error)

var encoders map[document.NodeType]encodeFunc

func init() {
	encoders = map[document.NodeType]encodeFunc{
		document.TypeRoot:      encodeElement("root"),
		document.TypeParagraph: encodeElement("paragraph"),
		document.TypeHeading: func(v document.View, n *document.Node) (record, error) {
			r, err := encodeElement("heading")(v, n)
			if err != nil {
				return nil, err
			}
			r["tag"] = n.Tag()
			return r, nil
		},
		document.TypeQuote:    encodeElement(QuoteType),
		document.TypeLink:     encodeLink("link"),
		document.TypeAutoLink: encodeLink("autolink"),
		document.TypeImage:    encodeImage,
		document.TypeYouTube: func(_ document.View, n *document.Node) (record, error) {
			return record{"format": n.Align(), "type": "youtube", "version": Version, "videoID": n.Embed().ID}, nil
		},
		document.TypeTweet: func(_ document.View, n *document.Node) (record, error) {
			e := n.Embed()
			return record{
				"format": n.Align(), "type": "tweet", "version": Version,
				"id": e.ID, "owner": e.Owner, "url": embed.CanonicalURL(n),
			}, nil
		},
		document.TypeInstagram: func(_ document.View, n *document.Node) (record, error) {
			return record{"format": n.Align(), "type": "instagram", "version": Version, "id": n.Embed().ID}, nil
		},
	}
}

// Marshal encodes the whole tree as an editor state.
func Marshal(v document.View) ([]byte, error) {
	r, err := encodeState(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

// MarshalIndent is Marshal with indentation, for files meant to be read.
func MarshalIndent(v document.View) ([]byte, error) {
	r, err := encodeState(v)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(r, "", "  ")
}

func encodeState(v document.View) (record, error) {
	root, err := encodeNode(v, v.Root())
	if err != nil {
		return nil, err
	}
	return record{"root": root}, nil
}

func encodeNode(v document.View, n *document.Node) (record, error) {
	enc, ok := encoders[n.Type()]
	if !ok {
		return nil, &document.UnknownTypeError{Type: string(n.Type())}
	}
	return enc(v, n)
}

func encodeElement(tag string) encodeFunc {
	return func(v document.View, n *document.Node) (record, error) {
		children, err := encodeChildren(v, n)
		if err != nil {
			return nil, err
		}
		r := record{
			"children":  children,
			"direction": nullable(n.Direction()),
			"format":    n.Align(),
			"indent":    n.Indent(),
			"type":      tag,
			"version":   Version,
		}
		if n.Type() == document.TypeParagraph {
			r["textFormat"] = int(n.Format())
			r["textStyle"] = ""
		}
		return r, nil
	}
}

func encodeLink(tag string) encodeFunc {
	return func(v document.View, n *document.Node) (record, error) {
		r, err := encodeElement(tag)(v, n)
		if err != nil {
			return nil, err
		}
		l := n.Link()
		r["url"] = l.URL
		r["rel"] = nullable(l.Rel)
		r["target"] = nullable(l.Target)
		r["title"] = nullable(l.Title)
		return r, nil
	}
}

func encodeImage(_ document.View, n *document.Node) (record, error) {
	img := n.Image()
	r := record{
		"altText":         img.AltText,
		"captionsEnabled": img.CaptionsEnabled,
		"height":          dimension(img.Height),
		"maxWidth":        img.MaxWidth,
		"showCaption":     img.ShowCaption,
		"src":             img.Src,
		"type":            "image",
		"version":         Version,
		"width":           dimension(img.Width),
	}
	if img.Caption != nil {
		state, err := encodeState(img.Caption.View)
		if err != nil {
			return nil, fmt.Errorf("snapshot: caption: %w", err)
		}
		r["caption"] = record{"editorState": state}
	}
	return r, nil
}

// encodeChildren folds adjacent text runs with equal format and style into
// one record and emits line breaks as linebreak records.
func encodeChildren(v document.View, n *document.Node) ([]record, error) {
	out := make([]record, 0, n.ChildCount())
	var run *document.Node
	var buf strings.Builder

	flush := func() {
		if run == nil {
			return
		}
		out = append(out, textRecords(buf.String(), run.Format(), run.Style())...)
		run = nil
		buf.Reset()
	}

	for _, k := range n.Children() {
		c := v.Get(k)
		if c.IsText() {
			if run != nil && (run.Format() != c.Format() || run.Style() != c.Style()) {
				flush()
			}
			if run == nil {
				run = c
			}
			buf.WriteString(c.Text())
			continue
		}
		flush()
		r, err := encodeNode(v, c)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	flush()
	return out, nil
}

func textRecords(s string, f document.Format, style string) []record {
	var out []record
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out = append(out, record{"type": "linebreak", "version": Version})
		}
		if line == "" {
			continue
		}
		out = append(out, record{
			"detail":  0,
			"format":  int(f),
			"mode":    "normal",
			"style":   style,
			"text":    line,
			"type":    "text",
			"version": Version,
		})
	}
	return out
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dimension(px int) any {
	if px <= 0 {
		return "inherit"
	}
	return px
}
