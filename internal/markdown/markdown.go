// Package markdown renders a document tree as Markdown, optionally preceded
// by a YAML frontmatter block.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
)

// Meta is written as frontmatter when non-zero.
type Meta struct {
	Title  string   `yaml:"title,omitempty"`
	Tags   []string `yaml:"tags,omitempty"`
	Links  []string `yaml:"links,omitempty"`
	Images int      `yaml:"images,omitempty"`
	Embeds int      `yaml:"embeds,omitempty"`
}

func (m Meta) empty() bool {
	return m.Title == "" && len(m.Tags) == 0 && len(m.Links) == 0 && m.Images == 0 && m.Embeds == 0
}

// Render writes v as Markdown.
func Render(v document.View) string {
	r := renderer{v: v}
	var blocks []string
	for _, k := range v.Root().Children() {
		if s := r.block(v.Get(k)); s != "" {
			blocks = append(blocks, s)
		}
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// RenderWithMeta writes the frontmatter for meta followed by the Markdown
// body of v.
func RenderWithMeta(v document.View, meta Meta) (string, error) {
	body := Render(v)
	if meta.empty() {
		return body, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("markdown: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("markdown: encode frontmatter: %w", err)
	}
	return "---\n" + buf.String() + "---\n" + body, nil
}

type renderer struct {
	v document.View
}

func (r renderer) block(n *document.Node) string {
	switch n.Type() {
	case document.TypeHeading:
		return "# " + oneLine(r.inline(n))
	case document.TypeQuote:
		lines := strings.Split(r.inline(n), "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight("> "+l, " ")
		}
		return strings.Join(lines, "\n")
	case document.TypeParagraph:
		s := strings.ReplaceAll(r.inline(n), "\n", "  \n")
		if s == "" {
			return ""
		}
		if a := n.Align(); a != "" && a != "left" && a != "start" {
			return fmt.Sprintf("<div align=\"%s\">%s</div>", a, s)
		}
		return s
	}
	return r.leaf(n)
}

func (r renderer) inline(n *document.Node) string {
	var sb strings.Builder
	for _, k := range n.Children() {
		c := r.v.Get(k)
		switch {
		case c.IsText():
			sb.WriteString(text(c))
		case c.IsLink():
			fmt.Fprintf(&sb, "[%s](%s)", r.inline(c), c.Link().URL)
		default:
			sb.WriteString(r.leaf(c))
		}
	}
	return sb.String()
}

func (r renderer) leaf(n *document.Node) string {
	switch n.Type() {
	case document.TypeImage:
		img := n.Image()
		s := fmt.Sprintf("![%s](%s)", img.AltText, img.Src)
		if img.ShowCaption && img.Caption != nil {
			if c := img.Caption.TextContent(img.Caption.RootKey()); c != "" {
				s += "\n*" + oneLine(c) + "*"
			}
		}
		return s
	case document.TypeYouTube, document.TypeTweet, document.TypeInstagram:
		return fmt.Sprintf("[%s](%s)", n.Type(), embed.CanonicalURL(n))
	}
	return ""
}

// Marker order, outermost first.
var markers = []struct {
	f          document.Format
	open, shut string
}{
	{document.FormatCode, "`", "`"},
	{document.FormatBold, "**", "**"},
	{document.FormatItalic, "_", "_"},
	{document.FormatUnderline, "<u>", "</u>"},
	{document.FormatStrikethrough, "~~", "~~"},
}

// text wraps a text run in its format markers. Surrounding spaces stay
// outside the markers so emphasis still parses.
func text(n *document.Node) string {
	if n.Format() == 0 {
		return n.Text()
	}
	lines := strings.Split(n.Text(), "\n")
	for i, l := range lines {
		lines[i] = wrap(l, n.Format())
	}
	return strings.Join(lines, "\n")
}

func wrap(s string, f document.Format) string {
	core := strings.TrimSpace(s)
	if core == "" {
		return s
	}
	lead := s[:strings.Index(s, core)]
	trail := s[len(lead)+len(core):]

	var open, shut strings.Builder
	for _, m := range markers {
		if f.Has(m.f) {
			open.WriteString(m.open)
		}
	}
	for i := len(markers) - 1; i >= 0; i-- {
		if f.Has(markers[i].f) {
			shut.WriteString(markers[i].shut)
		}
	}
	return lead + open.String() + core + shut.String() + trail
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
