package htmlcodec

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
)

type exporter struct {
	v    document.View
	mode Mode
}

type exportFunc func(e *exporter, n *document.Node) ([]*html.Node, error)

var exporters map[document.NodeType]exportFunc

func init() {
	exporters = map[document.NodeType]exportFunc{
		document.TypeParagraph: exportBlock(atom.P),
		document.TypeHeading:   exportBlock(atom.H1),
		document.TypeQuote:     exportQuote,
		document.TypeText:      exportText,
		document.TypeLink:      exportLink,
		document.TypeAutoLink:  exportLink,
		document.TypeImage:     exportImage,
		document.TypeYouTube:   exportEmbed,
		document.TypeTweet:     exportEmbed,
		document.TypeInstagram: exportEmbed,
	}
}

// Export renders the document as an HTML fragment.
func (c *Codec) Export(v document.View, mode Mode) (string, error) {
	e := &exporter{v: v, mode: mode}
	var sb strings.Builder
	for _, k := range v.Root().Children() {
		nodes, err := e.node(v.Get(k))
		if err != nil {
			return "", err
		}
		for _, hn := range nodes {
			if err := html.Render(&sb, hn); err != nil {
				return "", fmt.Errorf("htmlcodec: render: %w", err)
			}
		}
	}
	// Void elements come out as <br/>; hosts expect <br>.
	out := strings.ReplaceAll(sb.String(), "/>", ">")
	if mode == ModeBridge && c.minify {
		m, err := c.minifier.String("text/html", out)
		if err != nil {
			return "", fmt.Errorf("htmlcodec: minify: %w", err)
		}
		out = m
	}
	return out, nil
}

func (e *exporter) node(n *document.Node) ([]*html.Node, error) {
	fn, ok := exporters[n.Type()]
	if !ok {
		return nil, &document.UnknownTypeError{Type: string(n.Type())}
	}
	return fn(e, n)
}

func (e *exporter) children(parent *html.Node, n *document.Node) error {
	for _, k := range n.Children() {
		nodes, err := e.node(e.v.Get(k))
		if err != nil {
			return err
		}
		for _, hn := range nodes {
			parent.AppendChild(hn)
		}
	}
	return nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(key, val string) html.Attribute { return html.Attribute{Key: key, Val: val} }

func textNode(s string) *html.Node { return &html.Node{Type: html.TextNode, Data: s} }

// blank reports whether an element renders nothing visible.
func (e *exporter) blank(n *document.Node) bool {
	for d := range e.v.Traverse(n.Key()) {
		if (d.IsText() && d.Text() != "") || d.IsDecorator() {
			return false
		}
	}
	return true
}

func exportBlock(a atom.Atom) exportFunc {
	return func(e *exporter, n *document.Node) ([]*html.Node, error) {
		el := element(a)
		if n.Align() != "" {
			el.Attr = append(el.Attr, attr("style", "text-align: "+n.Align()+";"))
		}
		if e.blank(n) {
			el.AppendChild(element(atom.Br))
			return []*html.Node{el}, nil
		}
		if err := e.children(el, n); err != nil {
			return nil, err
		}
		return []*html.Node{el}, nil
	}
}

func exportQuote(e *exporter, n *document.Node) ([]*html.Node, error) {
	fig := element(atom.Figure, attr("class", "blockquote"))
	bq := element(atom.Blockquote)
	p := element(atom.P)
	fig.AppendChild(bq)
	bq.AppendChild(p)
	if e.blank(n) {
		p.AppendChild(element(atom.Br))
		return []*html.Node{fig}, nil
	}
	if err := e.children(p, n); err != nil {
		return nil, err
	}
	return []*html.Node{fig}, nil
}

// formatTags wrap text from the outside in.
var formatTags = []struct {
	f document.Format
	a atom.Atom
}{
	{document.FormatBold, atom.Strong},
	{document.FormatItalic, atom.Em},
	{document.FormatUnderline, atom.U},
	{document.FormatStrikethrough, atom.S},
	{document.FormatCode, atom.Code},
}

func exportText(_ *exporter, n *document.Node) ([]*html.Node, error) {
	if n.Text() == "" {
		return nil, nil
	}
	var out []*html.Node
	for i, line := range strings.Split(n.Text(), "\n") {
		if i > 0 {
			out = append(out, element(atom.Br))
		}
		if line == "" {
			continue
		}
		out = append(out, wrapFormat(textNode(line), n.Format(), n.Style()))
	}
	return out, nil
}

func wrapFormat(inner *html.Node, f document.Format, style string) *html.Node {
	cur := inner
	for i := len(formatTags) - 1; i >= 0; i-- {
		if f.Has(formatTags[i].f) {
			el := element(formatTags[i].a)
			el.AppendChild(cur)
			cur = el
		}
	}
	if style != "" {
		span := element(atom.Span, attr("style", style))
		span.AppendChild(cur)
		cur = span
	}
	return cur
}

func exportLink(e *exporter, n *document.Node) ([]*html.Node, error) {
	l := n.Link()
	a := element(atom.A, attr("href", l.URL))
	if e.mode == ModeFull {
		if l.Target != "" {
			a.Attr = append(a.Attr, attr("target", l.Target))
		}
		if l.Rel != "" {
			a.Attr = append(a.Attr, attr("rel", l.Rel))
		}
	}
	if l.Title != "" {
		a.Attr = append(a.Attr, attr("title", l.Title))
	}
	if err := e.children(a, n); err != nil {
		return nil, err
	}
	return []*html.Node{a}, nil
}

func exportImage(_ *exporter, n *document.Node) ([]*html.Node, error) {
	img := n.Image()
	el := element(atom.Img, attr("src", img.Src), attr("alt", img.AltText))
	if img.Width > 0 {
		el.Attr = append(el.Attr, attr("width", strconv.Itoa(img.Width)))
	}
	if img.Height > 0 {
		el.Attr = append(el.Attr, attr("height", strconv.Itoa(img.Height)))
	}
	if !img.ShowCaption || img.Caption == nil {
		return []*html.Node{el}, nil
	}
	fig := element(atom.Figure, attr("class", "image"))
	fig.AppendChild(el)
	fc := element(atom.Figcaption)
	fc.AppendChild(textNode(img.Caption.TextContent(img.Caption.RootKey())))
	fig.AppendChild(fc)
	return []*html.Node{fig}, nil
}

func exportEmbed(_ *exporter, n *document.Node) ([]*html.Node, error) {
	div := element(atom.Div,
		attr("class", embed.ClassName(n.Type())),
		attr("data-url", embed.CanonicalURL(n)),
	)
	return []*html.Node{div}, nil
}
