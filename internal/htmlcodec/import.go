package htmlcodec

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
)

// draft is a converted node not yet placed in a tree.
type draft struct {
	node  *document.Node
	kids  []*draft
	align string
	style string
	// after holds embeds found inside a block; they follow it at the root.
	after []*draft
	// boundary marks the edge of an unknown block-level element.
	boundary bool
}

type textFormat struct {
	format document.Format
	style  string
}

type conversion struct {
	priority int
	match    func(n *html.Node) bool
	convert  func(n *html.Node, f textFormat) []*draft
}

var conversions map[atom.Atom][]conversion

func init() {
	paragraph := conversion{convert: func(n *html.Node, f textFormat) []*draft {
		return block(document.NewParagraph(), n, f)
	}}
	conversions = map[atom.Atom][]conversion{
		atom.P: {paragraph},
		atom.H1: {{convert: func(n *html.Node, f textFormat) []*draft {
			h, _ := document.NewHeading(document.HeadingTag)
			return block(h, n, f)
		}}},
		atom.H2: {paragraph}, atom.H3: {paragraph}, atom.H4: {paragraph},
		atom.H5: {paragraph}, atom.H6: {paragraph},
		atom.Blockquote: {{priority: 2, convert: convertQuote}},
		atom.A:          {{priority: 1, match: hasText, convert: convertAnchor}},
		atom.Div: {
			{priority: 2, match: isEmbedDiv, convert: convertEmbedDiv},
			{priority: 0, convert: container},
		},
		atom.Iframe: {{priority: 1, match: isYouTubeFrame, convert: convertYouTubeFrame}},
		atom.Figure: {
			{priority: 2, match: hasImage, convert: convertFigure},
			{priority: 0, convert: container},
		},
		atom.Img: {{convert: func(n *html.Node, _ textFormat) []*draft {
			if d := imageDraft(n, ""); d != nil {
				return []*draft{d}
			}
			return nil
		}}},
		atom.Br: {{convert: func(_ *html.Node, f textFormat) []*draft {
			return []*draft{textDraft("\n", f)}
		}}},
	}
	for _, a := range []atom.Atom{atom.Strong, atom.B, atom.Em, atom.I, atom.S, atom.Del, atom.Strike, atom.U, atom.Code, atom.Span} {
		conversions[a] = []conversion{{convert: func(n *html.Node, f textFormat) []*draft {
			return children(n, applyFormat(n, f))
		}}}
	}
}

var skipped = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Head: true, atom.Title: true,
	atom.Template: true, atom.Meta: true, atom.Link: true, atom.Noscript: true,
}

var blockLevel = map[atom.Atom]bool{
	atom.Div: true, atom.Section: true, atom.Article: true, atom.Header: true,
	atom.Footer: true, atom.Main: true, atom.Aside: true, atom.Nav: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Table: true, atom.Tr: true,
	atom.Td: true, atom.Th: true, atom.Pre: true, atom.Figure: true,
	atom.Figcaption: true, atom.Hr: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.H5: true, atom.H6: true, atom.Blockquote: true,
}

// Insert parses src and inserts the resulting blocks at pos, a position
// among the root's children. When src yields no content, a paragraph
// holding src as plain text is inserted instead.
func (c *Codec) Insert(tx *document.Tx, src string, pos document.Position) ([]document.NodeKey, error) {
	drafts, err := c.parse(src)
	if err != nil {
		c.log.Warn("htmlcodec: import failed, falling back to plain text",
			slog.String("error", err.Error()),
		)
		return insertPlain(tx, src, pos)
	}
	return place(tx, drafts, pos)
}

// Import builds a new tree from src.
func (c *Codec) Import(src string) (*document.Tree, error) {
	tree := document.NewEmptyTree()
	_, err := tree.Update("import", func(tx *document.Tx) error {
		if _, err := c.Insert(tx, src, document.AppendTo(tx.RootKey())); err != nil {
			return err
		}
		tx.SelectStart(tx.RootKey())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func (c *Codec) parse(src string) ([]*draft, error) {
	s := norm.NFC.String(src)
	if c.sanitize {
		s = c.Sanitize(s)
	}
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return nil, fmt.Errorf("htmlcodec: parse: %v: %w", err, apperr.ErrImportParse)
	}
	var drafts []*draft
	for _, n := range nodes {
		drafts = append(drafts, convert(n, textFormat{})...)
	}
	for _, d := range drafts {
		if !d.boundary {
			return drafts, nil
		}
	}
	return nil, fmt.Errorf("htmlcodec: no content: %w", apperr.ErrImportParse)
}

func insertPlain(tx *document.Tx, src string, pos document.Position) ([]document.NodeKey, error) {
	p, err := tx.Insert(document.NewParagraph(), pos)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Insert(document.NewText(src, 0), document.AppendTo(p)); err != nil {
		return nil, err
	}
	return []document.NodeKey{p}, nil
}

func convert(n *html.Node, f textFormat) []*draft {
	switch n.Type {
	case html.TextNode:
		s := collapseSpace(n)
		if s == "" {
			return nil
		}
		return []*draft{textDraft(s, f)}
	case html.ElementNode:
		if skipped[n.DataAtom] {
			return nil
		}
		if conv := pick(n); conv != nil {
			return conv.convert(n, f)
		}
		if blockLevel[n.DataAtom] {
			return container(n, f)
		}
		return children(n, f)
	case html.DocumentNode:
		return children(n, f)
	}
	return nil
}

// pick returns the highest-priority conversion that accepts n.
func pick(n *html.Node) *conversion {
	var best *conversion
	for i, c := range conversions[n.DataAtom] {
		if c.match != nil && !c.match(n) {
			continue
		}
		if best == nil || c.priority > best.priority {
			best = &conversions[n.DataAtom][i]
		}
	}
	return best
}

func children(n *html.Node, f textFormat) []*draft {
	var out []*draft
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, convert(c, f)...)
	}
	return out
}

func container(n *html.Node, f textFormat) []*draft {
	out := []*draft{{boundary: true}}
	out = append(out, children(n, f)...)
	return append(out, &draft{boundary: true})
}

func textDraft(s string, f textFormat) *draft {
	return &draft{node: document.NewText(s, f.format), style: f.style}
}

func block(node *document.Node, n *html.Node, f textFormat) []*draft {
	kids, after := flattenInline(children(n, f))
	inheritBreaks(kids)
	align := styleValue(n, "text-align")
	if !alignments[align] {
		align = ""
	}
	return []*draft{{node: node, kids: kids, after: after, align: align}}
}

// flattenInline turns the children of a block into inline content. Nested
// blocks give up their content, embeds are lifted out.
func flattenInline(in []*draft) (kids, after []*draft) {
	for _, d := range in {
		switch {
		case d.boundary:
		case d.node.IsEmbed():
			after = append(after, d)
		case d.node.IsBlock():
			k, a := flattenInline(d.kids)
			kids = append(kids, k...)
			after = append(after, a...)
			after = append(after, d.after...)
		default:
			kids = append(kids, d)
		}
	}
	return kids, after
}

// inheritBreaks gives line breaks the format of the text before them, or
// after them when they lead, so they merge into the surrounding run.
func inheritBreaks(kids []*draft) {
	var prev *draft
	for i, d := range kids {
		if !d.node.IsText() {
			prev = nil
			continue
		}
		if d.node.Text() != "\n" {
			prev = d
			continue
		}
		src := prev
		if src == nil {
			for _, next := range kids[i+1:] {
				if next.node.IsText() && next.node.Text() != "\n" {
					src = next
				}
				break
			}
		}
		if src != nil {
			d.node = document.NewText("\n", src.node.Format())
			d.style = src.style
		}
	}
}

func convertQuote(n *html.Node, f textFormat) []*draft {
	var kids, after []*draft
	prevBlock := false
	for _, d := range children(n, f) {
		if d.boundary {
			continue
		}
		isBlock := d.node.IsBlock() && !d.node.IsEmbed()
		if isBlock && len(kids) > 0 {
			kids = append(kids, textDraft("\n", f))
		} else if !isBlock && prevBlock {
			kids = append(kids, textDraft("\n", f))
		}
		k, a := flattenInline([]*draft{d})
		kids = append(kids, k...)
		after = append(after, a...)
		prevBlock = isBlock
	}
	inheritBreaks(kids)
	return []*draft{{node: document.NewQuote(), kids: kids, after: after}}
}

func convertAnchor(n *html.Node, f textFormat) []*draft {
	attrs := document.LinkAttrs{
		URL:    getAttr(n, "href"),
		Target: getAttr(n, "target"),
		Rel:    getAttr(n, "rel"),
		Title:  getAttr(n, "title"),
	}
	link, err := document.NewLink(attrs)
	if err != nil {
		return children(n, f)
	}
	kids, after := flattenInline(children(n, f))
	d := &draft{node: link}
	var lifted []*draft
	for _, k := range kids {
		switch {
		case k.node.IsLink():
			d.kids = append(d.kids, k.kids...)
		case k.node.IsDecorator():
			lifted = append(lifted, k)
		default:
			d.kids = append(d.kids, k)
		}
	}
	return append(append([]*draft{d}, lifted...), after...)
}

func isEmbedDiv(n *html.Node) bool {
	_, ok := embed.TypeForClass(getAttr(n, "class"))
	return ok && hasAttr(n, "data-url")
}

func convertEmbedDiv(n *html.Node, f textFormat) []*draft {
	typ, _ := embed.TypeForClass(getAttr(n, "class"))
	url := getAttr(n, "data-url")
	var (
		node *document.Node
		err  error
	)
	switch typ {
	case document.TypeYouTube:
		m, ok := embed.MatchYouTube(url)
		if !ok {
			return container(n, f)
		}
		node, err = m.Node()
	case document.TypeTweet:
		m, ok := embed.MatchTweet(url)
		if !ok {
			return container(n, f)
		}
		node, err = m.Node()
	default:
		id := url[strings.LastIndex(url, "/")+1:]
		if m, ok := embed.MatchInstagram(url); ok {
			id = m.ID
		}
		node, err = document.NewInstagram(id)
	}
	if err != nil {
		return container(n, f)
	}
	return []*draft{{node: node}}
}

func isYouTubeFrame(n *html.Node) bool { return hasAttr(n, "data-lexical-youtube") }

func convertYouTubeFrame(n *html.Node, f textFormat) []*draft {
	yt, err := document.NewYouTube(getAttr(n, "data-lexical-youtube"))
	if err != nil {
		return nil
	}
	return []*draft{{node: yt}}
}

func hasImage(n *html.Node) bool {
	if getAttr(n, "class") == "blockquote" {
		return false
	}
	return findFirst(n, atom.Img) != nil
}

func convertFigure(n *html.Node, f textFormat) []*draft {
	img := findFirst(n, atom.Img)
	caption := ""
	if fc := findFirst(n, atom.Figcaption); fc != nil {
		caption = strings.TrimSpace(textContent(fc))
	}
	d := imageDraft(img, caption)
	if d == nil {
		return container(n, f)
	}
	return []*draft{d}
}

func imageDraft(n *html.Node, caption string) *draft {
	attrs := document.ImageAttrs{
		Src:     getAttr(n, "src"),
		AltText: getAttr(n, "alt"),
		Width:   atoiAttr(n, "width"),
		Height:  atoiAttr(n, "height"),
	}
	if caption != "" {
		attrs.CaptionsEnabled = true
		attrs.ShowCaption = true
	}
	img, err := document.NewImage(attrs)
	if err != nil {
		return nil
	}
	if caption != "" {
		setCaption(img.Image().Caption, caption)
	}
	return &draft{node: img}
}

func setCaption(tree *document.Tree, text string) {
	_, _ = tree.Update("caption", func(tx *document.Tx) error {
		k := tx.FirstText(tx.RootKey())
		if err := tx.SetText(k, text); err != nil {
			return err
		}
		tx.SelectEnd(tx.RootKey())
		return nil
	})
}

// place inserts top-level drafts starting at pos. Inline runs at the top
// level are wrapped in paragraphs.
func place(tx *document.Tx, drafts []*draft, pos document.Position) ([]document.NodeKey, error) {
	var keys []document.NodeKey
	var wrapper document.NodeKey

	top := func(n *document.Node, align string) (document.NodeKey, error) {
		k, err := tx.Insert(n, pos)
		if err != nil {
			return "", err
		}
		if align != "" {
			if err := tx.SetBlockAttrs(k, n.Direction(), n.Indent(), align); err != nil {
				return "", err
			}
		}
		pos = document.After(k)
		keys = append(keys, k)
		return k, nil
	}

	var placeBlock func(d *draft) error
	placeBlock = func(d *draft) error {
		k, err := top(d.node, d.align)
		if err != nil {
			return err
		}
		if d.node.IsElement() {
			if err := placeInline(tx, k, d.kids); err != nil {
				return err
			}
		}
		for _, a := range d.after {
			if err := placeBlock(a); err != nil {
				return err
			}
		}
		return nil
	}

	for _, d := range drafts {
		switch {
		case d.boundary:
			wrapper = ""
		case d.node.IsBlock():
			wrapper = ""
			if err := placeBlock(d); err != nil {
				return nil, err
			}
		default:
			if wrapper == "" {
				k, err := top(document.NewParagraph(), "")
				if err != nil {
					return nil, err
				}
				wrapper = k
			}
			if err := placeInline(tx, wrapper, []*draft{d}); err != nil {
				return nil, err
			}
		}
	}
	return keys, nil
}

func placeInline(tx *document.Tx, parent document.NodeKey, kids []*draft) error {
	for _, d := range kids {
		if d.boundary {
			continue
		}
		k, err := tx.Insert(d.node, document.AppendTo(parent))
		if err != nil {
			return err
		}
		switch {
		case d.node.IsText() && d.style != "":
			if err := tx.SetStyle(k, d.style); err != nil {
				return err
			}
		case d.node.IsLink():
			if err := placeInline(tx, k, d.kids); err != nil {
				return err
			}
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func atoiAttr(n *html.Node, key string) int {
	v, err := strconv.Atoi(strings.TrimSuffix(getAttr(n, key), "px"))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
		if f := findFirst(c, a); f != nil {
			return f
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

func hasText(n *html.Node) bool { return strings.TrimSpace(textContent(n)) != "" }

// collapseSpace folds whitespace runs to one space. Whitespace-only text
// next to a block element or at a container edge is dropped.
func collapseSpace(n *html.Node) string {
	s := strings.Join(strings.Fields(n.Data), " ")
	if s == "" && n.Data != "" {
		if isBlockSibling(n.PrevSibling) || isBlockSibling(n.NextSibling) {
			return ""
		}
		return " "
	}
	if s == "" {
		return ""
	}
	if startsSpace(n.Data) && !isBlockSibling(n.PrevSibling) {
		s = " " + s
	}
	if endsSpace(n.Data) && !isBlockSibling(n.NextSibling) {
		s += " "
	}
	return s
}

func isBlockSibling(n *html.Node) bool {
	return n == nil || (n.Type == html.ElementNode && blockLevel[n.DataAtom])
}

func startsSpace(s string) bool { return strings.TrimLeft(s, " \t\n\r\f") != s }
func endsSpace(s string) bool   { return strings.TrimRight(s, " \t\n\r\f") != s }

// styleValue returns the value of prop in the inline style of n.
func styleValue(n *html.Node, prop string) string {
	for decl := range strings.SplitSeq(getAttr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), prop) {
			return strings.ToLower(strings.TrimSpace(v))
		}
	}
	return ""
}

var alignments = map[string]bool{
	"left": true, "center": true, "right": true, "justify": true, "start": true, "end": true,
}

// formatProps are style properties folded into the format bits.
var formatProps = map[string]bool{"font-weight": true, "font-style": true, "text-decoration": true}

var tagFormats = map[atom.Atom]document.Format{
	atom.Strong: document.FormatBold,
	atom.B:      document.FormatBold,
	atom.Em:     document.FormatItalic,
	atom.I:      document.FormatItalic,
	atom.S:      document.FormatStrikethrough,
	atom.Del:    document.FormatStrikethrough,
	atom.Strike: document.FormatStrikethrough,
	atom.U:      document.FormatUnderline,
	atom.Code:   document.FormatCode,
}

func applyFormat(n *html.Node, f textFormat) textFormat {
	weight := styleValue(n, "font-weight")
	// Google Docs wraps whole documents in <b style="font-weight:normal">.
	if n.DataAtom != atom.B || (weight != "normal" && weight != "400") {
		f.format |= tagFormats[n.DataAtom]
	}
	switch weight {
	case "bold", "bolder", "600", "700", "800", "900":
		f.format |= document.FormatBold
	}
	if styleValue(n, "font-style") == "italic" {
		f.format |= document.FormatItalic
	}
	if n.DataAtom == atom.Span {
		if st := textStyle(n); st != "" {
			f.style = st
		}
	}
	deco := styleValue(n, "text-decoration")
	if strings.Contains(deco, "line-through") {
		f.format |= document.FormatStrikethrough
	}
	if strings.Contains(deco, "underline") {
		f.format |= document.FormatUnderline
	}
	return f
}

// textStyle keeps the declarations of a span that are not format bits.
func textStyle(n *html.Node) string {
	var kept []string
	for decl := range strings.SplitSeq(getAttr(n, "style"), ";") {
		k, v, ok := strings.Cut(decl, ":")
		k = strings.ToLower(strings.TrimSpace(k))
		if !ok || k == "" || formatProps[k] {
			continue
		}
		kept = append(kept, k+": "+strings.TrimSpace(v))
	}
	if len(kept) == 0 {
		return ""
	}
	return strings.Join(kept, "; ") + ";"
}
