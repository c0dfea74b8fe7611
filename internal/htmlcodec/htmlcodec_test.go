package htmlcodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
)

type builder struct {
	t  *testing.T
	tx *document.Tx
}

func (b builder) add(n *document.Node, err error, pos document.Position) document.NodeKey {
	b.t.Helper()
	require.NoError(b.t, err)
	k, err := b.tx.Insert(n, pos)
	require.NoError(b.t, err)
	return k
}

func sampleTree(t *testing.T) *document.Tree {
	t.Helper()
	tree := document.NewEmptyTree()
	_, err := tree.Update("build", func(tx *document.Tx) error {
		b := builder{t: t, tx: tx}
		root := document.AppendTo(tx.RootKey())

		p := b.add(document.NewParagraph(), nil, root)
		b.add(document.NewText("Hello ", 0), nil, document.AppendTo(p))
		b.add(document.NewText("world", document.FormatBold|document.FormatStrikethrough), nil, document.AppendTo(p))
		l, err := document.NewLink(document.LinkAttrs{URL: "https://example.com", Target: "_blank", Rel: "noopener"})
		lk := b.add(l, err, document.AppendTo(p))
		b.add(document.NewText("site", 0), nil, document.AppendTo(lk))

		h, err := document.NewHeading(document.HeadingTag)
		hk := b.add(h, err, root)
		b.add(document.NewText("Title", 0), nil, document.AppendTo(hk))

		q := b.add(document.NewQuote(), nil, root)
		b.add(document.NewText("a\nb", document.FormatItalic), nil, document.AppendTo(q))

		yt, err := document.NewYouTube("wK3lywzIaSw")
		b.add(yt, err, root)
		tw, err := document.NewTweet("1467648053125726208", "nordot_jp")
		b.add(tw, err, root)
		ig, err := document.NewInstagram("CmV98GevRVN")
		b.add(ig, err, root)

		p2 := b.add(document.NewParagraph(), nil, root)
		b.add(document.NewText("pic", document.FormatCode), nil, document.AppendTo(p2))
		img, err := document.NewImage(document.ImageAttrs{Src: "https://cdn.example.com/a.png", AltText: "alt", Width: 100})
		b.add(img, err, document.AppendTo(p2))

		tx.SelectStart(tx.RootKey())
		return nil
	})
	require.NoError(t, err)
	return tree
}

func TestExportFull(t *testing.T) {
	out, err := New().Export(sampleTree(t).View, ModeFull)
	require.NoError(t, err)

	for _, want := range []string{
		`<p>Hello <strong><s>world</s></strong><a href="https://example.com" target="_blank" rel="noopener">site</a></p>`,
		`<h1>Title</h1>`,
		`<figure class="blockquote"><blockquote><p><em>a</em><br><em>b</em></p></blockquote></figure>`,
		`<div class="embed-youtube" data-url="https://www.youtube.com/watch?v=wK3lywzIaSw"></div>`,
		`<div class="embed-twitter" data-url="https://x.com/nordot_jp/status/1467648053125726208"></div>`,
		`<div class="embed-instagram" data-url="https://www.instagram.com/p/CmV98GevRVN"></div>`,
		`<p><code>pic</code><img src="https://cdn.example.com/a.png" alt="alt" width="100"></p>`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "/>")
}

func TestExportEmptyBlock(t *testing.T) {
	out, err := New().Export(document.NewTree().View, ModeFull)
	require.NoError(t, err)
	assert.Equal(t, "<p><br></p>", out)
}

func TestExportBridgeDropsLinkAttrs(t *testing.T) {
	tree := sampleTree(t)

	out, err := New().Export(tree.View, ModeBridge)
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="https://example.com">site</a>`)
	assert.NotContains(t, out, "target=")

	minified, err := New(WithMinify(true)).Export(tree.View, ModeBridge)
	require.NoError(t, err)
	assert.Contains(t, minified, "site")
	assert.LessOrEqual(t, len(minified), len(out))
}

func TestExportStyledText(t *testing.T) {
	tree := document.NewTree()
	_, err := tree.Update("style", func(tx *document.Tx) error {
		k := tx.FirstText(tx.RootKey())
		if err := tx.SetText(k, "red"); err != nil {
			return err
		}
		if err := tx.SetFormat(k, document.FormatUnderline); err != nil {
			return err
		}
		return tx.SetStyle(k, "color: red;")
	})
	require.NoError(t, err)

	out, err := New().Export(tree.View, ModeFull)
	require.NoError(t, err)
	assert.Equal(t, `<p><span style="color: red;"><u>red</u></span></p>`, out)
}

type tuple struct {
	Type   document.NodeType
	Text   string
	Format document.Format
	URL    string
}

func tuples(v document.View) []tuple {
	var out []tuple
	for n := range v.Traverse(v.RootKey()) {
		out = append(out, tuple{Type: n.Type(), Text: n.Text(), Format: n.Format(), URL: n.Link().URL})
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	c := New()
	src := sampleTree(t)
	out, err := c.Export(src.View, ModeFull)
	require.NoError(t, err)

	tree, err := c.Import(out)
	require.NoError(t, err)
	assert.Equal(t, tuples(src.View), tuples(tree.View))
}

func TestImportBlocksAndFormats(t *testing.T) {
	tree, err := New().Import(`<p style="text-align: center">Hello <b>bold</b> <i>it</i></p><h1>T</h1><h3>sub</h3>`)
	require.NoError(t, err)

	root := tree.Root()
	require.Equal(t, 3, root.ChildCount())
	p := tree.Get(root.Child(0))
	assert.Equal(t, document.TypeParagraph, p.Type())
	assert.Equal(t, "center", p.Align())
	require.Equal(t, 4, p.ChildCount())
	assert.Equal(t, "Hello ", tree.Get(p.Child(0)).Text())
	assert.Equal(t, document.FormatBold, tree.Get(p.Child(1)).Format())
	assert.Equal(t, " ", tree.Get(p.Child(2)).Text())
	assert.Equal(t, document.FormatItalic, tree.Get(p.Child(3)).Format())

	assert.Equal(t, document.TypeHeading, tree.Get(root.Child(1)).Type())
	assert.Equal(t, document.TypeParagraph, tree.Get(root.Child(2)).Type())
	assert.Equal(t, "sub", tree.TextContent(root.Child(2)))
}

func TestImportQuoteJoinsParagraphs(t *testing.T) {
	tree, err := New().Import(`<blockquote><p>one</p><p>two</p></blockquote>`)
	require.NoError(t, err)

	q := tree.Get(tree.Root().Child(0))
	assert.Equal(t, document.TypeQuote, q.Type())
	require.Equal(t, 1, q.ChildCount())
	assert.Equal(t, "one\ntwo", tree.Get(q.Child(0)).Text())
}

func TestImportEmbeds(t *testing.T) {
	tree, err := New().Import(
		`<div class="embed-youtube" data-url="https://www.youtube.com/watch?v=wK3lywzIaSw"></div>` +
			`<iframe data-lexical-youtube="dQw4w9WgXcQ"></iframe>` +
			`<div class="embed-twitter" data-url="https://x.com/nordot_jp/status/1467648053125726208"></div>`)
	require.NoError(t, err)

	root := tree.Root()
	require.Equal(t, 4, root.ChildCount())
	assert.Equal(t, "wK3lywzIaSw", tree.Get(root.Child(0)).Embed().ID)
	assert.Equal(t, "dQw4w9WgXcQ", tree.Get(root.Child(1)).Embed().ID)
	tw := tree.Get(root.Child(2)).Embed()
	assert.Equal(t, "nordot_jp", tw.Owner)
	assert.Equal(t, "1467648053125726208", tw.ID)
	// The trailing embed gets a paragraph to type into.
	assert.Equal(t, document.TypeParagraph, tree.Get(root.Child(3)).Type())
}

func TestImportHoistsEmbedOutOfBlock(t *testing.T) {
	tree, err := New().Import(`<h1>x<div class="embed-instagram" data-url="https://www.instagram.com/p/CmV98GevRVN"></div></h1>`)
	require.NoError(t, err)

	root := tree.Root()
	require.Equal(t, 3, root.ChildCount())
	assert.Equal(t, "x", tree.TextContent(root.Child(0)))
	assert.Equal(t, document.TypeInstagram, tree.Get(root.Child(1)).Type())
}

func TestImportLinks(t *testing.T) {
	tree, err := New().Import(
		`<a href="https://a.com" target="_blank">go</a>` +
			`<p><a href="https://b.com">t<img src="https://x.com/i.png"></a></p>` +
			`<p><a href="https://c.com"><img src="https://x.com/j.png"></a></p>`)
	require.NoError(t, err)

	root := tree.Root()
	require.Equal(t, 3, root.ChildCount())

	first := tree.Get(root.Child(0))
	link := tree.Get(first.Child(0))
	assert.Equal(t, document.TypeLink, link.Type())
	assert.Equal(t, "_blank", link.Link().Target)
	assert.Equal(t, "go", tree.TextContent(link.Key()))

	second := tree.Get(root.Child(1))
	require.Equal(t, 2, second.ChildCount())
	assert.Equal(t, document.TypeLink, tree.Get(second.Child(0)).Type())
	assert.Equal(t, document.TypeImage, tree.Get(second.Child(1)).Type())

	// An anchor without text is not a link.
	third := tree.Get(root.Child(2))
	require.Equal(t, 1, third.ChildCount())
	assert.Equal(t, document.TypeImage, tree.Get(third.Child(0)).Type())
}

func TestImportFigureCaption(t *testing.T) {
	tree, err := New().Import(`<figure class="image"><img src="https://x.com/a.png" alt="a"><figcaption>Cap</figcaption></figure>`)
	require.NoError(t, err)

	p := tree.Get(tree.Root().Child(0))
	img := tree.Get(p.Child(0)).Image()
	assert.True(t, img.ShowCaption)
	require.NotNil(t, img.Caption)
	assert.Equal(t, "Cap", img.Caption.TextContent(img.Caption.RootKey()))
}

func TestImportGoogleDocsWrapper(t *testing.T) {
	tree, err := New().Import(`<b style="font-weight:normal;"><span style="font-weight:700">B</span> n</b>`)
	require.NoError(t, err)

	p := tree.Get(tree.Root().Child(0))
	require.Equal(t, 2, p.ChildCount())
	assert.Equal(t, document.FormatBold, tree.Get(p.Child(0)).Format())
	assert.Equal(t, " n", tree.Get(p.Child(1)).Text())
	assert.Equal(t, document.Format(0), tree.Get(p.Child(1)).Format())
}

func TestImportSanitizes(t *testing.T) {
	tree, err := New().Import(`<p onclick="x()">safe<script>alert(1)</script></p>`)
	require.NoError(t, err)
	assert.Equal(t, "safe", tree.TextContent(tree.RootKey()))
}

func TestImportFallsBackToText(t *testing.T) {
	c := New()
	_, err := c.parse(`<script>alert(1)</script>`)
	assert.ErrorIs(t, err, apperr.ErrImportParse)

	tree, err := c.Import(`<script>alert(1)</script>`)
	require.NoError(t, err)
	require.Equal(t, 1, tree.Root().ChildCount())
	assert.Equal(t, `<script>alert(1)</script>`, tree.TextContent(tree.RootKey()))
}

func TestInsertAfterBlock(t *testing.T) {
	tree := document.NewTree()
	first := tree.Root().Child(0)
	_, err := tree.Update("paste", func(tx *document.Tx) error {
		keys, err := New().Insert(tx, "<p>x</p>y", document.After(first))
		require.Len(t, keys, 2)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 3, tree.Root().ChildCount())
	assert.Equal(t, "\n\nx\n\ny", tree.TextContent(tree.RootKey()))
}
