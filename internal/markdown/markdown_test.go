package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/htmlcodec"
)

func importHTML(t *testing.T, src string) *document.Tree {
	t.Helper()
	tree, err := htmlcodec.New().Import(src)
	require.NoError(t, err)
	return tree
}

func TestRenderBlocks(t *testing.T) {
	tree := importHTML(t, `<h1>Title</h1><p>Hello <strong>bold</strong> <a href="https://x.com">link</a></p>`)
	assert.Equal(t, "# Title\n\nHello **bold** [link](https://x.com)\n", Render(tree.View))
}

func TestRenderQuoteLines(t *testing.T) {
	tree := importHTML(t, `<blockquote><p>a</p><p>b</p></blockquote>`)
	assert.Equal(t, "> a\n> b\n", Render(tree.View))
}

func TestRenderDecorators(t *testing.T) {
	tree := document.NewEmptyTree()
	_, err := tree.Update("build", func(tx *document.Tx) error {
		yt, err := document.NewYouTube("wK3lywzIaSw")
		if err != nil {
			return err
		}
		if _, err := tx.Insert(yt, document.AppendTo(tx.RootKey())); err != nil {
			return err
		}
		img, err := document.NewImage(document.ImageAttrs{Src: "https://cdn.example.com/a.png", AltText: "cat"})
		if err != nil {
			return err
		}
		_, err = tx.Insert(img, document.AppendTo(tx.RootKey()))
		return err
	})
	require.NoError(t, err)

	assert.Equal(t,
		"[youtube](https://www.youtube.com/watch?v=wK3lywzIaSw)\n\n![cat](https://cdn.example.com/a.png)\n",
		Render(tree.View))
}

func TestFormatMarkersKeepSpacesOutside(t *testing.T) {
	n := document.NewText(" both ", document.FormatBold|document.FormatStrikethrough)
	assert.Equal(t, " **~~both~~** ", text(n))

	n = document.NewText("a\nb", document.FormatItalic)
	assert.Equal(t, "_a_\n_b_", text(n))
}

func TestRenderWithMeta(t *testing.T) {
	tree := importHTML(t, `<h1>T</h1>`)

	out, err := RenderWithMeta(tree.View, Meta{Title: "T", Tags: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, "---\ntitle: T\ntags:\n  - go\n---\n# T\n", out)

	out, err = RenderWithMeta(tree.View, Meta{})
	require.NoError(t, err)
	assert.Equal(t, "# T\n", out)
}
