package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/htmlcodec"
)

func links(e *Editor) []*document.Node {
	v := e.View()
	var out []*document.Node
	for n := range v.Traverse(v.RootKey()) {
		if n.IsLink() {
			out = append(out, n)
		}
	}
	return out
}

func requireNoNestedLinks(t *testing.T, e *Editor) {
	t.Helper()
	v := e.View()
	for _, l := range links(e) {
		require.Empty(t, v.NearestLink(l.Parent()), "link %s sits inside another link", l.Key())
	}
}

func toggle(t *testing.T, e *Editor, url string) bool {
	t.Helper()
	ok, err := e.ToggleLink(&url, document.LinkAttrs{})
	require.NoError(t, err)
	requireNoNestedLinks(t, e)
	return ok
}

func TestToggleLinkWrapsSelection(t *testing.T) {
	e := load(t, "<p>Hello world</p>")
	k := findText(t, e, "Hello world")
	sel(t, e, k, 6, k, 11)

	assert.True(t, toggle(t, e, "https://a.example.com"))
	assert.Equal(t, `<p>Hello <a href="https://a.example.com" rel="noopener">world</a></p>`, html(t, e))
	assert.Equal(t, 1, e.History().UndoCount())
}

func TestToggleLinkTwiceKeepsOneLink(t *testing.T) {
	e := load(t, "<p>Hello world</p>")
	k := findText(t, e, "Hello world")
	sel(t, e, k, 6, k, 11)

	require.True(t, toggle(t, e, "https://a.example.com"))
	first := html(t, e)
	require.True(t, toggle(t, e, "https://a.example.com"))

	assert.Equal(t, first, html(t, e))
	require.Len(t, links(e), 1)
}

func TestToggleLinkUnlinks(t *testing.T) {
	e := load(t, `<p>Hello <a href="https://x.com">world</a></p>`)
	w := findText(t, e, "world")
	sel(t, e, w, 0, w, 5)

	ok, err := e.ToggleLink(nil, document.LinkAttrs{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<p>Hello world</p>", html(t, e))
	assert.Empty(t, links(e))

	_, err = e.Undo()
	require.NoError(t, err)
	assert.Equal(t, `<p>Hello <a href="https://x.com">world</a></p>`, html(t, e))
}

func TestToggleLinkUpdatesEnclosingLink(t *testing.T) {
	e := load(t, `<p><a href="https://old.example.com">Hello world</a></p>`)
	k := findText(t, e, "Hello world")
	sel(t, e, k, 6, k, 11)

	require.True(t, toggle(t, e, "https://new.example.com"))
	ls := links(e)
	require.Len(t, ls, 1)
	assert.Equal(t, "https://new.example.com", ls[0].Link().URL)
	assert.Equal(t, "Hello world", e.View().TextContent(ls[0].Key()))
}

func TestToggleLinkAbsorbsCoveredLink(t *testing.T) {
	const want = `<p><a href="https://new.example.com" rel="noopener">Hello world end</a></p>`

	for _, backward := range []bool{false, true} {
		e := load(t, `<p>Hello <a href="https://old.example.com">world</a> end</p>`)
		hello, end := findText(t, e, "Hello "), findText(t, e, " end")
		if backward {
			sel(t, e, end, 4, hello, 0)
		} else {
			sel(t, e, hello, 0, end, 4)
		}

		require.True(t, toggle(t, e, "https://new.example.com"))
		assert.Equal(t, want, html(t, e), "backward=%v", backward)
		require.Len(t, links(e), 1)
	}
}

func TestToggleLinkSplitsOverlappedLink(t *testing.T) {
	e := load(t, `<p><a href="https://old.example.com">Hello</a> world</p>`)
	hello, world := findText(t, e, "Hello"), findText(t, e, " world")
	sel(t, e, hello, 3, world, 6)

	require.True(t, toggle(t, e, "https://new.example.com"))
	ls := links(e)
	require.Len(t, ls, 2)
	v := e.View()
	assert.Equal(t, "https://old.example.com", ls[0].Link().URL)
	assert.Equal(t, "Hel", v.TextContent(ls[0].Key()))
	assert.Equal(t, "https://new.example.com", ls[1].Link().URL)
	assert.Equal(t, "lo world", v.TextContent(ls[1].Key()))
	assert.Equal(t, "Hello world", v.TextContent(v.RootKey()))
}

func TestToggleLinkAcrossParagraphs(t *testing.T) {
	e := load(t, "<p>one</p><p>two</p>")
	one, two := findText(t, e, "one"), findText(t, e, "two")
	sel(t, e, one, 0, two, 3)

	require.True(t, toggle(t, e, "https://a.example.com"))
	assert.Equal(t,
		`<p><a href="https://a.example.com" rel="noopener">one</a></p>`+
			`<p><a href="https://a.example.com" rel="noopener">two</a></p>`,
		html(t, e))

	ok, err := e.ToggleLink(nil, document.LinkAttrs{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "<p>one</p><p>two</p>", html(t, e))
}

func TestToggleLinkLeavesImagesOutside(t *testing.T) {
	e := load(t, `<p>one<img src="https://cdn.example.com/a.png">two</p>`)
	one, two := findText(t, e, "one"), findText(t, e, "two")
	sel(t, e, one, 0, two, 3)

	require.True(t, toggle(t, e, "https://a.example.com"))
	ls := links(e)
	require.Len(t, ls, 2)
	v := e.View()
	assert.Equal(t, "one", v.TextContent(ls[0].Key()))
	assert.Equal(t, "two", v.TextContent(ls[1].Key()))

	img := v.Get(findType(t, e, document.TypeImage))
	assert.Equal(t, document.TypeParagraph, v.Get(img.Parent()).Type())
}

func TestToggleLinkRejectsNonHTTPURLs(t *testing.T) {
	for _, url := range []string{"javascript:alert(1)", "ftp://files.example.com/a", "mailto:a@example.com", "not a url"} {
		e := load(t, "<p>click</p>")
		k := findText(t, e, "click")
		sel(t, e, k, 0, k, 5)

		assert.False(t, toggle(t, e, url), url)
		assert.Empty(t, links(e), url)
		assert.Zero(t, e.History().UndoCount(), url)

		out, err := e.HTML(htmlcodec.ModeBridge)
		require.NoError(t, err)
		assert.Equal(t, "<p>click</p>", out)
	}
}

func TestToggleLinkWithoutRangeIsNoop(t *testing.T) {
	e := New()
	require.NoError(t, e.InsertYouTube("wK3lywzIaSw"))
	require.NoError(t, e.SelectNodes(findType(t, e, document.TypeYouTube)))
	before := html(t, e)
	undo := e.History().UndoCount()

	assert.False(t, toggle(t, e, "https://a.example.com"))
	assert.Equal(t, before, html(t, e))
	assert.Equal(t, undo, e.History().UndoCount())

	c := load(t, "<p>plain</p>")
	k := findText(t, c, "plain")
	sel(t, c, k, 2, k, 2)
	assert.False(t, toggle(t, c, "https://a.example.com"))
	assert.Empty(t, links(c))
}

func TestExecuteToggleLinkReportsRejection(t *testing.T) {
	e := load(t, "<p>click</p>")
	k := findText(t, e, "click")
	sel(t, e, k, 0, k, 5)

	bad := "javascript:alert(1)"
	res, err := e.Execute(Command{Name: CmdToggleLink, URL: &bad})
	require.NoError(t, err)
	assert.False(t, res.Applied)

	good := "https://a.example.com"
	res, err = e.Execute(Command{Name: CmdToggleLink, URL: &good})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	require.Len(t, links(e), 1)
}
