package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
)

func richTree(t *testing.T) *document.Tree {
	t.Helper()
	tree := document.NewEmptyTree()
	_, err := tree.Update("build", func(tx *document.Tx) error {
		insert := func(n *document.Node, err error, pos document.Position) document.NodeKey {
			require.NoError(t, err)
			k, err := tx.Insert(n, pos)
			require.NoError(t, err)
			return k
		}
		root := tx.RootKey()

		p := insert(document.NewParagraph(), nil, document.AppendTo(root))
		insert(document.NewText("Hello ", 0), nil, document.AppendTo(p))
		insert(document.NewText("world", document.FormatBold|document.FormatStrikethrough), nil, document.AppendTo(p))
		l, err := document.NewLink(document.LinkAttrs{URL: "https://example.com", Rel: "noopener"})
		lk := insert(l, err, document.AppendTo(p))
		insert(document.NewText("site", 0), nil, document.AppendTo(lk))

		h, err := document.NewHeading(document.HeadingTag)
		hk := insert(h, err, document.AppendTo(root))
		insert(document.NewText("Title", 0), nil, document.AppendTo(hk))

		q := insert(document.NewQuote(), nil, document.AppendTo(root))
		insert(document.NewText("a\nb", 0), nil, document.AppendTo(q))

		yt, err := document.NewYouTube("wK3lywzIaSw")
		insert(yt, err, document.AppendTo(root))
		tw, err := document.NewTweet("1467648053125726208", "nordot_jp")
		insert(tw, err, document.AppendTo(root))
		ig, err := document.NewInstagram("CmV98GevRVN")
		insert(ig, err, document.AppendTo(root))

		p2 := insert(document.NewParagraph(), nil, document.AppendTo(root))
		insert(document.NewText("pic", 0), nil, document.AppendTo(p2))
		img, err := document.NewImage(document.ImageAttrs{
			Src: "https://cdn.example.com/a.png", AltText: "alt", Width: 100,
			ShowCaption: true, CaptionsEnabled: true,
		})
		insert(img, err, document.AppendTo(p2))

		tx.SelectStart(root)
		return nil
	})
	require.NoError(t, err)
	return tree
}

func TestMarshalEmptyTree(t *testing.T) {
	data, err := Marshal(document.NewTree().View)
	require.NoError(t, err)

	assert.Equal(t, "root", gjson.GetBytes(data, "root.type").String())
	assert.Equal(t, int64(1), gjson.GetBytes(data, "root.version").Int())
	assert.Equal(t, "paragraph", gjson.GetBytes(data, "root.children.0.type").String())
	assert.Equal(t, int64(0), gjson.GetBytes(data, "root.children.0.children.#").Int())
	assert.Equal(t, "ltr", gjson.GetBytes(data, "root.direction").String())
}

func TestMarshalWireShape(t *testing.T) {
	data, err := Marshal(richTree(t).View)
	require.NoError(t, err)
	get := func(path string) gjson.Result { return gjson.GetBytes(data, "root.children."+path) }

	assert.Equal(t, "Hello ", get("0.children.0.text").String())
	assert.Equal(t, int64(5), get("0.children.1.format").Int())
	assert.Equal(t, "normal", get("0.children.1.mode").String())
	assert.Equal(t, "link", get("0.children.2.type").String())
	assert.Equal(t, "noopener", get("0.children.2.rel").String())
	assert.Equal(t, gjson.Null, get("0.children.2.target").Type)

	assert.Equal(t, "h1", get("1.tag").String())

	assert.Equal(t, QuoteType, get("2.type").String())
	assert.Equal(t, "a", get("2.children.0.text").String())
	assert.Equal(t, "linebreak", get("2.children.1.type").String())
	assert.Equal(t, "b", get("2.children.2.text").String())

	assert.Equal(t, "wK3lywzIaSw", get("3.videoID").String())
	assert.Equal(t, "https://x.com/nordot_jp/status/1467648053125726208", get("4.url").String())
	assert.Equal(t, "CmV98GevRVN", get("5.id").String())

	img := get("6.children.1")
	assert.Equal(t, "image", img.Get("type").String())
	assert.Equal(t, int64(100), img.Get("width").Int())
	assert.Equal(t, "inherit", img.Get("height").String())
	assert.Equal(t, "root", img.Get("caption.editorState.root.type").String())
}

func TestRoundTrip(t *testing.T) {
	first, err := Marshal(richTree(t).View)
	require.NoError(t, err)

	tree, err := Unmarshal(first)
	require.NoError(t, err)
	second, err := Marshal(tree.View)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))

	// Line breaks fold back into a single text run.
	q := tree.Get(tree.Root().Child(2))
	require.Equal(t, 1, q.ChildCount())
	assert.Equal(t, "a\nb", tree.Get(q.Child(0)).Text())

	img := tree.Get(tree.Get(tree.Root().Child(6)).Child(1))
	require.NotNil(t, img.Image().Caption)
	assert.True(t, img.Image().ShowCaption)
}

func TestUnmarshalAcceptsLegacyShapes(t *testing.T) {
	data := []byte(`{"root":{"type":"root","version":1,"direction":null,"format":"","indent":0,"children":[
		{"type":"quote","version":1,"format":"center","children":[{"type":"text","text":"q","format":1,"version":1}]},
		{"type":"tweet","version":1,"format":"","url":"https://x.com/someone/status/5"},
		{"type":"paragraph","version":1,"children":[{"type":"image","version":1,"src":"a.png","width":"inherit","height":240}]}
	]}}`)
	tree, err := Unmarshal(data)
	require.NoError(t, err)

	q := tree.Get(tree.Root().Child(0))
	assert.Equal(t, document.TypeQuote, q.Type())
	assert.Equal(t, "center", q.Align())
	assert.Equal(t, document.FormatBold, tree.Get(q.Child(0)).Format())

	tw := tree.Get(tree.Root().Child(1))
	assert.Equal(t, "5", tw.Embed().ID)
	assert.Equal(t, "someone", tw.Embed().Owner)

	img := tree.Get(tree.Get(tree.Root().Child(2)).Child(0))
	assert.Equal(t, 0, img.Image().Width)
	assert.Equal(t, 240, img.Image().Height)
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"malformed", `not json`, apperr.ErrImportParse},
		{"no root", `{"state":{}}`, apperr.ErrImportParse},
		{"root type", `{"root":{"type":"document","children":[]}}`, apperr.ErrUnknownNodeType},
		{"unknown child", `{"root":{"type":"root","children":[{"type":"table","version":1}]}}`, apperr.ErrUnknownNodeType},
		{"missing type", `{"root":{"type":"root","children":[{"children":[]}]}}`, apperr.ErrUnknownNodeType},
		{"version", `{"root":{"type":"root","children":[{"type":"paragraph","version":2,"children":[]}]}}`, apperr.ErrValidation},
		{"heading tag", `{"root":{"type":"root","children":[{"type":"heading","tag":"h3","children":[]}]}}`, apperr.ErrValidation},
		{"link url", `{"root":{"type":"root","children":[{"type":"paragraph","children":[{"type":"link","url":"","children":[]}]}]}}`, apperr.ErrValidation},
		{"placement", `{"root":{"type":"root","children":[{"type":"text","text":"stray"}]}}`, apperr.ErrInvalidPlacement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPeek(t *testing.T) {
	data, err := MarshalIndent(richTree(t).View)
	require.NoError(t, err)

	h, err := Peek(data)
	require.NoError(t, err)
	assert.Equal(t, Header{RootType: "root", Version: 1, Blocks: 7}, h)
	assert.True(t, IsSnapshot(data))
	assert.False(t, IsSnapshot([]byte(`<p>html</p>`)))
}

func TestDecodeInto(t *testing.T) {
	src, err := Marshal(richTree(t).View)
	require.NoError(t, err)

	tree := document.NewTree()
	_, err = tree.Update("paste", func(tx *document.Tx) error {
		keys, err := DecodeInto(tx, src, document.AppendTo(tx.RootKey()))
		require.Len(t, keys, 7)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 8, tree.Root().ChildCount())
}
