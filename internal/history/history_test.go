package history

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/document"
)

// appendText commits one transaction adding s to the first paragraph.
func appendText(t *testing.T, tree *document.Tree, s string) *document.Change {
	t.Helper()
	c, err := tree.Update("type "+s, func(tx *document.Tx) error {
		p := tx.Root().Child(0)
		_, err := tx.Insert(document.NewText(s, document.FormatBold), document.AppendTo(p))
		return err
	})
	require.NoError(t, err)
	return c
}

func text(tree *document.Tree) string {
	return tree.TextContent(tree.RootKey())
}

func TestUndoRedo(t *testing.T) {
	tree := document.NewTree()
	h := New(0)
	assert.Equal(t, DefaultMaxEntries, h.MaxEntries())

	h.Record(appendText(t, tree, "a"))
	h.Record(appendText(t, tree, "b"))
	assert.Equal(t, "ab", text(tree))
	assert.Equal(t, 2, h.UndoCount())

	require.NoError(t, h.Undo(tree))
	assert.Equal(t, "a", text(tree))
	require.NoError(t, h.Undo(tree))
	assert.Equal(t, "", text(tree))
	assert.ErrorIs(t, h.Undo(tree), ErrNothingToUndo)

	require.NoError(t, h.Redo(tree))
	require.NoError(t, h.Redo(tree))
	assert.Equal(t, "ab", text(tree))
	assert.ErrorIs(t, h.Redo(tree), ErrNothingToRedo)
}

func TestPushClearsRedo(t *testing.T) {
	tree := document.NewTree()
	h := New(10)
	h.Record(appendText(t, tree, "a"))
	require.NoError(t, h.Undo(tree))
	assert.True(t, h.CanRedo())

	h.Record(appendText(t, tree, "c"))
	assert.False(t, h.CanRedo())
	assert.Equal(t, "c", text(tree))
}

func TestEmptyChangeNotRecorded(t *testing.T) {
	tree := document.NewTree()
	h := New(10)
	c, err := tree.Update("noop", func(*document.Tx) error { return nil })
	require.NoError(t, err)
	h.Record(c)
	h.Record(nil)
	assert.False(t, h.CanUndo())
}

func TestMaxEntriesDropsOldest(t *testing.T) {
	tree := document.NewTree()
	h := New(2)
	for _, s := range []string{"a", "b", "c"} {
		h.Record(appendText(t, tree, s))
	}
	assert.Equal(t, 2, h.UndoCount())
	info, ok := h.PeekUndo()
	require.True(t, ok)
	assert.Equal(t, "type c", info.Description)

	require.NoError(t, h.Undo(tree))
	require.NoError(t, h.Undo(tree))
	assert.Equal(t, "a", text(tree))
	assert.False(t, h.CanUndo())
}

func TestGroupIsOneUnit(t *testing.T) {
	tree := document.NewTree()
	h := New(10)

	h.BeginGroup("embed")
	h.BeginGroup("ignored")
	h.Record(appendText(t, tree, "x"))
	h.Record(appendText(t, tree, "y"))
	assert.True(t, h.IsGrouping())
	h.EndGroup()

	assert.Equal(t, 1, h.UndoCount())
	info, _ := h.PeekUndo()
	assert.Equal(t, "embed", info.Description)

	require.NoError(t, h.Undo(tree))
	assert.Equal(t, "", text(tree))
	require.NoError(t, h.Redo(tree))
	assert.Equal(t, "xy", text(tree))
}

func TestTransactionRevertsOnError(t *testing.T) {
	tree := document.NewTree()
	h := New(10)
	boom := errors.New("boom")

	err := h.Transaction(tree, "failing", func() error {
		h.Record(appendText(t, tree, "x"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "", text(tree))
	assert.False(t, h.CanUndo())
	assert.False(t, h.IsGrouping())

	require.NoError(t, h.Transaction(tree, "ok", func() error {
		h.Record(appendText(t, tree, "y"))
		return nil
	}))
	assert.Equal(t, 1, h.UndoCount())
}

func TestCompoundDescription(t *testing.T) {
	c := NewCompoundCommand("")
	assert.True(t, c.IsEmpty())
	c.Add(&CompoundCommand{Name: "inner"})
	assert.Equal(t, "inner", c.Description())
	c.Add(&CompoundCommand{Name: "second"})
	assert.Equal(t, "2 operations", c.Description())
}
