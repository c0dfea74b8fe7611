package editor

import (
	"fmt"

	"github.com/rivo/uniseg"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
)

// DeleteSelection removes the selected range or nodes.
func (e *Editor) DeleteSelection() error {
	return e.apply("delete selection", clearSelection)
}

// DeleteBackward is Backspace: it removes the selection, or the grapheme
// before a collapsed caret. At the start of a heading or quote the block
// becomes a paragraph; before a decorator the decorator is selected first.
func (e *Editor) DeleteBackward() error {
	return e.apply("delete backward", func(tx *document.Tx) error {
		p, ok, err := collapsedCaret(tx)
		if !ok || err != nil {
			return err
		}
		return deleteBefore(tx, p)
	})
}

// DeleteForward is Delete: the mirror image of DeleteBackward.
func (e *Editor) DeleteForward() error {
	return e.apply("delete forward", func(tx *document.Tx) error {
		p, ok, err := collapsedCaret(tx)
		if !ok || err != nil {
			return err
		}
		return deleteAfter(tx, p)
	})
}

// collapsedCaret clears a non-empty selection. It reports true when the
// selection was already a collapsed caret and returns it.
func collapsedCaret(tx *document.Tx) (document.Point, bool, error) {
	switch s := tx.Selection().(type) {
	case *document.NodeSelection:
		return document.Point{}, false, removeNodes(tx, s.Keys)
	case *document.RangeSelection:
		if !s.IsCollapsed() {
			return document.Point{}, false, deleteRange(tx)
		}
		return s.Anchor, true, nil
	}
	return document.Point{}, false, fmt.Errorf("no selection: %w", apperr.ErrPreconditionFailed)
}

func deleteBefore(tx *document.Tx, p document.Point) error {
	root := tx.Root()
	if p.Key == root.Key() {
		return selectBlock(tx, root.Child(p.Offset-1), false)
	}
	n := tx.Get(p.Key)
	if n.IsText() && p.Offset > 0 {
		return removeGrapheme(tx, p.Key, p.Offset, true)
	}

	block := tx.TopLevel(p.Key)
	before, _ := leavesAround(tx, p, block)
	for i := len(before) - 1; i >= 0; i-- {
		l := before[i]
		switch {
		case l.IsDecorator():
			tx.SelectNodes(l.Key())
			return nil
		case l.Text() != "":
			return removeGrapheme(tx, l.Key(), l.TextLen(), true)
		}
	}

	b := tx.Get(block)
	if b.Type() == document.TypeHeading || b.Type() == document.TypeQuote {
		_, err := convertBlock(tx, block, document.TypeParagraph)
		return err
	}
	prev := tx.PrevSibling(block)
	if prev == "" {
		return nil
	}
	if !tx.Get(prev).IsElement() {
		tx.SelectNodes(prev)
		return nil
	}
	caretAtEnd(tx, prev)
	return mergeBlocks(tx, prev, block)
}

func deleteAfter(tx *document.Tx, p document.Point) error {
	root := tx.Root()
	if p.Key == root.Key() {
		return selectBlock(tx, root.Child(p.Offset), true)
	}
	n := tx.Get(p.Key)
	if n.IsText() && p.Offset < n.TextLen() {
		return removeGrapheme(tx, p.Key, p.Offset, false)
	}

	block := tx.TopLevel(p.Key)
	_, after := leavesAround(tx, p, block)
	for _, l := range after {
		switch {
		case l.IsDecorator():
			tx.SelectNodes(l.Key())
			return nil
		case l.Text() != "":
			tx.Collapse(l.Key(), 0)
			return removeGrapheme(tx, l.Key(), 0, false)
		}
	}

	next := tx.NextSibling(block)
	if next == "" {
		return nil
	}
	if !tx.Get(next).IsElement() {
		tx.SelectNodes(next)
		return nil
	}
	return mergeBlocks(tx, block, next)
}

// selectBlock handles a caret on the root: decorators get selected, other
// blocks receive the caret.
func selectBlock(tx *document.Tx, key document.NodeKey, start bool) error {
	n := tx.Get(key)
	switch {
	case n == nil:
	case n.IsDecorator():
		tx.SelectNodes(key)
	case start:
		tx.SelectStart(key)
	default:
		tx.SelectEnd(key)
	}
	return nil
}

// removeGrapheme deletes one user-perceived character next to offset.
func removeGrapheme(tx *document.Tx, key document.NodeKey, offset int, backward bool) error {
	runes := []rune(tx.Get(key).Text())
	if backward {
		g := uniseg.NewGraphemes(string(runes[:offset]))
		size := 0
		for g.Next() {
			size = len(g.Runes())
		}
		if err := tx.SetText(key, string(runes[:offset-size])+string(runes[offset:])); err != nil {
			return err
		}
		tx.Collapse(key, offset-size)
		return nil
	}
	g := uniseg.NewGraphemes(string(runes[offset:]))
	size := 0
	if g.Next() {
		size = len(g.Runes())
	}
	if err := tx.SetText(key, string(runes[:offset])+string(runes[offset+size:])); err != nil {
		return err
	}
	tx.Collapse(key, offset)
	return nil
}

// leavesAround lists the text and decorator leaves of block before and after
// p, excluding the text p sits in.
func leavesAround(tx *document.Tx, p document.Point, block document.NodeKey) (before, after []*document.Node) {
	idx := make(map[document.NodeKey]int)
	i := 0
	for d := range tx.Traverse(block) {
		idx[d.Key()] = i
		i++
	}
	n := tx.Get(p.Key)
	var pos int
	switch {
	case n.IsText():
		pos = idx[p.Key]
	case p.Offset < n.ChildCount():
		pos = idx[n.Child(p.Offset)]
	default:
		pos = idx[tx.LastDescendant(p.Key)] + 1
	}
	for d := range tx.Traverse(block) {
		if d.Key() == p.Key || !(d.IsText() || d.IsDecorator()) {
			continue
		}
		if idx[d.Key()] < pos {
			before = append(before, d)
		} else {
			after = append(after, d)
		}
	}
	return before, after
}

func caretAtEnd(tx *document.Tx, block document.NodeKey) {
	b := tx.Get(block)
	last := tx.Get(b.Child(b.ChildCount() - 1))
	if last != nil && last.IsText() {
		tx.Collapse(last.Key(), last.TextLen())
		return
	}
	tx.Collapse(block, b.ChildCount())
}

// mergeBlocks appends the children of src to dst and removes src.
func mergeBlocks(tx *document.Tx, dst, src document.NodeKey) error {
	for _, c := range tx.Get(src).Children() {
		if err := tx.Move(c, document.AppendTo(dst)); err != nil {
			return err
		}
	}
	return tx.Remove(src)
}

// removeNodes deletes whole nodes and puts the caret where the first one was.
func removeNodes(tx *document.Tx, keys []document.NodeKey) error {
	if len(keys) == 0 {
		return nil
	}
	first := tx.Get(keys[0])
	if first == nil {
		return fmt.Errorf("node %s: %w", keys[0], apperr.ErrNotFound)
	}
	parent := first.Parent()
	idx := tx.Get(parent).IndexOf(keys[0])
	for _, k := range keys {
		if tx.Get(k) == nil || k == tx.RootKey() {
			continue
		}
		if err := tx.Remove(k); err != nil {
			return err
		}
	}

	if parent != tx.RootKey() {
		tx.Collapse(parent, idx)
		return nil
	}
	root := tx.Root()
	if next := tx.Get(root.Child(idx)); next != nil && next.IsElement() {
		tx.SelectStart(next.Key())
		return nil
	}
	if prev := tx.Get(root.Child(idx - 1)); prev != nil && prev.IsElement() {
		tx.SelectEnd(prev.Key())
		return nil
	}
	tx.Collapse(root.Key(), min(idx, root.ChildCount()))
	return nil
}

// deleteRange removes the content of a non-collapsed range selection and
// joins the first and last block it touches.
func deleteRange(tx *document.Tx) error {
	rs := tx.Range()
	start, end := tx.Ordered(rs)
	first, last := pointBlock(tx, start), pointBlock(tx, end)

	// Where the caret lands once the range is gone.
	caretKey, caretOff := start.Key, start.Offset
	if start.Kind == document.PointText && start.Offset == 0 {
		n := tx.Get(start.Key)
		parent := n.Parent()
		if l := tx.Get(parent); l.IsLink() {
			caretKey, caretOff = l.Parent(), tx.Get(l.Parent()).IndexOf(parent)
		} else {
			caretKey, caretOff = parent, l.IndexOf(start.Key)
		}
	}

	keys, err := tx.Extract()
	if err != nil {
		return err
	}
	keep := func(k document.NodeKey) bool {
		return (k == first || k == last) && tx.Get(k).IsElement()
	}
	for _, k := range keys {
		n := tx.Get(k)
		if n == nil || k == tx.RootKey() || keep(k) {
			continue
		}
		if n.Parent() == tx.RootKey() || n.IsText() || n.IsDecorator() {
			if err := tx.Remove(k); err != nil {
				return err
			}
		}
	}

	if first != last && tx.Get(first) != nil && tx.Get(last) != nil &&
		tx.Get(first).IsElement() && tx.Get(last).IsElement() {
		if err := mergeBlocks(tx, first, last); err != nil {
			return err
		}
	}

	if tx.Get(caretKey) == nil {
		tx.SelectEnd(tx.RootKey())
		return nil
	}
	tx.Collapse(caretKey, caretOff)
	return nil
}
