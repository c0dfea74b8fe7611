package document

import "slices"

// normalize restores the structural invariants after fn has run: unattached
// nodes are dropped, empty links disappear, empty blocks get an empty text
// child, adjacent compatible text runs merge and the selection is revalidated.
func (tx *Tx) normalize() error {
	tx.collect()

	for _, k := range slices.Clone(tx.touched) {
		n := tx.Get(k)
		if n == nil || !tx.attached(k) {
			continue
		}
		if n.IsLink() && len(n.children) == 0 {
			if err := tx.Remove(k); err != nil {
				return err
			}
		}
	}
	for _, k := range slices.Clone(tx.touched) {
		if !tx.attached(k) {
			continue
		}
		if err := tx.repair(k); err != nil {
			return err
		}
	}

	parents := make(map[NodeKey]struct{})
	for _, k := range tx.touched {
		n := tx.Get(k)
		if n == nil || !tx.attached(k) {
			continue
		}
		if n.IsElement() {
			parents[k] = struct{}{}
		}
		if n.parent != "" {
			parents[n.parent] = struct{}{}
		}
	}
	for p := range parents {
		tx.mergeText(p)
	}

	if err := tx.ensureCursorSlot(); err != nil {
		return err
	}
	tx.validateSelection()
	return nil
}

// collect drops nodes created or detached during the transaction that never
// ended up in the tree.
func (tx *Tx) collect() {
	for _, k := range slices.Clone(tx.touched) {
		if n := tx.t.nodes[k]; n != nil && n.parent == "" && k != tx.t.root {
			tx.drop(k)
		}
	}
}

// mergeText folds adjacent text runs with equal format and style into one
// node and drops empty runs that share a parent with other children.
func (tx *Tx) mergeText(parent NodeKey) {
	p := tx.Get(parent)
	if p == nil {
		return
	}
	children := p.Children()
	for i := 0; i < len(children); i++ {
		cur := tx.Get(children[i])
		if !cur.IsText() {
			continue
		}
		if cur.text == "" && len(children) > 1 && !tx.selected(cur.key) {
			tx.detach(cur.key)
			tx.drop(cur.key)
			children = slices.Delete(children, i, i+1)
			i--
			continue
		}
		if i == 0 {
			continue
		}
		prev := tx.Get(children[i-1])
		if !prev.IsText() || prev.format != cur.format || prev.style != cur.style {
			continue
		}
		shift := prev.TextLen()
		tx.writable(prev.key).text = prev.text + cur.text
		tx.movePoints(cur.key, prev.key, shift)
		tx.detach(cur.key)
		tx.drop(cur.key)
		children = slices.Delete(children, i, i+1)
		i--
	}
}

func (tx *Tx) selected(key NodeKey) bool {
	switch s := tx.t.sel.(type) {
	case *RangeSelection:
		return s.Anchor.Key == key || s.Focus.Key == key
	case *NodeSelection:
		return s.Has(key)
	}
	return false
}

// movePoints rebases selection points on from onto to, offset by shift.
func (tx *Tx) movePoints(from, to NodeKey, shift int) {
	rs, ok := tx.t.sel.(*RangeSelection)
	if !ok {
		return
	}
	for _, p := range []*Point{&rs.Anchor, &rs.Focus} {
		if p.Key == from && p.Kind == PointText {
			p.Key = to
			p.Offset += shift
		}
	}
}

// ensureCursorSlot guarantees the root has a block the caret can live in:
// an empty root gets a paragraph, and a trailing decorator block gets a
// paragraph after it.
func (tx *Tx) ensureCursorSlot() error {
	root := tx.Root()
	if len(root.children) == 0 {
		return tx.repair(root.key)
	}
	last := tx.Get(root.children[len(root.children)-1])
	if !last.IsDecorator() {
		return nil
	}
	p, err := tx.Insert(NewParagraph(), After(last.key))
	if err != nil {
		return err
	}
	_, err = tx.Insert(NewText("", 0), AppendTo(p))
	return err
}
