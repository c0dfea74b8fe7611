package document

import (
	"fmt"
	"slices"

	"github.com/starford/folio/internal/apperr"
)

// Placement says where a node goes relative to a position target.
type Placement int

const (
	PlaceAppend Placement = iota
	PlacePrepend
	PlaceBefore
	PlaceAfter
)

// Position is an insertion point relative to Target.
type Position struct {
	Target    NodeKey
	Placement Placement
}

func AppendTo(parent NodeKey) Position  { return Position{Target: parent, Placement: PlaceAppend} }
func PrependTo(parent NodeKey) Position { return Position{Target: parent, Placement: PlacePrepend} }
func Before(sibling NodeKey) Position   { return Position{Target: sibling, Placement: PlaceBefore} }
func After(sibling NodeKey) Position    { return Position{Target: sibling, Placement: PlaceAfter} }

func (tx *Tx) resolve(pos Position) (NodeKey, int, error) {
	target := tx.Get(pos.Target)
	if target == nil {
		return "", 0, fmt.Errorf("document: position target %s: %w", pos.Target, apperr.ErrNotFound)
	}
	switch pos.Placement {
	case PlaceAppend:
		return target.key, len(target.children), nil
	case PlacePrepend:
		return target.key, 0, nil
	}
	if target.parent == "" {
		return "", 0, &PlacementError{Node: target.typ, Reason: "sibling of a detached node or the root"}
	}
	parent := tx.Get(target.parent)
	i := parent.IndexOf(target.key)
	if pos.Placement == PlaceAfter {
		i++
	}
	return parent.key, i, nil
}

// checkPlacement validates putting child (and, when key is set, its current
// subtree) under parent.
func (tx *Tx) checkPlacement(child *Node, key NodeKey, parent NodeKey) error {
	p := tx.Get(parent)
	if p == nil {
		return fmt.Errorf("document: parent %s: %w", parent, apperr.ErrNotFound)
	}
	fail := func(reason string) error {
		return &PlacementError{Node: child.typ, Parent: p.typ, Reason: reason}
	}
	cc, pc := child.Caps(), p.Caps()

	switch {
	case child.typ == TypeRoot:
		return fail("the root cannot be placed")
	case !pc.SupportsChildren:
		return fail("leaf nodes cannot have children")
	case p.typ == TypeRoot && cc.Inline && !cc.Decorator:
		return fail("inline nodes cannot be placed at the root")
	case p.typ != TypeRoot && !cc.Inline:
		return fail("block nodes must be children of the root")
	case p.IsLink() && cc.Decorator:
		return fail("decorators cannot be placed inside a link")
	}

	if tx.inLink(parent) && (child.IsLink() || (key != "" && tx.containsLink(key))) {
		return fail("links cannot be nested")
	}
	if key != "" {
		for a := parent; a != ""; a = tx.Get(a).parent {
			if a == key {
				return fail("a node cannot be placed inside itself")
			}
		}
	}
	return nil
}

func (tx *Tx) inLink(key NodeKey) bool {
	for k := key; k != ""; {
		n := tx.Get(k)
		if n == nil {
			return false
		}
		if n.IsLink() {
			return true
		}
		k = n.parent
	}
	return false
}

func (tx *Tx) containsLink(key NodeKey) bool {
	for n := range tx.Traverse(key) {
		if n.IsLink() {
			return true
		}
	}
	return false
}

// Insert validates n, assigns it a key and places it at pos. The tree takes
// ownership of n.
func (tx *Tx) Insert(n *Node, pos Position) (NodeKey, error) {
	if err := n.Validate(); err != nil {
		return "", err
	}
	parent, index, err := tx.resolve(pos)
	if err != nil {
		return "", err
	}
	if err := tx.checkPlacement(n, "", parent); err != nil {
		return "", err
	}
	key := tx.adopt(n)
	tx.attach(key, parent, index)
	return key, nil
}

// Move relocates an existing node (with its subtree) to pos.
func (tx *Tx) Move(key NodeKey, pos Position) error {
	n := tx.Get(key)
	if n == nil {
		return fmt.Errorf("document: move %s: %w", key, apperr.ErrNotFound)
	}
	if pos.Target == key {
		return &PlacementError{Node: n.typ, Reason: "a node cannot be positioned relative to itself"}
	}
	parent, _, err := tx.resolve(pos)
	if err != nil {
		return err
	}
	if err := tx.checkPlacement(n, key, parent); err != nil {
		return err
	}
	tx.detach(key)
	parent, index, err := tx.resolve(pos)
	if err != nil {
		return err
	}
	tx.attach(key, parent, index)
	return nil
}

// Remove detaches key and its subtree, then repairs the former parent so
// that no block is left without children.
func (tx *Tx) Remove(key NodeKey) error {
	n := tx.Get(key)
	if n == nil {
		return fmt.Errorf("document: remove %s: %w", key, apperr.ErrNotFound)
	}
	if key == tx.RootKey() {
		return &PlacementError{Node: TypeRoot, Reason: "the root cannot be removed"}
	}
	parent := n.parent
	tx.detach(key)
	tx.drop(key)
	if parent != "" {
		return tx.repair(parent)
	}
	return nil
}

// Replace puts n where old is. Element children of old move into n.
func (tx *Tx) Replace(old NodeKey, n *Node) (NodeKey, error) {
	o := tx.Get(old)
	if o == nil {
		return "", fmt.Errorf("document: replace %s: %w", old, apperr.ErrNotFound)
	}
	key, err := tx.Insert(n, Before(old))
	if err != nil {
		return "", err
	}
	if n.Caps().SupportsChildren {
		for _, c := range o.Children() {
			if err := tx.Move(c, AppendTo(key)); err != nil {
				return "", err
			}
		}
	}
	tx.detach(old)
	tx.drop(old)
	return key, nil
}

// Clear removes every child of key. The emptied element is repaired on commit.
func (tx *Tx) Clear(key NodeKey) error {
	n := tx.Get(key)
	if n == nil {
		return fmt.Errorf("document: clear %s: %w", key, apperr.ErrNotFound)
	}
	for _, c := range n.Children() {
		tx.detach(c)
		tx.drop(c)
	}
	return nil
}

// Unwrap replaces an element with its children, preserving their order.
func (tx *Tx) Unwrap(key NodeKey) error {
	n := tx.Get(key)
	if n == nil {
		return fmt.Errorf("document: unwrap %s: %w", key, apperr.ErrNotFound)
	}
	for _, c := range n.Children() {
		if err := tx.Move(c, Before(key)); err != nil {
			return err
		}
	}
	return tx.Remove(key)
}

// repair restores the non-empty invariant of an element that lost its last
// child.
func (tx *Tx) repair(key NodeKey) error {
	n := tx.Get(key)
	if n == nil || len(n.children) > 0 {
		return nil
	}
	switch {
	case n.typ == TypeRoot:
		p, err := tx.Insert(NewParagraph(), AppendTo(key))
		if err != nil {
			return err
		}
		_, err = tx.Insert(NewText("", 0), AppendTo(p))
		return err
	case n.IsLink():
		return tx.Remove(key)
	case n.IsBlock() && n.IsElement():
		_, err := tx.Insert(NewText("", n.format), AppendTo(key))
		return err
	}
	return nil
}

func (tx *Tx) mutate(key NodeKey, fn func(n *Node) error) error {
	n := tx.writable(key)
	if n == nil {
		return fmt.Errorf("document: update %s: %w", key, apperr.ErrNotFound)
	}
	return fn(n)
}

// SetText replaces the payload of a text node.
func (tx *Tx) SetText(key NodeKey, text string) error {
	return tx.mutate(key, func(n *Node) error {
		if !n.IsText() {
			return &PlacementError{Node: n.typ, Reason: "only text nodes carry text"}
		}
		n.text = text
		return nil
	})
}

// SetFormat sets the format bitmask of a text node, or the default format of
// an element.
func (tx *Tx) SetFormat(key NodeKey, f Format) error {
	return tx.mutate(key, func(n *Node) error {
		n.format = f
		return nil
	})
}

// SetStyle sets the opaque inline style string of a text node.
func (tx *Tx) SetStyle(key NodeKey, style string) error {
	return tx.mutate(key, func(n *Node) error {
		n.style = style
		return nil
	})
}

// SetBlockAttrs sets direction, indent and alignment of an element.
func (tx *Tx) SetBlockAttrs(key NodeKey, direction string, indent int, align string) error {
	return tx.mutate(key, func(n *Node) error {
		n.direction, n.indent, n.align = direction, indent, align
		return nil
	})
}

// SetLink updates the attributes of a link or autolink.
func (tx *Tx) SetLink(key NodeKey, attrs LinkAttrs) error {
	if err := attrs.Validate(); err != nil {
		return &ValidationError{Type: TypeLink, Err: err}
	}
	return tx.mutate(key, func(n *Node) error {
		if !n.IsLink() {
			return &PlacementError{Node: n.typ, Reason: "not a link"}
		}
		n.link = attrs
		return nil
	})
}

// SetImage updates the attributes of an image.
func (tx *Tx) SetImage(key NodeKey, attrs ImageAttrs) error {
	if err := attrs.Validate(); err != nil {
		return &ValidationError{Type: TypeImage, Err: err}
	}
	return tx.mutate(key, func(n *Node) error {
		if n.typ != TypeImage {
			return &PlacementError{Node: n.typ, Reason: "not an image"}
		}
		n.image = attrs
		return nil
	})
}

// SplitText cuts a text node at the given rune offsets. The first part keeps
// the original key; the returned keys list every part in order. Selection
// points inside the node follow their text.
func (tx *Tx) SplitText(key NodeKey, offsets ...int) ([]NodeKey, error) {
	n := tx.Get(key)
	if n == nil {
		return nil, fmt.Errorf("document: split %s: %w", key, apperr.ErrNotFound)
	}
	if !n.IsText() {
		return nil, &PlacementError{Node: n.typ, Reason: "only text nodes can be split"}
	}
	runes := []rune(n.text)
	cuts := []int{0}
	sorted := slices.Clone(offsets)
	slices.Sort(sorted)
	for _, o := range slices.Compact(sorted) {
		if o > 0 && o < len(runes) {
			cuts = append(cuts, o)
		}
	}
	cuts = append(cuts, len(runes))
	if len(cuts) == 2 {
		return []NodeKey{key}, nil
	}

	keys := []NodeKey{key}
	prev := key
	for i := 1; i < len(cuts)-1; i++ {
		part := NewText(string(runes[cuts[i]:cuts[i+1]]), n.format)
		part.style = n.style
		k, err := tx.Insert(part, After(prev))
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
		prev = k
	}
	if err := tx.SetText(key, string(runes[:cuts[1]])); err != nil {
		return nil, err
	}

	if rs, ok := tx.t.sel.(*RangeSelection); ok {
		remap := func(p *Point) {
			if p.Key != key || p.Kind != PointText {
				return
			}
			for i := len(cuts) - 2; i >= 0; i-- {
				if p.Offset >= cuts[i] {
					p.Key = keys[i]
					p.Offset -= cuts[i]
					return
				}
			}
		}
		remap(&rs.Anchor)
		remap(&rs.Focus)
	}
	return keys, nil
}
