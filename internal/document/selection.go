package document

import (
	"fmt"
	"slices"

	"github.com/starford/folio/internal/apperr"
)

// PointKind distinguishes offsets into text from offsets into child lists.
type PointKind int

const (
	// PointText addresses a rune offset inside a text node.
	PointText PointKind = iota
	// PointElement addresses a child index inside an element.
	PointElement
)

// Point is one end of a range selection.
type Point struct {
	Key    NodeKey   `json:"key"`
	Offset int       `json:"offset"`
	Kind   PointKind `json:"kind"`
}

// Selection is either a *RangeSelection or a *NodeSelection.
type Selection interface {
	selection()
}

// RangeSelection spans from Anchor (where the selection started) to Focus
// (where it ends). Format is the format applied to text typed at a collapsed
// cursor.
type RangeSelection struct {
	Anchor Point  `json:"anchor"`
	Focus  Point  `json:"focus"`
	Format Format `json:"format"`
}

func (*RangeSelection) selection() {}

// IsCollapsed reports whether anchor and focus are the same point.
func (s *RangeSelection) IsCollapsed() bool { return s.Anchor == s.Focus }

// NodeSelection selects whole nodes, typically decorators.
type NodeSelection struct {
	Keys []NodeKey `json:"keys"`
}

func (*NodeSelection) selection() {}

// Has reports whether key is selected.
func (s *NodeSelection) Has(key NodeKey) bool { return slices.Contains(s.Keys, key) }

func cloneSelection(s Selection) Selection {
	switch sel := s.(type) {
	case *RangeSelection:
		c := *sel
		return &c
	case *NodeSelection:
		return &NodeSelection{Keys: slices.Clone(sel.Keys)}
	}
	return nil
}

// Caret returns a collapsed range selection at key/offset.
func Caret(key NodeKey, offset int, kind PointKind) *RangeSelection {
	p := Point{Key: key, Offset: offset, Kind: kind}
	return &RangeSelection{Anchor: p, Focus: p}
}

// Range returns the current range selection, or nil.
func (v View) Range() *RangeSelection {
	rs, _ := v.t.sel.(*RangeSelection)
	if rs == nil {
		return nil
	}
	c := *rs
	return &c
}

// ComparePoints orders two points in the document: -1, 0 or 1.
func (v View) ComparePoints(a, b Point) int {
	va, vb := v.vector(a), v.vector(b)
	return slices.Compare(va, vb)
}

// IsBackward reports whether the focus of s lies before its anchor.
func (v View) IsBackward(s *RangeSelection) bool {
	return v.ComparePoints(s.Focus, s.Anchor) < 0
}

// Ordered returns the points of s in document order.
func (v View) Ordered(s *RangeSelection) (start, end Point) {
	if v.IsBackward(s) {
		return s.Focus, s.Anchor
	}
	return s.Anchor, s.Focus
}

// vector maps a point to a comparable position: the child path of its node
// followed by the offset. An element point "before child k" sorts before
// everything inside child k.
func (v View) vector(p Point) []int {
	return append(v.Path(p.Key), p.Offset)
}

// SetSelection replaces the selection. Points are validated on commit.
func (tx *Tx) SetSelection(s Selection) {
	tx.t.sel = cloneSelection(s)
}

// Collapse puts a caret at key/offset. Text nodes get a text point and lend
// their format to the caret, elements get an element point.
func (tx *Tx) Collapse(key NodeKey, offset int) {
	n := tx.Get(key)
	if n == nil || n.IsText() {
		rs := Caret(key, offset, PointText)
		if n != nil {
			rs.Format = n.format
		}
		tx.t.sel = rs
		return
	}
	tx.t.sel = Caret(key, offset, PointElement)
}

// SelectStart places the caret at the first text position below key.
func (tx *Tx) SelectStart(key NodeKey) {
	if t := tx.FirstText(key); t != "" {
		tx.Collapse(t, 0)
		return
	}
	tx.Collapse(key, 0)
}

// SelectEnd places the caret at the last text position below key.
func (tx *Tx) SelectEnd(key NodeKey) {
	if t := tx.LastText(key); t != "" {
		tx.Collapse(t, tx.Get(t).TextLen())
		return
	}
	n := tx.Get(key)
	if n == nil {
		return
	}
	tx.Collapse(key, len(n.children))
}

// SelectNodes replaces the selection with a node selection.
func (tx *Tx) SelectNodes(keys ...NodeKey) {
	tx.t.sel = &NodeSelection{Keys: slices.Clone(keys)}
}

// Extract returns the nodes covered by the range selection in document
// order. Boundary text nodes are split so every returned text node lies
// wholly inside the range. A collapsed selection yields its anchor node.
func (tx *Tx) Extract() ([]NodeKey, error) {
	rs, ok := tx.t.sel.(*RangeSelection)
	if !ok {
		return nil, fmt.Errorf("document: extract without range selection: %w", apperr.ErrPreconditionFailed)
	}
	if rs.IsCollapsed() {
		if tx.Get(rs.Anchor.Key) == nil {
			return nil, fmt.Errorf("document: extract %s: %w", rs.Anchor.Key, apperr.ErrNotFound)
		}
		return []NodeKey{rs.Anchor.Key}, nil
	}

	start, end := tx.Ordered(rs)
	if start.Kind == PointText && end.Kind == PointText && start.Key == end.Key {
		if _, err := tx.SplitText(start.Key, start.Offset, end.Offset); err != nil {
			return nil, err
		}
	} else {
		if start.Kind == PointText {
			if _, err := tx.SplitText(start.Key, start.Offset); err != nil {
				return nil, err
			}
		}
		if end.Kind == PointText {
			if _, err := tx.SplitText(end.Key, end.Offset); err != nil {
				return nil, err
			}
		}
	}
	// Splitting moved the points onto the parts; read them back.
	rs = tx.t.sel.(*RangeSelection)
	start, end = tx.Ordered(rs)

	idx := tx.order()
	lo, hi := tx.lowerBound(start, idx), tx.upperBound(end, idx)

	var out []NodeKey
	i := 0
	for n := range tx.Traverse(tx.RootKey()) {
		if i >= lo && i < hi {
			out = append(out, n.key)
		}
		i++
	}
	return out, nil
}

// lowerBound is the pre-order index of the first node covered from p.
func (tx *Tx) lowerBound(p Point, idx map[NodeKey]int) int {
	n := tx.Get(p.Key)
	if p.Kind == PointText {
		if p.Offset >= n.TextLen() && n.TextLen() > 0 {
			return idx[p.Key] + 1
		}
		return idx[p.Key]
	}
	if p.Offset < len(n.children) {
		return idx[n.children[p.Offset]]
	}
	return idx[tx.LastDescendant(p.Key)] + 1
}

// upperBound is one past the pre-order index of the last node covered up to p.
func (tx *Tx) upperBound(p Point, idx map[NodeKey]int) int {
	n := tx.Get(p.Key)
	if p.Kind == PointText {
		if p.Offset == 0 {
			return idx[p.Key]
		}
		return idx[p.Key] + 1
	}
	if p.Offset > 0 {
		return idx[tx.LastDescendant(n.children[p.Offset-1])] + 1
	}
	return idx[p.Key] + 1
}

// validateSelection re-derives points that no longer resolve.
func (tx *Tx) validateSelection() {
	switch s := tx.t.sel.(type) {
	case *RangeSelection:
		okA := tx.clampPoint(&s.Anchor)
		okF := tx.clampPoint(&s.Focus)
		if !okA || !okF {
			tx.selectDocumentEnd()
		}
	case *NodeSelection:
		keys := s.Keys[:0]
		for _, k := range s.Keys {
			if tx.attached(k) {
				keys = append(keys, k)
			}
		}
		s.Keys = keys
		if len(keys) == 0 {
			tx.selectDocumentEnd()
		}
	}
}

func (tx *Tx) clampPoint(p *Point) bool {
	n := tx.Get(p.Key)
	if n == nil || !tx.attached(p.Key) {
		return false
	}
	if n.IsText() {
		p.Kind = PointText
		p.Offset = min(max(p.Offset, 0), n.TextLen())
		return true
	}
	if !n.IsElement() {
		return false
	}
	p.Kind = PointElement
	p.Offset = min(max(p.Offset, 0), len(n.children))
	return true
}

func (tx *Tx) selectDocumentEnd() {
	root := tx.Root()
	for i := len(root.children) - 1; i >= 0; i-- {
		if b := tx.Get(root.children[i]); b.IsElement() {
			tx.SelectEnd(b.key)
			return
		}
	}
	tx.Collapse(root.key, len(root.children))
}
