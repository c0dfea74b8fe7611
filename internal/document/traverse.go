package document

import (
	"iter"
	"strings"
)

// Traverse returns a lazy depth-first pre-order sequence starting at key
// (inclusive). Each call yields a fresh sequence over the latest state.
func (v View) Traverse(key NodeKey) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		var walk func(k NodeKey) bool
		walk = func(k NodeKey) bool {
			n := v.t.nodes[k]
			if n == nil {
				return true
			}
			if !yield(n) {
				return false
			}
			for _, c := range n.children {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(key)
	}
}

// Count returns how many nodes of type typ are reachable from the root.
func (v View) Count(typ NodeType) int {
	n := 0
	for node := range v.Traverse(v.t.root) {
		if node.typ == typ {
			n++
		}
	}
	return n
}

// TextContent concatenates the text below key. Blocks under the root are
// separated by blank lines.
func (v View) TextContent(key NodeKey) string {
	n := v.Get(key)
	if n == nil {
		return ""
	}
	if n.typ == TypeRoot {
		parts := make([]string, 0, len(n.children))
		for _, c := range n.children {
			parts = append(parts, v.TextContent(c))
		}
		return strings.Join(parts, "\n\n")
	}
	var sb strings.Builder
	for d := range v.Traverse(key) {
		if d.IsText() {
			sb.WriteString(d.text)
		}
	}
	return sb.String()
}

// TopLevel returns the ancestor of key (or key itself) that is a direct
// child of the root.
func (v View) TopLevel(key NodeKey) NodeKey {
	for k := key; k != ""; {
		n := v.Get(k)
		if n == nil {
			return ""
		}
		if n.parent == v.t.root {
			return k
		}
		k = n.parent
	}
	return ""
}

// NearestLink returns the closest link or autolink at or above key.
func (v View) NearestLink(key NodeKey) NodeKey {
	for k := key; k != ""; {
		n := v.Get(k)
		if n == nil {
			return ""
		}
		if n.IsLink() {
			return k
		}
		k = n.parent
	}
	return ""
}

// PrevSibling returns the sibling before key, or "".
func (v View) PrevSibling(key NodeKey) NodeKey {
	n := v.Get(key)
	if n == nil || n.parent == "" {
		return ""
	}
	p := v.Get(n.parent)
	return p.Child(p.IndexOf(key) - 1)
}

// NextSibling returns the sibling after key, or "".
func (v View) NextSibling(key NodeKey) NodeKey {
	n := v.Get(key)
	if n == nil || n.parent == "" {
		return ""
	}
	p := v.Get(n.parent)
	return p.Child(p.IndexOf(key) + 1)
}

// FirstText returns the first text node below key, or "".
func (v View) FirstText(key NodeKey) NodeKey {
	for n := range v.Traverse(key) {
		if n.IsText() {
			return n.key
		}
	}
	return ""
}

// LastText returns the last text node below key, or "".
func (v View) LastText(key NodeKey) NodeKey {
	var last NodeKey
	for n := range v.Traverse(key) {
		if n.IsText() {
			last = n.key
		}
	}
	return last
}

// LastDescendant returns the deepest last descendant of key (key itself for
// leaves and empty elements).
func (v View) LastDescendant(key NodeKey) NodeKey {
	k := key
	for {
		n := v.Get(k)
		if n == nil || len(n.children) == 0 {
			return k
		}
		k = n.children[len(n.children)-1]
	}
}

// Path returns the child indices leading from the root to key.
func (v View) Path(key NodeKey) []int {
	var path []int
	for k := key; k != v.t.root; {
		n := v.Get(k)
		if n == nil || n.parent == "" {
			return nil
		}
		path = append(path, v.Get(n.parent).IndexOf(k))
		k = n.parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// order maps every attached key to its pre-order index.
func (v View) order() map[NodeKey]int {
	idx := make(map[NodeKey]int)
	i := 0
	for n := range v.Traverse(v.t.root) {
		idx[n.key] = i
		i++
	}
	return idx
}

// Blocks returns the top-level block keys from the one containing a to the
// one containing b, inclusive and in document order.
func (v View) Blocks(a, b NodeKey) []NodeKey {
	ta, tb := v.TopLevel(a), v.TopLevel(b)
	root := v.Root()
	ia, ib := root.IndexOf(ta), root.IndexOf(tb)
	if ia < 0 || ib < 0 {
		return nil
	}
	if ia > ib {
		ia, ib = ib, ia
	}
	return root.Children()[ia : ib+1]
}
