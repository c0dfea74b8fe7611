package document

import (
	"errors"
	"maps"
	"slices"
	"strconv"
)

// ErrNestedUpdate is returned when Update is called from inside a transaction.
var ErrNestedUpdate = errors.New("document: nested update")

// View gives read access to the latest state of a tree.
type View struct {
	t *Tree
}

// Get returns the latest version of the node, or nil.
func (v View) Get(key NodeKey) *Node { return v.t.nodes[key] }

// Root returns the root node.
func (v View) Root() *Node { return v.t.nodes[v.t.root] }

// RootKey returns the key of the root node.
func (v View) RootKey() NodeKey { return v.t.root }

// Selection returns a copy of the current selection, or nil.
func (v View) Selection() Selection { return cloneSelection(v.t.sel) }

// Tree is an arena of nodes addressed by key. Every mutation happens inside
// Update; committed node versions are immutable so history entries can share
// them.
//
// A Tree is not safe for concurrent use. Callers serialize access, one
// transaction at a time.
type Tree struct {
	View

	nodes map[NodeKey]*Node
	root  NodeKey
	next  uint64
	gen   uint64
	sel   Selection
	tx    *Tx
}

// NewTree returns a tree holding one empty paragraph with the cursor in it.
func NewTree() *Tree {
	t := newBareTree()
	_, _ = t.Update("init", func(tx *Tx) error {
		if err := tx.ensureCursorSlot(); err != nil {
			return err
		}
		tx.SelectStart(tx.RootKey())
		return nil
	})
	return t
}

// NewEmptyTree returns a tree whose root has no children yet. Importers use
// it to build a document from scratch; the first commit repairs the root.
func NewEmptyTree() *Tree {
	return newBareTree()
}

func newBareTree() *Tree {
	t := &Tree{nodes: make(map[NodeKey]*Node)}
	t.View = View{t: t}
	root := registry[TypeRoot].defaults()
	root.key = t.nextKey()
	t.nodes[root.key] = root
	t.root = root.key
	return t
}

func (t *Tree) nextKey() NodeKey {
	t.next++
	return NodeKey(strconv.FormatUint(t.next, 10))
}

// Size returns the number of nodes reachable from the root.
func (t *Tree) Size() int {
	n := 0
	for range t.Traverse(t.root) {
		n++
	}
	return n
}

// Update runs fn as one transaction. All node operations performed by fn are
// recorded in the returned Change. If fn fails, the tree and selection are
// restored and the error is returned.
func (t *Tree) Update(label string, fn func(tx *Tx) error) (*Change, error) {
	if t.tx != nil {
		return nil, ErrNestedUpdate
	}
	t.gen++
	tx := &Tx{
		View:      t.View,
		t:         t,
		gen:       t.gen,
		label:     label,
		before:    make(map[NodeKey]*Node),
		selBefore: cloneSelection(t.sel),
	}
	t.tx = tx
	defer func() { t.tx = nil }()

	if err := fn(tx); err != nil {
		tx.rollback()
		return nil, err
	}
	if err := tx.normalize(); err != nil {
		tx.rollback()
		return nil, err
	}
	return tx.commit(), nil
}

// Revert restores the node versions and selection recorded before c.
func (t *Tree) Revert(c *Change) error {
	if t.tx != nil {
		return ErrNestedUpdate
	}
	t.apply(c.before)
	t.sel = cloneSelection(c.selBefore)
	return nil
}

// Reapply restores the node versions and selection recorded after c.
func (t *Tree) Reapply(c *Change) error {
	if t.tx != nil {
		return ErrNestedUpdate
	}
	t.apply(c.after)
	t.sel = cloneSelection(c.selAfter)
	return nil
}

func (t *Tree) apply(versions map[NodeKey]*Node) {
	for k, n := range versions {
		if n == nil {
			delete(t.nodes, k)
			continue
		}
		t.nodes[k] = n
	}
}

// Change is the record of one committed transaction: the versions of every
// touched key before and after it.
type Change struct {
	Label     string
	before    map[NodeKey]*Node
	after     map[NodeKey]*Node
	selBefore Selection
	selAfter  Selection
}

// Empty reports whether the transaction touched no node.
func (c *Change) Empty() bool { return len(c.before) == 0 }

// Keys returns the touched keys in ascending order.
func (c *Change) Keys() []NodeKey {
	keys := slices.Collect(maps.Keys(c.before))
	slices.SortFunc(keys, func(a, b NodeKey) int {
		ai, _ := strconv.ParseUint(string(a), 10, 64)
		bi, _ := strconv.ParseUint(string(b), 10, 64)
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	})
	return keys
}

// Tx is an open transaction on a tree.
type Tx struct {
	View

	t         *Tree
	gen       uint64
	before    map[NodeKey]*Node
	label     string
	touched   []NodeKey
	selBefore Selection
}

func (tx *Tx) record(key NodeKey, prev *Node) {
	if _, seen := tx.before[key]; seen {
		return
	}
	tx.before[key] = prev
	tx.touched = append(tx.touched, key)
}

// writable returns the version of key owned by this transaction, cloning the
// committed version on first write.
func (tx *Tx) writable(key NodeKey) *Node {
	n := tx.t.nodes[key]
	if n == nil {
		return nil
	}
	if n.gen == tx.gen {
		return n
	}
	tx.record(key, n)
	c := n.clone()
	c.gen = tx.gen
	tx.t.nodes[key] = c
	return c
}

// adopt assigns a key to a detached node and registers it.
func (tx *Tx) adopt(n *Node) NodeKey {
	n.key = tx.t.nextKey()
	n.parent = ""
	n.children = nil
	n.gen = tx.gen
	tx.record(n.key, nil)
	tx.t.nodes[n.key] = n
	return n.key
}

// drop deletes key and its subtree from the arena.
func (tx *Tx) drop(key NodeKey) {
	n := tx.t.nodes[key]
	if n == nil {
		return
	}
	for _, c := range n.children {
		tx.drop(c)
	}
	tx.record(key, n)
	delete(tx.t.nodes, key)
}

func (tx *Tx) attach(key, parent NodeKey, index int) {
	p := tx.writable(parent)
	if index < 0 || index > len(p.children) {
		index = len(p.children)
	}
	p.children = slices.Insert(p.children, index, key)
	tx.writable(key).parent = parent
}

func (tx *Tx) detach(key NodeKey) {
	n := tx.t.nodes[key]
	if n == nil || n.parent == "" {
		return
	}
	p := tx.writable(n.parent)
	if i := slices.Index(p.children, key); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	tx.writable(key).parent = ""
}

func (tx *Tx) rollback() {
	for k, prev := range tx.before {
		if prev == nil {
			delete(tx.t.nodes, k)
			continue
		}
		tx.t.nodes[k] = prev
	}
	tx.t.sel = tx.selBefore
}

func (tx *Tx) commit() *Change {
	c := &Change{
		Label:     tx.label,
		before:    make(map[NodeKey]*Node, len(tx.before)),
		after:     make(map[NodeKey]*Node, len(tx.before)),
		selBefore: tx.selBefore,
		selAfter:  cloneSelection(tx.t.sel),
	}
	for _, k := range tx.touched {
		prev, now := tx.before[k], tx.t.nodes[k]
		if prev == nil && now == nil {
			continue
		}
		c.before[k] = prev
		c.after[k] = now
	}
	return c
}

// attached reports whether key is reachable from the root.
func (v View) attached(key NodeKey) bool {
	for k := key; k != ""; {
		if k == v.t.root {
			return true
		}
		n := v.t.nodes[k]
		if n == nil {
			return false
		}
		k = n.parent
	}
	return false
}
