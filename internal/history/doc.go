// Package history provides undo/redo for document trees.
//
// Every committed document transaction yields a *document.Change. Wrapping it
// in a ChangeCommand and pushing it makes it one undo unit:
//
//	h := history.New(1000)
//	c, _ := tree.Update("insert text", fn)
//	h.Record(c)
//
//	h.Undo(tree)
//	h.Redo(tree)
//
// Several transactions can be combined into one unit with BeginGroup and
// EndGroup, or with Transaction.
package history
