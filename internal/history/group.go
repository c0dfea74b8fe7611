package history

import "github.com/starford/folio/internal/document"

// Transaction runs fn inside a group. If fn fails, the changes it already
// committed are reverted in reverse order and nothing is pushed.
func (h *History) Transaction(tree *document.Tree, name string, fn func() error) error {
	h.BeginGroup(name)
	if err := fn(); err != nil {
		cmds := h.CancelGroup()
		for i := len(cmds) - 1; i >= 0; i-- {
			_ = cmds[i].Undo(tree)
		}
		return err
	}
	h.EndGroup()
	return nil
}
