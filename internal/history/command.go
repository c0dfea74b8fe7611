package history

import (
	"fmt"

	"github.com/starford/folio/internal/document"
)

// Command is one undoable unit applied to a tree.
type Command interface {
	// Execute applies (or re-applies) the command.
	Execute(tree *document.Tree) error

	// Undo reverses the command.
	Undo(tree *document.Tree) error

	// Description returns a human-readable description of the command.
	Description() string
}

// ChangeCommand replays a committed document change. The change already
// happened when the command is created, so Execute only runs on redo.
type ChangeCommand struct {
	Change *document.Change
}

// NewChangeCommand wraps c.
func NewChangeCommand(c *document.Change) *ChangeCommand {
	return &ChangeCommand{Change: c}
}

func (c *ChangeCommand) Execute(tree *document.Tree) error {
	if err := tree.Reapply(c.Change); err != nil {
		return fmt.Errorf("history: redo %q: %w", c.Change.Label, err)
	}
	return nil
}

func (c *ChangeCommand) Undo(tree *document.Tree) error {
	if err := tree.Revert(c.Change); err != nil {
		return fmt.Errorf("history: undo %q: %w", c.Change.Label, err)
	}
	return nil
}

func (c *ChangeCommand) Description() string { return c.Change.Label }

// CompoundCommand groups multiple commands as one undo unit.
type CompoundCommand struct {
	Name     string
	Commands []Command
}

// NewCompoundCommand creates a new compound command.
func NewCompoundCommand(name string, commands ...Command) *CompoundCommand {
	return &CompoundCommand{Name: name, Commands: commands}
}

// Execute runs all commands in order.
func (c *CompoundCommand) Execute(tree *document.Tree) error {
	for i, cmd := range c.Commands {
		if err := cmd.Execute(tree); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c.Commands[j].Undo(tree)
			}
			return fmt.Errorf("history: compound %q step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Undo reverses all commands in reverse order.
func (c *CompoundCommand) Undo(tree *document.Tree) error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(tree); err != nil {
			return fmt.Errorf("history: undo compound %q step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

func (c *CompoundCommand) Description() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Commands) == 1 {
		return c.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(c.Commands))
}

// Add appends a command.
func (c *CompoundCommand) Add(cmd Command) {
	c.Commands = append(c.Commands, cmd)
}

// IsEmpty returns true if the compound command has no commands.
func (c *CompoundCommand) IsEmpty() bool {
	return len(c.Commands) == 0
}
