package document

import (
	"fmt"

	"github.com/starford/folio/internal/apperr"
)

// ValidationError reports a node constructed with a missing or malformed
// required attribute.
type ValidationError struct {
	Type NodeType
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document: invalid %s: %v", e.Type, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == apperr.ErrValidation }

// PlacementError reports an insert or move that would break a tree invariant.
type PlacementError struct {
	Node   NodeType
	Parent NodeType
	Reason string
}

func (e *PlacementError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("document: invalid placement of %s: %s", e.Node, e.Reason)
	}
	return fmt.Sprintf("document: invalid placement of %s under %s: %s", e.Node, e.Parent, e.Reason)
}

func (e *PlacementError) Is(target error) bool { return target == apperr.ErrInvalidPlacement }

// UnknownTypeError reports a type tag outside the registry.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("document: unknown node type %q", e.Type)
}

func (e *UnknownTypeError) Is(target error) bool { return target == apperr.ErrUnknownNodeType }
