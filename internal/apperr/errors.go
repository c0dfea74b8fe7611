// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// Document model errors.
	ErrValidation         = errors.New("validation failed")
	ErrInvalidPlacement   = errors.New("invalid placement")
	ErrUnknownNodeType    = errors.New("unknown node type")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrImportParse        = errors.New("import parse failure")
)
