// Package snapshot converts document trees to and from the Lexical-compatible
// JSON editor state.
package snapshot

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/starford/folio/internal/apperr"
)

// Version is the only serialization version read and written.
const Version = 1

// Header is what can be learned from a snapshot without decoding it.
type Header struct {
	RootType string
	Version  int
	Blocks   int
}

// Peek reads the root header of a snapshot.
func Peek(data []byte) (Header, error) {
	if !gjson.ValidBytes(data) {
		return Header{}, fmt.Errorf("snapshot: malformed json: %w", apperr.ErrImportParse)
	}
	root := gjson.GetBytes(data, "root")
	if !root.IsObject() {
		return Header{}, fmt.Errorf("snapshot: missing root object: %w", apperr.ErrImportParse)
	}
	h := Header{
		RootType: root.Get("type").String(),
		Version:  int(root.Get("version").Int()),
		Blocks:   int(root.Get("children.#").Int()),
	}
	return h, nil
}

// IsSnapshot reports whether data looks like an editor state.
func IsSnapshot(data []byte) bool {
	h, err := Peek(data)
	return err == nil && h.RootType == "root"
}
