// Package checksum computes the content hashes used for optimistic
// concurrency on stored documents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes sum as a strong HTTP entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromETag extracts the checksum from an If-Match or ETag header value.
// Weak tags are accepted; "*" and empty values yield "".
func FromETag(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "W/")
	v = strings.Trim(v, `"`)
	if v == "*" {
		return ""
	}
	return v
}

// Matches reports whether data still has checksum want. An empty want
// matches anything.
func Matches(data []byte, want string) bool {
	return want == "" || Sum(data) == want
}
