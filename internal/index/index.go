package index

import "github.com/starford/folio/internal/parser"

// DocumentIndex is the read/write surface of the document index.
// Consumers depend on it rather than on *DB so they can be tested with fakes.
type DocumentIndex interface {
	UpsertDocument(d DocumentRow, body string, links []parser.Link) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	ListDocuments(limit, offset int, tag, sort string) ([]DocumentRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Links(path string) ([]parser.Link, error)
	LinkingDocuments(url string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

var _ DocumentIndex = (*DB)(nil)
