// Package docservice coordinates document storage, the search index and
// format conversion for the HTTP and MCP surfaces.
package docservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/storage"
)

// Detail is the full representation of a stored document.
type Detail struct {
	models.Document
	Snapshot json.RawMessage `json:"snapshot"`
	Links    []models.Link   `json:"links"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    index.DocumentIndex
	conv  *Converter
}

// NewService creates a new document service.
func NewService(store storage.Provider, db index.DocumentIndex, conv *Converter) *Service {
	if conv == nil {
		conv = NewConverter(nil)
	}
	return &Service{store: store, db: db, conv: conv}
}

// Converter returns the converter used for imports and renders.
func (s *Service) Converter() *Converter { return s.conv }

// CleanPath validates a document path and appends the storage extension
// when it is missing.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.TrimPrefix(p, "/"))
	if p == "" {
		return "", fmt.Errorf("docservice: empty path: %w", apperr.ErrValidation)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("docservice: invalid path %q: %w", p, apperr.ErrValidation)
	}
	if !strings.HasSuffix(p, storage.Ext) {
		p += storage.Ext
	}
	return p, nil
}

// Get reads a document and its outgoing links.
func (s *Service) Get(_ context.Context, p string) (*Detail, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return s.detail(p, data)
}

// Read returns the raw stored snapshot and its checksum.
func (s *Service) Read(_ context.Context, p string) ([]byte, string, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, "", err
	}
	return data, checksum.Sum(data), nil
}

// Render returns a stored document in format.
func (s *Service) Render(_ context.Context, p, format string) ([]byte, error) {
	data, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	return s.conv.Render(data, format)
}

// Create converts content to a snapshot, writes it and indexes it.
func (s *Service) Create(_ context.Context, p string, content []byte, format string) (*Detail, error) {
	if _, err := s.store.Read(p); err == nil {
		return nil, fmt.Errorf("docservice: create %s: %w", p, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	snap, err := s.conv.ToSnapshot(content, format)
	if err != nil {
		return nil, err
	}
	return s.write(p, snap)
}

// Update replaces a document. A non-empty ifMatch must equal the checksum
// of the stored content.
func (s *Service) Update(_ context.Context, p string, content []byte, format, ifMatch string) (*Detail, error) {
	existing, err := s.store.Read(p)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches(existing, ifMatch) {
		return nil, fmt.Errorf("docservice: update %s: %w", p, apperr.ErrConflict)
	}
	snap, err := s.conv.ToSnapshot(content, format)
	if err != nil {
		return nil, err
	}
	return s.write(p, snap)
}

// Save stores a snapshot produced by an editing session. An empty ifMatch
// creates the document; otherwise the stored checksum must match.
func (s *Service) Save(ctx context.Context, p string, snap []byte, ifMatch string) (*Detail, error) {
	if ifMatch == "" {
		return s.Create(ctx, p, snap, FormatJSON)
	}
	return s.Update(ctx, p, snap, FormatJSON, ifMatch)
}

// Delete removes a document from storage and index.
func (s *Service) Delete(_ context.Context, p, ifMatch string) error {
	if ifMatch != "" {
		existing, err := s.store.Read(p)
		if err != nil {
			return err
		}
		if !checksum.Matches(existing, ifMatch) {
			return fmt.Errorf("docservice: delete %s: %w", p, apperr.ErrConflict)
		}
	}
	if err := s.store.Delete(p); err != nil {
		return err
	}
	return s.db.DeleteDocument(p)
}

// Move renames a document and re-indexes it under the new path.
func (s *Service) Move(_ context.Context, from, to string) (*Detail, error) {
	if _, err := s.store.Read(to); err == nil {
		return nil, fmt.Errorf("docservice: move to %s: %w", to, apperr.ErrAlreadyExists)
	}
	if err := s.store.Move(from, to); err != nil {
		return nil, err
	}
	if err := s.db.DeleteDocument(from); err != nil {
		return nil, err
	}
	data, err := s.store.Read(to)
	if err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, to, data, time.Time{}); err != nil {
		return nil, err
	}
	return s.detail(to, data)
}

// List returns one page of indexed documents with an optional tag filter.
func (s *Service) List(_ context.Context, limit, offset int, tag, sort string) ([]models.Document, int, error) {
	rows, total, err := s.db.ListDocuments(limit, offset, tag, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.Document, len(rows))
	for i, r := range rows {
		items[i] = models.Document{
			Path:      r.Path,
			Title:     r.Title,
			Tags:      nonNilSlice(r.Tags),
			Images:    r.Images,
			Embeds:    r.Embeds,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// LinkingDocuments returns the paths of documents that link to url.
func (s *Service) LinkingDocuments(_ context.Context, url string) ([]string, error) {
	out, err := s.db.LinkingDocuments(url)
	return nonNilSlice(out), err
}

func (s *Service) write(p string, snap []byte) (*Detail, error) {
	if err := s.store.Write(p, snap); err != nil {
		return nil, err
	}
	if err := index.IndexFile(s.db, p, snap, time.Time{}); err != nil {
		return nil, err
	}
	return s.detail(p, snap)
}

// detail builds a Detail from raw data without re-reading the file.
func (s *Service) detail(p string, data []byte) (*Detail, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	links := make([]models.Link, len(res.Links))
	for i, l := range res.Links {
		links[i] = models.Link{Source: p, URL: l.URL, Kind: l.Kind}
	}
	updated := time.Now().UTC()
	if row, err := s.db.GetDocument(p); err == nil {
		updated = row.UpdatedAt
	}
	return &Detail{
		Document: models.Document{
			Path:      p,
			Content:   data,
			Title:     res.Title,
			Text:      res.Body,
			Tags:      nonNilSlice(res.Tags),
			Images:    res.Images,
			Embeds:    res.Embeds,
			Checksum:  checksum.Sum(data),
			UpdatedAt: updated,
		},
		Snapshot: json.RawMessage(data),
		Links:    links,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
