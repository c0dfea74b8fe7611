package index

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/parser"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "folio-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// snapshotDoc returns a stored snapshot with a heading and one paragraph.
func snapshotDoc(title, body string) []byte {
	return []byte(`{"root":{"type":"root","children":[` +
		`{"type":"heading","tag":"h1","children":[{"type":"text","text":"` + title + `"}]},` +
		`{"type":"paragraph","children":[{"type":"text","text":"` + body + `"},` +
		`{"type":"link","url":"https://example.com","children":[{"type":"text","text":"ex"}]}]}]}}`)
}

func link(url string) []parser.Link {
	return []parser.Link{{URL: url, Kind: parser.LinkInline}}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&count); err != nil {
		t.Fatalf("documents table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGetDocument(t *testing.T) {
	db := testDB(t)
	row := DocumentRow{
		Path:      "hello.json",
		Title:     "Hello World",
		Checksum:  "abc123",
		Tags:      []string{"go", "test"},
		Images:    2,
		Embeds:    1,
		UpdatedAt: time.Now(),
	}
	if err := db.UpsertDocument(row, "This is a hello world document.", link("https://go.dev")); err != nil {
		t.Fatalf("UpsertDocument: %v", err)
	}
	cs, err := db.GetChecksum("hello.json")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	got, err := db.GetDocument("hello.json")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Hello World" || got.Images != 2 || got.Embeds != 1 || len(got.Tags) != 2 {
		t.Errorf("GetDocument = %+v", got)
	}

	links, err := db.Links("hello.json")
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	if len(links) != 1 || links[0].URL != "https://go.dev" || links[0].Kind != parser.LinkInline {
		t.Errorf("Links = %+v", links)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetDocument("missing.json"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLinkingDocuments(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "a.json", Checksum: "1", UpdatedAt: time.Now()}, "body", link("https://x.com"))
	_ = db.UpsertDocument(DocumentRow{Path: "c.json", Checksum: "2", UpdatedAt: time.Now()}, "body", link("https://x.com"))

	got, err := db.LinkingDocuments("https://x.com")
	if err != nil {
		t.Fatalf("LinkingDocuments: %v", err)
	}
	if len(got) != 2 || got[0] != "a.json" || got[1] != "c.json" {
		t.Fatalf("LinkingDocuments = %v", got)
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "del.json", Checksum: "x", UpdatedAt: time.Now()}, "body", link("https://t.co"))

	if err := db.DeleteDocument("del.json"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	cs, _ := db.GetChecksum("del.json")
	if cs != "" {
		t.Errorf("deleted document still has checksum %q", cs)
	}
	got, _ := db.LinkingDocuments("https://t.co")
	if len(got) != 0 {
		t.Errorf("expected no linking documents after delete, got %v", got)
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	now := time.Now()
	_ = db.UpsertDocument(DocumentRow{Path: "up.json", Title: "Old", Checksum: "1", UpdatedAt: now}, "old body", link("https://x.com"))
	_ = db.UpsertDocument(DocumentRow{Path: "up.json", Title: "New", Checksum: "2", Tags: []string{"new"}, UpdatedAt: now}, "new body", link("https://y.com"))

	cs, _ := db.GetChecksum("up.json")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	if got, _ := db.LinkingDocuments("https://x.com"); len(got) != 0 {
		t.Error("old link should be removed on upsert")
	}
	if got, _ := db.LinkingDocuments("https://y.com"); len(got) != 1 {
		t.Error("new link should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListDocuments(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = db.UpsertDocument(DocumentRow{Path: "b.json", Title: "beta", Checksum: "1", Tags: []string{"go"}, UpdatedAt: base}, "", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "a.json", Title: "Alpha", Checksum: "2", Tags: []string{"go", "web"}, UpdatedAt: base.Add(time.Hour)}, "", nil)
	_ = db.UpsertDocument(DocumentRow{Path: "c.json", Title: "gamma", Checksum: "3", UpdatedAt: base.Add(2 * time.Hour)}, "", nil)

	rows, total, err := db.ListDocuments(0, 0, "", "")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if total != 3 || len(rows) != 3 || rows[0].Path != "c.json" {
		t.Errorf("default order: total=%d rows=%+v", total, rows)
	}

	rows, _, _ = db.ListDocuments(10, 0, "", SortTitle)
	if rows[0].Title != "Alpha" || rows[1].Title != "beta" {
		t.Errorf("title order = %+v", rows)
	}

	rows, total, _ = db.ListDocuments(1, 1, "go", SortPath)
	if total != 2 || len(rows) != 1 || rows[0].Path != "b.json" {
		t.Errorf("tag page: total=%d rows=%+v", total, rows)
	}

	if _, _, err := db.ListDocuments(10, 0, "", "random"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown sort: err = %v", err)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertDocument(DocumentRow{Path: "s.json", Title: "Search Me", Checksum: "1", UpdatedAt: time.Now()}, "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.json" {
		t.Errorf("search results = %+v, want 1 hit for s.json", results)
	}
}

func TestIndexFileParsesSnapshot(t *testing.T) {
	db := testDB(t)
	if err := IndexFile(db, "n.json", snapshotDoc("Trip", "pack #travel light"), time.Time{}); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	got, err := db.GetDocument("n.json")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Trip" || len(got.Tags) != 1 || got.Tags[0] != "travel" {
		t.Errorf("row = %+v", got)
	}
	if l, _ := db.LinkingDocuments("https://example.com"); len(l) != 1 {
		t.Errorf("link not indexed: %v", l)
	}

	if err := IndexFile(db, "bad.json", []byte("not json"), time.Time{}); !errors.Is(err, apperr.ErrImportParse) {
		t.Errorf("bad snapshot: err = %v", err)
	}
}
