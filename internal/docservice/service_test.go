package docservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/testutil"
)

func testService(t *testing.T) *Service {
	t.Helper()
	_, store := testutil.TestLibrary(t)
	return NewService(store, testutil.TestDB(t), nil)
}

const sample = `<h1>Reading list</h1><p>Start with <a href="https://go.dev">Go</a> #books</p>`

func TestCleanPath(t *testing.T) {
	cases := map[string]string{
		"notes/a":     "notes/a.json",
		"/b.json":     "b.json",
		" c ":         "c.json",
		"x/../y.json": "y.json",
	}
	for in, want := range cases {
		got, err := CleanPath(in)
		if err != nil || got != want {
			t.Errorf("CleanPath(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "..", "../up"} {
		if _, err := CleanPath(bad); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("CleanPath(%q): err = %v, want ErrValidation", bad, err)
		}
	}
}

func TestCreateFromHTMLAndGet(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)

	d, err := svc.Create(ctx, "list.json", []byte(sample), FormatHTML)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Title != "Reading list" {
		t.Errorf("title = %q", d.Title)
	}
	if len(d.Links) != 1 || d.Links[0].URL != "https://go.dev" || d.Links[0].Source != "list.json" {
		t.Errorf("links = %+v", d.Links)
	}

	got, err := svc.Get(ctx, "list.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Checksum != d.Checksum || len(got.Tags) != 1 || got.Tags[0] != "books" {
		t.Errorf("Get = %+v", got.Document)
	}

	if _, err := svc.Create(ctx, "list.json", []byte(sample), FormatHTML); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create: err = %v", err)
	}
	if _, err := svc.Get(ctx, "missing.json"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
}

func TestRenderFormats(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	if _, err := svc.Create(ctx, "r.json", []byte(sample), FormatHTML); err != nil {
		t.Fatal(err)
	}

	html, err := svc.Render(ctx, "r.json", FormatHTML)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if !strings.HasPrefix(string(html), "<h1>Reading list</h1>") {
		t.Errorf("html = %s", html)
	}

	md, err := svc.Render(ctx, "r.json", FormatMarkdown)
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.HasPrefix(string(md), "---\ntitle: Reading list\n") || !strings.Contains(string(md), "[Go](https://go.dev)") {
		t.Errorf("markdown = %s", md)
	}

	text, err := svc.Render(ctx, "r.json", FormatText)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if string(text) != "Reading list\nStart with Go #books" {
		t.Errorf("text = %q", text)
	}

	if _, err := svc.Render(ctx, "r.json", "pdf"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown format: err = %v", err)
	}
}

func TestUpdateChecksConcurrency(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	d, err := svc.Create(ctx, "u.json", []byte("first"), FormatText)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(ctx, "u.json", []byte("second"), FormatText, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("stale update: err = %v", err)
	}
	up, err := svc.Update(ctx, "u.json", []byte("second"), FormatText, d.Checksum)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if up.Title != "second" || up.Checksum == d.Checksum {
		t.Errorf("Update = %+v", up.Document)
	}

	if err := svc.Delete(ctx, "u.json", d.Checksum); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale delete: err = %v", err)
	}
	if err := svc.Delete(ctx, "u.json", up.Checksum); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if items, total, _ := svc.List(ctx, 10, 0, "", ""); total != 0 || len(items) != 0 {
		t.Errorf("list after delete: %d %v", total, items)
	}
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	conv := svc.Converter()

	snap, err := conv.ToSnapshot([]byte("draft"), FormatText)
	if err != nil {
		t.Fatal(err)
	}
	d, err := svc.Save(ctx, "s.json", snap, "")
	if err != nil {
		t.Fatalf("Save new: %v", err)
	}
	snap2, _ := conv.ToSnapshot([]byte("final"), FormatText)
	if _, err := svc.Save(ctx, "s.json", snap2, "nope"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("Save stale: err = %v", err)
	}
	if _, err := svc.Save(ctx, "s.json", snap2, d.Checksum); err != nil {
		t.Errorf("Save: %v", err)
	}
}

func TestListSearchAndLinks(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	_, _ = svc.Create(ctx, "a.json", []byte(`<p>see <a href="https://x.com">x</a> #go</p>`), FormatHTML)
	_, _ = svc.Create(ctx, "b.json", []byte(`<p>also <a href="https://x.com">x</a> zebra</p>`), FormatHTML)

	items, total, err := svc.List(ctx, 10, 0, "go", "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || items[0].Path != "a.json" {
		t.Errorf("List tag go = %d %+v", total, items)
	}

	hits, err := svc.Search(ctx, "zebra", 10)
	if err != nil || len(hits) != 1 || hits[0].Path != "b.json" {
		t.Errorf("Search = %+v, %v", hits, err)
	}

	paths, err := svc.LinkingDocuments(ctx, "https://x.com")
	if err != nil || len(paths) != 2 {
		t.Errorf("LinkingDocuments = %v, %v", paths, err)
	}
	none, _ := svc.LinkingDocuments(ctx, "https://nowhere.example")
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty slice, got %#v", none)
	}
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	svc := testService(t)
	_, _ = svc.Create(ctx, "old.json", []byte("moving"), FormatText)
	_, _ = svc.Create(ctx, "taken.json", []byte("here"), FormatText)

	if _, err := svc.Move(ctx, "old.json", "taken.json"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("move onto existing: err = %v", err)
	}
	d, err := svc.Move(ctx, "old.json", "dir/new.json")
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if d.Path != "dir/new.json" {
		t.Errorf("path = %q", d.Path)
	}
	if _, err := svc.Get(ctx, "old.json"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("old path still readable: %v", err)
	}
}

func TestConvert(t *testing.T) {
	conv := NewConverter(nil)
	out, err := conv.Convert([]byte("<p>Hi <strong>there</strong></p>"), FormatHTML, FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(out), "Hi **there**\n") {
		t.Errorf("markdown = %q", out)
	}
	if _, err := conv.Convert([]byte("# x"), FormatMarkdown, FormatHTML); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("markdown import: err = %v", err)
	}
}
