package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/testutil"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func testStore(t *testing.T) *Store {
	t.Helper()
	_, fs := testutil.TestLibrary(t)
	return NewStore(fs)
}

func TestSaveAndOpen(t *testing.T) {
	s := testStore(t)
	a, err := s.Save("cat photo.png", pngBytes)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a.Name != "cat_photo.png" || a.URL != "/assets/cat_photo.png" || a.Size != len(pngBytes) {
		t.Errorf("asset = %+v", a)
	}
	data, err := s.Open(a.Name)
	if err != nil || string(data) != string(pngBytes) {
		t.Fatalf("Open: %v", err)
	}

	if _, err := s.Save("cat photo.png", pngBytes); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate save: err = %v", err)
	}
}

func TestSaveRejects(t *testing.T) {
	s := testStore(t)
	cases := map[string][]byte{
		"notes.txt": []byte("hello"),
		"fake.png":  []byte("not really a png"),
		"empty.png": nil,
		"image.svg": []byte("<svg></svg>"),
	}
	for name, data := range cases {
		if _, err := s.Save(name, data); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Save(%q): err = %v, want ErrValidation", name, err)
		}
	}
}

func TestSaveGeneratesName(t *testing.T) {
	s := testStore(t)
	a, err := s.Save("", pngBytes)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(a.Name) != 36+len(".png") {
		t.Errorf("name = %q", a.Name)
	}
}

func TestImportDataURI(t *testing.T) {
	s := testStore(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
	a, err := s.Import(context.Background(), uri, "")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if a.Size != len(pngBytes) {
		t.Errorf("size = %d", a.Size)
	}

	for _, bad := range []string{
		"data:image/png,plain",
		"data:text/plain;base64,aGk=",
		"data:image/png;base64",
	} {
		if _, err := s.Import(context.Background(), bad, ""); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Import(%q): err = %v", bad, err)
		}
	}
}

func TestImportBlocksLoopback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes)
	}))
	defer srv.Close()

	s := testStore(t)
	if _, err := s.Import(context.Background(), srv.URL+"/a.png", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("loopback import: err = %v, want ErrValidation", err)
	}
	if _, err := s.Import(context.Background(), "ftp://example.com/a.png", ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("ftp import: err = %v", err)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s := testStore(t)
	for _, name := range []string{"../secret.json", "a/b.png", ".hidden.png", ""} {
		if _, err := s.Open(name); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Open(%q): err = %v", name, err)
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	if got := filenameFromURL("https://example.com/img/cat.png?x=1", ".png"); got != "cat.png" {
		t.Errorf("got %q", got)
	}
	if got := filenameFromURL("https://example.com/", ".gif"); len(got) != 36+4 {
		t.Errorf("fallback = %q", got)
	}
}
