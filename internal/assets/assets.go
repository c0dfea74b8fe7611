// Package assets stores uploaded images next to the documents so image
// nodes can reference them by URL.
package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/storage"
)

const (
	// Dir is the library subdirectory holding assets.
	Dir = "assets"
	// URLPrefix is where assets are served.
	URLPrefix = "/assets/"
	// MaxSize bounds a single asset.
	MaxSize = 10 << 20
)

var (
	mimeToExt = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}

	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	}

	safeNameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Asset describes a stored image.
type Asset struct {
	Name string `json:"name"`
	Size int    `json:"size"`
	URL  string `json:"url"`
}

// Store writes assets through a storage provider.
type Store struct {
	store  storage.Provider
	client *http.Client
}

// NewStore returns an asset store over p.
func NewStore(p storage.Provider) *Store {
	s := &Store{store: p}
	s.client = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}
	return s
}

// Save validates data as an image and writes it under name. An empty name
// gets a random one with the detected extension.
func (s *Store) Save(name string, data []byte) (Asset, error) {
	if len(data) == 0 {
		return Asset{}, fmt.Errorf("assets: empty file: %w", apperr.ErrValidation)
	}
	if len(data) > MaxSize {
		return Asset{}, fmt.Errorf("assets: file too large: %d bytes (max %d): %w", len(data), MaxSize, apperr.ErrValidation)
	}
	if name == "" {
		name = uuid.NewString() + mimeToExt[detect(data)]
	}
	name = sanitizeName(name)

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return Asset{}, fmt.Errorf("assets: unsupported extension %q (allowed: png, jpg, jpeg, gif, webp): %w", ext, apperr.ErrValidation)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return Asset{}, err
	}

	rel := path.Join(Dir, name)
	if _, err := s.store.Read(rel); err == nil {
		return Asset{}, fmt.Errorf("assets: %s: %w", name, apperr.ErrAlreadyExists)
	}
	if err := s.store.Write(rel, data); err != nil {
		return Asset{}, fmt.Errorf("assets: save %s: %w", name, err)
	}
	return Asset{Name: name, Size: len(data), URL: URLPrefix + name}, nil
}

// Import fetches a data: or http(s) URL and saves it. An empty filename is
// derived from the URL.
func (s *Store) Import(ctx context.Context, rawURL, filename string) (Asset, error) {
	var (
		data []byte
		ext  string
		err  error
	)
	if strings.HasPrefix(rawURL, "data:") {
		data, ext, err = decodeDataURI(rawURL)
	} else {
		data, ext, err = s.fetch(ctx, rawURL)
	}
	if err != nil {
		return Asset{}, err
	}
	if filename == "" {
		filename = filenameFromURL(rawURL, ext)
	}
	return s.Save(filename, data)
}

// Open returns the bytes of a stored asset.
func (s *Store) Open(name string) ([]byte, error) {
	if name == "" || sanitizeName(name) != name {
		return nil, fmt.Errorf("assets: invalid name %q: %w", name, apperr.ErrValidation)
	}
	return s.store.Read(path.Join(Dir, name))
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("assets: invalid data URI: missing comma separator: %w", apperr.ErrValidation)
	}
	if !strings.Contains(meta, ";base64") {
		return nil, "", fmt.Errorf("assets: only base64 data URIs are supported: %w", apperr.ErrValidation)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", fmt.Errorf("assets: invalid base64 data: %w", apperr.ErrValidation)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	ext := mimeToExt[mime]
	if ext == "" {
		return nil, "", fmt.Errorf("assets: unsupported MIME type %q: %w", mime, apperr.ErrValidation)
	}
	return data, ext, nil
}

// fetch downloads an image, refusing loopback and metadata hosts.
func (s *Store) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("assets: invalid URL: %w", apperr.ErrValidation)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, "", fmt.Errorf("assets: unsupported scheme %q: %w", parsed.Scheme, apperr.ErrValidation)
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("assets: build request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("assets: download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("assets: download failed: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("assets: read body: %w", err)
	}
	if len(data) > MaxSize {
		return nil, "", fmt.Errorf("assets: file too large: exceeds %d bytes: %w", MaxSize, apperr.ErrValidation)
	}

	ext := mimeToExt[strings.Split(resp.Header.Get("Content-Type"), ";")[0]]
	return data, ext, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("assets: blocked host %s: %w", host, apperr.ErrValidation)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // the client reports DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("assets: blocked loopback host %s: %w", host, apperr.ErrValidation)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("assets: blocked metadata host %s: %w", host, apperr.ErrValidation)
	}
	return nil
}

// filenameFromURL takes the last path segment, falling back to a UUID.
func filenameFromURL(rawURL, ext string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if parsed, err := url.Parse(rawURL); err == nil {
			base := path.Base(parsed.Path)
			if base != "" && base != "." && base != "/" && strings.Contains(base, ".") {
				return base
			}
		}
	}
	return uuid.NewString() + ext
}

func sanitizeName(name string) string {
	name = filepath.Base(name)
	name = safeNameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || strings.HasPrefix(name, ".") {
		name = uuid.NewString() + strings.ToLower(filepath.Ext(name))
	}
	return name
}

func detect(data []byte) string {
	return strings.Split(http.DetectContentType(data), ";")[0]
}

// validateMagicBytes checks the content matches the extension.
func validateMagicBytes(data []byte, ext string) error {
	got := mimeToExt[detect(data)]
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	if got != ext {
		return fmt.Errorf("assets: content does not match extension %s (detected %s): %w",
			ext, detect(data), apperr.ErrValidation)
	}
	return nil
}
