package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/assets"
	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/docservice"
	"github.com/starford/folio/internal/session"
)

// Handler holds API route handlers.
type Handler struct {
	docs     *docservice.Service
	sessions *session.Store
	assets   *assets.Store
}

// NewHandler creates a new Handler.
func NewHandler(docs *docservice.Service, sessions *session.Store, assets *assets.Store) *Handler {
	return &Handler{docs: docs, sessions: sessions, assets: assets}
}

// documentPath extracts the document path from the URL (everything after
// /api/documents/). Encoded slashes (books%2Fa.json) are accepted.
func documentPath(r *http.Request) (string, error) {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return docservice.CleanPath(raw)
}

// ifMatch reads the checksum from the If-Match header.
func ifMatch(r *http.Request) string {
	return checksum.FromETag(r.Header.Get("If-Match"))
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination and filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, title, path)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.docs.List(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*. With ?format=html|markdown|text
// the rendered document is returned instead of the JSON detail.
//
//	@Summary		Get a single document by path
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Param			format	query		string	false	"Render format"	Enums(html, markdown, text)
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path, err := documentPath(r)
	if err != nil {
		writeError(w, "get document", err)
		return
	}

	if format := r.URL.Query().Get("format"); format != "" {
		out, err := h.docs.Render(r.Context(), path, format)
		if err != nil {
			writeError(w, "render document", err, slog.String("path", path))
			return
		}
		w.Header().Set("Content-Type", contentTypes[format])
		_, _ = w.Write(out)
		return
	}

	d, err := h.docs.Get(r.Context(), path)
	if err != nil {
		writeError(w, "get document", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

var contentTypes = map[string]string{
	docservice.FormatJSON:     "application/json; charset=utf-8",
	docservice.FormatHTML:     "text/html; charset=utf-8",
	docservice.FormatMarkdown: "text/markdown; charset=utf-8",
	docservice.FormatText:     "text/plain; charset=utf-8",
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a new document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	path, err := docservice.CleanPath(req.Path)
	if err != nil {
		writeError(w, "create document", err)
		return
	}
	d, err := h.docs.Create(r.Context(), path, []byte(req.Content), req.Format)
	if err != nil {
		writeError(w, "create document", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusCreated, d)
}

// UpdateDocument handles PUT /api/documents/*.
//
//	@Summary		Update a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string					true	"Document path"
//	@Param			If-Match	header	string					false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdateDocumentRequest	true	"Updated content"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	path, err := documentPath(r)
	if err != nil {
		writeError(w, "update document", err)
		return
	}
	var req UpdateDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.docs.Update(r.Context(), path, []byte(req.Content), req.Format, ifMatch(r))
	if err != nil {
		writeError(w, "update document", err, slog.String("path", path))
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// DeleteDocument handles DELETE /api/documents/*.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			path		path	string	true	"Document path"
//	@Param			If-Match	header	string	false	"SHA-256 checksum for optimistic concurrency"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path, err := documentPath(r)
	if err != nil {
		writeError(w, "delete document", err)
		return
	}
	if err := h.docs.Delete(r.Context(), path, ifMatch(r)); err != nil {
		writeError(w, "delete document", err, slog.String("path", path))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveDocument handles POST /api/documents/move.
//
//	@Summary		Rename a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveDocumentRequest	true	"Source and target paths"
//	@Success		200		{object}	DocumentDetail
//	@Security		BearerAuth
//	@Router			/documents/move [post]
func (h *Handler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	var req MoveDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	from, err := docservice.CleanPath(req.From)
	if err != nil {
		writeError(w, "move document", err)
		return
	}
	to, err := docservice.CleanPath(req.To)
	if err != nil {
		writeError(w, "move document", err)
		return
	}
	d, err := h.docs.Move(r.Context(), from, to)
	if err != nil {
		writeError(w, "move document", err, slog.String("path", from))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.docs.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err, slog.String("query", q))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: searchResults(results)})
}

// Links handles GET /api/links?url=.
//
//	@Summary		Documents linking to a URL
//	@Tags			search
//	@Produce		json
//	@Param			url	query		string	true	"Link target"
//	@Success		200	{object}	LinksResponse
//	@Security		BearerAuth
//	@Router			/links [get]
func (h *Handler) Links(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'url' is required"))
		return
	}
	paths, err := h.docs.LinkingDocuments(r.Context(), target)
	if err != nil {
		writeError(w, "links", err, slog.String("url", target))
		return
	}
	writeJSON(w, http.StatusOK, LinksResponse{URL: target, Documents: paths})
}
