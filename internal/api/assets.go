package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/assets"
)

// UploadAsset handles POST /api/assets (multipart/form-data, field "file").
//
//	@Summary		Upload an image
//	@Tags			assets
//	@Accept			mpfd
//	@Produce		json
//	@Success		201	{object}	assets.Asset
//	@Failure		400	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/assets [post]
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, assets.MaxSize+1<<20)
	if err := r.ParseMultipartForm(assets.MaxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, assets.MaxSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	a, err := h.assets.Save(header.Filename, data)
	if err != nil {
		writeError(w, "upload asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ImportAsset handles POST /api/assets/import.
func (h *Handler) ImportAsset(w http.ResponseWriter, r *http.Request) {
	var req AssetImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.assets.Import(r.Context(), req.URL, req.Filename)
	if err != nil {
		writeError(w, "import asset", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// ServeAsset handles GET /assets/{name}.
func (h *Handler) ServeAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.assets.Open(name)
	if err != nil {
		writeError(w, "serve asset", err)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(data)
}
