package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Post("/documents/move", h.MoveDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	r.Get("/search", h.Search)
	r.Get("/links", h.Links)

	// Editing sessions.
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Post("/", h.OpenSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.CloseSession)
			r.Post("/commands", h.Command)
			r.Post("/undo", h.Undo)
			r.Post("/redo", h.Redo)
			r.Put("/selection", h.SetSelection)
			r.Get("/html", h.SessionHTML)
			r.Get("/json", h.SessionJSON)
			r.Post("/import", h.Import)
			r.Post("/save", h.Save)
			r.Get("/widgets", h.Widgets)
			r.Post("/widgets/{key}", h.Widget)
			r.Get("/bridge", h.BridgeStream)
			r.Post("/bridge", h.BridgeReceive)
			r.Post("/bridge/{action}", h.BridgeAction)
		})
	})

	// Image uploads.
	r.Post("/assets", h.UploadAsset)
	r.Post("/assets/import", h.ImportAsset)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
