package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/docservice"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/editor"
	"github.com/starford/folio/internal/htmlcodec"
	"github.com/starford/folio/internal/session"
)

// session resolves {id}, writing the error response when it is unknown.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get session", err)
		return nil, false
	}
	return s, true
}

// ListSessions handles GET /api/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": h.sessions.List()})
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Start an editing session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	true	"Initial content"
//	@Success		201		{object}	session.Info
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	src := session.Source{HTML: req.HTML, Text: req.Text}
	if req.Path != "" {
		path, err := docservice.CleanPath(req.Path)
		if err != nil {
			writeError(w, "open session", err)
			return
		}
		data, sum, err := h.docs.Read(r.Context(), path)
		if err != nil {
			writeError(w, "open session", err, slog.String("path", path))
			return
		}
		src = session.Source{Path: path, Checksum: sum, Snapshot: data}
	}
	s, err := h.sessions.Open(src)
	if err != nil {
		writeError(w, "open session", err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Info())
}

// GetSession handles GET /api/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

// CloseSession handles DELETE /api/sessions/{id}.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Command handles POST /api/sessions/{id}/commands.
//
//	@Summary		Run an editor command
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CommandRequest	true	"Command"
//	@Success		200		{object}	CommandResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/commands [post]
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req CommandRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.run(w, s, req.Command)
}

// Undo handles POST /api/sessions/{id}/undo.
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.run(w, s, editor.Command{Name: editor.CmdUndo})
	}
}

// Redo handles POST /api/sessions/{id}/redo.
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		h.run(w, s, editor.Command{Name: editor.CmdRedo})
	}
}

func (h *Handler) run(w http.ResponseWriter, s *session.Session, c editor.Command) {
	var res editor.Result
	err := s.Do(func(e *editor.Editor) error {
		var err error
		res, err = e.Execute(c)
		return err
	})
	if err != nil {
		writeError(w, "command", err, slog.String("session", s.ID), slog.String("command", c.Name))
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Applied: res.Applied, Session: s.Info()})
}

// SetSelection handles PUT /api/sessions/{id}/selection.
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var sel document.Selection
	err := s.Do(func(e *editor.Editor) error {
		var err error
		if len(req.Nodes) > 0 {
			err = e.SelectNodes(req.Nodes...)
		} else {
			err = e.Select(req.Anchor, req.Focus)
		}
		sel = e.View().Selection()
		return err
	})
	if err != nil {
		writeError(w, "select", err, slog.String("session", s.ID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selection": sel})
}

// SessionHTML handles GET /api/sessions/{id}/html. ?mode=bridge drops
// link attributes the way the host expects.
func (h *Handler) SessionHTML(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	mode := htmlcodec.ModeFull
	if r.URL.Query().Get("mode") == "bridge" {
		mode = htmlcodec.ModeBridge
	}
	var out string
	err := s.Do(func(e *editor.Editor) error {
		var err error
		out, err = e.HTML(mode)
		return err
	})
	if err != nil {
		writeError(w, "export html", err, slog.String("session", s.ID))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

// SessionJSON handles GET /api/sessions/{id}/json.
func (h *Handler) SessionJSON(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var out []byte
	err := s.Do(func(e *editor.Editor) error {
		var err error
		out, err = e.Snapshot()
		return err
	})
	if err != nil {
		writeError(w, "export json", err, slog.String("session", s.ID))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(out)
}

// Import handles POST /api/sessions/{id}/import.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := s.Do(func(e *editor.Editor) error {
		switch req.Mode {
		case ImportInsert:
			return e.InsertHTML(req.Content)
		case ImportPaste:
			return e.Paste(req.Content)
		default:
			return e.ImportClipboard(req.Content)
		}
	})
	if err != nil {
		writeError(w, "import", err, slog.String("session", s.ID))
		return
	}
	writeJSON(w, http.StatusOK, s.Info())
}

// Save handles POST /api/sessions/{id}/save. A session opened from a stored
// document saves back to it guarded by the checksum it was read at; saving
// under another path creates a new document.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req SaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bound, sum := s.Binding()
	path := bound
	if req.Path != "" {
		p, err := docservice.CleanPath(req.Path)
		if err != nil {
			writeError(w, "save", err)
			return
		}
		path = p
	}
	if path == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("path is required"))
		return
	}
	if path != bound {
		sum = ""
	}

	var snap []byte
	if err := s.Do(func(e *editor.Editor) error {
		var err error
		snap, err = e.Snapshot()
		return err
	}); err != nil {
		writeError(w, "save", err, slog.String("session", s.ID))
		return
	}
	d, err := h.docs.Save(r.Context(), path, snap, sum)
	if err != nil {
		writeError(w, "save", err, slog.String("session", s.ID), slog.String("path", path))
		return
	}
	s.Bind(d.Path, d.Checksum)
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, d)
}

// Widgets handles GET /api/sessions/{id}/widgets.
func (h *Handler) Widgets(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var out any
	_ = s.Do(func(e *editor.Editor) error {
		out = e.Widgets().All()
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]any{"widgets": out})
}

// Widget handles POST /api/sessions/{id}/widgets/{key}.
func (h *Handler) Widget(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req WidgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	key := document.NodeKey(chi.URLParam(r, "key"))
	var out any
	err := s.Do(func(e *editor.Editor) error {
		wg := e.Widgets()
		var err error
		switch req.Status {
		case WidgetLoaded:
			err = wg.Loaded(key)
		case WidgetFailed:
			err = wg.Failed(key, req.Error)
		case WidgetRetry:
			err = wg.Retry(key)
		}
		out, _ = wg.Get(key)
		return err
	})
	if err != nil {
		writeError(w, "widget", err, slog.String("session", s.ID))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// BridgeStream handles GET /api/sessions/{id}/bridge: outbound bridge
// messages and editor updates as SSE.
func (h *Handler) BridgeStream(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.session(w, r); ok {
		s.Stream().ServeHTTP(w, r)
	}
}

// BridgeReceive handles POST /api/sessions/{id}/bridge: an inbound host
// payload.
func (h *Handler) BridgeReceive(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req BridgeMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.Bridge().Receive(req.Payload)
	writeJSON(w, http.StatusOK, s.Info())
}

// BridgeAction handles POST /api/sessions/{id}/bridge/{action}.
func (h *Handler) BridgeAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	switch chi.URLParam(r, "action") {
	case "close":
		s.Bridge().CloseEditor()
	case "export":
		if err := s.ExportToHost(); err != nil {
			writeError(w, "bridge export", err, slog.String("session", s.ID))
			return
		}
	case "book":
		s.Bridge().OpenBookPicker()
	default:
		writeJSON(w, http.StatusNotFound, errorBody("unknown bridge action"))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
