package embed

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
)

// Provider scripts loaded by hosts before rendering tweets and Instagram posts.
const (
	TwitterScriptURL   = "https://platform.twitter.com/widgets.js"
	InstagramScriptURL = "https://platform.instagram.com/en_US/embeds.js"
)

// ScriptURL returns the provider script an embed type needs, or "".
func ScriptURL(t document.NodeType) string {
	switch t {
	case document.TypeTweet:
		return TwitterScriptURL
	case document.TypeInstagram:
		return InstagramScriptURL
	}
	return ""
}

// Status is the render state of one embed widget.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Widget is the externally visible state of one embed.
type Widget struct {
	Key    document.NodeKey  `json:"key"`
	Type   document.NodeType `json:"type"`
	Status Status            `json:"status"`
	Script string            `json:"script,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// Widgets tracks embed widgets of one editing session. Whether a provider
// script has loaded is remembered per session.
type Widgets struct {
	mu      sync.Mutex
	log     *slog.Logger
	loaded  map[string]bool
	widgets map[document.NodeKey]*Widget
}

// NewWidgets returns an empty tracker.
func NewWidgets(log *slog.Logger) *Widgets {
	if log == nil {
		log = slog.Default()
	}
	return &Widgets{
		log:     log,
		loaded:  make(map[string]bool),
		widgets: make(map[document.NodeKey]*Widget),
	}
}

// Sync starts tracking embeds that appeared in v and forgets the ones that
// left it. New widgets go straight to loading; a widget whose provider
// script has not loaded in this session carries the script URL to load.
func (w *Widgets) Sync(v document.View) {
	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[document.NodeKey]bool)
	for n := range v.Traverse(v.RootKey()) {
		if !n.IsEmbed() {
			continue
		}
		seen[n.Key()] = true
		if _, ok := w.widgets[n.Key()]; ok {
			continue
		}
		wg := &Widget{Key: n.Key(), Type: n.Type(), Status: StatusIdle}
		w.widgets[n.Key()] = wg
		w.startLocked(wg)
	}
	for k := range w.widgets {
		if !seen[k] {
			delete(w.widgets, k)
		}
	}
}

func (w *Widgets) startLocked(wg *Widget) {
	wg.Status = StatusLoading
	wg.Error = ""
	wg.Script = ""
	if s := ScriptURL(wg.Type); s != "" && !w.loaded[s] {
		wg.Script = s
	}
}

// Loaded marks a widget as rendered. Its provider script counts as loaded
// for the rest of the session.
func (w *Widgets) Loaded(key document.NodeKey) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	wg, err := w.getLocked(key, StatusLoading)
	if err != nil {
		return err
	}
	wg.Status = StatusReady
	if s := ScriptURL(wg.Type); s != "" {
		w.loaded[s] = true
	}
	wg.Script = ""
	return nil
}

// Failed records a render error reported by the host.
func (w *Widgets) Failed(key document.NodeKey, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	wg, err := w.getLocked(key, StatusLoading)
	if err != nil {
		return err
	}
	wg.Status = StatusError
	wg.Error = reason
	w.log.Warn("embed: widget failed",
		slog.String("key", string(key)),
		slog.String("type", string(wg.Type)),
		slog.String("error", reason),
	)
	return nil
}

// Retry moves a failed widget back to loading.
func (w *Widgets) Retry(key document.NodeKey) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	wg, err := w.getLocked(key, StatusError)
	if err != nil {
		return err
	}
	w.startLocked(wg)
	return nil
}

func (w *Widgets) getLocked(key document.NodeKey, want Status) (*Widget, error) {
	wg, ok := w.widgets[key]
	if !ok {
		return nil, fmt.Errorf("embed: widget %s: %w", key, apperr.ErrNotFound)
	}
	if wg.Status != want {
		return nil, fmt.Errorf("embed: widget %s is %s, want %s: %w", key, wg.Status, want, apperr.ErrPreconditionFailed)
	}
	return wg, nil
}

// Get returns a copy of the widget state.
func (w *Widgets) Get(key document.NodeKey) (Widget, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	wg, ok := w.widgets[key]
	if !ok {
		return Widget{}, false
	}
	return *wg, true
}

// All returns copies of every tracked widget.
func (w *Widgets) All() []Widget {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Widget, 0, len(w.widgets))
	for _, wg := range w.widgets {
		out = append(out, *wg)
	}
	slices.SortFunc(out, func(a, b Widget) int { return strings.Compare(string(a.Key), string(b.Key)) })
	return out
}

// ScriptLoaded reports whether the script has loaded in this session.
func (w *Widgets) ScriptLoaded(url string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loaded[url]
}
