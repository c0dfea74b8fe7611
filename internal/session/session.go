// Package session keeps live editing sessions in memory. A session owns an
// editor, its embed widgets and a bridge endpoint whose outbound messages
// are streamed over SSE.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/bridge"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/editor"
	"github.com/starford/folio/internal/htmlcodec"
	"github.com/starford/folio/internal/sse"
)

// DefaultTTL is how long an untouched session lives.
const DefaultTTL = time.Hour

// bridgeReplay is how many stream frames a reconnecting host can catch up on.
const bridgeReplay = 32

// EventEditorUpdated carries an editor.UpdateEvent on the session stream.
const EventEditorUpdated = "editor.updated"

// Source is the initial content of a session. Snapshot wins over HTML,
// HTML over Text.
type Source struct {
	Path     string
	Checksum string
	Snapshot []byte
	HTML     string
	Text     string
}

// Session is one live editing session. All editor access goes through Do.
type Session struct {
	ID      string
	Created time.Time

	mu       sync.Mutex
	path     string
	checksum string
	editor   *editor.Editor
	bridge   *bridge.Bridge
	stream   *sse.Broker
	stop     []func()
}

// Info summarises a session for listings and API responses.
type Info struct {
	ID         string    `json:"id"`
	Path       string    `json:"path,omitempty"`
	Checksum   string    `json:"checksum,omitempty"`
	Created    time.Time `json:"created"`
	Book       string    `json:"book"`
	ImageCount int       `json:"imageCount"`
	MaxImages  int       `json:"maxImages"`
	CanUndo    bool      `json:"canUndo"`
	CanRedo    bool      `json:"canRedo"`
	Streams    int       `json:"streams"`
}

// Do runs fn with exclusive access to the editor.
func (s *Session) Do(fn func(e *editor.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

// Bridge returns the host bridge of the session.
func (s *Session) Bridge() *bridge.Bridge { return s.bridge }

// Stream returns the broker streaming bridge messages and editor updates.
func (s *Session) Stream() *sse.Broker { return s.stream }

// Bind records the stored document the session saves to.
func (s *Session) Bind(path, checksum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.path, s.checksum = path, checksum
}

// Binding returns the stored document path and the checksum it was read at.
func (s *Session) Binding() (path, checksum string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path, s.checksum
}

// ExportToHost sends the document to the host as bridge-mode HTML.
func (s *Session) ExportToHost() error {
	var html string
	if err := s.Do(func(e *editor.Editor) error {
		var err error
		html, err = e.HTML(htmlcodec.ModeBridge)
		return err
	}); err != nil {
		return fmt.Errorf("session: export: %w", err)
	}
	s.bridge.ExportHTML(html)
	return nil
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.editor.History()
	return Info{
		ID:         s.ID,
		Path:       s.path,
		Checksum:   s.checksum,
		Created:    s.Created,
		Book:       s.bridge.Book(),
		ImageCount: s.editor.View().Count(document.TypeImage),
		MaxImages:  s.editor.MaxImages(),
		CanUndo:    h.CanUndo(),
		CanRedo:    h.CanRedo(),
		Streams:    s.stream.ClientCount(),
	}
}

func (s *Session) close() {
	for _, fn := range s.stop {
		fn()
	}
	s.stream.Close()
}

// streamTransport delivers bridge messages to the session's SSE clients.
type streamTransport struct {
	b *sse.Broker
}

func (t streamTransport) Send(m bridge.Message) error {
	if t.b.ClientCount() == 0 {
		return bridge.ErrNotConnected
	}
	t.b.Publish(sse.Event{Type: string(m.Type), Data: m})
	return nil
}

// Store holds sessions with a sliding TTL.
type Store struct {
	log     *slog.Logger
	cache   *cache.Cache
	ttl     time.Duration
	editors []editor.Option
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithTTL sets how long an untouched session lives.
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithEditorOptions sets the options every session editor is created with.
func WithEditorOptions(opts ...editor.Option) Option {
	return func(s *Store) { s.editors = opts }
}

// NewStore returns an empty store. Expired sessions are swept every TTL/6.
func NewStore(opts ...Option) *Store {
	s := &Store{log: slog.Default(), ttl: DefaultTTL}
	for _, o := range opts {
		o(s)
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	s.cache = cache.New(s.ttl, s.ttl/6)
	s.cache.OnEvicted(func(id string, v any) {
		v.(*Session).close()
		s.log.Info("session: closed", slog.String("id", id))
	})
	return s
}

// Open starts a session from src.
func (st *Store) Open(src Source) (*Session, error) {
	log := st.log.With(slog.String("component", "session"))
	e := editor.New(append([]editor.Option{editor.WithLogger(log)}, st.editors...)...)

	var err error
	switch {
	case len(src.Snapshot) > 0:
		err = e.LoadSnapshot(src.Snapshot)
	case src.HTML != "":
		if err = e.InsertHTML(src.HTML); err == nil {
			e.History().Clear()
		}
	default:
		err = e.LoadText(src.Text)
	}
	if err != nil {
		return nil, fmt.Errorf("session: open: %w", err)
	}

	s := &Session{
		ID:       uuid.NewString(),
		Created:  time.Now().UTC(),
		path:     src.Path,
		checksum: src.Checksum,
		editor:   e,
		bridge:   bridge.New(log),
		stream:   sse.NewBroker(0, sse.WithReplay(bridgeReplay)),
	}
	s.stop = append(s.stop,
		s.bridge.Connect(streamTransport{b: s.stream}),
		e.OnUpdate(func(ev editor.UpdateEvent) {
			s.stream.Publish(sse.Event{Type: EventEditorUpdated, Data: ev})
		}),
	)

	st.cache.Set(s.ID, s, cache.DefaultExpiration)
	st.log.Info("session: opened", slog.String("id", s.ID), slog.String("path", src.Path))
	return s, nil
}

// Get returns a live session and extends its lifetime.
func (st *Store) Get(id string) (*Session, error) {
	v, ok := st.cache.Get(id)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	s := v.(*Session)
	st.cache.Set(id, s, cache.DefaultExpiration)
	return s, nil
}

// Close ends a session.
func (st *Store) Close(id string) error {
	if _, ok := st.cache.Get(id); !ok {
		return fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	st.cache.Delete(id)
	return nil
}

// List returns summaries of all live sessions.
func (st *Store) List() []Info {
	items := st.cache.Items()
	out := make([]Info, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(*Session).Info())
	}
	return out
}

// Count returns the number of live sessions.
func (st *Store) Count() int { return st.cache.ItemCount() }

// Shutdown closes every session.
func (st *Store) Shutdown() {
	for id := range st.cache.Items() {
		st.cache.Delete(id)
	}
}
