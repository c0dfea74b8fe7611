// Package editor is the command layer over a document tree. Each command
// reads the selection, checks its preconditions, mutates the tree in one
// transaction and records one history entry.
//
// An Editor is not safe for concurrent use; callers serialize access (see
// internal/session).
package editor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
	"github.com/starford/folio/internal/history"
	"github.com/starford/folio/internal/htmlcodec"
)

// DefaultMaxImages is the image ceiling when none is configured.
const DefaultMaxImages = 15

// UpdateEvent is delivered to listeners after every committed change,
// including undo and redo.
type UpdateEvent struct {
	Label          string `json:"label"`
	ImageCount     int    `json:"imageCount"`
	CanInsertImage bool   `json:"canInsertImage"`
}

// Editor owns one document tree and its history.
type Editor struct {
	log      *slog.Logger
	tree     *document.Tree
	history  *history.History
	codec    *htmlcodec.Codec
	widgets  *embed.Widgets
	maxImg   int
	captions bool
	histMax  int

	lmu       sync.Mutex
	listeners map[int]func(UpdateEvent)
	nextID    int
}

// Option configures an Editor.
type Option func(*Editor)

func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.log = l }
}

// WithMaxImages sets the image ceiling enforced by InsertImage.
func WithMaxImages(n int) Option {
	return func(e *Editor) { e.maxImg = n }
}

// WithCaptions enables caption documents on inserted images.
func WithCaptions(on bool) Option {
	return func(e *Editor) { e.captions = on }
}

// WithHistoryLimit bounds the undo stack.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.histMax = n }
}

// WithCodec sets the HTML codec used for import and export.
func WithCodec(c *htmlcodec.Codec) Option {
	return func(e *Editor) { e.codec = c }
}

// New returns an editor holding an empty document.
func New(opts ...Option) *Editor {
	e := &Editor{
		log:       slog.Default(),
		maxImg:    DefaultMaxImages,
		listeners: make(map[int]func(UpdateEvent)),
	}
	for _, o := range opts {
		o(e)
	}
	if e.maxImg <= 0 {
		e.maxImg = DefaultMaxImages
	}
	if e.codec == nil {
		e.codec = htmlcodec.New(htmlcodec.WithLogger(e.log))
	}
	e.tree = document.NewTree()
	e.history = history.New(e.histMax)
	e.widgets = embed.NewWidgets(e.log)
	return e
}

// View returns a read-only view of the current document.
func (e *Editor) View() document.View { return e.tree.View }

// Widgets returns the embed widget states of this editor.
func (e *Editor) Widgets() *embed.Widgets { return e.widgets }

// History returns the undo history.
func (e *Editor) History() *history.History { return e.history }

// MaxImages returns the image ceiling.
func (e *Editor) MaxImages() int { return e.maxImg }

// OnUpdate registers fn for update events. The returned function removes it.
func (e *Editor) OnUpdate(fn func(UpdateEvent)) (unsubscribe func()) {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.lmu.Lock()
		defer e.lmu.Unlock()
		delete(e.listeners, id)
	}
}

// apply runs fn as one transaction and records it in the history.
func (e *Editor) apply(label string, fn func(tx *document.Tx) error) error {
	c, err := e.tree.Update(label, fn)
	if err != nil {
		return fmt.Errorf("editor: %s: %w", label, err)
	}
	e.history.Record(c)
	if !c.Empty() {
		e.changed(label)
	}
	return nil
}

func (e *Editor) changed(label string) {
	e.widgets.Sync(e.tree.View)

	n := e.tree.Count(document.TypeImage)
	ev := UpdateEvent{Label: label, ImageCount: n, CanInsertImage: n < e.maxImg}

	e.lmu.Lock()
	fns := make([]func(UpdateEvent), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.lmu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Undo reverts the last history entry. It reports false when there is
// nothing to undo.
func (e *Editor) Undo() (bool, error) {
	info, ok := e.history.PeekUndo()
	if !ok {
		return false, nil
	}
	if err := e.history.Undo(e.tree); err != nil {
		return false, fmt.Errorf("editor: undo: %w", err)
	}
	e.changed("undo " + info.Description)
	return true, nil
}

// Redo reapplies the last undone entry.
func (e *Editor) Redo() (bool, error) {
	info, ok := e.history.PeekRedo()
	if !ok {
		return false, nil
	}
	if err := e.history.Redo(e.tree); err != nil {
		return false, fmt.Errorf("editor: redo: %w", err)
	}
	e.changed("redo " + info.Description)
	return true, nil
}

// Select replaces the range selection. The pending format is taken from the
// anchor text node.
func (e *Editor) Select(anchor, focus document.Point) error {
	return e.apply("select", func(tx *document.Tx) error {
		for _, p := range []document.Point{anchor, focus} {
			if tx.Get(p.Key) == nil {
				return fmt.Errorf("point %s: %w", p.Key, apperr.ErrNotFound)
			}
		}
		rs := &document.RangeSelection{Anchor: anchor, Focus: focus}
		if n := tx.Get(anchor.Key); n.IsText() {
			rs.Format = n.Format()
		}
		tx.SetSelection(rs)
		return nil
	})
}

// SelectNodes selects whole nodes, typically decorators.
func (e *Editor) SelectNodes(keys ...document.NodeKey) error {
	return e.apply("select", func(tx *document.Tx) error {
		for _, k := range keys {
			if tx.Get(k) == nil {
				return fmt.Errorf("node %s: %w", k, apperr.ErrNotFound)
			}
		}
		tx.SelectNodes(keys...)
		return nil
	})
}

// caret returns the collapsed caret, or a precondition error.
func caret(tx *document.Tx) (document.Point, *document.RangeSelection, error) {
	rs := tx.Range()
	if rs == nil {
		return document.Point{}, nil, fmt.Errorf("no range selection: %w", apperr.ErrPreconditionFailed)
	}
	return rs.Anchor, rs, nil
}
