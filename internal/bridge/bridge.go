// Package bridge carries fire-and-forget messages between an editing session
// and its host. Outbound messages are tagged {type, data}; inbound messages
// are a single string payload naming the selected book.
package bridge

import (
	"errors"
	"log/slog"
	"sync"
)

// MessageType tags an outbound message.
type MessageType string

const (
	TypeCloseEditor    MessageType = "close-editor"
	TypeExportHTML     MessageType = "export-html"
	TypeOpenBookPicker MessageType = "open-book-picker"
	// TypeEcho acknowledges an inbound payload.
	TypeEcho MessageType = "echo"
)

// NoBook is the book name used when the host sends an empty payload.
const NoBook = "No book"

const echoPrefix = "Received from host: "

// ErrNotConnected is returned by a Transport with nobody listening.
var ErrNotConnected = errors.New("bridge: transport not connected")

// Message is one outbound message.
type Message struct {
	Type MessageType `json:"type"`
	Data string      `json:"data,omitempty"`
}

// Transport delivers outbound messages to the host.
type Transport interface {
	Send(Message) error
}

// Bridge is the session side of the host channel. It is safe for concurrent
// use.
type Bridge struct {
	log *slog.Logger

	mu        sync.Mutex
	transport Transport
	listeners map[int]func(string)
	nextID    int
	book      string
}

// New returns a bridge with no transport connected.
func New(log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		log:       log,
		listeners: make(map[int]func(string)),
		book:      NoBook,
	}
}

// Connect installs t as the outbound transport. The returned function
// disconnects it again, unless another transport replaced it meanwhile.
func (b *Bridge) Connect(t Transport) (disconnect func()) {
	b.mu.Lock()
	b.transport = t
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.transport == t {
			b.transport = nil
		}
	}
}

// Post sends m to the host. Without a working transport the message is
// logged and dropped.
func (b *Bridge) Post(m Message) {
	b.mu.Lock()
	t := b.transport
	b.mu.Unlock()

	if t == nil {
		b.log.Warn("bridge: no host handler, dropping message", slog.String("type", string(m.Type)))
		return
	}
	if err := t.Send(m); err != nil {
		b.log.Warn("bridge: delivery failed, dropping message",
			slog.String("type", string(m.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// CloseEditor asks the host to close the editor.
func (b *Bridge) CloseEditor() { b.Post(Message{Type: TypeCloseEditor}) }

// ExportHTML hands exported HTML to the host.
func (b *Bridge) ExportHTML(html string) { b.Post(Message{Type: TypeExportHTML, Data: html}) }

// OpenBookPicker asks the host to show its book picker.
func (b *Bridge) OpenBookPicker() { b.Post(Message{Type: TypeOpenBookPicker}) }

// OnMessage registers fn for inbound payloads. The returned function
// removes it.
func (b *Bridge) OnMessage(fn func(payload string)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Receive handles an inbound payload from the host: it becomes the current
// book name (NoBook when empty), listeners are notified and the payload is
// echoed back.
func (b *Bridge) Receive(payload string) {
	b.mu.Lock()
	b.book = payload
	if payload == "" {
		b.book = NoBook
	}
	fns := make([]func(string), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
	b.Post(Message{Type: TypeEcho, Data: echoPrefix + payload})
}

// Book returns the book name last received from the host.
func (b *Bridge) Book() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.book
}
