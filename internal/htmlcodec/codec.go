// Package htmlcodec converts document trees to and from HTML.
package htmlcodec

import (
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tdewolff/minify/v2"
	mhtml "github.com/tdewolff/minify/v2/html"
)

// Mode selects the HTML flavour produced by Export.
type Mode int

const (
	// ModeFull keeps every link attribute.
	ModeFull Mode = iota
	// ModeBridge strips target, rel and class from anchors, for hosts that
	// render the HTML themselves.
	ModeBridge
)

// Codec imports and exports HTML. It is safe for concurrent use.
type Codec struct {
	log      *slog.Logger
	policy   *bluemonday.Policy
	minifier *minify.M
	sanitize bool
	minify   bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithLogger sets the logger used to report import fallbacks.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) { c.log = l }
}

// WithSanitize runs imported HTML through the paste policy first.
func WithSanitize(on bool) Option {
	return func(c *Codec) { c.sanitize = on }
}

// WithMinify minifies bridge-mode output.
func WithMinify(on bool) Option {
	return func(c *Codec) { c.minify = on }
}

// New returns a codec. Sanitizing is on by default; minifying is off.
func New(opts ...Option) *Codec {
	c := &Codec{
		log:      slog.Default(),
		policy:   pastePolicy(),
		sanitize: true,
	}
	for _, o := range opts {
		o(c)
	}
	c.minifier = minify.New()
	c.minifier.Add("text/html", &mhtml.Minifier{
		KeepEndTags:         true,
		KeepDefaultAttrVals: true,
		KeepQuotes:          true,
	})
	return c
}
