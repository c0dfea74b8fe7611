package document

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Capabilities describe how a node type behaves in the tree.
type Capabilities struct {
	Inline           bool
	CanBeEmpty       bool
	Decorator        bool
	SupportsChildren bool
}

type nodeSpec struct {
	caps     Capabilities
	defaults func() *Node
	validate func(n *Node) error
}

var (
	youTubeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	tweetIDRe   = regexp.MustCompile(`^\d+$`)
	handleRe    = regexp.MustCompile(`^\w+$`)
	shortcodeRe = regexp.MustCompile(`^\w+$`)
	httpURLRe   = regexp.MustCompile(`(?i)^https?://`)
)

// registry is the dispatch table for the closed set of node types.
// Serializers keep their own tables keyed by the same tags.
var registry = map[NodeType]nodeSpec{
	TypeRoot: {
		caps:     Capabilities{SupportsChildren: true},
		defaults: func() *Node { return &Node{typ: TypeRoot, direction: "ltr"} },
	},
	TypeParagraph: {
		caps:     Capabilities{SupportsChildren: true},
		defaults: NewParagraph,
	},
	TypeHeading: {
		caps:     Capabilities{SupportsChildren: true},
		defaults: func() *Node { return &Node{typ: TypeHeading, tag: HeadingTag, direction: "ltr"} },
		validate: func(n *Node) error {
			return validation.Validate(n.tag, validation.Required, validation.In(HeadingTag))
		},
	},
	TypeQuote: {
		caps:     Capabilities{SupportsChildren: true},
		defaults: NewQuote,
	},
	TypeText: {
		caps:     Capabilities{Inline: true, CanBeEmpty: true},
		defaults: func() *Node { return NewText("", 0) },
	},
	TypeLink: {
		caps:     Capabilities{Inline: true, SupportsChildren: true},
		defaults: func() *Node { return &Node{typ: TypeLink, direction: "ltr"} },
		validate: func(n *Node) error { return n.link.Validate() },
	},
	TypeAutoLink: {
		caps:     Capabilities{Inline: true, SupportsChildren: true},
		defaults: func() *Node { return &Node{typ: TypeAutoLink, direction: "ltr"} },
		validate: func(n *Node) error { return n.link.Validate() },
	},
	TypeImage: {
		caps:     Capabilities{Inline: true, CanBeEmpty: true, Decorator: true},
		defaults: func() *Node { return &Node{typ: TypeImage} },
		validate: func(n *Node) error { return n.image.Validate() },
	},
	TypeYouTube: {
		caps:     Capabilities{CanBeEmpty: true, Decorator: true},
		defaults: func() *Node { return &Node{typ: TypeYouTube} },
		validate: func(n *Node) error {
			return validation.ValidateStruct(&n.embed,
				validation.Field(&n.embed.ID, validation.Required, validation.Match(youTubeIDRe)),
			)
		},
	},
	TypeTweet: {
		caps:     Capabilities{CanBeEmpty: true, Decorator: true},
		defaults: func() *Node { return &Node{typ: TypeTweet} },
		validate: func(n *Node) error {
			return validation.ValidateStruct(&n.embed,
				validation.Field(&n.embed.ID, validation.Required, validation.Match(tweetIDRe)),
				validation.Field(&n.embed.Owner, validation.Required, validation.Match(handleRe)),
			)
		},
	},
	TypeInstagram: {
		caps:     Capabilities{CanBeEmpty: true, Decorator: true},
		defaults: func() *Node { return &Node{typ: TypeInstagram} },
		validate: func(n *Node) error {
			return validation.ValidateStruct(&n.embed,
				validation.Field(&n.embed.ID, validation.Required, validation.Match(shortcodeRe)),
			)
		},
	},
}

// Known reports whether t is a registered node type.
func (t NodeType) Known() bool {
	_, ok := registry[t]
	return ok
}

// Capabilities returns the capability set of t. Unknown types report none.
func (t NodeType) Capabilities() Capabilities {
	return registry[t].caps
}

// New default-constructs a detached node of type t. Types with required
// attributes (links, images, embeds) come back without them and fail
// Validate until the attributes are set.
func New(t NodeType) (*Node, error) {
	spec, ok := registry[t]
	if !ok {
		return nil, &UnknownTypeError{Type: string(t)}
	}
	return spec.defaults(), nil
}

// Validate checks the required attributes of n.
func (n *Node) Validate() error {
	spec, ok := registry[n.typ]
	if !ok {
		return &UnknownTypeError{Type: string(n.typ)}
	}
	if spec.validate == nil {
		return nil
	}
	if err := spec.validate(n); err != nil {
		return &ValidationError{Type: n.typ, Err: err}
	}
	return nil
}

// Validate implements validation.Validatable.
func (a LinkAttrs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.URL, validation.Required),
	)
}

// ValidateHTTP is the stricter check for links a user creates: the URL must
// be an absolute http or https URL. Imported documents only need Validate.
func (a LinkAttrs) ValidateHTTP() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.URL, validation.Required, is.URL, validation.Match(httpURLRe)),
	)
}

// Validate implements validation.Validatable.
func (a ImageAttrs) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Src, validation.Required),
		validation.Field(&a.Width, validation.Min(0)),
		validation.Field(&a.Height, validation.Min(0)),
		validation.Field(&a.MaxWidth, validation.Min(0)),
	)
}

// String implements fmt.Stringer.
func (t NodeType) String() string { return string(t) }
