// Package document implements the typed content tree edited by folio:
// the node registry, the copy-on-write tree with transactional updates,
// and the selection model.
package document

import (
	"slices"
	"unicode/utf8"
)

// NodeKey identifies a node for the lifetime of its tree. Keys are never reused.
type NodeKey string

// NodeType is the tag of a node variant. The set of variants is closed.
type NodeType string

const (
	TypeRoot      NodeType = "root"
	TypeParagraph NodeType = "paragraph"
	TypeHeading   NodeType = "heading"
	TypeQuote     NodeType = "quote"
	TypeText      NodeType = "text"
	TypeLink      NodeType = "link"
	TypeAutoLink  NodeType = "autolink"
	TypeImage     NodeType = "image"
	TypeYouTube   NodeType = "youtube"
	TypeTweet     NodeType = "tweet"
	TypeInstagram NodeType = "instagram"
)

// Types lists every registered node type in a stable order.
func Types() []NodeType {
	return []NodeType{
		TypeRoot, TypeParagraph, TypeHeading, TypeQuote, TypeText,
		TypeLink, TypeAutoLink, TypeImage, TypeYouTube, TypeTweet, TypeInstagram,
	}
}

// Format is the text format bitmask. Values match the Lexical wire format.
type Format uint32

const (
	FormatBold          Format = 1
	FormatItalic        Format = 2
	FormatStrikethrough Format = 4
	FormatUnderline     Format = 8
	FormatCode          Format = 16
)

// Has reports whether every bit of f2 is set in f.
func (f Format) Has(f2 Format) bool { return f&f2 == f2 }

// Toggle flips the bits of f2.
func (f Format) Toggle(f2 Format) Format { return f ^ f2 }

// HeadingTag is the only heading level the editor supports.
const HeadingTag = "h1"

// LinkAttrs are the attributes carried by link and autolink nodes.
type LinkAttrs struct {
	URL    string `json:"url"`
	Target string `json:"target,omitempty"`
	Rel    string `json:"rel,omitempty"`
	Title  string `json:"title,omitempty"`
}

// ImageAttrs are the attributes of an image node. A zero Width or Height
// means the natural size of the image.
type ImageAttrs struct {
	Src             string `json:"src"`
	AltText         string `json:"altText"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	MaxWidth        int    `json:"maxWidth"`
	ShowCaption     bool   `json:"showCaption"`
	CaptionsEnabled bool   `json:"captionsEnabled"`

	// Caption is a nested text-only document exclusively owned by the image.
	Caption *Tree `json:"-"`
}

// EmbedAttrs identify the external resource rendered by an embed node.
// Owner is only used by tweets.
type EmbedAttrs struct {
	ID    string `json:"id"`
	Owner string `json:"owner,omitempty"`
}

// Node is one immutable version of a document node. Mutation happens through
// a Tx, which clones the node on first write.
type Node struct {
	key      NodeKey
	typ      NodeType
	parent   NodeKey
	children []NodeKey

	format    Format
	style     string
	text      string
	direction string
	indent    int
	align     string
	tag       string

	link  LinkAttrs
	image ImageAttrs
	embed EmbedAttrs

	gen uint64
}

func (n *Node) clone() *Node {
	c := *n
	c.children = slices.Clone(n.children)
	return &c
}

func (n *Node) Key() NodeKey        { return n.key }
func (n *Node) Type() NodeType      { return n.typ }
func (n *Node) Parent() NodeKey     { return n.parent }
func (n *Node) ChildCount() int     { return len(n.children) }
func (n *Node) Format() Format      { return n.format }
func (n *Node) Style() string       { return n.style }
func (n *Node) Text() string        { return n.text }
func (n *Node) Direction() string   { return n.direction }
func (n *Node) Indent() int         { return n.indent }
func (n *Node) Align() string       { return n.align }
func (n *Node) Tag() string         { return n.tag }
func (n *Node) Link() LinkAttrs     { return n.link }
func (n *Node) Image() ImageAttrs   { return n.image }
func (n *Node) Embed() EmbedAttrs   { return n.embed }
func (n *Node) TextLen() int        { return utf8.RuneCountInString(n.text) }
func (n *Node) Caps() Capabilities  { return n.typ.Capabilities() }
func (n *Node) IsText() bool        { return n.typ == TypeText }
func (n *Node) IsLink() bool        { return n.typ == TypeLink || n.typ == TypeAutoLink }
func (n *Node) IsDecorator() bool   { return n.Caps().Decorator }
func (n *Node) IsInline() bool      { return n.Caps().Inline }
func (n *Node) IsElement() bool     { return n.Caps().SupportsChildren }
func (n *Node) IsBlock() bool       { return !n.Caps().Inline && n.typ != TypeRoot }
func (n *Node) IsEmbed() bool       { return n.typ == TypeYouTube || n.typ == TypeTweet || n.typ == TypeInstagram }
func (n *Node) Children() []NodeKey { return slices.Clone(n.children) }

// Child returns the i-th child key or "" when out of range.
func (n *Node) Child(i int) NodeKey {
	if i < 0 || i >= len(n.children) {
		return ""
	}
	return n.children[i]
}

// IndexOf returns the position of child among the children of n, or -1.
func (n *Node) IndexOf(child NodeKey) int {
	return slices.Index(n.children, child)
}

// NewParagraph returns a detached, empty paragraph.
func NewParagraph() *Node {
	return &Node{typ: TypeParagraph, direction: "ltr"}
}

// NewQuote returns a detached, empty quote block.
func NewQuote() *Node {
	return &Node{typ: TypeQuote, direction: "ltr"}
}

// NewHeading returns a detached heading. Only HeadingTag is accepted.
func NewHeading(tag string) (*Node, error) {
	n := &Node{typ: TypeHeading, tag: tag, direction: "ltr"}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// NewText returns a detached text run.
func NewText(text string, format Format) *Node {
	return &Node{typ: TypeText, text: text, format: format}
}

// NewLink returns a detached link. The URL is required; rel defaults are
// applied by the link command, not here.
func NewLink(attrs LinkAttrs) (*Node, error) {
	n := &Node{typ: TypeLink, link: attrs, direction: "ltr"}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// NewAutoLink returns a detached autolink.
func NewAutoLink(attrs LinkAttrs) (*Node, error) {
	n := &Node{typ: TypeAutoLink, link: attrs, direction: "ltr"}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// NewImage returns a detached image. When captions are enabled and no
// caption document is given, an empty one is created.
func NewImage(attrs ImageAttrs) (*Node, error) {
	if attrs.CaptionsEnabled && attrs.Caption == nil {
		attrs.Caption = NewTree()
	}
	n := &Node{typ: TypeImage, image: attrs}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// NewYouTube returns a detached YouTube embed for an 11 character video id.
func NewYouTube(videoID string) (*Node, error) {
	return newEmbed(TypeYouTube, EmbedAttrs{ID: videoID})
}

// NewTweet returns a detached tweet embed.
func NewTweet(id, owner string) (*Node, error) {
	return newEmbed(TypeTweet, EmbedAttrs{ID: id, Owner: owner})
}

// NewInstagram returns a detached Instagram post embed.
func NewInstagram(shortcode string) (*Node, error) {
	return newEmbed(TypeInstagram, EmbedAttrs{ID: shortcode})
}

func newEmbed(typ NodeType, attrs EmbedAttrs) (*Node, error) {
	n := &Node{typ: typ, embed: attrs}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}
