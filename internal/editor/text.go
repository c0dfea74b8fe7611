package editor

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
)

// InsertText types s at the selection, replacing a non-collapsed range. A
// URL followed by whitespace becomes an autolink.
func (e *Editor) InsertText(s string) error {
	s = norm.NFC.String(s)
	if s == "" {
		return nil
	}
	return e.apply("insert text", func(tx *document.Tx) error {
		if err := clearSelection(tx); err != nil {
			return err
		}
		p, rs, err := caret(tx)
		if err != nil {
			return err
		}
		key, off, err := textSlot(tx, p, rs.Format, s)
		if err != nil {
			return err
		}
		runes := []rune(tx.Get(key).Text())
		if err := tx.SetText(key, string(runes[:off])+s+string(runes[off:])); err != nil {
			return err
		}
		tx.Collapse(key, off+utf8.RuneCountInString(s))

		last, _ := utf8.DecodeLastRuneInString(s)
		if unicode.IsSpace(last) {
			return autolink(tx, key, off+utf8.RuneCountInString(s)-1)
		}
		return refreshAutoLink(tx, key)
	})
}

// clearSelection removes selected nodes or a non-collapsed range, leaving a
// collapsed caret.
func clearSelection(tx *document.Tx) error {
	if ns, ok := tx.Selection().(*document.NodeSelection); ok {
		return removeNodes(tx, ns.Keys)
	}
	if rs := tx.Range(); rs != nil && !rs.IsCollapsed() {
		return deleteRange(tx)
	}
	return nil
}

// textSlot finds or creates the text node typed text goes into and the rune
// offset inside it.
func textSlot(tx *document.Tx, p document.Point, format document.Format, s string) (document.NodeKey, int, error) {
	n := tx.Get(p.Key)
	if n == nil {
		return "", 0, fmt.Errorf("caret %s: %w", p.Key, apperr.ErrNotFound)
	}
	if !n.IsText() {
		return elementSlot(tx, p, format, s)
	}

	off := p.Offset
	if l := tx.NearestLink(p.Key); l != "" && off == n.TextLen() && tx.LastText(l) == p.Key {
		r, _ := utf8.DecodeRuneInString(s)
		if tx.Get(l).Type() == document.TypeLink || unicode.IsSpace(r) {
			k, err := tx.Insert(document.NewText("", format), document.After(l))
			return k, 0, err
		}
	}
	if n.Format() == format {
		return p.Key, off, nil
	}
	if n.Text() == "" {
		return p.Key, 0, tx.SetFormat(p.Key, format)
	}

	t := document.NewText("", format)
	var (
		k   document.NodeKey
		err error
	)
	switch {
	case off == 0:
		k, err = tx.Insert(t, document.Before(p.Key))
	case off >= n.TextLen():
		k, err = tx.Insert(t, document.After(p.Key))
	default:
		var parts []document.NodeKey
		if parts, err = tx.SplitText(p.Key, off); err == nil {
			k, err = tx.Insert(t, document.After(parts[0]))
		}
	}
	return k, 0, err
}

func elementSlot(tx *document.Tx, p document.Point, format document.Format, s string) (document.NodeKey, int, error) {
	n := tx.Get(p.Key)
	if !n.IsElement() {
		return "", 0, fmt.Errorf("caret on %s: %w", n.Type(), apperr.ErrPreconditionFailed)
	}
	if p.Key == tx.RootKey() {
		pos := document.AppendTo(p.Key)
		if c := n.Child(p.Offset); c != "" {
			pos = document.Before(c)
		}
		b, err := tx.Insert(document.NewParagraph(), pos)
		if err != nil {
			return "", 0, err
		}
		k, err := tx.Insert(document.NewText("", format), document.AppendTo(b))
		return k, 0, err
	}
	if prev := tx.Get(n.Child(p.Offset - 1)); prev != nil && prev.IsText() {
		return textSlot(tx, document.Point{Key: prev.Key(), Offset: prev.TextLen()}, format, s)
	}
	if next := tx.Get(n.Child(p.Offset)); next != nil && next.IsText() {
		return textSlot(tx, document.Point{Key: next.Key()}, format, s)
	}
	pos := document.AppendTo(p.Key)
	if c := n.Child(p.Offset); c != "" {
		pos = document.Before(c)
	}
	k, err := tx.Insert(document.NewText("", format), pos)
	return k, 0, err
}

// autolink wraps a URL ending at rune offset end of text key in an autolink.
func autolink(tx *document.Tx, key document.NodeKey, end int) error {
	if tx.NearestLink(key) != "" {
		return nil
	}
	runes := []rune(tx.Get(key).Text())
	var match *embed.URLMatch
	for _, m := range embed.FindURLs(string(runes[:end])) {
		if m.End == end {
			match = &m
		}
	}
	if match == nil {
		return nil
	}
	parts, err := tx.SplitText(key, match.Start, match.End)
	if err != nil {
		return err
	}
	target := parts[0]
	if match.Start > 0 {
		target = parts[1]
	}
	link, err := document.NewAutoLink(document.LinkAttrs{URL: match.URL, Rel: defaultRel})
	if err != nil {
		return err
	}
	lk, err := tx.Insert(link, document.Before(target))
	if err != nil {
		return err
	}
	return tx.Move(target, document.AppendTo(lk))
}

// refreshAutoLink keeps the URL of an autolink in step with its text.
func refreshAutoLink(tx *document.Tx, key document.NodeKey) error {
	l := tx.NearestLink(key)
	if l == "" || tx.Get(l).Type() != document.TypeAutoLink {
		return nil
	}
	text := tx.TextContent(l)
	ms := embed.FindURLs(text)
	if len(ms) != 1 || ms[0].Start != 0 || ms[0].End != utf8.RuneCountInString(text) {
		return nil
	}
	attrs := tx.Get(l).Link()
	attrs.URL = ms[0].URL
	return tx.SetLink(l, attrs)
}

// InsertParagraph splits the block at the caret (Enter). With a decorator
// selected, an empty paragraph is inserted after it.
func (e *Editor) InsertParagraph() error {
	return e.apply("insert paragraph", func(tx *document.Tx) error {
		if ns, ok := tx.Selection().(*document.NodeSelection); ok && len(ns.Keys) > 0 {
			top := tx.TopLevel(ns.Keys[len(ns.Keys)-1])
			p, err := insertEmptyParagraph(tx, document.After(top))
			if err != nil {
				return err
			}
			tx.SelectStart(p)
			return nil
		}
		if err := clearSelection(tx); err != nil {
			return err
		}
		p, _, err := caret(tx)
		if err != nil {
			return err
		}
		if p.Key == tx.RootKey() {
			pos := document.AppendTo(p.Key)
			if c := tx.Root().Child(p.Offset); c != "" {
				pos = document.Before(c)
			}
			np, err := insertEmptyParagraph(tx, pos)
			if err != nil {
				return err
			}
			tx.SelectStart(np)
			return nil
		}

		block := tx.TopLevel(p.Key)
		before, after := around(tx, p, block)
		if !before && after {
			_, err := insertEmptyParagraph(tx, document.Before(block))
			return err
		}
		b := tx.Get(block)
		next := document.NewParagraph()
		if b.Type() == document.TypeHeading && after {
			if next, err = document.NewHeading(b.Tag()); err != nil {
				return err
			}
		}
		nb, err := splitAt(tx, p, next)
		if err != nil {
			return err
		}
		if err := tx.SetBlockAttrs(nb, b.Direction(), b.Indent(), b.Align()); err != nil {
			return err
		}
		tx.SelectStart(nb)
		return nil
	})
}

func insertEmptyParagraph(tx *document.Tx, pos document.Position) (document.NodeKey, error) {
	p, err := tx.Insert(document.NewParagraph(), pos)
	if err != nil {
		return "", err
	}
	_, err = tx.Insert(document.NewText("", 0), document.AppendTo(p))
	return p, err
}

// around reports whether the block holds visible content before and after p.
func around(tx *document.Tx, p document.Point, block document.NodeKey) (before, after bool) {
	idx := make(map[document.NodeKey]int)
	i := 0
	for d := range tx.Traverse(block) {
		idx[d.Key()] = i
		i++
	}

	n := tx.Get(p.Key)
	var self document.NodeKey
	var pos int
	switch {
	case n.IsText():
		self, pos = p.Key, idx[p.Key]
		before, after = p.Offset > 0, p.Offset < n.TextLen()
	case p.Offset < n.ChildCount():
		pos = idx[n.Child(p.Offset)]
	default:
		pos = idx[tx.LastDescendant(p.Key)] + 1
	}

	for d := range tx.Traverse(block) {
		if d.Key() == self || !visible(d) {
			continue
		}
		if idx[d.Key()] < pos {
			before = true
		} else {
			after = true
		}
	}
	return before, after
}

func visible(n *document.Node) bool {
	return n.IsDecorator() || (n.IsText() && n.Text() != "")
}

// splitAt cuts the top-level block holding p in two. Everything after p,
// including the tail of a link the caret is inside, moves into next, which
// is inserted after the block.
func splitAt(tx *document.Tx, p document.Point, next *document.Node) (document.NodeKey, error) {
	parent, idx, err := cutPosition(tx, p)
	if err != nil {
		return "", err
	}
	for {
		pn := tx.Get(parent)
		if !pn.IsLink() {
			break
		}
		li := tx.Get(pn.Parent()).IndexOf(parent)
		switch {
		case idx == 0:
			parent, idx = pn.Parent(), li
		case idx >= pn.ChildCount():
			parent, idx = pn.Parent(), li+1
		default:
			tail, err := cloneLink(pn)
			if err != nil {
				return "", err
			}
			tk, err := tx.Insert(tail, document.After(parent))
			if err != nil {
				return "", err
			}
			for _, c := range pn.Children()[idx:] {
				if err := tx.Move(c, document.AppendTo(tk)); err != nil {
					return "", err
				}
			}
			parent, idx = pn.Parent(), li+1
		}
	}

	nb, err := tx.Insert(next, document.After(parent))
	if err != nil {
		return "", err
	}
	for _, c := range tx.Get(parent).Children()[idx:] {
		if err := tx.Move(c, document.AppendTo(nb)); err != nil {
			return "", err
		}
	}
	return nb, nil
}

// cutPosition turns p into a child index of an element, splitting text.
func cutPosition(tx *document.Tx, p document.Point) (document.NodeKey, int, error) {
	n := tx.Get(p.Key)
	if !n.IsText() {
		return p.Key, p.Offset, nil
	}
	parent := n.Parent()
	i := tx.Get(parent).IndexOf(p.Key)
	switch {
	case p.Offset <= 0:
		return parent, i, nil
	case p.Offset >= n.TextLen():
		return parent, i + 1, nil
	}
	if _, err := tx.SplitText(p.Key, p.Offset); err != nil {
		return "", 0, err
	}
	return parent, i + 1, nil
}

func cloneLink(n *document.Node) (*document.Node, error) {
	if n.Type() == document.TypeAutoLink {
		return document.NewAutoLink(n.Link())
	}
	return document.NewLink(n.Link())
}
