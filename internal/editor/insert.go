package editor

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/embed"
)

// InsertImage inserts an image at the caret. It reports false, leaving the
// document untouched, once the image ceiling is reached.
func (e *Editor) InsertImage(attrs document.ImageAttrs) (bool, error) {
	if n := e.tree.Count(document.TypeImage); n >= e.maxImg {
		e.log.Warn(fmt.Sprintf("editor: cannot insert image: maximum of %d images allowed", e.maxImg),
			slog.Int("images", n),
		)
		return false, nil
	}
	attrs.CaptionsEnabled = e.captions
	if !e.captions {
		attrs.ShowCaption = false
		attrs.Caption = nil
	}
	img, err := document.NewImage(attrs)
	if err != nil {
		return false, fmt.Errorf("editor: insert image: %w", err)
	}
	if err := e.apply("insert image", func(tx *document.Tx) error {
		_, err := insertAtRoot(tx, img)
		return err
	}); err != nil {
		return false, err
	}
	return true, nil
}

// InsertYouTube inserts a YouTube embed for an 11 character video id.
func (e *Editor) InsertYouTube(videoID string) error {
	n, err := document.NewYouTube(videoID)
	if err != nil {
		return fmt.Errorf("editor: insert youtube: %w", err)
	}
	return e.insertEmbed(n)
}

// InsertTweet inserts a tweet embed.
func (e *Editor) InsertTweet(id, owner string) error {
	n, err := document.NewTweet(id, owner)
	if err != nil {
		return fmt.Errorf("editor: insert tweet: %w", err)
	}
	return e.insertEmbed(n)
}

// InsertInstagram inserts an Instagram post embed.
func (e *Editor) InsertInstagram(shortcode string) error {
	n, err := document.NewInstagram(shortcode)
	if err != nil {
		return fmt.Errorf("editor: insert instagram: %w", err)
	}
	return e.insertEmbed(n)
}

func (e *Editor) insertEmbed(n *document.Node) error {
	return e.apply("insert "+string(n.Type()), func(tx *document.Tx) error {
		_, err := insertAtRoot(tx, n)
		return err
	})
}

// AutoEmbed pastes url as an autolink and, when a provider recognises it,
// replaces the autolink with the matching embed. Both steps form one
// history entry. It reports whether an embed was inserted.
func (e *Editor) AutoEmbed(url string) (bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return false, nil
	}
	embedded := false
	err := e.history.Transaction(e.tree, "auto embed", func() error {
		var link document.NodeKey
		if err := e.apply("paste link", func(tx *document.Tx) error {
			var err error
			link, err = insertAutoLink(tx, url)
			return err
		}); err != nil {
			return err
		}

		m, ok := embed.MatchURL(url)
		if !ok {
			return nil
		}
		node, err := m.Node()
		if err != nil {
			e.log.Debug("editor: embed match rejected", slog.String("url", url), slog.String("error", err.Error()))
			return nil
		}
		embedded = true
		return e.apply("insert "+string(m.Type), func(tx *document.Tx) error {
			if l := tx.Get(link); l != nil {
				parent := l.Parent()
				idx := tx.Get(parent).IndexOf(link)
				if err := tx.Remove(link); err != nil {
					return err
				}
				tx.Collapse(parent, idx)
			}
			_, err := insertAtRoot(tx, node)
			return err
		})
	})
	if err != nil {
		return false, err
	}
	return embedded, nil
}

// insertAutoLink puts url at the caret as an autolink and moves the caret
// after it.
func insertAutoLink(tx *document.Tx, url string) (document.NodeKey, error) {
	if err := clearSelection(tx); err != nil {
		return "", err
	}
	p, rs, err := caret(tx)
	if err != nil {
		return "", err
	}
	k, off, err := textSlot(tx, p, rs.Format, url)
	if err != nil {
		return "", err
	}

	var pos document.Position
	t := tx.Get(k)
	switch l := tx.NearestLink(k); {
	case l != "":
		pos = document.After(l)
	case t.Text() == "" || off == 0:
		pos = document.Before(k)
	case off >= t.TextLen():
		pos = document.After(k)
	default:
		parts, err := tx.SplitText(k, off)
		if err != nil {
			return "", err
		}
		pos = document.After(parts[0])
	}

	link, err := document.NewAutoLink(document.LinkAttrs{URL: embed.NormalizeURL(url), Rel: defaultRel})
	if err != nil {
		return "", err
	}
	lk, err := tx.Insert(link, pos)
	if err != nil {
		return "", err
	}
	tk, err := tx.Insert(document.NewText(url, rs.Format), document.AppendTo(lk))
	if err != nil {
		return "", err
	}
	tx.Collapse(tk, utf8.RuneCountInString(url))
	return lk, nil
}

// insertAtRoot places a decorator among the top-level blocks at the caret.
// A caret on the root appends a paragraph and inserts before it; a caret at
// the start of a block (or in an empty one) inserts before the block; a
// caret at the end inserts after it; otherwise the block is split.
func insertAtRoot(tx *document.Tx, n *document.Node) (document.NodeKey, error) {
	if ns, ok := tx.Selection().(*document.NodeSelection); ok && len(ns.Keys) > 0 {
		k, err := tx.Insert(n, document.After(tx.TopLevel(ns.Keys[len(ns.Keys)-1])))
		if err != nil {
			return "", err
		}
		return k, selectAfter(tx, k)
	}
	if err := clearSelection(tx); err != nil {
		return "", err
	}
	p, _, err := caret(tx)
	if err != nil {
		return "", err
	}

	if p.Key == tx.RootKey() {
		par, err := insertEmptyParagraph(tx, document.AppendTo(p.Key))
		if err != nil {
			return "", err
		}
		k, err := tx.Insert(n, document.Before(par))
		if err != nil {
			return "", err
		}
		tx.SelectStart(par)
		return k, nil
	}

	block := tx.TopLevel(p.Key)
	before, after := around(tx, p, block)
	switch {
	case !before:
		return tx.Insert(n, document.Before(block))
	case !after:
		k, err := tx.Insert(n, document.After(block))
		if err != nil {
			return "", err
		}
		return k, selectAfter(tx, k)
	}

	b := tx.Get(block)
	var right *document.Node
	switch b.Type() {
	case document.TypeHeading:
		right, err = document.NewHeading(b.Tag())
	case document.TypeQuote:
		right = document.NewQuote()
	default:
		right = document.NewParagraph()
	}
	if err != nil {
		return "", err
	}
	nb, err := splitAt(tx, p, right)
	if err != nil {
		return "", err
	}
	k, err := tx.Insert(n, document.After(block))
	if err != nil {
		return "", err
	}
	tx.SelectStart(nb)
	return k, nil
}

// selectAfter moves the caret into the block following k, creating an empty
// paragraph when k is last or followed by another decorator.
func selectAfter(tx *document.Tx, k document.NodeKey) error {
	next := tx.NextSibling(k)
	if next == "" || !tx.Get(next).IsElement() {
		var err error
		if next, err = insertEmptyParagraph(tx, document.After(k)); err != nil {
			return err
		}
	}
	tx.SelectStart(next)
	return nil
}

// SetCaptionVisible shows or hides the caption of an image.
func (e *Editor) SetCaptionVisible(key document.NodeKey, show bool) error {
	return e.apply("toggle caption", func(tx *document.Tx) error {
		attrs, err := captionedImage(tx, key)
		if err != nil {
			return err
		}
		attrs.ShowCaption = show
		return tx.SetImage(key, attrs)
	})
}

// SetCaption replaces the caption text of an image. The caption document is
// swapped rather than edited so undo restores the previous one.
func (e *Editor) SetCaption(key document.NodeKey, text string) error {
	return e.apply("edit caption", func(tx *document.Tx) error {
		attrs, err := captionedImage(tx, key)
		if err != nil {
			return err
		}
		caption := document.NewTree()
		if _, err := caption.Update("caption", func(ctx *document.Tx) error {
			t := ctx.FirstText(ctx.RootKey())
			if err := ctx.SetText(t, text); err != nil {
				return err
			}
			ctx.SelectEnd(ctx.RootKey())
			return nil
		}); err != nil {
			return err
		}
		attrs.Caption = caption
		return tx.SetImage(key, attrs)
	})
}

func captionedImage(tx *document.Tx, key document.NodeKey) (document.ImageAttrs, error) {
	n := tx.Get(key)
	if n == nil {
		return document.ImageAttrs{}, fmt.Errorf("image %s: %w", key, apperr.ErrNotFound)
	}
	if n.Type() != document.TypeImage || !n.Image().CaptionsEnabled {
		return document.ImageAttrs{}, fmt.Errorf("image %s has no caption: %w", key, apperr.ErrPreconditionFailed)
	}
	return n.Image(), nil
}
