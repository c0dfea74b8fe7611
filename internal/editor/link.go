package editor

import (
	"log/slog"

	"github.com/starford/folio/internal/document"
)

const defaultRel = "noopener"

// ToggleLink links, relinks or unlinks the selection.
//
// A nil url unwraps the nearest link of every selected node. When the
// selection lies inside a single link, that link is updated in place.
// Otherwise each contiguous run of selected text under one parent is wrapped
// in a new link; links overlapping the selection give up the selected part
// and fully covered ones are absorbed.
//
// It reports false and leaves the document alone when url is not an
// absolute http(s) URL, when there is no range selection, or when a
// collapsed caret sits outside any link.
func (e *Editor) ToggleLink(url *string, attrs document.LinkAttrs) (bool, error) {
	if url != nil {
		attrs.URL = *url
		if attrs.Rel == "" {
			attrs.Rel = defaultRel
		}
		if err := attrs.ValidateHTTP(); err != nil {
			e.log.Debug("editor: link rejected",
				slog.String("url", attrs.URL), slog.String("error", err.Error()))
			return false, nil
		}
	}
	if e.View().Range() == nil {
		return false, nil
	}
	applied := true
	err := e.apply("toggle link", func(tx *document.Tx) error {
		keys, err := tx.Extract()
		if err != nil {
			return err
		}
		if url == nil {
			return unlink(tx, keys)
		}
		if l := sharedLink(tx, keys); l != "" {
			return tx.SetLink(l, attrs)
		}
		if rs := tx.Range(); rs != nil && rs.IsCollapsed() {
			applied = false
			return nil
		}
		return link(tx, keys, attrs)
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func unlink(tx *document.Tx, keys []document.NodeKey) error {
	done := make(map[document.NodeKey]bool)
	for _, k := range keys {
		l := tx.NearestLink(k)
		if l == "" || done[l] || tx.Get(l) == nil {
			continue
		}
		done[l] = true
		if err := tx.Unwrap(l); err != nil {
			return err
		}
	}
	return nil
}

// sharedLink returns the link every key sits in, or "".
func sharedLink(tx *document.Tx, keys []document.NodeKey) document.NodeKey {
	var shared document.NodeKey
	for _, k := range keys {
		l := tx.NearestLink(k)
		if l == "" || (shared != "" && l != shared) {
			return ""
		}
		shared = l
	}
	return shared
}

func link(tx *document.Tx, keys []document.NodeKey, attrs document.LinkAttrs) error {
	var texts []document.NodeKey
	for _, k := range keys {
		n := tx.Get(k)
		if n == nil || !n.IsText() {
			continue
		}
		if tx.NearestLink(k) != "" {
			if err := liftOutOfLink(tx, k); err != nil {
				return err
			}
		}
		texts = append(texts, k)
	}

	var run []document.NodeKey
	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		defer func() { run = run[:0] }()
		l, err := document.NewLink(attrs)
		if err != nil {
			return err
		}
		lk, err := tx.Insert(l, document.Before(run[0]))
		if err != nil {
			return err
		}
		for _, k := range run {
			if err := tx.Move(k, document.AppendTo(lk)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, k := range texts {
		if len(run) > 0 && tx.NextSibling(run[len(run)-1]) != k {
			if err := flush(); err != nil {
				return err
			}
		}
		run = append(run, k)
	}
	return flush()
}

// liftOutOfLink moves text key out of its link to the link's parent. Link
// children after key move to a copy of the link placed after key, so the
// unselected parts stay linked.
func liftOutOfLink(tx *document.Tx, key document.NodeKey) error {
	l := tx.Get(tx.Get(key).Parent())
	i := l.IndexOf(key)
	if i == 0 {
		if err := tx.Move(key, document.Before(l.Key())); err != nil {
			return err
		}
		return dropEmpty(tx, l.Key())
	}
	if tail := l.Children()[i+1:]; len(tail) > 0 {
		cp, err := cloneLink(l)
		if err != nil {
			return err
		}
		ck, err := tx.Insert(cp, document.After(l.Key()))
		if err != nil {
			return err
		}
		for _, c := range tail {
			if err := tx.Move(c, document.AppendTo(ck)); err != nil {
				return err
			}
		}
	}
	if err := tx.Move(key, document.After(l.Key())); err != nil {
		return err
	}
	return dropEmpty(tx, l.Key())
}

// dropEmpty removes a link left without children so the text around it
// becomes adjacent again.
func dropEmpty(tx *document.Tx, link document.NodeKey) error {
	if n := tx.Get(link); n != nil && n.ChildCount() == 0 {
		return tx.Remove(link)
	}
	return nil
}
