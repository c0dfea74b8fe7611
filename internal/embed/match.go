// Package embed recognises provider URLs (YouTube, X/Twitter, Instagram),
// builds their canonical URLs, finds bare URLs in typed text and tracks the
// load state of embed widgets within one editing session.
package embed

import (
	"regexp"
	"strings"

	"github.com/starford/folio/internal/document"
)

var (
	youTubeRe   = regexp.MustCompile(`^.*(youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)
	tweetRe     = regexp.MustCompile(`^https://x\.com/(#!/)?(\w+)/status(es)*/(\d+)(\?.*)?/?$`)
	instagramRe = regexp.MustCompile(`(?:https?://www\.)?instagram\.com\S*?/p/(\w+)/?`)
)

// Match is a recognised provider URL.
type Match struct {
	Type  document.NodeType
	ID    string
	Owner string
	URL   string
}

// Node builds the embed node for m.
func (m Match) Node() (*document.Node, error) {
	switch m.Type {
	case document.TypeYouTube:
		return document.NewYouTube(m.ID)
	case document.TypeTweet:
		return document.NewTweet(m.ID, m.Owner)
	default:
		return document.NewInstagram(m.ID)
	}
}

// Matcher parses a URL into a Match.
type Matcher func(url string) (Match, bool)

// Matchers are tried in order; the first hit wins.
var Matchers = []Matcher{MatchYouTube, MatchTweet, MatchInstagram}

// MatchURL runs Matchers against url.
func MatchURL(url string) (Match, bool) {
	url = strings.TrimSpace(url)
	for _, m := range Matchers {
		if res, ok := m(url); ok {
			return res, true
		}
	}
	return Match{}, false
}

// MatchYouTube accepts watch, short, embed and v/ URLs with an 11 character id.
func MatchYouTube(url string) (Match, bool) {
	m := youTubeRe.FindStringSubmatch(url)
	if m == nil || len(m[2]) != 11 {
		return Match{}, false
	}
	return Match{Type: document.TypeYouTube, ID: m[2], URL: url}, true
}

// MatchTweet accepts https://x.com/<owner>/status/<id> URLs.
func MatchTweet(url string) (Match, bool) {
	m := tweetRe.FindStringSubmatch(url)
	if m == nil {
		return Match{}, false
	}
	return Match{Type: document.TypeTweet, ID: m[4], Owner: m[2], URL: m[0]}, true
}

// MatchInstagram accepts instagram.com/.../p/<shortcode> URLs.
func MatchInstagram(url string) (Match, bool) {
	m := instagramRe.FindStringSubmatch(url)
	if m == nil {
		return Match{}, false
	}
	return Match{Type: document.TypeInstagram, ID: m[1], URL: m[0]}, true
}
