package embed

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var urlRe = regexp.MustCompile(`((https?://(www\.)?)|(www\.))[-a-zA-Z0-9@:%._+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_+.~#?&/=]*)`)

const trailingPunct = "-.+():%"

// URLMatch is a URL found in plain text. Start and End are rune offsets.
type URLMatch struct {
	Start int
	End   int
	Text  string
	URL   string
}

// FindURLs returns every URL in text, trailing punctuation trimmed. URLs
// starting with www. get an https:// scheme.
func FindURLs(text string) []URLMatch {
	var out []URLMatch
	for _, loc := range urlRe.FindAllStringIndex(text, -1) {
		raw := strings.TrimRight(text[loc[0]:loc[1]], trailingPunct)
		if raw == "" {
			continue
		}
		start := utf8.RuneCountInString(text[:loc[0]])
		out = append(out, URLMatch{
			Start: start,
			End:   start + utf8.RuneCountInString(raw),
			Text:  raw,
			URL:   NormalizeURL(raw),
		})
	}
	return out
}

// NormalizeURL prefixes scheme-less URLs with https://.
func NormalizeURL(s string) string {
	if strings.HasPrefix(s, "http") {
		return s
	}
	return "https://" + s
}
