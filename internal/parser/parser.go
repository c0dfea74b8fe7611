// Package parser extracts index metadata (title, plain text, links, tags,
// image and embed counts) from a stored JSON snapshot without building a
// document tree.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/embed"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// Link kinds.
const (
	LinkInline = "link"
	LinkAuto   = "autolink"
	LinkEmbed  = "embed"
)

// Link is one outgoing URL of a document.
type Link struct {
	URL  string `json:"url"`
	Kind string `json:"kind"`
}

// Result holds the metadata of one snapshot.
type Result struct {
	Title  string
	Body   string
	Links  []Link
	Tags   []string
	Images int
	Embeds int
}

// URLs returns the link targets in document order.
func (r *Result) URLs() []string {
	out := make([]string, len(r.Links))
	for i, l := range r.Links {
		out[i] = l.URL
	}
	return out
}

// Parse reads a snapshot. Unknown node types contribute their text, if any.
func Parse(data []byte) (*Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parser: malformed json: %w", apperr.ErrImportParse)
	}
	root := gjson.GetBytes(data, "root")
	if !root.IsObject() {
		return nil, fmt.Errorf("parser: missing root: %w", apperr.ErrImportParse)
	}

	w := &walker{seen: make(map[string]bool)}
	var blocks []string
	for _, b := range root.Get("children").Array() {
		var sb strings.Builder
		w.node(b, &sb)
		text := sb.String()
		if b.Get("type").String() == "heading" && w.res.Title == "" {
			w.res.Title = strings.TrimSpace(text)
		}
		if strings.TrimSpace(text) != "" {
			blocks = append(blocks, text)
		}
	}

	w.res.Body = strings.Join(blocks, "\n")
	if w.res.Title == "" {
		w.res.Title = firstLine(w.res.Body)
	}
	w.res.Tags = extractTags(w.res.Body)
	return &w.res, nil
}

type walker struct {
	res  Result
	seen map[string]bool
}

func (w *walker) link(url, kind string) {
	if url == "" || w.seen[url] {
		return
	}
	w.seen[url] = true
	w.res.Links = append(w.res.Links, Link{URL: url, Kind: kind})
}

func (w *walker) node(n gjson.Result, sb *strings.Builder) {
	switch typ := n.Get("type").String(); typ {
	case "text":
		sb.WriteString(n.Get("text").String())
	case "linebreak":
		sb.WriteString("\n")
	case "link", "autolink":
		w.link(n.Get("url").String(), typ)
	case "image":
		w.res.Images++
	case "youtube":
		w.res.Embeds++
		w.link(embed.YouTubeURL(n.Get("videoID").String()), LinkEmbed)
	case "tweet":
		w.res.Embeds++
		w.link(embed.TweetURL(n.Get("owner").String(), n.Get("id").String()), LinkEmbed)
	case "instagram":
		w.res.Embeds++
		w.link(embed.InstagramURL(n.Get("id").String()), LinkEmbed)
	}
	for _, c := range n.Get("children").Array() {
		w.node(c, sb)
	}
}

func firstLine(body string) string {
	for line := range strings.SplitSeq(body, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

func extractTags(body string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		t := m[1]
		if _, dup := seen[t]; !dup {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
