package htmlcodec

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var embedClassRe = regexp.MustCompile(`^(embed-youtube|embed-twitter|embed-instagram|blockquote|image)$`)

// pastePolicy allows the markup the importer understands and nothing else.
func pastePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("target", "rel", "title").OnElements("a")
	p.AllowAttrs("class").Matching(embedClassRe).OnElements("div", "figure")
	p.AllowAttrs("data-url").OnElements("div")
	p.AllowElements("figure", "figcaption", "span", "div", "s", "del", "strike", "u", "code", "iframe")
	p.AllowAttrs("data-lexical-youtube").OnElements("iframe")
	p.AllowStyles("font-weight", "font-style", "text-decoration", "text-align").
		OnElements("span", "b", "p", "h1", "h2", "h3", "h4", "h5", "h6")
	p.AllowStyles("color", "background-color").OnElements("span")
	return p
}

// Sanitize applies the paste policy to src.
func (c *Codec) Sanitize(src string) string {
	return c.policy.Sanitize(src)
}
