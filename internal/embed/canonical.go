package embed

import "github.com/starford/folio/internal/document"

func YouTubeURL(id string) string      { return "https://www.youtube.com/watch?v=" + id }
func YouTubeEmbedURL(id string) string { return "https://www.youtube-nocookie.com/embed/" + id }
func TweetURL(owner, id string) string { return "https://x.com/" + owner + "/status/" + id }
func InstagramURL(id string) string    { return "https://www.instagram.com/p/" + id }

// CanonicalURL returns the provider URL of an embed node, or "" for other
// node types.
func CanonicalURL(n *document.Node) string {
	e := n.Embed()
	switch n.Type() {
	case document.TypeYouTube:
		return YouTubeURL(e.ID)
	case document.TypeTweet:
		return TweetURL(e.Owner, e.ID)
	case document.TypeInstagram:
		return InstagramURL(e.ID)
	}
	return ""
}

// ClassName returns the HTML class used for an embed type.
func ClassName(t document.NodeType) string {
	switch t {
	case document.TypeYouTube:
		return "embed-youtube"
	case document.TypeTweet:
		return "embed-twitter"
	case document.TypeInstagram:
		return "embed-instagram"
	}
	return ""
}

// TypeForClass is the inverse of ClassName.
func TypeForClass(class string) (document.NodeType, bool) {
	switch class {
	case "embed-youtube":
		return document.TypeYouTube, true
	case "embed-twitter":
		return document.TypeTweet, true
	case "embed-instagram":
		return document.TypeInstagram, true
	}
	return "", false
}
