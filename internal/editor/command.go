package editor

import (
	"fmt"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/document"
)

// Command names accepted by Execute.
const (
	CmdInsertText      = "insertText"
	CmdInsertParagraph = "insertParagraph"
	CmdFormatText      = "formatText"
	CmdToggleBlockType = "toggleBlockType"
	CmdToggleLink      = "toggleLink"
	CmdInsertImage     = "insertImage"
	CmdInsertYouTube   = "insertYouTube"
	CmdInsertTweet     = "insertTweet"
	CmdInsertInstagram = "insertInstagram"
	CmdAutoEmbed       = "autoEmbed"
	CmdDeleteSelection = "deleteSelection"
	CmdDeleteBackward  = "deleteBackward"
	CmdDeleteForward   = "deleteForward"
	CmdUndo            = "undo"
	CmdRedo            = "redo"
	CmdShowCaption     = "showCaption"
	CmdSetCaption      = "setCaption"
	CmdInsertHTML      = "insertHTML"
	CmdPaste           = "paste"
)

// CommandNames lists every command Execute understands.
var CommandNames = []string{
	CmdInsertText, CmdInsertParagraph, CmdFormatText, CmdToggleBlockType,
	CmdToggleLink, CmdInsertImage, CmdInsertYouTube, CmdInsertTweet,
	CmdInsertInstagram, CmdAutoEmbed, CmdDeleteSelection, CmdDeleteBackward,
	CmdDeleteForward, CmdUndo, CmdRedo, CmdShowCaption, CmdSetCaption,
	CmdInsertHTML, CmdPaste,
}

// Command is a serialized editor command as sent by a host.
type Command struct {
	Name      string              `json:"name"`
	Text      string              `json:"text,omitempty"`
	URL       *string             `json:"url,omitempty"`
	Format    string              `json:"format,omitempty"`
	BlockType document.NodeType   `json:"blockType,omitempty"`
	Link      document.LinkAttrs  `json:"link,omitzero"`
	Image     document.ImageAttrs `json:"image,omitzero"`
	ID        string              `json:"id,omitempty"`
	Owner     string              `json:"owner,omitempty"`
	Key       document.NodeKey    `json:"key,omitempty"`
	Show      bool                `json:"show,omitempty"`
}

// Result reports whether a command changed anything. Commands with a
// precondition (image ceiling, embed match, link URL, empty history) may
// report false.
type Result struct {
	Applied bool `json:"applied"`
}

var formats = map[string]document.Format{
	"bold":          document.FormatBold,
	"strikethrough": document.FormatStrikethrough,
}

// Execute runs c.
func (e *Editor) Execute(c Command) (Result, error) {
	done := func(err error) (Result, error) { return Result{Applied: err == nil}, err }
	switch c.Name {
	case CmdInsertText:
		return done(e.InsertText(c.Text))
	case CmdInsertParagraph:
		return done(e.InsertParagraph())
	case CmdFormatText:
		f, ok := formats[c.Format]
		if !ok {
			return Result{}, fmt.Errorf("editor: format %q: %w", c.Format, apperr.ErrValidation)
		}
		return done(e.FormatText(f))
	case CmdToggleBlockType:
		return done(e.ToggleBlockType(c.BlockType))
	case CmdToggleLink:
		ok, err := e.ToggleLink(c.URL, c.Link)
		return Result{Applied: ok}, err
	case CmdInsertImage:
		ok, err := e.InsertImage(c.Image)
		return Result{Applied: ok}, err
	case CmdInsertYouTube:
		return done(e.InsertYouTube(c.ID))
	case CmdInsertTweet:
		return done(e.InsertTweet(c.ID, c.Owner))
	case CmdInsertInstagram:
		return done(e.InsertInstagram(c.ID))
	case CmdAutoEmbed:
		ok, err := e.AutoEmbed(c.Text)
		return Result{Applied: ok}, err
	case CmdDeleteSelection:
		return done(e.DeleteSelection())
	case CmdDeleteBackward:
		return done(e.DeleteBackward())
	case CmdDeleteForward:
		return done(e.DeleteForward())
	case CmdUndo:
		ok, err := e.Undo()
		return Result{Applied: ok}, err
	case CmdRedo:
		ok, err := e.Redo()
		return Result{Applied: ok}, err
	case CmdShowCaption:
		return done(e.SetCaptionVisible(c.Key, c.Show))
	case CmdSetCaption:
		return done(e.SetCaption(c.Key, c.Text))
	case CmdInsertHTML:
		return done(e.InsertHTML(c.Text))
	case CmdPaste:
		return done(e.Paste(c.Text))
	}
	return Result{}, fmt.Errorf("editor: unknown command %q: %w", c.Name, apperr.ErrValidation)
}
