package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/docservice"
	"github.com/starford/folio/internal/document"
	"github.com/starford/folio/internal/editor"
	"github.com/starford/folio/internal/index"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/session"
)

var importFormats = []any{"", docservice.FormatJSON, docservice.FormatHTML, docservice.FormatText}

// CreateDocumentRequest is the request body for creating a document.
// Format is json (a snapshot string), html or text; json by default.
type CreateDocumentRequest struct {
	Path    string `json:"path" example:"books/reading.json" validate:"required"`
	Content string `json:"content" example:"<h1>Reading</h1>" validate:"required"`
	Format  string `json:"format,omitempty" example:"html"`
}

func (r *CreateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Format, validation.In(importFormats...)),
	)
}

// UpdateDocumentRequest is the request body for replacing a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"<p>Updated</p>" validate:"required"`
	Format  string `json:"format,omitempty" example:"html"`
}

func (r *UpdateDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Format, validation.In(importFormats...)),
	)
}

// MoveDocumentRequest renames a document.
type MoveDocumentRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

func (r *MoveDocumentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.From, validation.Required),
		validation.Field(&r.To, validation.Required),
	)
}

// DocumentDetail is the full document response type (aliased from the domain layer).
type DocumentDetail = docservice.Detail

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []models.Document `json:"documents" validate:"required"`
	Total     int               `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"books/reading.json" validate:"required"`
	Title   string `json:"title" example:"Reading" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

func searchResults(in []index.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult(r)
	}
	return out
}

// LinksResponse lists the documents linking to a URL.
type LinksResponse struct {
	URL       string   `json:"url" validate:"required"`
	Documents []string `json:"documents" validate:"required"`
}

// OpenSessionRequest starts an editing session from a stored document,
// host HTML or plain text. Path wins over HTML, HTML over Text.
type OpenSessionRequest struct {
	Path string `json:"path,omitempty" example:"books/reading.json"`
	HTML string `json:"html,omitempty"`
	Text string `json:"text,omitempty"`
}

func (r *OpenSessionRequest) Validate() error { return nil }

// CommandRequest wraps an editor command.
type CommandRequest struct {
	editor.Command
}

var commandNames = func() []any {
	out := make([]any, len(editor.CommandNames))
	for i, n := range editor.CommandNames {
		out[i] = n
	}
	return out
}()

func (r *CommandRequest) Validate() error {
	return validation.ValidateStruct(&r.Command,
		validation.Field(&r.Command.Name, validation.Required, validation.In(commandNames...)),
	)
}

// CommandResponse reports the command outcome and the session state after it.
type CommandResponse struct {
	Applied bool         `json:"applied"`
	Session session.Info `json:"session"`
}

// SelectionRequest sets a range selection, or a node selection when Nodes
// is non-empty.
type SelectionRequest struct {
	Anchor document.Point     `json:"anchor"`
	Focus  document.Point     `json:"focus"`
	Nodes  []document.NodeKey `json:"nodes,omitempty"`
}

func (r *SelectionRequest) Validate() error {
	if len(r.Nodes) > 0 {
		return nil
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Anchor, validation.By(requirePointKey)),
		validation.Field(&r.Focus, validation.By(requirePointKey)),
	)
}

func requirePointKey(v any) error {
	if p, ok := v.(document.Point); ok && p.Key == "" {
		return errors.New("key is required")
	}
	return nil
}

// Import modes.
const (
	ImportClipboard = "clipboard"
	ImportInsert    = "insert"
	ImportPaste     = "paste"
)

// ImportRequest feeds host content into a session.
type ImportRequest struct {
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty" example:"clipboard"`
}

func (r *ImportRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Mode, validation.In("", ImportClipboard, ImportInsert, ImportPaste)),
	)
}

// SaveRequest stores a session. Path is required unless the session was
// opened from a stored document.
type SaveRequest struct {
	Path string `json:"path,omitempty"`
}

func (r *SaveRequest) Validate() error { return nil }

// Widget statuses a host can report.
const (
	WidgetLoaded = "loaded"
	WidgetFailed = "failed"
	WidgetRetry  = "retry"
)

// WidgetRequest reports the render outcome of an embed widget.
type WidgetRequest struct {
	Status string `json:"status" example:"loaded" validate:"required"`
	Error  string `json:"error,omitempty"`
}

func (r *WidgetRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Status, validation.Required, validation.In(WidgetLoaded, WidgetFailed, WidgetRetry)),
	)
}

// BridgeMessageRequest carries an inbound host payload.
type BridgeMessageRequest struct {
	Payload string `json:"payload"`
}

func (r *BridgeMessageRequest) Validate() error { return nil }

// AssetImportRequest imports an image from a data: or http(s) URL.
type AssetImportRequest struct {
	URL      string `json:"url" validate:"required"`
	Filename string `json:"filename,omitempty"`
}

func (r *AssetImportRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.URL, validation.Required),
	)
}
