// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Folio documents to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/assets"
	"github.com/starford/folio/internal/docservice"
	"github.com/starford/folio/internal/index"
)

const formatResourceURI = "folio://document-format"

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp    *server.MCPServer
	docs   *docservice.Service
	assets *assets.Store
}

// New creates a new MCP server with all Folio tools registered.
func New(docs *docservice.Service, as *assets.Store) *Server {
	s := &Server{docs: docs, assets: as}

	s.mcp = server.NewMCPServer(
		"Folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document text and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a document rendered as HTML, Markdown, plain text or its JSON snapshot."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/doc.json)")),
		mcp.WithString("format",
			mcp.Description("Output format (default html)"),
			mcp.Enum(docservice.FormatHTML, docservice.FormatMarkdown, docservice.FormatText, docservice.FormatJSON),
		),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document from HTML. Only the elements listed in the "+
			"document format contract survive import. Read it first via the get_document_contract "+
			"tool or the "+formatResourceURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (.json is appended when missing)")),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML content following the Folio document format contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the Folio document format contract. "+
			"Call this before creating documents to ensure correct structure."),
	), s.getDocumentContract)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List documents, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Optional tag to filter by (without #)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("find_linking_documents",
		mcp.WithDescription("Find all documents that link to or embed the given URL."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Target URL")),
	), s.findLinkingDocuments)

	s.mcp.AddTool(mcp.NewTool("upload_image",
		mcp.WithDescription("Store an image from an http(s) or data: URL. "+
			"Returns the /assets URL to use as an <img> src."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data URI")),
		mcp.WithString("filename", mcp.Description("Optional file name; derived from the URL when empty")),
	), s.uploadImage)

	s.mcp.AddResource(
		mcp.NewResource(formatResourceURI, "Document Format Contract",
			mcp.WithResourceDescription("How Folio documents are written and read through MCP."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// optString returns an optional string argument, or def when absent.
func optString(req mcp.CallToolRequest, key, def string) string {
	if v, err := req.RequireString(key); err == nil && v != "" {
		return v
	}
	return def
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.docs.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := optString(req, "format", docservice.FormatHTML)
	out, err := s.docs.Render(ctx, path, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("read %s: %v", path, err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.docs.Create(ctx, path, []byte(content), docservice.FormatHTML)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", d.Path)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, _, err := s.docs.List(ctx, 1000, 0, optString(req, "tag", ""), index.SortPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = d.Path + "\t" + d.Title
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getDocumentContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatResourceURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}

func (s *Server) findLinkingDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths, err := s.docs.LinkingDocuments(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no linking documents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) uploadImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.assets.Import(ctx, rawURL, optString(req, "filename", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.Marshal(a)
	return mcp.NewToolResultText(string(out)), nil
}
