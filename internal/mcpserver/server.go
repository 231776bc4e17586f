// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes graphlint tools for LLM integration via stdio transport.
package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/graphlint/internal/apperr"
	"github.com/starford/graphlint/internal/graphservice"
	"github.com/starford/graphlint/internal/report"
)

const metadataFormatURI = "graphlint://metadata-format"

// Server wraps the MCP server with graphlint tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *graphservice.Service
	required []string
}

// New creates a new MCP server with all graphlint tools registered.
// required lists the frontmatter keys the contract advertises.
func New(svc *graphservice.Service, required []string, version string) *Server {
	s := &Server{svc: svc, required: required}

	s.mcp = server.NewMCPServer(
		"graphlint",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("lint_graph",
		mcp.WithDescription("Lint the memory bank and return the report. "+
			"Reports frontmatter issues, broken links, orphan documents and duplicate ids."),
		mcp.WithString("format", mcp.Description("Report format: text (default) or json")),
	), s.lintGraph)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the document, relative to the scan root (e.g. concepts/a.md)")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List every Markdown document with its id, title and inbound link count."),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_metadata_contract",
		mcp.WithDescription("Returns the frontmatter contract every document must satisfy. "+
			"Call this before writing documents so they pass lint."),
	), s.getMetadataContract)

	s.mcp.AddResource(
		mcp.NewResource(metadataFormatURI, "Metadata Format Contract",
			mcp.WithResourceDescription("Frontmatter and link rules checked by graphlint."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readMetadataFormatResource,
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

func (s *Server) lintGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := report.FormatText
	if f, err := req.RequireString("format"); err == nil && f != "" {
		format = f
	}
	if format != report.FormatText && format != report.FormatJSON {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format: %s", format)), nil
	}

	rep, err := s.svc.Refresh(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, rep, format); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.Documents(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getMetadataContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MetadataContract(s.required)), nil
}

func (s *Server) readMetadataFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      metadataFormatURI,
			MIMEType: "text/markdown",
			Text:     MetadataContract(s.required),
		},
	}, nil
}
