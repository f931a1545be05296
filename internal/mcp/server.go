// Package mcp exposes the bot's tools to external MCP clients, so the same
// web and knowledge-base capabilities can be driven from editors and other
// agents over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/tools"
)

// Server bridges the tool registry onto an MCP server.
type Server struct {
	mcpServer *mcp.Server
	registry  *tools.Registry
	logger    *slog.Logger
}

// NewServer creates an MCP server publishing every registered tool.
func NewServer(name, version string, registry *tools.Registry, logger *slog.Logger) (*Server, error) {
	if name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if version == "" {
		return nil, fmt.Errorf("server version is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		registry:  registry,
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

// Run serves the MCP protocol on the given transport until ctx is
// cancelled. Blocking.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// registerTools publishes the registry's specs unchanged; dispatch goes
// back through the registry so schema validation applies to MCP callers
// too.
func (s *Server) registerTools() {
	for _, spec := range s.registry.Specs() {
		name := spec.Name
		s.mcpServer.AddTool(&mcp.Tool{
			Name:        name,
			Description: spec.Description,
			InputSchema: spec.InputSchema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return s.call(ctx, name, req)
		})
	}
}

func (s *Server) call(ctx context.Context, name string, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input map[string]any
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &input); err != nil {
			return nil, fmt.Errorf("decoding arguments for %s: %w", name, err)
		}
	}

	blocks, err := s.registry.Invoke(ctx, name, input)
	if err != nil {
		s.logger.Warn("mcp tool call failed", "tool", name, "error", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
			IsError: true,
		}, nil
	}

	content := make([]mcp.Content, 0, len(blocks))
	for _, block := range blocks {
		c, err := toContent(block)
		if err != nil {
			return nil, err
		}
		content = append(content, c)
	}
	return &mcp.CallToolResult{Content: content}, nil
}

// toContent maps a tool result block onto MCP content. Documents have no
// native MCP representation and travel as embedded blob resources.
func toContent(block llm.ContentBlock) (mcp.Content, error) {
	switch {
	case block.JSON != nil:
		raw, err := json.Marshal(block.JSON)
		if err != nil {
			return nil, fmt.Errorf("encoding tool payload: %w", err)
		}
		return &mcp.TextContent{Text: string(raw)}, nil

	case block.Image != nil:
		return &mcp.ImageContent{
			Data:     block.Image.Data,
			MIMEType: "image/" + block.Image.Format,
		}, nil

	case block.Document != nil:
		return &mcp.EmbeddedResource{
			Resource: &mcp.ResourceContents{
				URI:      "document://" + block.Document.Name,
				MIMEType: documentMIMEType(block.Document.Format),
				Blob:     block.Document.Data,
			},
		}, nil

	default:
		return &mcp.TextContent{Text: block.Text}, nil
	}
}

func documentMIMEType(format string) string {
	switch format {
	case "pdf":
		return "application/pdf"
	case "html":
		return "text/html"
	case "csv":
		return "text/csv"
	case "md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
