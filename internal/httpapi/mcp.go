package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/verasca/lociq/internal/answer"
	"github.com/verasca/lociq/internal/conversation"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *conversation.Store
	Pipeline Submitter
}

// NewMCPServer creates an MCP server exposing the conversation as tools and
// a resource.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"lociq",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("lociq — genomics question answering over gene, QTL, and trait relationships with PubMed citations."),
		server.WithRecovery(),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("ask_genomics",
			mcp.WithDescription("Ask a genomics question and receive a structured answer with a gene/QTL/relation overview, PubMed citations, and follow-up questions."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
		),
		mcpAskGenomics(deps),
	)

	s.AddTool(
		mcp.NewTool("list_turns",
			mcp.WithDescription("List the turns of the current conversation, oldest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of most recent turns to return (default all)")),
		),
		mcpListTurns(deps),
	)

	s.AddTool(
		mcp.NewTool("get_turn",
			mcp.WithDescription("Fetch a single conversation turn by id."),
			mcp.WithString("id", mcp.Description("Turn id"), mcp.Required()),
		),
		mcpGetTurn(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"conversation://turns",
			"Conversation Turns",
			mcp.WithResourceDescription("The full current conversation as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTurns(deps),
	)

	return s
}

func mcpAskGenomics(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		turn, err := deps.Pipeline.Submit(ctx, query)
		if errors.Is(err, answer.ErrBusy) {
			return mcpError("a request is already pending; try again shortly"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("answer generation failed: %v", err)), nil
		}
		if turn == nil {
			return mcpError("query is empty"), nil
		}

		b, err := json.Marshal(turn)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal turn: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListTurns(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		turns := deps.Store.All()

		limit := req.GetInt("limit", 0)
		if limit > 0 && limit < len(turns) {
			turns = turns[len(turns)-limit:]
		}

		b, err := json.Marshal(turns)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal turns: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetTurn(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		turn, err := deps.Store.FindByID(id)
		if errors.Is(err, conversation.ErrNotFound) {
			return mcpError(fmt.Sprintf("turn %q not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to find turn: %v", err)), nil
		}

		b, err := json.Marshal(turn)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal turn: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceTurns(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Store.All())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal turns: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
