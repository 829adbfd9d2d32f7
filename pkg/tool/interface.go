package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

// Tool is a capability exposed by the tool server over MCP
type Tool interface {
	// Name returns the name the tool is registered with
	Name() string

	// Flags returns CLI flags for this tool
	// Returns nil if no flags are needed
	Flags() []cli.Flag

	// Init prepares the tool after flags are parsed
	Init(ctx context.Context) error

	// Register adds the tool handler to the MCP server
	Register(server *mcp.Server)
}

// TextResult wraps a plain text tool output into an MCP result
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}
