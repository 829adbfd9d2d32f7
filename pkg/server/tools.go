package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const DefaultToolPath = "/mcp"

// NewToolServer serves an MCP server over streamable HTTP at path, next to GET /health
func NewToolServer(server *mcp.Server, path string) http.Handler {
	if path == "" {
		path = DefaultToolPath
	}

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)

	engine := newEngine()
	engine.Any(path, gin.WrapH(handler))
	engine.GET("/health", handleHealth)

	return engine
}
