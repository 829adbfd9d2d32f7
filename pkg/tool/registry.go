package tool

import (
	"context"

	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

const (
	ServerName    = "FarmAssistant"
	ServerVersion = "1.0.0"
)

// Registry manages tools served by the tool server
type Registry struct {
	tools []Tool
}

// New creates a new tool registry with the given tools
func New(tools ...Tool) *Registry {
	return &Registry{tools: tools}
}

// Names returns names of all registered tools
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name())
	}
	return names
}

// Flags returns all tool flags combined
func (r *Registry) Flags() []cli.Flag {
	var flags []cli.Flag
	for _, t := range r.tools {
		if toolFlags := t.Flags(); toolFlags != nil {
			flags = append(flags, toolFlags...)
		}
	}
	return flags
}

// Init initializes all tools
func (r *Registry) Init(ctx context.Context) error {
	for _, t := range r.tools {
		if err := t.Init(ctx); err != nil {
			return goerr.Wrap(err, "failed to initialize tool", goerr.V("tool", t.Name()))
		}
	}
	return nil
}

// Server builds an MCP server exposing all tools
func (r *Registry) Server() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Version: ServerVersion,
	}, &mcp.ServerOptions{
		Logger: logging.Default(),
	})

	for _, t := range r.tools {
		t.Register(server)
	}

	return server
}
