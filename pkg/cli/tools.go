package cli

import (
	"context"
	"errors"

	"github.com/m-mizutani/farmassist/pkg/server"
	"github.com/m-mizutani/farmassist/pkg/tool"
	"github.com/m-mizutani/farmassist/pkg/tool/disease"
	"github.com/m-mizutani/farmassist/pkg/tool/search"
	"github.com/m-mizutani/farmassist/pkg/tool/weather"
	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v3"
)

func toolsCommand() *cli.Command {
	var (
		addr  string
		path  string
		stdio bool
	)

	registry := tool.New(
		weather.New(),
		disease.New(),
		search.New(),
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address of the tool server",
			Value:       ":8000",
			Sources:     cli.EnvVars("FARMASSIST_TOOLS_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "path",
			Usage:       "HTTP path of the MCP endpoint",
			Value:       server.DefaultToolPath,
			Sources:     cli.EnvVars("FARMASSIST_TOOLS_PATH"),
			Destination: &path,
		},
		&cli.BoolFlag{
			Name:        "stdio",
			Usage:       "Serve MCP over stdin/stdout instead of HTTP",
			Destination: &stdio,
		},
	}
	flags = append(flags, registry.Flags()...)

	return &cli.Command{
		Name:  "tools",
		Usage: "Run the MCP tool server (get_weather, disease_prediction, general_queries)",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := registry.Init(ctx); err != nil {
				return err
			}

			mcpServer := registry.Server()
			logger := logging.From(ctx)

			if stdio {
				logger.Info("starting tool server on stdio", "tools", registry.Names())
				if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
					return goerr.Wrap(err, "tool server stopped")
				}
				return nil
			}

			logger.Info("starting tool server", "addr", addr, "path", path, "tools", registry.Names())
			return server.Run(ctx, addr, server.NewToolServer(mcpServer, path))
		},
	}
}
