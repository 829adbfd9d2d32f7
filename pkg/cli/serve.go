package cli

import (
	"context"

	"github.com/m-mizutani/farmassist/pkg/server"
	"github.com/m-mizutani/farmassist/pkg/usecase/chat"
	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		agentCfg agentConfig
		llmCfg   llmConfig
	)

	flags := agentFlags(&agentCfg)
	flags = append(flags, llmFlags(&llmCfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the agent API (POST /chat)",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			decider, err := llmCfg.newDecider(ctx)
			if err != nil {
				return err
			}

			catalog, err := agentCfg.newToolCatalog()
			if err != nil {
				return err
			}

			svc := chat.New(chat.Input{
				Threads:       agentCfg.newRepository(),
				Catalog:       catalog,
				Decider:       decider,
				MaxIterations: int(agentCfg.maxIterations),
				LLMTimeout:    agentCfg.llmTimeout,
				ToolTimeout:   agentCfg.toolTimeout,
			})

			logging.From(ctx).Info("starting agent API",
				"addr", agentCfg.addr,
				"llm_provider", llmCfg.provider,
				"max_iterations", agentCfg.maxIterations)

			api := server.New(svc, server.WithRequestTimeout(agentCfg.requestTimeout))
			return server.Run(ctx, agentCfg.addr, api)
		},
	}
}
