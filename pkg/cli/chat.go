package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		endpoint string
		threadID string
		city     string
		crops    []string
		timeout  time.Duration
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "endpoint",
			Aliases:     []string{"e"},
			Usage:       "Base URL of the agent API",
			Value:       "http://localhost:8080",
			Sources:     cli.EnvVars("FARMASSIST_ENDPOINT"),
			Destination: &endpoint,
		},
		&cli.StringFlag{
			Name:        "thread-id",
			Aliases:     []string{"t"},
			Usage:       "Continue an existing thread",
			Sources:     cli.EnvVars("FARMASSIST_THREAD_ID"),
			Destination: &threadID,
		},
		&cli.StringFlag{
			Name:        "city",
			Usage:       "Your city, used to personalize answers",
			Sources:     cli.EnvVars("FARMASSIST_CITY"),
			Destination: &city,
		},
		&cli.StringSliceFlag{
			Name:        "crops",
			Usage:       "Crops you grow, used to personalize answers",
			Sources:     cli.EnvVars("FARMASSIST_CROPS"),
			Destination: &crops,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Timeout of a single chat request",
			Value:       3 * time.Minute,
			Destination: &timeout,
		},
	}

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive chat with the agent API",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			session := &chatSession{
				client:   adapter.NewAgent(endpoint, adapter.WithAgentTimeout(timeout)),
				out:      rl.Stdout(),
				threadID: model.ThreadID(threadID),
				city:     city,
				crops:    crops,
			}

			fmt.Fprintf(session.out, "Chat session started. Type 'exit' to quit, '/new' to start a new thread.\n")

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				query := strings.TrimSpace(line)
				switch query {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "/new":
					session.threadID = ""
					fmt.Fprintf(session.out, "Started a new thread.\n")
					continue
				}

				session.send(ctx, query)
			}

			fmt.Fprintf(session.out, "\nChat session completed\n")
			return nil
		},
	}
}

type chatSession struct {
	client   adapter.Agent
	out      io.Writer
	threadID model.ThreadID
	city     string
	crops    []string
}

func (x *chatSession) send(ctx context.Context, query string) {
	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = " thinking..."
	spin.Start()

	resp, err := x.client.Chat(ctx, model.ChatRequest{
		Query:    query,
		ThreadID: x.threadID,
		City:     x.city,
		Crops:    x.crops,
	})
	spin.Stop()

	if err != nil {
		var apiErr *adapter.AgentAPIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(x.out, "[%d] %s\n", apiErr.StatusCode, apiErr.Message)
			return
		}
		fmt.Fprintf(x.out, "request failed: %s\n", err.Error())
		return
	}

	if x.threadID == "" {
		fmt.Fprintf(x.out, "(thread: %s)\n", resp.ThreadID)
	}
	x.threadID = resp.ThreadID

	fmt.Fprintf(x.out, "%s\n\n", resp.Response)
}
