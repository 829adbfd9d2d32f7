package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/farmassist/pkg/interfaces"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Claude decides the next step with Claude tool use
type Claude struct {
	client adapter.Claude
}

var _ interfaces.Decider = (*Claude)(nil)

func NewClaude(client adapter.Claude) *Claude {
	return &Claude{client: client}
}

func (x *Claude) Decide(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
	system, messages, err := toClaudeMessages(history)
	if err != nil {
		return nil, err
	}

	resp, err := x.client.Chat(ctx, system, messages, toClaudeTools(tools))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to chat with Claude")
	}

	var (
		texts    []string
		decision model.Decision
	)
	for _, block := range resp.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			texts = append(texts, content.Text)
		case anthropic.ToolUseBlock:
			args := map[string]any{}
			if len(content.Input) > 0 {
				if err := json.Unmarshal(content.Input, &args); err != nil {
					return nil, goerr.Wrap(err, "failed to parse tool use input",
						goerr.V("tool", content.Name))
				}
			}
			decision.ToolCalls = append(decision.ToolCalls, model.ToolCall{
				ID:        content.ID,
				Name:      content.Name,
				Arguments: args,
			})
		}
	}
	decision.Content = strings.Join(texts, "")

	return &decision, nil
}

func toClaudeTools(tools []model.ToolDescriptor) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Properties: t.InputSchema["properties"],
		}
		if required := stringSlice(t.InputSchema["required"]); len(required) > 0 {
			inputSchema.Required = required
		}

		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: inputSchema,
			},
		})
	}
	return out
}

// toClaudeMessages extracts the system prompt. Tool results are sent as a user
// message, so consecutive results are merged to keep roles alternating.
func toClaudeMessages(history []model.Message) (string, []anthropic.MessageParam, error) {
	var (
		system   []string
		messages []anthropic.MessageParam
	)

	for i := 0; i < len(history); i++ {
		msg := history[i]
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)

		case model.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))

		case model.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				input, err := json.Marshal(argsOrEmpty(call.Arguments))
				if err != nil {
					return "", nil, goerr.Wrap(err, "failed to marshal tool call arguments",
						goerr.V("tool", call.Name))
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, json.RawMessage(input), call.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			messages = append(messages, anthropic.NewAssistantMessage(blocks...))

		case model.RoleTool:
			var blocks []anthropic.ContentBlockParamUnion
			for ; i < len(history) && history[i].Role == model.RoleTool; i++ {
				blocks = append(blocks, anthropic.NewToolResultBlock(history[i].ToolCallID, history[i].Content, false))
			}
			i--
			messages = append(messages, anthropic.NewUserMessage(blocks...))
		}
	}

	return strings.Join(system, "\n\n"), messages, nil
}

func argsOrEmpty(args map[string]any) map[string]any {
	if args == nil {
		return map[string]any{}
	}
	return args
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, s := range vv {
			if str, ok := s.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
