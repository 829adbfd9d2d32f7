package llm

import (
	"context"
	"encoding/json"

	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/farmassist/pkg/interfaces"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared"
	"github.com/openai/openai-go/v2/shared/constant"
)

// OpenAI decides the next step with OpenAI compatible chat completions.
// It serves Groq as well through its OpenAI compatible endpoint.
type OpenAI struct {
	client adapter.OpenAI
}

var _ interfaces.Decider = (*OpenAI)(nil)

func NewOpenAI(client adapter.OpenAI) *OpenAI {
	return &OpenAI{client: client}
}

func (x *OpenAI) Decide(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
	messages, err := toOpenAIMessages(history)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Messages: messages,
	}
	for _, t := range tools {
		params.Tools = append(params.Tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  shared.FunctionParameters(t.InputSchema),
		}))
	}

	completion, err := x.client.Complete(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to complete chat")
	}
	if len(completion.Choices) == 0 {
		return nil, goerr.New("no choice in chat completion")
	}

	msg := completion.Choices[0].Message
	decision := model.Decision{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, goerr.Wrap(err, "failed to parse tool call arguments",
					goerr.V("tool", tc.Function.Name),
					goerr.V("arguments", tc.Function.Arguments))
			}
		}
		decision.ToolCalls = append(decision.ToolCalls, model.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return &decision, nil
}

func toOpenAIMessages(history []model.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))

	for _, msg := range history {
		switch msg.Role {
		case model.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))

		case model.RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))

		case model.RoleAssistant:
			assistant := openai.ChatCompletionAssistantMessageParam{}
			assistant.Content.OfString = param.NewOpt(msg.Content)
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(argsOrEmpty(call.Arguments))
				if err != nil {
					return nil, goerr.Wrap(err, "failed to marshal tool call arguments",
						goerr.V("tool", call.Name))
				}
				toolCall := openai.ChatCompletionMessageFunctionToolCallParam{
					ID: call.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Arguments: string(args),
						Name:      call.Name,
					},
					Type: constant.Function("function"),
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{OfFunction: &toolCall})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})

		case model.RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}

	return messages, nil
}
