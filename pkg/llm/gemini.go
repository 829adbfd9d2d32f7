package llm

import (
	"context"
	"strings"

	"github.com/m-mizutani/farmassist/pkg/adapter"
	"github.com/m-mizutani/farmassist/pkg/interfaces"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// Gemini decides the next step with Gemini function calling
type Gemini struct {
	client adapter.Gemini
}

var _ interfaces.Decider = (*Gemini)(nil)

func NewGemini(client adapter.Gemini) *Gemini {
	return &Gemini{client: client}
}

func (x *Gemini) Decide(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
	system, contents := toGeminiContents(history)

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			params, err := toGenaiSchema(t.InputSchema)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to convert tool schema", goerr.V("tool", t.Name))
			}
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	resp, err := x.client.GenerateContent(ctx, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content")
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, goerr.New("no candidate in Gemini response")
	}

	var (
		texts    []string
		decision model.Decision
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			texts = append(texts, part.Text)
		}
		if fc := part.FunctionCall; fc != nil {
			id := fc.ID
			if id == "" {
				id = model.NewToolCallID()
			}
			decision.ToolCalls = append(decision.ToolCalls, model.ToolCall{
				ID:        id,
				Name:      fc.Name,
				Arguments: fc.Args,
			})
		}
	}
	decision.Content = strings.Join(texts, "")

	return &decision, nil
}

// toGeminiContents splits system messages out and merges consecutive tool
// results into one user content, as Gemini expects all responses to a
// function call turn together.
func toGeminiContents(history []model.Message) (string, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)

	for i := 0; i < len(history); i++ {
		msg := history[i]
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)

		case model.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))

		case model.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   call.ID,
						Name: call.Name,
						Args: call.Arguments,
					},
				})
			}
			if len(parts) == 0 {
				parts = append(parts, genai.NewPartFromText(""))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))

		case model.RoleTool:
			var parts []*genai.Part
			for ; i < len(history) && history[i].Role == model.RoleTool; i++ {
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       history[i].ToolCallID,
						Name:     history[i].Name,
						Response: map[string]any{"output": history[i].Content},
					},
				})
			}
			i--
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		}
	}

	return strings.Join(system, "\n\n"), contents
}
