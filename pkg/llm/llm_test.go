package llm_test

import (
	"github.com/m-mizutani/farmassist/pkg/model"
)

func sampleHistory() []model.Message {
	call := model.ToolCall{
		ID:        "call_1",
		Name:      "get_weather",
		Arguments: map[string]any{"city": "Pune"},
	}
	call2 := model.ToolCall{
		ID:        "call_2",
		Name:      "general_queries",
		Arguments: map[string]any{"query": "onion prices"},
	}

	return []model.Message{
		model.NewSystemMessage("You are a farm assistant."),
		model.NewUserMessage("Will it rain in Pune and what are onion prices?"),
		model.NewAssistantMessage("", call, call2),
		model.NewToolMessage(call, "Weather forecast for Pune:\n"),
		model.NewToolMessage(call2, "No results found."),
	}
}

func sampleTools() []model.ToolDescriptor {
	return []model.ToolDescriptor{
		{
			Name:        "get_weather",
			Description: "Get the weather forecast for a given city.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"city": map[string]any{"type": "string", "description": "City name"},
				},
				"required": []any{"city"},
			},
		},
	}
}
