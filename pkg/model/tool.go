package model

import "github.com/google/uuid"

// ToolDescriptor describes a tool offered by a tool server
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema,omitempty"`

	// Server is the name of the tool server that provides the tool
	Server string `json:"-"`
}

// ToolCall is a tool invocation requested by the LLM
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// NewToolCallID returns an ID for providers that do not assign one
func NewToolCallID() string {
	return "call_" + uuid.New().String()
}

// Decision is the outcome of one LLM step. It is final when no tool call is requested.
type Decision struct {
	Content   string
	ToolCalls []ToolCall
}

func (x *Decision) IsFinal() bool {
	return len(x.ToolCalls) == 0
}
