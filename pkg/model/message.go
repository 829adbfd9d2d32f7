package model

import "strings"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single turn of a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Set on assistant messages that request tool calls
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Set on tool messages
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func NewAssistantMessage(content string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

func NewToolMessage(call ToolCall, result string) Message {
	return Message{
		Role:       RoleTool,
		Content:    result,
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Query    string   `json:"query"`
	ThreadID ThreadID `json:"thread_id,omitempty"`
	City     string   `json:"city,omitempty"`
	Crops    []string `json:"crops,omitempty"`
}

// HasQuery reports whether the request carries a non-blank query
func (x *ChatRequest) HasQuery() bool {
	return strings.TrimSpace(x.Query) != ""
}

// ChatResponse is the body returned by POST /chat
type ChatResponse struct {
	ThreadID ThreadID  `json:"thread_id"`
	Messages []Message `json:"messages"`
	Response string    `json:"response"`
}
