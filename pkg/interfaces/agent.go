package interfaces

import (
	"context"

	"github.com/m-mizutani/farmassist/pkg/model"
)

// Decider asks a language model for the next step of a conversation.
// A Decision either carries tool calls or is the final answer.
type Decider interface {
	Decide(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error)
}

// ToolCatalog opens sessions to the tool servers
type ToolCatalog interface {
	Open(ctx context.Context) (Toolset, error)
}

// Toolset is an open session with the tool servers. It must be closed after use.
type Toolset interface {
	// Tools returns descriptors of all discovered tools
	Tools() []model.ToolDescriptor

	// Call invokes a tool and returns its text result
	Call(ctx context.Context, call model.ToolCall) (string, error)

	Close() error
}
