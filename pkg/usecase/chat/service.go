package chat

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/farmassist/pkg/interfaces"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/farmassist/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrInvalidRequest is returned when the chat request has no query
	ErrInvalidRequest = goerr.New("invalid chat request")

	// ErrToolLoopExceeded is returned when the LLM keeps requesting tools beyond the iteration cap
	ErrToolLoopExceeded = goerr.New("tool loop exceeded max iterations")

	// ErrDecision is returned when the LLM fails to decide the next step
	ErrDecision = goerr.New("failed to decide next step")
)

const (
	DefaultMaxIterations = 10
	DefaultLLMTimeout    = 60 * time.Second
	DefaultToolTimeout   = 30 * time.Second
)

// Input contains dependencies and limits of the chat service
type Input struct {
	Threads interfaces.Repository
	Catalog interfaces.ToolCatalog
	Decider interfaces.Decider

	// MaxIterations caps LLM steps in a single turn. Zero means DefaultMaxIterations.
	MaxIterations int
	LLMTimeout    time.Duration
	ToolTimeout   time.Duration
}

// Service runs chat turns against thread memory
type Service struct {
	threads interfaces.Repository
	catalog interfaces.ToolCatalog
	decider interfaces.Decider

	maxIterations int
	llmTimeout    time.Duration
	toolTimeout   time.Duration
}

func New(input Input) *Service {
	s := &Service{
		threads:       input.Threads,
		catalog:       input.Catalog,
		decider:       input.Decider,
		maxIterations: input.MaxIterations,
		llmTimeout:    input.LLMTimeout,
		toolTimeout:   input.ToolTimeout,
	}

	if s.maxIterations <= 0 {
		s.maxIterations = DefaultMaxIterations
	}
	if s.llmTimeout <= 0 {
		s.llmTimeout = DefaultLLMTimeout
	}
	if s.toolTimeout <= 0 {
		s.toolTimeout = DefaultToolTimeout
	}

	return s
}

// Chat runs one turn of the conversation identified by req.ThreadID. A new
// thread is started when no ID is given. Messages of the turn are saved to
// the thread only when the turn succeeds.
func (s *Service) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	if !req.HasQuery() {
		return nil, goerr.Wrap(ErrInvalidRequest, "query is required")
	}

	threadID := req.ThreadID
	if threadID == "" {
		threadID = model.NewThreadID()
	}

	logger := logging.From(ctx).With("thread_id", threadID)
	ctx = logging.With(ctx, logger)

	thread, created, release, err := s.threads.AcquireThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	defer release()
	if created {
		logger.Debug("new thread created")
	}

	toolset, err := s.catalog.Open(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open tool catalog")
	}
	defer func() {
		if err := toolset.Close(); err != nil {
			logger.Warn("failed to close toolset", logging.ErrAttr(err))
		}
	}()

	tools := toolset.Tools()
	systemPrompt, err := buildSystemPrompt(req, tools)
	if err != nil {
		return nil, err
	}

	userMsg := model.NewUserMessage(req.Query)
	past := thread.Messages()

	history := make([]model.Message, 0, len(past)+2)
	history = append(history, model.NewSystemMessage(systemPrompt))
	history = append(history, past...)
	history = append(history, userMsg)

	turn := []model.Message{userMsg}

	for i := 0; i < s.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, goerr.Wrap(err, "chat turn canceled", goerr.V("iteration", i))
		}

		decision, err := s.decide(ctx, history, tools)
		if err != nil {
			return nil, err
		}

		if decision.IsFinal() {
			answer := decision.Content
			if answer == "" {
				answer = NoAnswer
			}
			final := model.NewAssistantMessage(answer)
			turn = append(turn, final)

			thread.Append(turn...)
			logger.Info("chat turn completed",
				"iterations", i+1,
				"messages", len(turn),
				"thread_messages", thread.Len())

			return &model.ChatResponse{
				ThreadID: threadID,
				Messages: turn,
				Response: answer,
			}, nil
		}

		assistant := model.NewAssistantMessage(decision.Content, decision.ToolCalls...)
		history = append(history, assistant)
		turn = append(turn, assistant)

		for _, call := range decision.ToolCalls {
			result := s.callTool(ctx, toolset, call)
			toolMsg := model.NewToolMessage(call, result)
			history = append(history, toolMsg)
			turn = append(turn, toolMsg)
		}
	}

	return nil, goerr.Wrap(ErrToolLoopExceeded, "LLM did not produce a final answer",
		goerr.V("thread_id", threadID),
		goerr.V("max_iterations", s.maxIterations))
}

func (s *Service) decide(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()

	decision, err := s.decider.Decide(ctx, history, tools)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, goerr.Wrap(context.DeadlineExceeded, "LLM request timed out",
				goerr.V("timeout", s.llmTimeout.String()),
				goerr.V("cause", err.Error()))
		}
		if errors.Is(err, context.Canceled) {
			return nil, goerr.Wrap(err, "LLM request canceled")
		}
		return nil, goerr.Wrap(ErrDecision, "LLM request failed", goerr.V("cause", err.Error()))
	}
	if decision == nil {
		return nil, goerr.Wrap(ErrDecision, "LLM returned no decision")
	}

	return decision, nil
}

// callTool invokes a tool and returns its output. Failures are returned as
// text so that the LLM can recover from them.
func (s *Service) callTool(ctx context.Context, toolset interfaces.Toolset, call model.ToolCall) string {
	ctx, cancel := context.WithTimeout(ctx, s.toolTimeout)
	defer cancel()

	logger := logging.From(ctx)
	logger.Debug("calling tool", "tool", call.Name, "args", call.Arguments)

	out, err := toolset.Call(ctx, call)
	if err != nil {
		logger.Warn("tool call failed", "tool", call.Name, logging.ErrAttr(err))
		if out != "" {
			return "Error: " + out
		}
		return "Error: " + err.Error()
	}

	return out
}
