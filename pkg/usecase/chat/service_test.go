package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/farmassist/pkg/interfaces"
	"github.com/m-mizutani/farmassist/pkg/model"
	"github.com/m-mizutani/farmassist/pkg/repository"
	"github.com/m-mizutani/farmassist/pkg/service/mcp"
	"github.com/m-mizutani/farmassist/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

// deciderMock returns decisions produced by decideFunc and records every history it saw
type deciderMock struct {
	mu         sync.Mutex
	decideFunc func(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error)
	histories  [][]model.Message
}

func (m *deciderMock) Decide(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
	m.mu.Lock()
	m.histories = append(m.histories, history)
	m.mu.Unlock()
	return m.decideFunc(ctx, history, tools)
}

func finalAnswer(text string) func(context.Context, []model.Message, []model.ToolDescriptor) (*model.Decision, error) {
	return func(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
		return &model.Decision{Content: text}, nil
	}
}

type toolsetMock struct {
	tools    []model.ToolDescriptor
	callFunc func(ctx context.Context, call model.ToolCall) (string, error)

	mu     sync.Mutex
	calls  []model.ToolCall
	closed bool
}

func (m *toolsetMock) Tools() []model.ToolDescriptor { return m.tools }

func (m *toolsetMock) Call(ctx context.Context, call model.ToolCall) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	if m.callFunc == nil {
		return "ok", nil
	}
	return m.callFunc(ctx, call)
}

func (m *toolsetMock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type catalogMock struct {
	toolset *toolsetMock
	err     error
}

func (m *catalogMock) Open(ctx context.Context) (interfaces.Toolset, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.toolset, nil
}

var farmTools = []model.ToolDescriptor{
	{Name: "get_weather", Description: "Get the weather forecast for a given city."},
	{Name: "disease_prediction", Description: "Predict diseases in crops based on an image."},
	{Name: "general_queries", Description: "Answer general queries related to agriculture and farming."},
}

func newService(decider interfaces.Decider, catalog interfaces.ToolCatalog, threads interfaces.Repository) *chat.Service {
	return chat.New(chat.Input{
		Threads: threads,
		Catalog: catalog,
		Decider: decider,
	})
}

func TestChatGeneratesThreadID(t *testing.T) {
	threads := repository.NewMemory()
	decider := &deciderMock{decideFunc: finalAnswer("Hello farmer!")}
	svc := newService(decider, &catalogMock{toolset: &toolsetMock{tools: farmTools}}, threads)

	resp, err := svc.Chat(context.Background(), model.ChatRequest{Query: "hi"})
	gt.NoError(t, err)
	gt.NotEqual(t, resp.ThreadID, model.ThreadID(""))
	gt.Equal(t, resp.Response, "Hello farmer!")
	gt.A(t, resp.Messages).Length(2)
	gt.Equal(t, resp.Messages[0].Role, model.RoleUser)
	gt.Equal(t, resp.Messages[1].Role, model.RoleAssistant)

	thread, ok := threads.GetThread(resp.ThreadID)
	gt.True(t, ok)
	gt.Equal(t, thread.Len(), 2)

	other, err := svc.Chat(context.Background(), model.ChatRequest{Query: "hi again"})
	gt.NoError(t, err)
	gt.NotEqual(t, other.ThreadID, resp.ThreadID)
}

func TestChatReusesThreadMemory(t *testing.T) {
	threads := repository.NewMemory()
	decider := &deciderMock{decideFunc: finalAnswer("noted")}
	svc := newService(decider, &catalogMock{toolset: &toolsetMock{tools: farmTools}}, threads)
	ctx := context.Background()

	first, err := svc.Chat(ctx, model.ChatRequest{Query: "I grow cotton", ThreadID: "farmer-1"})
	gt.NoError(t, err)
	gt.Equal(t, first.ThreadID, model.ThreadID("farmer-1"))

	_, err = svc.Chat(ctx, model.ChatRequest{Query: "what do I grow?", ThreadID: "farmer-1"})
	gt.NoError(t, err)

	gt.A(t, decider.histories).Length(2)
	second := decider.histories[1]
	// system + 2 past messages + new user message
	gt.A(t, second).Length(4)
	gt.Equal(t, second[0].Role, model.RoleSystem)
	gt.Equal(t, second[1].Content, "I grow cotton")
	gt.Equal(t, second[2].Content, "noted")
	gt.Equal(t, second[3].Content, "what do I grow?")
}

func TestChatCallsTools(t *testing.T) {
	threads := repository.NewMemory()
	toolset := &toolsetMock{
		tools: farmTools,
		callFunc: func(ctx context.Context, call model.ToolCall) (string, error) {
			return "Weather forecast for " + call.Arguments["city"].(string) + ":\n", nil
		},
	}

	step := 0
	decider := &deciderMock{decideFunc: func(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
		step++
		if step == 1 {
			gt.A(t, tools).Length(3)
			return &model.Decision{ToolCalls: []model.ToolCall{
				{ID: "call_1", Name: "get_weather", Arguments: map[string]any{"city": "Nashik"}},
			}}, nil
		}

		last := history[len(history)-1]
		gt.Equal(t, last.Role, model.RoleTool)
		gt.Equal(t, last.ToolCallID, "call_1")
		gt.Equal(t, last.Content, "Weather forecast for Nashik:\n")
		return &model.Decision{Content: "## Weather\n- Dry week ahead"}, nil
	}}

	svc := newService(decider, &catalogMock{toolset: toolset}, threads)
	resp, err := svc.Chat(context.Background(), model.ChatRequest{Query: "Weather in Nashik?", ThreadID: "t-tools"})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response, "## Weather\n- Dry week ahead")

	gt.A(t, resp.Messages).Length(4)
	gt.Equal(t, resp.Messages[1].Role, model.RoleAssistant)
	gt.A(t, resp.Messages[1].ToolCalls).Length(1)
	gt.Equal(t, resp.Messages[2].Role, model.RoleTool)
	gt.Equal(t, resp.Messages[2].Name, "get_weather")
	gt.Equal(t, resp.Messages[3].Content, "## Weather\n- Dry week ahead")

	gt.A(t, toolset.calls).Length(1)
	gt.True(t, toolset.closed)

	thread, _ := threads.GetThread("t-tools")
	gt.Equal(t, thread.Len(), 4)
}

func TestChatToolErrorIsFedBack(t *testing.T) {
	toolset := &toolsetMock{
		tools: farmTools,
		callFunc: func(ctx context.Context, call model.ToolCall) (string, error) {
			return "", goerr.Wrap(mcp.ErrToolFailed, "connection reset")
		},
	}

	step := 0
	decider := &deciderMock{decideFunc: func(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
		step++
		if step == 1 {
			return &model.Decision{ToolCalls: []model.ToolCall{{ID: "c1", Name: "general_queries", Arguments: map[string]any{"query": "mandi prices"}}}}, nil
		}
		last := history[len(history)-1]
		gt.S(t, last.Content).Contains("Error: ")
		return &model.Decision{Content: chat.NoAnswer}, nil
	}}

	svc := newService(decider, &catalogMock{toolset: toolset}, repository.NewMemory())
	resp, err := svc.Chat(context.Background(), model.ChatRequest{Query: "mandi prices?"})
	gt.NoError(t, err)
	gt.Equal(t, resp.Response, chat.NoAnswer)
}

func TestChatLoopExceeded(t *testing.T) {
	threads := repository.NewMemory()
	toolset := &toolsetMock{tools: farmTools}
	decider := &deciderMock{decideFunc: func(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
		return &model.Decision{ToolCalls: []model.ToolCall{{ID: model.NewToolCallID(), Name: "get_weather", Arguments: map[string]any{"city": "Pune"}}}}, nil
	}}

	svc := chat.New(chat.Input{
		Threads:       threads,
		Catalog:       &catalogMock{toolset: toolset},
		Decider:       decider,
		MaxIterations: 3,
	})

	_, err := svc.Chat(context.Background(), model.ChatRequest{Query: "loop forever", ThreadID: "looping"})
	gt.True(t, errors.Is(err, chat.ErrToolLoopExceeded))
	gt.A(t, decider.histories).Length(3)
	gt.A(t, toolset.calls).Length(3)

	thread, ok := threads.GetThread("looping")
	gt.True(t, ok)
	gt.Equal(t, thread.Len(), 0)
}

func TestChatInvalidRequest(t *testing.T) {
	decider := &deciderMock{decideFunc: finalAnswer("unused")}
	svc := newService(decider, &catalogMock{toolset: &toolsetMock{}}, repository.NewMemory())

	_, err := svc.Chat(context.Background(), model.ChatRequest{Query: "   "})
	gt.True(t, errors.Is(err, chat.ErrInvalidRequest))
	gt.A(t, decider.histories).Length(0)
}

func TestChatToolServerUnreachable(t *testing.T) {
	threads := repository.NewMemory()
	decider := &deciderMock{decideFunc: finalAnswer("unused")}
	catalog := &catalogMock{err: goerr.Wrap(mcp.ErrToolServerUnreachable, "connection refused")}
	svc := newService(decider, catalog, threads)

	_, err := svc.Chat(context.Background(), model.ChatRequest{Query: "weather?", ThreadID: "offline"})
	gt.True(t, errors.Is(err, mcp.ErrToolServerUnreachable))
	gt.A(t, decider.histories).Length(0)

	thread, _ := threads.GetThread("offline")
	gt.Equal(t, thread.Len(), 0)
}

func TestChatDecisionFailure(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		decider := &deciderMock{decideFunc: func(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
			return nil, goerr.New("503 from provider")
		}}
		svc := newService(decider, &catalogMock{toolset: &toolsetMock{}}, repository.NewMemory())

		_, err := svc.Chat(context.Background(), model.ChatRequest{Query: "hi"})
		gt.True(t, errors.Is(err, chat.ErrDecision))
	})

	t.Run("timeout", func(t *testing.T) {
		decider := &deciderMock{decideFunc: func(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		svc := chat.New(chat.Input{
			Threads:    repository.NewMemory(),
			Catalog:    &catalogMock{toolset: &toolsetMock{}},
			Decider:    decider,
			LLMTimeout: 20 * time.Millisecond,
		})

		_, err := svc.Chat(context.Background(), model.ChatRequest{Query: "hi"})
		gt.True(t, errors.Is(err, context.DeadlineExceeded))
	})
}

func TestChatSystemPromptCarriesUserContext(t *testing.T) {
	decider := &deciderMock{decideFunc: finalAnswer("ok")}
	svc := newService(decider, &catalogMock{toolset: &toolsetMock{tools: farmTools}}, repository.NewMemory())

	_, err := svc.Chat(context.Background(), model.ChatRequest{
		Query: "any tips?",
		City:  "Bathinda",
		Crops: []string{"wheat", " cotton "},
	})
	gt.NoError(t, err)

	system := decider.histories[0][0]
	gt.Equal(t, system.Role, model.RoleSystem)
	gt.S(t, system.Content).Contains("- Location: Bathinda")
	gt.S(t, system.Content).Contains("- Crops: wheat, cotton")
	gt.S(t, system.Content).Contains("1. get_weather: ")
	gt.S(t, system.Content).Contains("I don't have enough information to answer this.")

	_, err = svc.Chat(context.Background(), model.ChatRequest{Query: "hello"})
	gt.NoError(t, err)
	gt.S(t, decider.histories[1][0].Content).NotContains("User context:")
}

func TestChatConcurrentTurnsOnNewThread(t *testing.T) {
	threads := repository.NewMemory()
	decider := &deciderMock{decideFunc: func(ctx context.Context, history []model.Message, tools []model.ToolDescriptor) (*model.Decision, error) {
		return &model.Decision{Content: "answer to " + history[len(history)-1].Content}, nil
	}}
	svc := newService(decider, &catalogMock{toolset: &toolsetMock{tools: farmTools}}, threads)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Chat(context.Background(), model.ChatRequest{
				Query:    fmt.Sprintf("question %d", i),
				ThreadID: "shared-thread",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		gt.NoError(t, err)
	}

	gt.Equal(t, threads.CountThreads(), 1)
	thread, ok := threads.GetThread("shared-thread")
	gt.True(t, ok)
	gt.Equal(t, thread.Len(), 2*n)

	// turns are serialized, so each answer follows its own question
	msgs := thread.Messages()
	for i := 0; i < len(msgs); i += 2 {
		gt.Equal(t, msgs[i].Role, model.RoleUser)
		gt.Equal(t, msgs[i+1].Content, "answer to "+msgs[i].Content)
	}
}
