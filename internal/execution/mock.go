package execution

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockTurn is one scripted reply.
type MockTurn struct {
	Content   string
	ToolCalls []ToolCall
	Err       error
	Delay     time.Duration
}

// MockEngine replays scripted turns in order. Once the script runs out it
// answers every request with a fixed, parseable decision.
type MockEngine struct {
	modelID string

	mu       sync.Mutex
	script   []MockTurn
	requests []ChatRequest
}

// NewMockEngine creates a new mock engine
func NewMockEngine(modelID string, script ...MockTurn) *MockEngine {
	return &MockEngine{modelID: modelID, script: script}
}

func (m *MockEngine) Name() string { return "mock" }

func (m *MockEngine) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to MockEngine.Chat")
	}
	start := time.Now()

	m.mu.Lock()
	m.requests = append(m.requests, cloneRequest(req))
	var turn MockTurn
	scripted := len(m.script) > 0
	if scripted {
		turn = m.script[0]
		m.script = m.script[1:]
	}
	m.mu.Unlock()

	if !scripted {
		turn = MockTurn{Content: fmt.Sprintf("SEVERITY: medium\nACTION: investigate\nRATIONALE: Mock response for claim %s.", req.ClaimID)}
	}

	if turn.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(turn.Delay):
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if turn.Err != nil {
		return nil, turn.Err
	}

	finish := "stop"
	if len(turn.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &ChatResponse{
		Message: Message{
			Role:      RoleAssistant,
			Content:   turn.Content,
			ToolCalls: append([]ToolCall(nil), turn.ToolCalls...),
		},
		Model:        m.modelID,
		FinishReason: finish,
		DurationMs:   time.Since(start).Milliseconds(),
	}, nil
}

// Requests returns copies of every request received so far.
func (m *MockEngine) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

// Remaining returns the number of unused scripted turns.
func (m *MockEngine) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}

func cloneRequest(req *ChatRequest) ChatRequest {
	c := *req
	c.Messages = append([]Message(nil), req.Messages...)
	c.Tools = append([]ToolSpec(nil), req.Tools...)
	return c
}
