package execution

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/piyushigoyal/claimtriage/internal/utils"
)

// CopilotEngine integrates with GitHub Copilot SDK. Each Chat runs in a fresh
// session; the SDK manages its own tools, so ToolSpecs are rejected.
type CopilotEngine struct {
	defaultModelID string

	client copilotClient

	startOnce sync.Once
	startErr  error
}

// CopilotEngineBuilder builds a CopilotEngine with options
type CopilotEngineBuilder struct {
	engine *CopilotEngine
}

type CopilotEngineBuilderOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotEngineBuilder creates a builder for CopilotEngine
//   - defaultModelID - used if the request doesn't name a model. Can be blank, which means the copilot
//     CLI will choose its own fallback model.
func NewCopilotEngineBuilder(defaultModelID string, options *CopilotEngineBuilderOptions) *CopilotEngineBuilder {
	var client copilotClient

	copilotOptions := &copilot.ClientOptions{
		LogLevel:  "error",
		AutoStart: copilot.Bool(false),
	}

	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	return &CopilotEngineBuilder{
		engine: &CopilotEngine{
			defaultModelID: defaultModelID,
			client:         client,
		},
	}
}

func (b *CopilotEngineBuilder) Build() *CopilotEngine {
	return b.engine
}

func (e *CopilotEngine) Name() string { return "copilot" }

// Chat sends the flattened conversation as one prompt and returns the
// assistant's reply.
func (e *CopilotEngine) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to CopilotEngine.Chat")
	}
	if len(req.Tools) > 0 {
		return nil, ErrToolsUnsupported
	}

	e.startOnce.Do(func() {
		// NOTE: copilot client has an 'autostart' feature, but it runs into issues
		// when it tries to autostart from separate goroutines.
		e.startErr = e.client.Start(ctx)
	})

	if e.startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", e.startErr)
	}

	modelID := e.defaultModelID
	if req.Model != "" {
		modelID = req.Model
	}

	start := time.Now()

	session, err := e.client.CreateSession(ctx, &copilot.SessionConfig{
		Model:               modelID,
		OnPermissionRequest: allowAllTools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	reply := newReplyCollector()

	unsubscribe := session.On(reply.On)
	defer unsubscribe()

	unsubscribe = session.On(utils.SessionToSlog)
	defer unsubscribe()

	_, err = session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: flatten(req.Messages),
	})
	if err != nil {
		return nil, fmt.Errorf("copilot session %s: %w", session.SessionID(), err)
	}
	if err := reply.Err(); err != nil {
		return nil, fmt.Errorf("copilot session %s: %w", session.SessionID(), err)
	}

	return &ChatResponse{
		Message: Message{
			Role:    RoleAssistant,
			Content: reply.Reply(),
		},
		Model:        modelID,
		FinishReason: "stop",
		DurationMs:   time.Since(start).Milliseconds(),
	}, nil
}

// Shutdown stops the Copilot client.
func (e *CopilotEngine) Shutdown(ctx context.Context) error {
	if err := e.client.Stop(); err != nil {
		// Log but continue cleanup
		slog.Info("failed to stop client", "error", err)
	}
	return nil
}

func allowAllTools(request copilot.PermissionRequest, invocation copilot.PermissionInvocation) (copilot.PermissionRequestResult, error) {
	// value for 'Kind' came from the permissions_test.go in the Copilot SDK.
	return copilot.PermissionRequestResult{Kind: "approved"}, nil
}
