package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// chatCompleter is the subset of *openai.Client the engine uses.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIEngine calls the OpenAI chat completions API, including function
// calling for the agent strategy.
type OpenAIEngine struct {
	client      chatCompleter
	model       string
	temperature *float64
}

// NewOpenAIEngine reads OPENAI_API_KEY (and optionally OPENAI_BASE_URL for
// compatible endpoints) from the environment.
func NewOpenAIEngine(model string, temperature *float64) (*OpenAIEngine, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}

	slog.Info("Initializing OpenAI client", "model", model)
	return newOpenAIEngine(openai.NewClientWithConfig(cfg), model, temperature), nil
}

func newOpenAIEngine(client chatCompleter, model string, temperature *float64) *OpenAIEngine {
	return &OpenAIEngine{client: client, model: model, temperature: temperature}
}

func (e *OpenAIEngine) Name() string { return "openai" }

func (e *OpenAIEngine) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to OpenAIEngine.Chat")
	}

	model := e.model
	if req.Model != "" {
		model = req.Model
	}

	creq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(req.Messages),
		Tools:    toOpenAITools(req.Tools),
	}
	temp := e.temperature
	if req.Temperature != nil {
		temp = req.Temperature
	}
	if temp != nil {
		creq.Temperature = float32(*temp)
	}

	slog.Debug("Sending chat completion", "model", model, "claim_id", req.ClaimID, "messages", len(creq.Messages), "tools", len(creq.Tools))

	start := time.Now()
	resp, err := e.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}

	choice := resp.Choices[0]
	slog.Debug("Received response from OpenAI", "finish_reason", choice.FinishReason, "tool_calls", len(choice.Message.ToolCalls))

	out := &ChatResponse{
		Message: Message{
			Role:    RoleAssistant,
			Content: choice.Message.Content,
		},
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		DurationMs:   time.Since(start).Milliseconds(),
	}
	for _, tc := range choice.Message.ToolCalls {
		out.Message.ToolCalls = append(out.Message.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (e *OpenAIEngine) Shutdown(context.Context) error { return nil }

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		switch m.Role {
		case RoleSystem:
			msg.Role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			msg.Role = openai.ChatMessageRoleAssistant
		case RoleTool:
			msg.Role = openai.ChatMessageRoleTool
			msg.Name = m.Name
		default:
			msg.Role = openai.ChatMessageRoleUser
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(specs []ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: strings.TrimSpace(s.Description),
				Parameters:  s.Parameters,
			},
		})
	}
	return tools
}
