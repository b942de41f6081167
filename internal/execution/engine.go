// Package execution talks to the language model backends used by the
// single-shot and agent strategies.
package execution

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrToolsUnsupported is returned by engines that cannot offer tools to the
// model.
var ErrToolsUnsupported = errors.New("engine does not support tool calling")

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Engine sends a conversation to a model and returns its next message.
type Engine interface {
	// Name identifies the backend ("openai", "copilot", "mock").
	Name() string

	// Chat returns the model's reply. Implementations must honour ctx.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Shutdown releases backend resources.
	Shutdown(ctx context.Context) error
}

// Message is one turn in a conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model request to invoke a tool. Arguments is the raw JSON
// object the model produced.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a tool offered to the model. Parameters is a JSON
// schema object.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatRequest is a single model invocation.
type ChatRequest struct {
	// ClaimID is used for logging only.
	ClaimID     string
	Messages    []Message
	Tools       []ToolSpec
	Model       string
	Temperature *float64
}

// ChatResponse carries the model's reply.
type ChatResponse struct {
	Message      Message
	Model        string
	FinishReason string
	DurationMs   int64
}

// Content returns the reply text.
func (r *ChatResponse) Content() string {
	if r == nil {
		return ""
	}
	return r.Message.Content
}

// HasToolCalls reports whether the model asked for tools.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.Message.ToolCalls) > 0
}

// SystemMessage builds a system turn.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolResult builds the turn that answers a tool call.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}

// flatten renders a conversation as a single prompt for backends that take
// one string.
func flatten(messages []Message) string {
	var sb strings.Builder
	for i, m := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch m.Role {
		case RoleSystem, RoleUser:
			sb.WriteString(m.Content)
		default:
			sb.WriteString(string(m.Role))
			sb.WriteString(": ")
			sb.WriteString(m.Content)
		}
	}
	return sb.String()
}
