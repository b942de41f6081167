package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionToSlogDebugDisabled(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(old)
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	SessionToSlog(copilot.SessionEvent{Type: copilot.SessionEventType("message")})
	assert.Equal(t, 0, buf.Len())
}

func TestSessionToSlogDebugEnabled(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(old)
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	content := "hello"
	deltaContent := " world"
	toolName := "bash"
	toolCallID := "call-1"
	reasoningText := "reasoning"

	SessionToSlog(copilot.SessionEvent{
		Type: copilot.SessionEventType("message"),
		Data: copilot.Data{
			Content:       &content,
			DeltaContent:  &deltaContent,
			ToolName:      &toolName,
			ToolCallID:    &toolCallID,
			ReasoningText: &reasoningText,
		},
	})

	var logEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logEntry))
	assert.Equal(t, "Event received", logEntry["msg"])
	assert.Equal(t, "message", logEntry["type"])
	assert.Equal(t, content, logEntry["content"])
	assert.Equal(t, deltaContent, logEntry["deltaContent"])
	assert.Equal(t, toolName, logEntry["toolName"])
	assert.Equal(t, toolCallID, logEntry["toolCallID"])
	assert.Equal(t, reasoningText, logEntry["reasoningText"])
}

func TestAddIf(t *testing.T) {
	attrs := []any{"existing", "value"}

	result := addIf(attrs, "missing", (*int)(nil))
	assert.Equal(t, attrs, result)

	v := 7
	result = addIf(attrs, "number", &v)
	assert.Equal(t, []any{"existing", "value", "number", 7}, result)
}

func TestDecisionToSlog(t *testing.T) {
	old := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(old)
	})

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	DecisionToSlog(context.Background(), models.Decision{ClaimID: "CLM-1"})
	assert.Equal(t, 0, buf.Len())

	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	DecisionToSlog(context.Background(), models.Decision{
		ClaimID:   "CLM-1",
		Strategy:  "agent",
		Severity:  models.SeverityUnknown,
		Action:    models.ActionEscalate,
		Rationale: "Error processing claim: boom",
		RiskScore: Ptr(0.5),
	})

	var logged map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))
	assert.Equal(t, "Decision made", logged["msg"])
	assert.Equal(t, "CLM-1", logged["claim_id"])
	assert.Equal(t, 0.5, logged["risk_score"])
	assert.Equal(t, "Error processing claim: boom", logged["rationale"])
}
