package utils

import (
	"context"
	"log/slog"

	copilot "github.com/github/copilot-sdk/go"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

func SessionToSlog(event copilot.SessionEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"type", event.Type,
	}

	attrs = addIf(attrs, "content", event.Data.Content)
	attrs = addIf(attrs, "deltaContent", event.Data.DeltaContent)
	attrs = addIf(attrs, "toolName", event.Data.ToolName)
	attrs = addIf(attrs, "toolResult", event.Data.Result)
	attrs = addIf(attrs, "toolCallID", event.Data.ToolCallID)
	attrs = addIf(attrs, "reasoningText", event.Data.ReasoningText)

	slog.Debug("Event received", attrs...)
}

// DecisionToSlog logs a finished decision at debug level.
func DecisionToSlog(ctx context.Context, d models.Decision) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := []any{
		"claim_id", d.ClaimID,
		"strategy", d.Strategy,
		"severity", d.Severity,
		"action", d.Action,
		"success", d.Success,
		"duration_ms", d.DurationMs,
	}
	attrs = addIf(attrs, "risk_score", d.RiskScore)
	if !d.Success {
		attrs = append(attrs, "rationale", d.Rationale)
	}

	slog.DebugContext(ctx, "Decision made", attrs...)
}

func addIf[T any](attrs []any, name string, v *T) []any {
	if v != nil {
		attrs = append(attrs, name)
		attrs = append(attrs, *v)
	}

	return attrs
}
