package audit

import (
	"maps"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// EntryType identifies the kind of audit entry.
type EntryType string

const (
	EntryToolCall         EntryType = "tool_call"
	EntryAgentStep        EntryType = "agent_step"
	EntryHumanOverride    EntryType = "human_override"
	EntryEvaluationResult EntryType = "evaluation_result"
	EntryError            EntryType = "error"
)

// Agent step names written by the strategies.
const (
	StepClaimReceived  = "claim_received"
	StepClaimProcessed = "claim_processed"
	StepClaimError     = "claim_error"
	StepTriageLogged   = "triage_logged"
)

// Entry is a single timestamped record in the audit log.
type Entry struct {
	Seq       int64          `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EntryType      `json:"type"`
	ClaimID   string         `json:"claim_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	PrevHash  string         `json:"prev_hash,omitempty"`
}

// MatchesClaim reports whether the entry belongs to claimID, either through
// the top-level field or through data["claim_id"].
func (e Entry) MatchesClaim(claimID string) bool {
	if e.ClaimID == claimID {
		return true
	}
	if v, ok := e.Data["claim_id"].(string); ok && v == claimID {
		return true
	}
	return false
}

// Step returns data["step"] for agent_step entries.
func (e Entry) Step() string {
	s, _ := e.Data["step"].(string)
	return s
}

func (e Entry) clone() Entry {
	e.Data = maps.Clone(e.Data)
	return e
}

// ToolCall records an agent tool invocation.
func ToolCall(claimID, tool string, input, output map[string]any) Entry {
	return Entry{
		Type:    EntryToolCall,
		ClaimID: claimID,
		Data: map[string]any{
			"tool_name": tool,
			"input":     input,
			"output":    output,
		},
	}
}

// AgentStep records a strategy lifecycle step. Extra keys in details are
// copied into the entry data.
func AgentStep(claimID, step string, details map[string]any) Entry {
	d := map[string]any{"step": step}
	for k, v := range details {
		d[k] = v
	}
	return Entry{Type: EntryAgentStep, ClaimID: claimID, Data: d}
}

// ClaimProcessed records a completed decision.
func ClaimProcessed(d models.Decision) Entry {
	details := map[string]any{
		"decision_id":     d.ID,
		"strategy":        d.Strategy,
		"severity":        string(d.Severity),
		"action":          string(d.Action),
		"rationale":       d.Rationale,
		"success":         d.Success,
		"processing_time": float64(d.DurationMs) / 1000.0,
	}
	if d.RiskScore != nil {
		details["risk_score"] = *d.RiskScore
	}
	if d.Steps > 0 {
		details["steps"] = d.Steps
	}
	return AgentStep(d.ClaimID, StepClaimProcessed, details)
}

// HumanOverride records a reviewer replacing a decision.
func HumanOverride(claimID string, original, override models.Decision, reason, reviewer string) Entry {
	return Entry{
		Type:    EntryHumanOverride,
		ClaimID: claimID,
		Data: map[string]any{
			"original_decision": decisionData(original),
			"override_decision": decisionData(override),
			"reason":            reason,
			"reviewer":          reviewer,
		},
	}
}

// EvaluationResult records one strategy's metrics.
func EvaluationResult(runID string, res models.EvaluationResult) Entry {
	return Entry{
		Type: EntryEvaluationResult,
		Data: map[string]any{
			"run_id":            runID,
			"strategy":          res.Strategy,
			"claims":            res.Claims,
			"failures":          res.Failures,
			"severity_accuracy": res.Severity.Accuracy,
			"action_accuracy":   res.Action.Accuracy,
			"severity_f1":       res.Severity.F1,
			"action_f1":         res.Action.F1,
			"overall_score":     res.Composite,
			"avg_latency":       res.MeanLatencySeconds,
		},
	}
}

// Error records a failure, optionally tied to a claim.
func Error(claimID, message string, details map[string]any) Entry {
	d := map[string]any{"message": message}
	for k, v := range details {
		d[k] = v
	}
	return Entry{Type: EntryError, ClaimID: claimID, Data: d}
}

func decisionData(d models.Decision) map[string]any {
	return map[string]any{
		"severity":  string(d.Severity),
		"action":    string(d.Action),
		"rationale": d.Rationale,
		"strategy":  d.Strategy,
	}
}

// DecisionFromEntry rebuilds the decision recorded by a claim_processed
// step. Risk details are not recorded and come back empty.
func DecisionFromEntry(e Entry) (models.Decision, bool) {
	if e.Type != EntryAgentStep || e.Step() != StepClaimProcessed {
		return models.Decision{}, false
	}
	str := func(k string) string {
		s, _ := e.Data[k].(string)
		return s
	}
	d := models.Decision{
		ID:        str("decision_id"),
		ClaimID:   e.ClaimID,
		Strategy:  str("strategy"),
		Severity:  models.Severity(str("severity")),
		Action:    models.Action(str("action")),
		Rationale: str("rationale"),
		Timestamp: e.Timestamp,
	}
	d.Success, _ = e.Data["success"].(bool)
	if v, ok := e.Data["processing_time"].(float64); ok {
		d.DurationMs = int64(v * 1000)
	}
	if v, ok := e.Data["risk_score"].(float64); ok {
		d.RiskScore = &v
	}
	return d, true
}
