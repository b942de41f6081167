package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/execution"
	"github.com/piyushigoyal/claimtriage/internal/labels"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/policy"
	"github.com/piyushigoyal/claimtriage/internal/risk"
	"github.com/piyushigoyal/claimtriage/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAgent(t *testing.T, cfg config.Config, script ...execution.MockTurn) (*Agent, *execution.MockEngine, *audit.Log) {
	t.Helper()
	log := audit.New()
	dir := policy.NewDirectory([]models.Policy{{ID: "POL-1", CoverageLimit: 100000, Active: true}})
	reg, err := tools.NewRegistry(dir, risk.NewScorer(cfg.Risk), log)
	require.NoError(t, err)
	engine := execution.NewMockEngine("m", script...)
	return NewAgent(engine, reg, labels.DefaultVocabulary(), cfg), engine, log
}

func TestAgent_ToolLoop(t *testing.T) {
	a, engine, log := newAgent(t, config.New(),
		execution.MockTurn{ToolCalls: []execution.ToolCall{
			{ID: "c1", Name: tools.PolicyLookup, Arguments: `{"policy_id":"POL-1"}`},
		}},
		execution.MockTurn{ToolCalls: []execution.ToolCall{
			{ID: "c2", Name: tools.RiskScoring, Arguments: `{"claim_amount":80000,"prior_claims":4,"policy_tenure_years":0,"incident_to_report_days":45,"coverage_limit":100000}`},
		}},
		execution.MockTurn{ToolCalls: []execution.ToolCall{
			{ID: "c3", Name: tools.TriageLogger, Arguments: `{"claim_id":"CLM-HIGH","severity":"critical","action":"escalate","rationale":"Risk score 1.0"}`},
		}},
		execution.MockTurn{Content: "SEVERITY: critical\nACTION: escalate\nRATIONALE: Every risk rule fired."},
	)

	d := a.ProcessClaim(context.Background(), highRiskClaim(), nil)
	require.True(t, d.Success, d.Rationale)
	assert.Equal(t, NameAgent, d.Strategy)
	assert.Equal(t, models.SeverityCritical, d.Severity)
	assert.Equal(t, models.ActionEscalate, d.Action)
	// three tool turns and the final answer
	assert.Equal(t, 4, d.Steps)

	reqs := engine.Requests()
	require.Len(t, reqs, 4)
	assert.Len(t, reqs[0].Tools, 3)
	assert.Equal(t, execution.RoleSystem, reqs[0].Messages[0].Role)
	assert.Contains(t, reqs[0].Messages[1].Content, "Days to Report: 45")

	last := reqs[3].Messages[len(reqs[3].Messages)-1]
	assert.Equal(t, execution.RoleTool, last.Role)
	assert.Equal(t, "c3", last.ToolCallID)
	assert.Contains(t, last.Content, "logged successfully")

	stats := log.ToolCallStats()
	assert.Equal(t, 3, stats.Total)
	assert.Len(t, log.Query(audit.Filter{Type: audit.EntryAgentStep, ClaimID: "CLM-HIGH"}), 1)
}

func TestAgent_ToolErrorIsFedBack(t *testing.T) {
	a, engine, _ := newAgent(t, config.New(),
		execution.MockTurn{ToolCalls: []execution.ToolCall{
			{ID: "c1", Name: tools.PolicyLookup, Arguments: `{"policy_id":"POL-404"}`},
		}},
		execution.MockTurn{Content: "Policy missing. SEVERITY: high ACTION: investigate"},
	)

	d := a.ProcessClaim(context.Background(), highRiskClaim(), nil)
	require.True(t, d.Success)
	assert.Equal(t, models.ActionInvestigate, d.Action)

	reqs := engine.Requests()
	require.Len(t, reqs, 2)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Contains(t, last.Content, "policy POL-404 not found")
}

func TestAgent_IterationLimit(t *testing.T) {
	cfg := config.New()
	cfg.Agent.MaxIterations = 2
	loop := execution.MockTurn{ToolCalls: []execution.ToolCall{{ID: "c", Name: tools.PolicyLookup, Arguments: `{"policy_id":"POL-1"}`}}}
	a, engine, _ := newAgent(t, cfg, loop, loop, loop)

	d := a.ProcessClaim(context.Background(), highRiskClaim(), nil)
	assert.False(t, d.Success)
	assert.Equal(t, models.SeverityUnknown, d.Severity)
	assert.Equal(t, models.ActionEscalate, d.Action)
	assert.Contains(t, d.Rationale, ErrIterationLimit.Error())
	assert.Equal(t, 1, engine.Remaining())
}

func TestAgent_EngineFailures(t *testing.T) {
	tests := []struct {
		name string
		turn execution.MockTurn
		want string
	}{
		{"tools unsupported", execution.MockTurn{Err: execution.ErrToolsUnsupported}, "cannot run the agent strategy"},
		{"transport error", execution.MockTurn{Err: errors.New("connection reset")}, "connection reset"},
		{"empty final answer", execution.MockTurn{Content: ""}, "empty final answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _, _ := newAgent(t, config.New(), tt.turn)
			d := a.ProcessClaim(context.Background(), lowRiskClaim(), nil)
			assert.False(t, d.Success)
			assert.Equal(t, models.SeverityUnknown, d.Severity)
			assert.Contains(t, d.Rationale, tt.want)
		})
	}
}

func TestAgent_DefaultsIterations(t *testing.T) {
	cfg := config.New()
	cfg.Agent.MaxIterations = 0
	a, _, _ := newAgent(t, cfg)
	assert.Equal(t, config.DefaultMaxIterations, a.maxIterations)
}
