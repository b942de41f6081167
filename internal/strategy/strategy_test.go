package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/risk"
	"github.com/piyushigoyal/claimtriage/internal/triage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func highRiskClaim() models.Claim {
	return models.Claim{
		ID:                "CLM-HIGH",
		PolicyID:          "POL-1",
		Type:              models.ClaimTypeFireDamage,
		Amount:            80000,
		IncidentDate:      day("2024-01-01"),
		ReportDate:        day("2024-02-15"),
		PriorClaims:       4,
		PolicyTenureYears: 0,
		Narrative:         "Fire destroyed the warehouse.",
	}
}

func lowRiskClaim() models.Claim {
	return models.Claim{
		ID:                "CLM-LOW",
		PolicyID:          "POL-1",
		Type:              models.ClaimTypeTheft,
		Amount:            2000,
		IncidentDate:      day("2024-01-01"),
		ReportDate:        day("2024-01-06"),
		PriorClaims:       0,
		PolicyTenureYears: 5,
		Narrative:         "Bicycle stolen from the garage.",
	}
}

func newRuleBased() *RuleBased {
	cfg := config.New()
	return NewRuleBased(risk.NewScorer(cfg.Risk), triage.NewPolicy(cfg.Triage))
}

type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) ProcessClaim(context.Context, models.Claim, *models.Policy) models.Decision {
	panic("nil map write")
}

type fixed struct {
	d models.Decision
}

func (f fixed) Name() string { return f.d.Strategy }

func (f fixed) ProcessClaim(_ context.Context, c models.Claim, _ *models.Policy) models.Decision {
	d := f.d
	d.ClaimID = c.ID
	return d
}

func TestFailSafe(t *testing.T) {
	d := FailSafe("agent", "CLM-1", errors.New("timeout"))
	assert.Equal(t, models.SeverityUnknown, d.Severity)
	assert.Equal(t, models.ActionEscalate, d.Action)
	assert.False(t, d.Success)
	assert.Equal(t, "Error processing claim: timeout", d.Rationale)
	assert.Equal(t, "CLM-1", d.ClaimID)
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.Timestamp.IsZero())
}

func TestFailSafe_UniqueIDs(t *testing.T) {
	a := FailSafe("agent", "CLM-1", errors.New("x"))
	b := FailSafe("agent", "CLM-1", errors.New("x"))
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGuard_RecoversPanic(t *testing.T) {
	g := Guard(panicky{})
	assert.Equal(t, "panicky", g.Name())

	var d models.Decision
	require.NotPanics(t, func() {
		d = g.ProcessClaim(context.Background(), lowRiskClaim(), nil)
	})
	assert.False(t, d.Success)
	assert.Equal(t, models.SeverityUnknown, d.Severity)
	assert.Equal(t, models.ActionEscalate, d.Action)
	assert.Contains(t, d.Rationale, "panic: nil map write")
	assert.Equal(t, "panicky", d.Strategy)
}

func TestGuard_PassesThrough(t *testing.T) {
	d := Guard(newRuleBased()).ProcessClaim(context.Background(), lowRiskClaim(), nil)
	assert.True(t, d.Success)
	assert.Equal(t, models.ActionApprove, d.Action)
}

func TestWithAudit_Success(t *testing.T) {
	log := audit.New()
	s := WithAudit(newRuleBased(), log)

	d := s.ProcessClaim(context.Background(), highRiskClaim(), nil)
	require.True(t, d.Success)

	entries := log.Query(audit.Filter{ClaimID: "CLM-HIGH"})
	require.Len(t, entries, 2)
	assert.Equal(t, audit.StepClaimReceived, entries[0].Step())
	assert.Equal(t, NameRuleBased, entries[0].Data["strategy"])
	assert.Equal(t, audit.StepClaimProcessed, entries[1].Step())
	assert.Equal(t, d.ID, entries[1].Data["decision_id"])
	assert.Len(t, log.Decisions("CLM-HIGH"), 1)
}

func TestWithAudit_Failure(t *testing.T) {
	log := audit.New()
	s := WithAudit(Guard(panicky{}), log)

	d := s.ProcessClaim(context.Background(), lowRiskClaim(), nil)
	require.False(t, d.Success)

	steps := log.Query(audit.Filter{Type: audit.EntryAgentStep})
	require.Len(t, steps, 2)
	assert.Equal(t, audit.StepClaimError, steps[1].Step())
	assert.Contains(t, steps[1].Data["error"], "panic")

	errs := log.Query(audit.Filter{Type: audit.EntryError})
	require.Len(t, errs, 1)
	assert.Equal(t, "CLM-LOW", errs[0].ClaimID)
	assert.Empty(t, log.Decisions("CLM-LOW"), "failures are not completed decisions")
	assert.Zero(t, log.OverrideRate())
}

func TestWithAudit_NilLog(t *testing.T) {
	s := newRuleBased()
	assert.Same(t, Strategy(s), WithAudit(s, nil))
}

func TestWithAudit_AgentSteps(t *testing.T) {
	log := audit.New()
	s := WithAudit(fixed{d: models.Decision{Strategy: NameAgent, Severity: models.SeverityLow, Action: models.ActionApprove, Success: true, Steps: 7}}, log)

	s.ProcessClaim(context.Background(), lowRiskClaim(), nil)
	got := log.Decisions("CLM-LOW")
	require.Len(t, got, 1)
	assert.Equal(t, 7, got[0].Data["steps"])
}

func TestIsDeterministicAndModelID(t *testing.T) {
	rb := newRuleBased()
	assert.True(t, IsDeterministic(rb))
	assert.True(t, IsDeterministic(WithAudit(Guard(rb), audit.New())))
	assert.Equal(t, "", ModelID(Guard(rb)))

	assert.False(t, IsDeterministic(Guard(panicky{})))
	assert.Equal(t, "", ModelID(panicky{}))
}
