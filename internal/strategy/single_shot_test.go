package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/execution"
	"github.com/piyushigoyal/claimtriage/internal/labels"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingleShot(t *testing.T) {
	engine := execution.NewMockEngine("test-model", execution.MockTurn{
		Content: "SEVERITY: High\nACTION: Investigate\nRATIONALE: Large fire claim on a new policy.",
	})
	s := NewSingleShot(engine, labels.DefaultVocabulary(), config.New())

	d := s.ProcessClaim(context.Background(), highRiskClaim(), nil)
	require.True(t, d.Success)
	assert.Equal(t, NameSingleShot, d.Strategy)
	assert.Equal(t, models.SeverityHigh, d.Severity)
	assert.Equal(t, models.ActionInvestigate, d.Action)
	assert.Contains(t, d.Rationale, "Large fire claim")
	assert.Nil(t, d.RiskScore)

	reqs := engine.Requests()
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Tools)
	assert.Equal(t, config.DefaultModel, reqs[0].Model)
	require.Len(t, reqs[0].Messages, 1)
	prompt := reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "Claim ID: CLM-HIGH")
	assert.Contains(t, prompt, "Amount: $80,000.00")
	assert.Contains(t, prompt, "LOW severity: < $5,000")
	assert.Contains(t, prompt, "CRITICAL severity: > $75,000")
	assert.Contains(t, prompt, "Claimant Age: unknown")
	assert.Contains(t, prompt, "SEVERITY: [level]")
}

func TestSingleShot_UnlabelledAnswerUsesDefaults(t *testing.T) {
	engine := execution.NewMockEngine("m", execution.MockTurn{Content: "I am not sure what to do here."})
	d := NewSingleShot(engine, labels.DefaultVocabulary(), config.New()).ProcessClaim(context.Background(), lowRiskClaim(), nil)

	require.True(t, d.Success)
	assert.Equal(t, models.SeverityMedium, d.Severity)
	assert.Equal(t, models.ActionInvestigate, d.Action)
}

func TestSingleShot_Failures(t *testing.T) {
	tests := []struct {
		name string
		turn execution.MockTurn
		want string
	}{
		{"engine error", execution.MockTurn{Err: errors.New("rate limited")}, "mock: rate limited"},
		{"empty answer", execution.MockTurn{Content: "  \n"}, "empty response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := execution.NewMockEngine("m", tt.turn)
			d := NewSingleShot(engine, labels.DefaultVocabulary(), config.New()).ProcessClaim(context.Background(), lowRiskClaim(), nil)
			assert.False(t, d.Success)
			assert.Equal(t, models.SeverityUnknown, d.Severity)
			assert.Equal(t, models.ActionEscalate, d.Action)
			assert.Contains(t, d.Rationale, tt.want)
		})
	}
}

func TestSingleShot_ModelID(t *testing.T) {
	s := NewSingleShot(execution.NewMockEngine("m"), labels.DefaultVocabulary(), config.New())
	assert.Equal(t, "mock/"+config.DefaultModel, s.ModelID())
}
