package wizard

import (
	"testing"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOverride() Override {
	return Override{
		ClaimID:  "CLM-00001",
		Severity: models.SeverityHigh,
		Action:   models.ActionInvestigate,
		Reason:   "Adjuster found signs of staged damage.",
		Reviewer: "j.doe",
	}
}

func TestOverride_Complete(t *testing.T) {
	assert.True(t, validOverride().Complete())

	o := validOverride()
	o.Reason = "   "
	assert.False(t, o.Complete())

	o = validOverride()
	o.Severity = ""
	assert.False(t, o.Complete())

	o = validOverride()
	o.Reviewer = ""
	assert.True(t, o.Complete(), "reviewer is optional")
}

func TestOverride_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Override)
		wantErr []string
	}{
		{name: "valid", mutate: func(*Override) {}},
		{name: "missing claim", mutate: func(o *Override) { o.ClaimID = "" }, wantErr: []string{"claim id is required"}},
		{name: "unknown severity", mutate: func(o *Override) { o.Severity = "severe" }, wantErr: []string{`invalid severity "severe"`}},
		{name: "fail-safe severity", mutate: func(o *Override) { o.Severity = models.SeverityUnknown }, wantErr: []string{"invalid severity"}},
		{name: "unknown action", mutate: func(o *Override) { o.Action = "pay" }, wantErr: []string{`invalid action "pay"`}},
		{
			name:    "everything wrong",
			mutate:  func(o *Override) { *o = Override{} },
			wantErr: []string{"claim id is required", "invalid severity", "invalid action", "reason is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOverride()
			tt.mutate(&o)
			err := o.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestOverride_Apply(t *testing.T) {
	score := 0.8
	original := models.Decision{
		ID:        "d-1",
		ClaimID:   "CLM-00001",
		Strategy:  "agent",
		Severity:  models.SeverityLow,
		Action:    models.ActionApprove,
		RiskScore: &score,
		Success:   true,
	}

	d := validOverride().Apply(original)
	assert.NotEmpty(t, d.ID)
	assert.NotEqual(t, original.ID, d.ID)
	assert.Equal(t, StrategyHumanOverride, d.Strategy)
	assert.Equal(t, models.SeverityHigh, d.Severity)
	assert.Equal(t, models.ActionInvestigate, d.Action)
	assert.Equal(t, "Adjuster found signs of staged damage.", d.Rationale)
	assert.Equal(t, &score, d.RiskScore)
	assert.True(t, d.Success)
	assert.False(t, d.Timestamp.IsZero())
}

func TestSelectOptionsFollowVocabulary(t *testing.T) {
	assert.Len(t, severityOptions(), len(models.Severities))
	assert.Len(t, actionOptions(), len(models.Actions))
	assert.Equal(t, "low", severityOptions()[0].Value)
	assert.Equal(t, "escalate", actionOptions()[3].Value)
}
