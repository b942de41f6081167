package generate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/dataset"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var anchor = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func TestGenerate_Deterministic(t *testing.T) {
	opts := Options{Claims: 50, Seed: 42, Now: anchor}
	a, err := Generate(opts)
	require.NoError(t, err)
	b, err := Generate(opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := Generate(Options{Claims: 50, Seed: 7, Now: anchor})
	require.NoError(t, err)
	assert.NotEqual(t, a.Claims, c.Claims)
}

func TestGenerate_ClaimShape(t *testing.T) {
	ds, err := Generate(Options{Claims: 200, Seed: 42, Now: anchor})
	require.NoError(t, err)
	require.Len(t, ds.Claims, 200)
	assert.Equal(t, "CLM-00001", ds.Claims[0].ID)
	assert.Equal(t, "CLM-00200", ds.Claims[199].ID)

	policies := map[string]bool{}
	for _, p := range ds.Policies {
		assert.False(t, policies[p.ID], "duplicate policy %s", p.ID)
		policies[p.ID] = true
		assert.Contains(t, coverageLimits, p.CoverageLimit)
		assert.True(t, p.Active)
	}

	for _, c := range ds.Claims {
		r := amountRanges[c.Type]
		assert.GreaterOrEqual(t, c.Amount, r.min, c.ID)
		assert.LessOrEqual(t, c.Amount, r.max, c.ID)
		assert.True(t, c.ReportDate.After(c.IncidentDate), c.ID)
		assert.True(t, policies[c.PolicyID], "claim %s references unknown policy", c.ID)
		assert.GreaterOrEqual(t, c.ClaimantAge, 18)
		assert.LessOrEqual(t, c.ClaimantAge, 85)
		assert.LessOrEqual(t, c.PriorClaims, 5)
		assert.Contains(t, c.Narrative, "$")

		require.NotNil(t, c.GroundTruth)
		assert.Equal(t, GroundTruthSeverity(c.Amount), c.GroundTruth.Severity)
	}
}

func TestGenerate_Defaults(t *testing.T) {
	ds, err := Generate(Options{Seed: 1, Now: anchor})
	require.NoError(t, err)
	assert.Len(t, ds.Claims, DefaultClaims)

	_, err = Generate(Options{Claims: -1})
	assert.Error(t, err)
}

func TestGroundTruthSeverity(t *testing.T) {
	tests := []struct {
		amount float64
		want   models.Severity
	}{
		{0, models.SeverityLow},
		{4999.99, models.SeverityLow},
		{5000, models.SeverityMedium},
		{24999, models.SeverityMedium},
		{25000, models.SeverityHigh},
		{74999.99, models.SeverityHigh},
		{75000, models.SeverityCritical},
		{1e6, models.SeverityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GroundTruthSeverity(tt.amount), "amount %v", tt.amount)
	}
}

func TestGroundTruthAction(t *testing.T) {
	tests := []struct {
		name   string
		sev    models.Severity
		priors int
		tenure float64
		want   models.Action
	}{
		{"low clean", models.SeverityLow, 1, 0, models.ActionApprove},
		{"low repeat", models.SeverityLow, 2, 5, models.ActionInvestigate},
		{"medium loyal", models.SeverityMedium, 2, 2, models.ActionApprove},
		{"medium new", models.SeverityMedium, 0, 1, models.ActionInvestigate},
		{"high", models.SeverityHigh, 0, 10, models.ActionInvestigate},
		{"critical clean", models.SeverityCritical, 0, 10, models.ActionEscalate},
		{"critical repeat", models.SeverityCritical, 4, 10, models.ActionInvestigate},
		{"medium many priors", models.SeverityMedium, 3, 10, models.ActionInvestigate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GroundTruthAction(tt.sev, tt.priors, tt.tenure))
		})
	}
}

func TestWrite_RoundTrips(t *testing.T) {
	opts := Options{Claims: 25, Seed: 3, Now: anchor}
	ds, err := Generate(opts)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, Write(ds, opts, dir))

	claims, invalid, err := dataset.LoadClaims(filepath.Join(dir, ClaimsFile))
	require.NoError(t, err)
	assert.Empty(t, invalid)
	require.Len(t, claims, 25)
	assert.Equal(t, ds.Claims[0].ID, claims[0].ID)
	assert.InDelta(t, ds.Claims[0].Amount, claims[0].Amount, 0.001)
	assert.Equal(t, ds.Claims[0].GroundTruth, claims[0].GroundTruth)

	policies, invalid, err := dataset.LoadPolicies(filepath.Join(dir, PoliciesFile))
	require.NoError(t, err)
	assert.Empty(t, invalid)
	assert.Len(t, policies, len(ds.Policies))

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var m Manifest
	require.NoError(t, yaml.Unmarshal(raw, &m))
	assert.Equal(t, int64(3), m.Seed)
	assert.Equal(t, 25, m.Claims)
	assert.Equal(t, "2025-03-01", m.GeneratedAt)

	total := 0
	for _, n := range m.Severities {
		total += n
	}
	assert.Equal(t, 25, total)
}
