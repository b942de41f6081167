package main

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/reporting"
	"github.com/piyushigoyal/claimtriage/internal/strategy"
)

func TestEvaluate_AllStrategiesWithMockEngine(t *testing.T) {
	ws := newWorkspace(t, 12)
	report := filepath.Join(ws.dir, "out", "report.json")
	junit := filepath.Join(ws.dir, "junit.xml")
	metrics := filepath.Join(ws.dir, "metrics.prom")
	traces := filepath.Join(ws.dir, "traces.json")

	out, err := runCLI(t, ws.args("evaluate", ws.claims,
		"--policies", ws.policies,
		"--audit-log", ws.auditLog,
		"--output", report,
		"--junit", junit,
		"--metrics-file", metrics,
		"--trace-file", traces,
		"--interpret",
	)...)
	require.NoError(t, err)
	assert.Contains(t, out, "STRATEGY COMPARISON")
	assert.Contains(t, out, "=== Interpretation ===")

	saved, err := reporting.LoadReport(report)
	require.NoError(t, err)
	assert.Equal(t, 12, saved.Claims)
	assert.Len(t, saved.Results, 3)
	assert.Len(t, saved.Ranking, 3)
	for _, name := range allStrategies {
		res, ok := saved.Results[name]
		require.True(t, ok, name)
		assert.Len(t, res.Predictions, 12)
		assert.Zero(t, res.Failures, name)
	}

	raw, err := os.ReadFile(junit)
	require.NoError(t, err)
	var suites reporting.JUnitTestSuites
	require.NoError(t, xml.Unmarshal(raw, &suites))
	assert.Equal(t, 36, suites.Tests)

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "claimtriage_decisions_total")

	res := audit.Verify(ws.auditLog)
	assert.True(t, res.Valid, res.Error)

	entries, err := audit.ReadFile(ws.auditLog)
	require.NoError(t, err)
	log := audit.Replay(entries)
	assert.Len(t, log.Query(audit.Filter{Type: audit.EntryEvaluationResult}), 3)
	assert.Equal(t, 36, log.Summary().TotalClaimsProcessed)
}

func TestEvaluate_JSONFormatAndClaimFilter(t *testing.T) {
	ws := newWorkspace(t, 20)
	out, err := runCLI(t, ws.args("evaluate", ws.claims,
		"--strategy", strategy.NameRuleBased,
		"--claim", "CLM-0000?",
		"--format", "json",
		"--audit-log", ws.auditLog,
	)...)
	require.NoError(t, err)

	path := filepath.Join(ws.dir, "stdout.json")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o644))
	report, err := reporting.LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, 9, report.Claims)
	assert.Equal(t, strategy.NameRuleBased, report.BestStrategy)
}

func TestEvaluate_QualityGate(t *testing.T) {
	ws := newWorkspace(t, 10)
	_, err := runCLI(t, ws.args("evaluate", ws.claims,
		"--strategy", strategy.NameSingleShot,
		"--min-score", "0.99",
		"--format", "markdown",
		"--audit-log", ws.auditLog,
	)...)
	require.Error(t, err)

	var gate *QualityGateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, strategy.NameSingleShot, gate.Strategy)
	assert.Equal(t, ExitGateFailed, exitCode(err))
}

func TestEvaluate_Errors(t *testing.T) {
	ws := newWorkspace(t, 3)

	unlabelled := filepath.Join(ws.dir, "unlabelled.csv")
	raw, err := os.ReadFile(ws.claims)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	// drop the two ground-truth columns from every row
	for i, l := range lines {
		cols := strings.Split(l, ",")
		lines[i] = strings.Join(cols[:len(cols)-2], ",")
	}
	require.NoError(t, os.WriteFile(unlabelled, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "bad format", args: []string{"evaluate", ws.claims, "--format", "pdf"}, wantErr: "unsupported format"},
		{name: "bad min score", args: []string{"evaluate", ws.claims, "--min-score", "2"}, wantErr: "--min-score"},
		{name: "missing claims", args: []string{"evaluate", filepath.Join(ws.dir, "nope.csv")}, wantErr: "loading claims"},
		{name: "unknown strategy", args: []string{"evaluate", ws.claims, "--strategy", "oracle", "--audit-log", ws.auditLog}, wantErr: `unknown strategy "oracle"`},
		{name: "no matching claims", args: []string{"evaluate", ws.claims, "--claim", "nothing"}, wantErr: "no claims match"},
		{name: "no ground truth", args: []string{"evaluate", unlabelled, "--strategy", "rule_based", "--audit-log", ws.auditLog}, wantErr: "no ground truth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, ws.args(tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, ExitError, exitCode(err))
		})
	}
}
