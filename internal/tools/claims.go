package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/policy"
	"github.com/piyushigoyal/claimtriage/internal/risk"
	"github.com/piyushigoyal/claimtriage/schemas"
)

// PolicyLookuper resolves policy IDs. *policy.Directory satisfies it.
type PolicyLookuper interface {
	Lookup(ctx context.Context, id string) (*models.Policy, error)
}

// NewRegistry builds the claim-processing tool set.
func NewRegistry(policies PolicyLookuper, scorer *risk.Scorer, log *audit.Log) (*Registry, error) {
	r := newRegistry(log)
	c := &claimTools{policies: policies, scorer: scorer, log: log}

	if err := r.register(PolicyLookup,
		"Look up policy information by policy ID (for example 'POL-1234'). Returns coverage limit, deductible, tenure start and claims history.",
		schemas.PolicyLookupSchemaJSON, c.policyLookup); err != nil {
		return nil, err
	}
	if err := r.register(RiskScoring,
		"Calculate the fraud/risk score for a claim. Returns risk_score (0-1), risk_level and the contributing risk_factors.",
		schemas.RiskScoringSchemaJSON, c.riskScoring); err != nil {
		return nil, err
	}
	if err := r.register(TriageLogger,
		"Record the final triage decision for a claim (severity low/medium/high/critical, action approve/investigate/deny/escalate, rationale). Call this once, after deciding.",
		schemas.TriageLoggerSchemaJSON, c.triageLogger); err != nil {
		return nil, err
	}
	return r, nil
}

type claimTools struct {
	policies PolicyLookuper
	scorer   *risk.Scorer
	log      *audit.Log
}

type policyLookupArgs struct {
	PolicyID string `json:"policy_id"`
}

func (c *claimTools) policyLookup(ctx context.Context, _ string, args map[string]any) (map[string]any, error) {
	var in policyLookupArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if c.policies == nil {
		return nil, errors.New("policy database not available")
	}

	p, err := c.policies.Lookup(ctx, in.PolicyID)
	if errors.Is(err, policy.ErrNotFound) {
		return nil, fmt.Errorf("policy %s not found", in.PolicyID)
	}
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"policy_id":            p.ID,
		"policy_type":          p.Type,
		"coverage_limit":       p.CoverageLimit,
		"deductible":           p.Deductible,
		"customer_name":        p.CustomerName,
		"claims_history_count": p.ClaimsHistoryCount,
		"is_active":            p.Active,
	}
	if !p.StartDate.IsZero() {
		out["policy_start_date"] = p.StartDate.Format(models.DateLayout)
	}
	return out, nil
}

type riskScoringArgs struct {
	ClaimAmount          float64  `json:"claim_amount"`
	PriorClaims          int      `json:"prior_claims"`
	PolicyTenureYears    float64  `json:"policy_tenure_years"`
	IncidentToReportDays int      `json:"incident_to_report_days"`
	CoverageLimit        *float64 `json:"coverage_limit"`
	ClaimantAge          *int     `json:"claimant_age"`
	Location             *string  `json:"location"`
}

func (c *claimTools) riskScoring(_ context.Context, _ string, args map[string]any) (map[string]any, error) {
	var in riskScoringArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}

	ra := c.scorer.Score(risk.Input{
		Amount:               in.ClaimAmount,
		PriorClaims:          in.PriorClaims,
		PolicyTenureYears:    in.PolicyTenureYears,
		IncidentToReportDays: in.IncidentToReportDays,
		CoverageLimit:        in.CoverageLimit,
		ClaimantAge:          in.ClaimantAge,
		Location:             in.Location,
	})

	factors := ra.Factors
	if factors == nil {
		factors = []string{}
	}
	return map[string]any{
		"risk_score":   ra.Score,
		"risk_level":   string(ra.Tier),
		"risk_factors": factors,
		"explanation":  ra.Explanation,
	}, nil
}

type triageLoggerArgs struct {
	ClaimID    string         `json:"claim_id"`
	Severity   string         `json:"severity"`
	Action     string         `json:"action"`
	Rationale  string         `json:"rationale"`
	RiskScore  *float64       `json:"risk_score"`
	PolicyInfo map[string]any `json:"policy_info"`
}

func (c *claimTools) triageLogger(_ context.Context, claimID string, args map[string]any) (map[string]any, error) {
	var in triageLoggerArgs
	if err := decode(args, &in); err != nil {
		return nil, err
	}
	if claimID != "" && in.ClaimID != claimID {
		return nil, fmt.Errorf("claim_id %q does not match the claim being processed (%s)", in.ClaimID, claimID)
	}

	if c.log != nil {
		details := map[string]any{
			"severity":  in.Severity,
			"action":    in.Action,
			"rationale": in.Rationale,
		}
		if in.RiskScore != nil {
			details["risk_score"] = *in.RiskScore
		}
		if id, ok := in.PolicyInfo["policy_id"]; ok {
			details["policy_id"] = id
		}
		c.log.Append(audit.AgentStep(in.ClaimID, audit.StepTriageLogged, details))
	}

	return map[string]any{
		"status":  "logged",
		"message": fmt.Sprintf("Decision for claim %s logged successfully", in.ClaimID),
	}, nil
}
