// Package risk computes additive, rule-based risk scores for claims.
package risk

import (
	"fmt"
	"math"
	"strings"

	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Factor names, in the order the rules are evaluated.
const (
	FactorHighAmount   = "high_claim_amount"
	FactorPriorClaims  = "multiple_prior_claims"
	FactorNewPolicy    = "new_policy"
	FactorLateReport   = "late_reporting"
	FactorNearCoverage = "claim_near_coverage_limit"
	FactorAge          = "age_risk_factor"
	FactorLocation     = "high_risk_location"
)

// Input is everything the scorer looks at. Optional fields are pointers and
// a nil value skips the corresponding rule.
type Input struct {
	Amount               float64
	PriorClaims          int
	PolicyTenureYears    float64
	IncidentToReportDays int
	CoverageLimit        *float64
	ClaimantAge          *int
	Location             *string
}

// InputFromClaim builds an Input from a claim and its (optional) policy.
func InputFromClaim(c models.Claim, p *models.Policy) Input {
	in := Input{
		Amount:               c.Amount,
		PriorClaims:          c.PriorClaims,
		PolicyTenureYears:    c.PolicyTenureYears,
		IncidentToReportDays: c.IncidentToReportDays(),
	}
	if p != nil && p.CoverageLimit > 0 {
		limit := p.CoverageLimit
		in.CoverageLimit = &limit
	}
	if c.HasAge() {
		age := c.ClaimantAge
		in.ClaimantAge = &age
	}
	if c.Location != "" {
		loc := c.Location
		in.Location = &loc
	}
	return in
}

// Scorer applies the weighted rules from a config.Risk. It holds no mutable
// state and is safe for concurrent use.
type Scorer struct {
	cfg       config.Risk
	locations map[string]struct{}
}

// NewScorer creates a scorer for the given configuration.
func NewScorer(cfg config.Risk) *Scorer {
	locations := make(map[string]struct{}, len(cfg.HighRiskLocations))
	for _, l := range cfg.HighRiskLocations {
		locations[l] = struct{}{}
	}
	return &Scorer{cfg: cfg, locations: locations}
}

type rule struct {
	factor string
	weight float64
	match  func(Input) bool
}

func (s *Scorer) rules() []rule {
	c := s.cfg
	return []rule{
		{FactorHighAmount, c.Weights.HighAmount, func(in Input) bool { return in.Amount > c.HighAmount }},
		{FactorPriorClaims, c.Weights.PriorClaims, func(in Input) bool { return in.PriorClaims >= c.PriorClaimsCutoff }},
		{FactorNewPolicy, c.Weights.NewPolicy, func(in Input) bool { return in.PolicyTenureYears < c.NewPolicyYears }},
		{FactorLateReport, c.Weights.LateReport, func(in Input) bool { return in.IncidentToReportDays > c.LateReportDays }},
		{FactorNearCoverage, c.Weights.NearCoverage, func(in Input) bool {
			// inclusive: a claim for exactly ratio × limit counts as near the limit
			return in.CoverageLimit != nil && in.Amount >= c.CoverageRatio*(*in.CoverageLimit)
		}},
		{FactorAge, c.Weights.Age, func(in Input) bool {
			return in.ClaimantAge != nil && (*in.ClaimantAge < c.YoungAge || *in.ClaimantAge > c.OldAge)
		}},
		{FactorLocation, c.Weights.Location, func(in Input) bool {
			if in.Location == nil {
				return false
			}
			_, ok := s.locations[*in.Location]
			return ok
		}},
	}
}

// Score evaluates every rule in order, caps the sum at 1.0 and rounds to
// three decimals.
func (s *Scorer) Score(in Input) models.RiskAssessment {
	score := 0.0
	factors := []string{}

	for _, r := range s.rules() {
		if r.match(in) {
			score += r.weight
			factors = append(factors, r.factor)
		}
	}

	score = math.Round(math.Min(score, 1.0)*1000) / 1000
	tier := s.Tier(score)

	return models.RiskAssessment{
		Score:       score,
		Tier:        tier,
		Factors:     factors,
		Explanation: explain(tier, factors),
	}
}

// Tier maps a score onto low, medium or high.
func (s *Scorer) Tier(score float64) models.RiskTier {
	switch {
	case score >= s.cfg.HighThreshold:
		return models.RiskHigh
	case score >= s.cfg.MediumThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func explain(tier models.RiskTier, factors []string) string {
	if len(factors) == 0 {
		return fmt.Sprintf("Risk level is %s. No significant risk factors identified.", tier)
	}
	return fmt.Sprintf("Risk level is %s. Contributing factors: %s.", tier, strings.Join(factors, ", "))
}
