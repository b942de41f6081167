// Package triage maps claim amount, risk score and claim history onto a
// severity band and a handling action.
package triage

import (
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/models"
)

var printer = message.NewPrinter(language.English)

// Policy is the deterministic severity and action classifier. It is pure
// and safe for concurrent use.
type Policy struct {
	cfg   config.Triage
	rules []actionRule
}

type actionRule struct {
	name   string
	action models.Action
	match  func(sev models.Severity, risk float64, priors int) bool
}

// NewPolicy builds a classifier from the configured bands and cut-offs.
func NewPolicy(cfg config.Triage) *Policy {
	p := &Policy{cfg: cfg}
	p.rules = []actionRule{
		{"low_and_clean", models.ActionApprove, func(sev models.Severity, risk float64, priors int) bool {
			return sev == models.SeverityLow && risk < cfg.ApproveRiskCeiling && priors < cfg.ApprovePriorCeiling
		}},
		{"critical_or_high_risk", models.ActionEscalate, func(sev models.Severity, risk float64, _ int) bool {
			return sev == models.SeverityCritical || risk >= cfg.EscalateRisk
		}},
		{"elevated_risk_or_history", models.ActionInvestigate, func(_ models.Severity, risk float64, priors int) bool {
			return risk >= cfg.InvestigateRisk || priors >= cfg.InvestigatePriors
		}},
		{"medium_low_risk", models.ActionApprove, func(sev models.Severity, risk float64, _ int) bool {
			return sev == models.SeverityMedium && risk < cfg.InvestigateRisk
		}},
	}
	return p
}

// Severity assigns the band for an amount. Bands are half-open on the right.
func (p *Policy) Severity(amount float64) models.Severity {
	switch {
	case amount < p.cfg.LowBand:
		return models.SeverityLow
	case amount < p.cfg.MediumBand:
		return models.SeverityMedium
	case amount < p.cfg.HighBand:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

// Classify returns the severity band and the action chosen by the first
// matching rule, falling back to investigate.
func (p *Policy) Classify(amount, riskScore float64, priorClaims int) (models.Severity, models.Action) {
	sev := p.Severity(amount)
	return sev, p.action(sev, riskScore, priorClaims)
}

func (p *Policy) action(sev models.Severity, risk float64, priors int) models.Action {
	for _, r := range p.rules {
		if r.match(sev, risk, priors) {
			slog.Debug("Triage rule matched", "rule", r.name, "severity", sev, "action", r.action)
			return r.action
		}
	}
	return models.ActionInvestigate
}

// Rationale renders the explanation attached to rule-based decisions.
func (p *Policy) Rationale(sev models.Severity, amount, riskScore float64, priorClaims int) string {
	return printer.Sprintf("Rule-based decision: Severity=%s based on amount $%.2f. Risk score=%.3f. Prior claims=%d.",
		sev, amount, riskScore, priorClaims)
}
