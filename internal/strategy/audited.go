package strategy

import (
	"context"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/utils"
)

// WithAudit records claim_received before and claim_processed (or
// claim_error plus an error entry) after every decision of s.
func WithAudit(s Strategy, log *audit.Log) Strategy {
	if log == nil {
		return s
	}
	return &audited{inner: s, log: log}
}

type audited struct {
	inner Strategy
	log   *audit.Log
}

func (a *audited) Name() string { return a.inner.Name() }

func (a *audited) Unwrap() Strategy { return a.inner }

func (a *audited) ProcessClaim(ctx context.Context, claim models.Claim, policy *models.Policy) models.Decision {
	a.log.Append(audit.AgentStep(claim.ID, audit.StepClaimReceived, map[string]any{
		"strategy":     a.inner.Name(),
		"policy_id":    claim.PolicyID,
		"claim_type":   string(claim.Type),
		"claim_amount": claim.Amount,
	}))

	d := a.inner.ProcessClaim(ctx, claim, policy)
	utils.DecisionToSlog(ctx, d)

	if d.Success {
		a.log.Append(audit.ClaimProcessed(d))
		return d
	}

	a.log.Append(audit.AgentStep(claim.ID, audit.StepClaimError, map[string]any{
		"strategy": d.Strategy,
		"error":    d.Rationale,
	}))
	a.log.Append(audit.Error(claim.ID, d.Rationale, map[string]any{
		"strategy":    d.Strategy,
		"decision_id": d.ID,
	}))
	return d
}
