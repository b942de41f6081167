package strategy

import (
	"context"
	"log/slog"
	"time"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/risk"
	"github.com/piyushigoyal/claimtriage/internal/triage"
	"github.com/piyushigoyal/claimtriage/internal/utils"
)

// RuleBased scores the claim and runs the triage rule chain. It is
// deterministic and never calls out to a model.
type RuleBased struct {
	scorer *risk.Scorer
	policy *triage.Policy
}

func NewRuleBased(scorer *risk.Scorer, policy *triage.Policy) *RuleBased {
	return &RuleBased{scorer: scorer, policy: policy}
}

func (r *RuleBased) Name() string { return NameRuleBased }

// Deterministic reports that decisions depend only on the inputs.
func (r *RuleBased) Deterministic() bool { return true }

func (r *RuleBased) ProcessClaim(ctx context.Context, claim models.Claim, policy *models.Policy) models.Decision {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return finish(FailSafe(r.Name(), claim.ID, err), start)
	}
	if policy == nil {
		slog.Debug("No policy for claim, skipping coverage rule", "claim_id", claim.ID, "policy_id", claim.PolicyID)
	}

	ra := r.scorer.Score(risk.InputFromClaim(claim, policy))
	sev, action := r.policy.Classify(claim.Amount, ra.Score, claim.PriorClaims)

	d := newDecision(r.Name(), claim.ID)
	d.Severity = sev
	d.Action = action
	d.Rationale = r.policy.Rationale(sev, claim.Amount, ra.Score, claim.PriorClaims)
	d.RiskScore = utils.Ptr(ra.Score)
	d.Risk = &ra
	d.Success = true
	return finish(d, start)
}
