// Package strategy holds the interchangeable decision strategies that turn
// a claim into a triage decision: a deterministic rule chain, a single
// model prompt, and a tool-calling agent.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

// Strategy names.
const (
	NameRuleBased  = "rule_based"
	NameSingleShot = "single_shot"
	NameAgent      = "agent"
)

// ErrIterationLimit is the failure recorded when the agent runs out of
// turns before producing a final answer.
var ErrIterationLimit = errors.New("agent iteration limit reached")

// Strategy turns a claim into a decision. ProcessClaim never returns an
// error: failures come back as a fail-safe decision with Success false.
// policy is nil when the claim's policy could not be found.
type Strategy interface {
	Name() string
	ProcessClaim(ctx context.Context, claim models.Claim, policy *models.Policy) models.Decision
}

// FailSafe is the decision recorded when a strategy cannot decide: unknown
// severity, escalate to a human, and the error as rationale.
func FailSafe(strategy string, claimID string, err error) models.Decision {
	d := newDecision(strategy, claimID)
	d.Severity = models.SeverityUnknown
	d.Action = models.ActionEscalate
	d.Rationale = fmt.Sprintf("Error processing claim: %v", err)
	d.Success = false
	return d
}

func newDecision(strategy, claimID string) models.Decision {
	return models.Decision{
		ID:        uuid.NewString(),
		ClaimID:   claimID,
		Strategy:  strategy,
		Timestamp: time.Now().UTC(),
	}
}

func finish(d models.Decision, start time.Time) models.Decision {
	d.DurationMs = time.Since(start).Milliseconds()
	return d
}

// Guard wraps s so that a panic inside ProcessClaim becomes a fail-safe
// decision instead of crashing the caller.
func Guard(s Strategy) Strategy {
	return &guarded{inner: s}
}

type guarded struct {
	inner Strategy
}

func (g *guarded) Name() string { return g.inner.Name() }

func (g *guarded) ProcessClaim(ctx context.Context, claim models.Claim, policy *models.Policy) (d models.Decision) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Strategy panicked", "strategy", g.inner.Name(), "claim_id", claim.ID, "panic", r, "stack", string(debug.Stack()))
			d = finish(FailSafe(g.inner.Name(), claim.ID, fmt.Errorf("panic: %v", r)), start)
		}
	}()
	return g.inner.ProcessClaim(ctx, claim, policy)
}

// Unwrap returns the guarded strategy.
func (g *guarded) Unwrap() Strategy { return g.inner }

type unwrapper interface {
	Unwrap() Strategy
}

// IsDeterministic reports whether s, or a strategy it wraps, declares that
// its decisions depend only on the claim and policy.
func IsDeterministic(s Strategy) bool {
	for s != nil {
		if d, ok := s.(interface{ Deterministic() bool }); ok {
			return d.Deterministic()
		}
		u, ok := s.(unwrapper)
		if !ok {
			return false
		}
		s = u.Unwrap()
	}
	return false
}

// ModelID returns the engine/model identifier of s or a strategy it wraps,
// or "" for strategies that do not call a model.
func ModelID(s Strategy) string {
	for s != nil {
		if m, ok := s.(interface{ ModelID() string }); ok {
			return m.ModelID()
		}
		u, ok := s.(unwrapper)
		if !ok {
			return ""
		}
		s = u.Unwrap()
	}
	return ""
}
