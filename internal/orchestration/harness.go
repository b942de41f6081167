// Package orchestration runs decision strategies over a batch of labelled
// claims and turns the predictions into a ranked comparison report.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/piyushigoyal/claimtriage/internal/audit"
	"github.com/piyushigoyal/claimtriage/internal/config"
	"github.com/piyushigoyal/claimtriage/internal/metrics"
	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/policy"
	"github.com/piyushigoyal/claimtriage/internal/statistics"
	"github.com/piyushigoyal/claimtriage/internal/strategy"
	"github.com/piyushigoyal/claimtriage/internal/telemetry"
)

// DefaultProgressInterval is how many claims pass between progress events.
const DefaultProgressInterval = 10

// PolicySource resolves the policy a claim was filed under.
type PolicySource interface {
	Lookup(ctx context.Context, id string) (*models.Policy, error)
}

// Harness evaluates strategies against ground truth.
type Harness struct {
	cfg      config.Harness
	parallel bool
	workers  int

	policies PolicySource
	log      *audit.Log
	metrics  *telemetry.Metrics
	interval int

	// Progress tracking
	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventEvaluationStart    EventType = "evaluation_start"
	EventEvaluationComplete EventType = "evaluation_complete"
	EventEvaluationStopped  EventType = "evaluation_stopped"
	EventStrategyStart      EventType = "strategy_start"
	EventStrategyComplete   EventType = "strategy_complete"
	EventClaimComplete      EventType = "claim_complete"
	EventProgress           EventType = "progress"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType   EventType
	Strategy    string
	ClaimID     string
	Completed   int
	TotalClaims int
	Success     bool
	DurationMs  int64
	Details     map[string]any
}

// Option configures a Harness.
type Option func(*Harness)

// WithPolicies sets where claim policies are looked up. Without it every
// strategy sees a nil policy.
func WithPolicies(p PolicySource) Option {
	return func(h *Harness) {
		h.policies = p
	}
}

// WithAuditLog records an evaluation_result entry per strategy.
func WithAuditLog(l *audit.Log) Option {
	return func(h *Harness) {
		h.log = l
	}
}

// WithMetrics publishes per-strategy scores.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(h *Harness) {
		h.metrics = m
	}
}

// WithParallel overrides the configured concurrency. workers <= 0 keeps the
// configured worker count.
func WithParallel(parallel bool, workers int) Option {
	return func(h *Harness) {
		h.parallel = parallel
		if workers > 0 {
			h.workers = workers
		}
	}
}

// WithProgressInterval sets how often EventProgress fires.
func WithProgressInterval(n int) Option {
	return func(h *Harness) {
		if n > 0 {
			h.interval = n
		}
	}
}

// NewHarness creates a harness from the harness configuration.
func NewHarness(cfg config.Harness, opts ...Option) *Harness {
	h := &Harness{
		cfg:       cfg,
		parallel:  cfg.Parallel != nil && *cfg.Parallel,
		workers:   cfg.Workers,
		interval:  DefaultProgressInterval,
		listeners: []ProgressListener{},
	}
	if h.workers < 1 {
		h.workers = config.DefaultWorkers
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// OnProgress registers a progress listener
func (h *Harness) OnProgress(listener ProgressListener) {
	h.progressMu.Lock()
	defer h.progressMu.Unlock()
	h.listeners = append(h.listeners, listener)
}

func (h *Harness) notifyProgress(event ProgressEvent) {
	h.progressMu.Lock()
	listeners := make([]ProgressListener, len(h.listeners))
	copy(listeners, h.listeners)
	h.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Evaluate runs every strategy over every claim, strategies one after the
// other. Every claim must carry ground truth.
//
// A failing or panicking strategy never aborts the batch: the claim is
// scored as a fail-safe prediction. If ctx is cancelled the remaining
// claims are scored the same way, the report is marked Cancelled and the
// context error is returned alongside it.
func (h *Harness) Evaluate(ctx context.Context, strategies []strategy.Strategy, claims []models.Claim) (*models.ComparisonReport, error) {
	if len(strategies) == 0 {
		return nil, errors.New("no strategies to evaluate")
	}
	seen := map[string]bool{}
	for _, s := range strategies {
		if seen[s.Name()] {
			return nil, fmt.Errorf("strategy %q listed twice", s.Name())
		}
		seen[s.Name()] = true
	}
	for _, c := range claims {
		if c.GroundTruth == nil {
			return nil, fmt.Errorf("claim %s has no ground truth labels", c.ID)
		}
	}

	start := time.Now()
	report := &models.ComparisonReport{
		RunID:     uuid.NewString(),
		Timestamp: start.UTC(),
		Claims:    len(claims),
		Results:   make(map[string]models.EvaluationResult, len(strategies)),
	}

	h.notifyProgress(ProgressEvent{
		EventType:   EventEvaluationStart,
		TotalClaims: len(claims),
		Details:     map[string]any{"run_id": report.RunID, "strategies": len(strategies), "parallel": h.parallel, "workers": h.workers},
	})

	for _, s := range strategies {
		res := h.evaluateStrategy(ctx, s, claims)
		report.Results[s.Name()] = res

		if h.log != nil {
			h.log.Append(audit.EvaluationResult(report.RunID, res))
		}
		h.metrics.ObserveResult(res)
	}

	report.Ranking = Rank(report.Results)
	if len(report.Ranking) > 0 {
		report.BestStrategy = report.Ranking[0].Strategy
	}
	report.DurationMs = time.Since(start).Milliseconds()

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
		h.notifyProgress(ProgressEvent{EventType: EventEvaluationStopped, TotalClaims: len(claims), Details: map[string]any{"reason": err.Error()}})
		return report, fmt.Errorf("evaluation stopped early: %w", err)
	}

	h.notifyProgress(ProgressEvent{
		EventType:   EventEvaluationComplete,
		TotalClaims: len(claims),
		DurationMs:  report.DurationMs,
		Details:     map[string]any{"best_strategy": report.BestStrategy},
	})
	return report, nil
}

func (h *Harness) evaluateStrategy(ctx context.Context, s strategy.Strategy, claims []models.Claim) models.EvaluationResult {
	start := time.Now()
	h.notifyProgress(ProgressEvent{EventType: EventStrategyStart, Strategy: s.Name(), TotalClaims: len(claims)})
	slog.Info("Evaluating strategy", "strategy", s.Name(), "claims", len(claims), "parallel", h.parallel)

	var preds []models.Prediction
	if h.parallel && h.workers > 1 {
		preds = h.runConcurrent(ctx, s, claims)
	} else {
		preds = h.runSequential(ctx, s, claims)
	}

	res := Score(s.Name(), preds, h.cfg.Composite, h.cfg.BootstrapSeed)
	res.DurationMs = time.Since(start).Milliseconds()

	h.notifyProgress(ProgressEvent{
		EventType:   EventStrategyComplete,
		Strategy:    s.Name(),
		Completed:   len(preds),
		TotalClaims: len(claims),
		DurationMs:  res.DurationMs,
		Details: map[string]any{
			"severity_accuracy": res.Severity.Accuracy,
			"action_accuracy":   res.Action.Accuracy,
			"overall_score":     res.Composite,
			"failures":          res.Failures,
		},
	})
	return res
}

func (h *Harness) runSequential(ctx context.Context, s strategy.Strategy, claims []models.Claim) []models.Prediction {
	preds := make([]models.Prediction, len(claims))
	for i, c := range claims {
		if err := ctx.Err(); err != nil {
			preds[i] = skipped(s.Name(), c, err)
			continue
		}
		preds[i] = h.runClaim(ctx, s, c)
		h.claimDone(s.Name(), preds[i], i+1, len(claims))
	}
	return preds
}

// runConcurrent fans claims out over a bounded worker pool. Results land in
// the slot matching the claim's index, not in completion order.
func (h *Harness) runConcurrent(ctx context.Context, s strategy.Strategy, claims []models.Claim) []models.Prediction {
	preds := make([]models.Prediction, len(claims))
	var completed atomic.Int64

	var g errgroup.Group
	g.SetLimit(h.workers)
	for i, c := range claims {
		if err := ctx.Err(); err != nil {
			preds[i] = skipped(s.Name(), c, err)
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				preds[i] = skipped(s.Name(), c, err)
				return nil
			}
			preds[i] = h.runClaim(ctx, s, c)
			h.claimDone(s.Name(), preds[i], int(completed.Add(1)), len(claims))
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return preds
}

func (h *Harness) claimDone(name string, p models.Prediction, done, total int) {
	h.notifyProgress(ProgressEvent{
		EventType:   EventClaimComplete,
		Strategy:    name,
		ClaimID:     p.ClaimID,
		Completed:   done,
		TotalClaims: total,
		Success:     p.Success,
		DurationMs:  int64(p.LatencySeconds * 1000),
	})
	if done%h.interval == 0 || done == total {
		h.notifyProgress(ProgressEvent{EventType: EventProgress, Strategy: name, Completed: done, TotalClaims: total})
	}
}

func (h *Harness) runClaim(ctx context.Context, s strategy.Strategy, c models.Claim) models.Prediction {
	pol := h.lookupPolicy(ctx, c)

	start := time.Now()
	d, panicked := invoke(ctx, s, c, pol)
	latency := time.Since(start).Seconds()
	if panicked {
		latency = 0
	}

	return models.Prediction{
		ClaimID:        c.ID,
		TrueSeverity:   c.GroundTruth.Severity,
		TrueAction:     c.GroundTruth.Action,
		PredSeverity:   d.Severity,
		PredAction:     d.Action,
		Rationale:      d.Rationale,
		LatencySeconds: latency,
		Success:        d.Success,
		Cached:         d.Cached,
	}
}

func (h *Harness) lookupPolicy(ctx context.Context, c models.Claim) *models.Policy {
	if h.policies == nil {
		return nil
	}
	p, err := h.policies.Lookup(ctx, c.PolicyID)
	switch {
	case errors.Is(err, policy.ErrNotFound):
		slog.Warn("Policy not found, coverage rule skipped", "claim_id", c.ID, "policy_id", c.PolicyID)
		return nil
	case err != nil:
		slog.Warn("Policy lookup failed", "claim_id", c.ID, "policy_id", c.PolicyID, "error", err)
		return nil
	}
	return p
}

// invoke calls the strategy, turning a panic into a fail-safe decision.
func invoke(ctx context.Context, s strategy.Strategy, c models.Claim, p *models.Policy) (d models.Decision, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Strategy panicked", "strategy", s.Name(), "claim_id", c.ID, "panic", r)
			d = strategy.FailSafe(s.Name(), c.ID, fmt.Errorf("panic: %v", r))
			panicked = true
		}
	}()
	return s.ProcessClaim(ctx, c, p), false
}

func skipped(name string, c models.Claim, err error) models.Prediction {
	d := strategy.FailSafe(name, c.ID, err)
	return models.Prediction{
		ClaimID:      c.ID,
		TrueSeverity: c.GroundTruth.Severity,
		TrueAction:   c.GroundTruth.Action,
		PredSeverity: d.Severity,
		PredAction:   d.Action,
		Rationale:    d.Rationale,
	}
}

// Score computes the metrics for one strategy's predictions.
func Score(name string, preds []models.Prediction, weights config.CompositeWeights, seed int64) models.EvaluationResult {
	n := len(preds)
	trueSev := make([]string, n)
	predSev := make([]string, n)
	trueAct := make([]string, n)
	predAct := make([]string, n)
	latencies := make([]float64, n)
	failures := 0

	for i, p := range preds {
		trueSev[i] = string(p.TrueSeverity)
		predSev[i] = string(p.PredSeverity)
		trueAct[i] = string(p.TrueAction)
		predAct[i] = string(p.PredAction)
		latencies[i] = p.LatencySeconds
		if !p.Success {
			failures++
		}
	}

	res := models.EvaluationResult{
		Strategy:          name,
		Claims:            n,
		Failures:          failures,
		Severity:          metrics.Scores(trueSev, predSev),
		Action:            metrics.Scores(trueAct, predAct),
		SeverityConfusion: metrics.Confusion(trueSev, predSev, metrics.SeverityStrings(models.Severities)),
		ActionConfusion:   metrics.Confusion(trueAct, predAct, metrics.ActionStrings(models.Actions)),
		Predictions:       preds,
	}
	lat := metrics.SummarizeLatencies(latencies)
	res.MeanLatencySeconds = lat.Mean
	res.P95LatencySeconds = lat.P95
	res.Composite = metrics.Composite(res.Severity, res.Action, weights)

	if n >= 2 {
		ci := statistics.BootstrapCIWithSeed(statistics.ExactMatches(preds), 0.95, seed)
		res.ExactMatchCI = &ci
	}
	return res
}

// Rank orders strategies by composite score, highest first. Equal scores
// are ordered by strategy name.
func Rank(results map[string]models.EvaluationResult) []models.RankedStrategy {
	ranking := make([]models.RankedStrategy, 0, len(results))
	for name, r := range results {
		ranking = append(ranking, models.RankedStrategy{Strategy: name, Composite: r.Composite})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Composite != ranking[j].Composite {
			return ranking[i].Composite > ranking[j].Composite
		}
		return ranking[i].Strategy < ranking[j].Strategy
	})
	for i := range ranking {
		ranking[i].Rank = i + 1
	}
	return ranking
}
