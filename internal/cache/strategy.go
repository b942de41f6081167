package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/piyushigoyal/claimtriage/internal/models"
	"github.com/piyushigoyal/claimtriage/internal/strategy"
)

// Strategy serves decisions from a Cache before falling back to the
// wrapped strategy. Only successful decisions are stored.
type Strategy struct {
	inner strategy.Strategy
	cache *Cache
	model string
}

// Wrap returns s unchanged when the cache is disabled or s is
// deterministic, and a caching Strategy otherwise.
func Wrap(s strategy.Strategy, c *Cache) strategy.Strategy {
	if c == nil || c.dir == "" || strategy.IsDeterministic(s) {
		return s
	}
	return &Strategy{inner: s, cache: c, model: strategy.ModelID(s)}
}

func (s *Strategy) Name() string { return s.inner.Name() }

// Unwrap returns the cached strategy.
func (s *Strategy) Unwrap() strategy.Strategy { return s.inner }

func (s *Strategy) ProcessClaim(ctx context.Context, claim models.Claim, policy *models.Policy) models.Decision {
	start := time.Now()

	key, err := Key(s.inner.Name(), s.model, claim, policy)
	if err != nil {
		slog.Warn("Cannot compute cache key, bypassing cache", "claim_id", claim.ID, "error", err)
		return s.inner.ProcessClaim(ctx, claim, policy)
	}

	if hit, ok := s.cache.Get(key); ok {
		slog.Debug("Decision cache hit", "strategy", s.inner.Name(), "claim_id", claim.ID)
		d := *hit
		d.ID = uuid.NewString()
		d.Timestamp = time.Now().UTC()
		d.DurationMs = time.Since(start).Milliseconds()
		d.Cached = true
		return d
	}

	d := s.inner.ProcessClaim(ctx, claim, policy)
	if d.Success {
		if err := s.cache.Put(key, &d); err != nil {
			slog.Warn("Failed to cache decision", "claim_id", claim.ID, "error", err)
		}
	}
	return d
}
