package execution

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// LimitedEngine bounds an Engine with a shared request rate and a
// per-request timeout.
type LimitedEngine struct {
	inner   Engine
	limiter *rate.Limiter
	timeout time.Duration
}

// WithLimits wraps e. A non-positive rps disables rate limiting and a
// non-positive timeout disables the per-request deadline.
func WithLimits(e Engine, rps float64, burst int, timeout time.Duration) *LimitedEngine {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &LimitedEngine{inner: e, limiter: rate.NewLimiter(limit, burst), timeout: timeout}
}

func (l *LimitedEngine) Name() string { return l.inner.Name() }

func (l *LimitedEngine) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return l.inner.Chat(ctx, req)
}

func (l *LimitedEngine) Shutdown(ctx context.Context) error {
	return l.inner.Shutdown(ctx)
}

// Unwrap returns the wrapped engine.
func (l *LimitedEngine) Unwrap() Engine { return l.inner }
