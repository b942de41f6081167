package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLimits_Timeout(t *testing.T) {
	inner := NewMockEngine("mock", MockTurn{Content: "slow", Delay: time.Hour})
	e := WithLimits(inner, 0, 0, 20*time.Millisecond)

	_, err := e.Chat(context.Background(), &ChatRequest{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "mock", e.Name())
	assert.Same(t, inner, e.Unwrap())
}

func TestWithLimits_RateLimits(t *testing.T) {
	e := WithLimits(NewMockEngine("mock"), 20, 1, 0)

	start := time.Now()
	for range 3 {
		_, err := e.Chat(context.Background(), &ChatRequest{})
		require.NoError(t, err)
	}
	// burst of 1 at 20/s: the 2nd and 3rd calls wait ~50ms each.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWithLimits_CanceledWhileWaiting(t *testing.T) {
	e := WithLimits(NewMockEngine("mock"), 0.001, 1, 0)
	_, err := e.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err, "first request uses the burst token")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Chat(ctx, &ChatRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}
