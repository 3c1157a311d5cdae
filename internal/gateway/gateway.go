// Package gateway provides the shared rate-limited entry point for every
// outbound provider call. All fetchers, regardless of asset, go through a
// single token bucket so the process as a whole respects provider limits.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// defaultRetryAfter is used when a throttling provider sends no Retry-After.
const defaultRetryAfter = 60 * time.Second

// maxThrottleRetries bounds how many 429 responses a single Execute call
// will absorb before surfacing domain.ErrRateLimited.
const maxThrottleRetries = 3

// RateLimitedError is returned by provider clients when the provider
// signals throttling (HTTP 429). RetryAfter is zero when the provider sent
// no hint. It unwraps to domain.ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider rate limited, retry after %s", e.RetryAfter)
	}
	return "provider rate limited"
}

func (e *RateLimitedError) Unwrap() error { return domain.ErrRateLimited }

// Config holds the token-bucket parameters.
type Config struct {
	MaxTokens    int     // bucket capacity
	RefillPerSec float64 // tokens added per second
}

// Gateway is the process-wide token bucket. Tokens refill lazily from
// elapsed wall-clock time on each acquisition attempt. One instance is
// shared by every fetcher; mutate it only through Acquire/Execute.
type Gateway struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// New creates a Gateway with a full bucket.
func New(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.MaxTokens < 1 {
		cfg.MaxTokens = 1
	}
	if cfg.RefillPerSec <= 0 {
		cfg.RefillPerSec = 1
	}
	return &Gateway{
		tokens:     float64(cfg.MaxTokens),
		maxTokens:  float64(cfg.MaxTokens),
		refillRate: cfg.RefillPerSec,
		lastRefill: time.Now(),
		now:        time.Now,
		sleep:      sleepCtx,
		logger:     logger.With(slog.String("component", "gateway")),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// refillLocked adds tokens for the wall-clock time elapsed since the last
// refill, capped at the bucket size. Caller holds g.mu.
func (g *Gateway) refillLocked(now time.Time) {
	elapsed := now.Sub(g.lastRefill).Seconds()
	if elapsed > 0 {
		g.tokens = min(g.maxTokens, g.tokens+elapsed*g.refillRate)
	}
	g.lastRefill = now
}

// Acquire blocks until one token is available, then consumes it. When the
// bucket is empty it sleeps exactly the deficit converted to wait time and
// rechecks; under contention each failed recheck sleeps again, so the wait
// never busy-spins.
func (g *Gateway) Acquire(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := g.now()
		g.refillLocked(now)
		if g.tokens >= 1 {
			g.tokens--
			g.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - g.tokens) / g.refillRate * float64(time.Second))
		g.mu.Unlock()

		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Execute acquires a token and invokes fn. When fn reports provider
// throttling it sleeps for the provider-specified duration (default 60s)
// and retries, at most maxThrottleRetries times, re-acquiring a token for
// every attempt. All other errors propagate unchanged.
func (g *Gateway) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		if err := g.Acquire(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var rle *RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt >= maxThrottleRetries {
			return fmt.Errorf("gateway: %d throttled attempts exhausted: %w", attempt+1, domain.ErrRateLimited)
		}

		backoff := rle.RetryAfter
		if backoff <= 0 {
			backoff = defaultRetryAfter
		}
		g.logger.WarnContext(ctx, "provider throttled, backing off",
			slog.Duration("retry_after", backoff),
			slog.Int("attempt", attempt+1),
		)
		if err := g.sleep(ctx, backoff); err != nil {
			return err
		}
	}
}
