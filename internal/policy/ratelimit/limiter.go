// Package ratelimit throttles archive fetches with a token bucket per bucket.
package ratelimit

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/ccnews-ingest/internal/metrics"
	"github.com/JakeFAU/ccnews-ingest/internal/storage"
)

// Limiter holds one token bucket per storage bucket. A single Limiter is
// shared by every month worker so the process as a whole stays under the
// configured rate.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// Config holds limiter settings. RPS <= 0 disables throttling.
type Config struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// Enabled reports whether the config actually limits anything.
func (c Config) Enabled() bool {
	return c.RPS > 0
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      r,
		burst:    burst,
	}
}

// Wait blocks until a token is available for bucket or ctx is done.
func (l *Limiter) Wait(ctx context.Context, bucket string) error {
	l.mu.Lock()
	limiter, ok := l.limiters[bucket]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[bucket] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if d := time.Since(start); d > time.Millisecond {
		metrics.ObserveFetchThrottle(bucket, d)
	}
	return nil
}

// Wrap returns a Provider whose reads wait on l. Writes pass straight through.
func (l *Limiter) Wrap(p storage.Provider) storage.Provider {
	return &throttled{next: p, limiter: l}
}

type throttled struct {
	next    storage.Provider
	limiter *Limiter
}

func (t *throttled) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := t.limiter.Wait(ctx, bucket); err != nil {
		return nil, err
	}
	return t.next.Get(ctx, bucket, key) //nolint:wrapcheck
}

func (t *throttled) Put(ctx context.Context, bucket, key string, data []byte) error {
	return t.next.Put(ctx, bucket, key, data) //nolint:wrapcheck
}
