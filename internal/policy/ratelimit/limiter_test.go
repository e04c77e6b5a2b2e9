package ratelimit

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ccnews-ingest/internal/metrics"
	"github.com/JakeFAU/ccnews-ingest/internal/storage"
)

func TestLimiter_Wait(t *testing.T) {
	metrics.Init()
	// 10 RPS with burst 1 means one token every 100ms.
	l := New(Config{RPS: 10, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "commoncrawl"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "commoncrawl"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestLimiter_BucketsAreIndependent(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "a"))

	start := time.Now()
	require.NoError(t, l.Wait(ctx, "b"))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "bucket b blocked by a")
}

func TestLimiter_WaitCanceled(t *testing.T) {
	l := New(Config{RPS: 0.01, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait")
}

func TestLimiter_DisabledNeverBlocks(t *testing.T) {
	cfg := Config{}
	assert.False(t, cfg.Enabled())
	l := New(cfg)
	ctx := context.Background()
	for range 100 {
		require.NoError(t, l.Wait(ctx, "a"))
	}
}

func TestWrap(t *testing.T) {
	next := new(storage.MockProvider)
	next.On("Get", mock.Anything, "commoncrawl", "crawl-data/x.warc.gz").
		Return(io.NopCloser(strings.NewReader("body")), nil)
	next.On("Put", mock.Anything, "out", "k", []byte("v")).Return(nil)

	p := New(Config{RPS: 100, Burst: 5}).Wrap(next)

	rc, err := p.Get(context.Background(), "commoncrawl", "crawl-data/x.warc.gz")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "body", string(body))

	require.NoError(t, p.Put(context.Background(), "out", "k", []byte("v")))
	next.AssertExpectations(t)
}

func TestWrap_CanceledSkipsFetch(t *testing.T) {
	next := new(storage.MockProvider)
	l := New(Config{RPS: 0.01, Burst: 1})
	require.NoError(t, l.Wait(context.Background(), "commoncrawl"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Wrap(next).Get(ctx, "commoncrawl", "k")
	require.Error(t, err)
	next.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}
