package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMemoryCacheStub()
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, 0, zap.NewNop(), true)

	var dest map[string]int
	assert.False(t, cache.Get(context.Background(), "k", &dest))

	cache.Set(context.Background(), "k", map[string]int{"a": 1}, 0)
	require.True(t, cache.Get(context.Background(), "k", &dest))
	assert.Equal(t, 1, dest["a"])

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses))

	cache.Delete(context.Background(), "k")
	assert.False(t, repo.has("k"))
}

func TestCacheServiceInvalidatePattern(t *testing.T) {
	repo := newMemoryCacheStub()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	cache.Set(context.Background(), DegreeStatusKey("s-1"), 1, 0)
	cache.Set(context.Background(), DegreeStatusKey("s-2"), 2, 0)
	cache.Set(context.Background(), "other", 3, 0)

	cache.Invalidate(context.Background(), DegreeStatusKey("*"))
	assert.False(t, repo.has(DegreeStatusKey("s-1")))
	assert.False(t, repo.has(DegreeStatusKey("s-2")))
	assert.True(t, repo.has("other"))
}

func TestCacheServiceDisabledAndFailing(t *testing.T) {
	repo := newMemoryCacheStub()
	disabled := NewCacheService(repo, nil, time.Minute, nil, false)
	disabled.Set(context.Background(), "k", 1, 0)
	assert.False(t, repo.has("k"))
	assert.False(t, disabled.Enabled())

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	assert.False(t, nilCache.Get(context.Background(), "k", new(int)))

	repo.err = errors.New("redis down")
	failing := NewCacheService(repo, nil, time.Minute, nil, true)
	var dest int
	assert.False(t, failing.Get(context.Background(), "k", &dest))
	failing.Set(context.Background(), "k", 1, 0)
}
