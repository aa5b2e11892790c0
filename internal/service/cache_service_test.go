package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gym-registration-api/internal/models"
	"github.com/noah-isme/gym-registration-api/internal/repository"
)

func newRedisCacheService(t *testing.T) (*CacheService, *miniredis.Miniredis, *MetricsService) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	metrics := NewMetricsService()
	return NewCacheService(repository.NewCacheRepository(client, nil), metrics, time.Minute, nil, true), srv, metrics
}

func TestCacheServiceRoundTrip(t *testing.T) {
	svc, srv, metrics := newRedisCacheService(t)
	ctx := context.Background()
	key := registrationCacheKey(3)

	var detail models.RegistrationDetail
	hit, err := svc.Get(ctx, key, &detail)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, key, models.RegistrationDetail{ID: 3, Price: 300}, 0))
	assert.Equal(t, time.Minute, srv.TTL(key))

	hit, err = svc.Get(ctx, key, &detail)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(300), detail.Price)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))

	require.NoError(t, svc.Delete(ctx, key))
	assert.False(t, srv.Exists(key))
}

func TestCacheServiceInvalidatePattern(t *testing.T) {
	svc, srv, _ := newRedisCacheService(t)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, registrationCacheKey(1), 1, 0))
	require.NoError(t, svc.Set(ctx, registrationCacheKey(2), 2, 0))
	require.NoError(t, svc.Set(ctx, "other", 3, 0))

	require.NoError(t, svc.Invalidate(ctx, registrationCacheKeyPrefix+"*"))
	assert.False(t, srv.Exists(registrationCacheKey(1)))
	assert.False(t, srv.Exists(registrationCacheKey(2)))
	assert.True(t, srv.Exists("other"))
}

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(nil, nil, 0, nil, true)
	assert.False(t, svc.Enabled())

	var out int
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, svc.Set(context.Background(), "k", 1, 0))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}
