package settingscache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crypgo-dev/crypgo-web/internal/api"
)

type countingLoader struct {
	calls atomic.Int32
	rate  float64
	err   error
}

func (l *countingLoader) PublicSettings(ctx context.Context) (*api.PlatformSettings, error) {
	l.calls.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return &api.PlatformSettings{ID: 1, BaseRate: l.rate}, nil
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context) (*api.PlatformSettings, bool, error) {
	return nil, false, errors.New("store down")
}

func (failingStore) Set(ctx context.Context, settings *api.PlatformSettings, ttl time.Duration) error {
	return errors.New("store down")
}

func TestCacheServesFromMemory(t *testing.T) {
	loader := &countingLoader{rate: 88}
	cache := New(loader, NewMemoryStore(), time.Minute, zerolog.Nop())

	for i := 0; i < 3; i++ {
		settings, err := cache.PublicSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 88.0, settings.BaseRate)
	}
	assert.Equal(t, int32(1), loader.calls.Load())
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(context.Background(), &api.PlatformSettings{BaseRate: 1}, time.Minute))
	_, ok, _ := store.Get(context.Background())
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = store.Get(context.Background())
	assert.False(t, ok)
}

func TestCacheLoaderError(t *testing.T) {
	loader := &countingLoader{err: &api.Error{Kind: api.KindNetwork, Message: "Network error"}}
	cache := New(loader, NewMemoryStore(), time.Minute, zerolog.Nop())

	_, err := cache.PublicSettings(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsNetwork(err))
}

func TestCacheStoreFailureFallsBackToBackend(t *testing.T) {
	loader := &countingLoader{rate: 90}
	cache := New(loader, failingStore{}, time.Minute, zerolog.Nop())

	settings, err := cache.PublicSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90.0, settings.BaseRate)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	store := NewRedisStoreFromClient(rdb, "")
	ctx := context.Background()

	_, ok, err := store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	tiers := []api.PricingTier{{Range: "0-1000", Markup: "1%"}}
	require.NoError(t, store.Set(ctx, &api.PlatformSettings{BaseRate: 87.5, PricingTiers: tiers}, time.Minute))
	assert.True(t, mr.Exists(DefaultKey))

	settings, ok, err := store.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 87.5, settings.BaseRate)
	assert.Equal(t, tiers, settings.PricingTiers)

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	require.NoError(t, mr.Set(DefaultKey, "not json"))
	_, _, err := NewRedisStoreFromClient(rdb, DefaultKey).Get(context.Background())
	assert.Error(t, err)
}

func TestRefresherSchedule(t *testing.T) {
	loader := &countingLoader{rate: 88}
	cache := New(loader, NewMemoryStore(), time.Minute, zerolog.Nop())

	_, err := NewRefresher(cache, "not a schedule", zerolog.Nop())
	assert.Error(t, err)

	r, err := NewRefresher(cache, "", zerolog.Nop())
	require.NoError(t, err)
	r.Start()
	r.Stop()

	// Start warms the cache
	assert.Equal(t, int32(1), loader.calls.Load())
	_, err = cache.PublicSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.calls.Load())
}
