// Package settingscache keeps the public platform settings close to the front
// end so anonymous page views do not each hit the backend.
package settingscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/crypgo-dev/crypgo-web/internal/api"
)

// DefaultKey is the Redis key holding the cached settings
const DefaultKey = "crypgo:public_settings"

// Loader fetches settings from the backend
type Loader interface {
	PublicSettings(ctx context.Context) (*api.PlatformSettings, error)
}

// Store holds cached settings. Get reports false on a miss.
type Store interface {
	Get(ctx context.Context) (*api.PlatformSettings, bool, error)
	Set(ctx context.Context, settings *api.PlatformSettings, ttl time.Duration) error
}

// Cache serves public settings from a Store and falls back to the backend
type Cache struct {
	loader Loader
	store  Store
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a Cache
func New(loader Loader, store Store, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		loader: loader,
		store:  store,
		ttl:    ttl,
		logger: logger.With().Str("component", "settings_cache").Logger(),
	}
}

// PublicSettings returns cached settings, loading them on a miss. Store
// failures degrade to a direct backend call.
func (c *Cache) PublicSettings(ctx context.Context) (*api.PlatformSettings, error) {
	settings, ok, err := c.store.Get(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Settings cache read failed")
	} else if ok {
		return settings, nil
	}
	return c.Refresh(ctx)
}

// Refresh loads settings from the backend and stores them
func (c *Cache) Refresh(ctx context.Context) (*api.PlatformSettings, error) {
	settings, err := c.loader.PublicSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, nil
	}
	if err := c.store.Set(ctx, settings, c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("Settings cache write failed")
	}
	return settings, nil
}

// MemoryStore keeps settings in process
type MemoryStore struct {
	mu       sync.Mutex
	settings *api.PlatformSettings
	expires  time.Time
	now      func() time.Time
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context) (*api.PlatformSettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil || !s.now().Before(s.expires) {
		return nil, false, nil
	}
	return s.settings, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, settings *api.PlatformSettings, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.expires = s.now().Add(ttl)
	return nil
}

// RedisStore shares cached settings between front-end instances
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore connects to addr and checks the connection
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &RedisStore{rdb: rdb, key: DefaultKey}, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Get(ctx context.Context) (*api.PlatformSettings, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read settings: %w", err)
	}

	var settings api.PlatformSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, false, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &settings, true, nil
}

func (s *RedisStore) Set(ctx context.Context, settings *api.PlatformSettings, ttl time.Duration) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
