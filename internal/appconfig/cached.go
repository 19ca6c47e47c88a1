package appconfig

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rivoaiteam/rivo-partners/internal/domain"
	"github.com/rivoaiteam/rivo-partners/internal/store"
)

const (
	cacheKeyPrefix = "config:"
	cacheKeyAll    = "config:__all__"
)

// CachedSource read-through Redis cache in front of Store, used for the
// public config view and message templates. Writes made through it
// invalidate the cache; a Redis failure falls back to Store. Bonus
// allocation reads Store directly.
type CachedSource struct {
	store  *Store
	kv     store.KV
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedSource(s *Store, kv store.KV, ttl time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{store: s, kv: kv, ttl: ttl, logger: logger}
}

// cachedValue distinguishes "unset" from a stored empty string.
type cachedValue struct {
	Set   bool   `json:"set"`
	Value string `json:"value"`
}

func (c *CachedSource) Value(ctx context.Context, key string) (any, bool, error) {
	var cv cachedValue
	err := store.GetJSON(ctx, c.kv, cacheKeyPrefix+key, &cv)
	if err == nil {
		if !cv.Set {
			return nil, false, nil
		}
		return ParseValue(cv.Value), true, nil
	}
	if !errors.Is(err, store.ErrMiss) {
		c.logger.Warn("Config cache read failed", zap.String("key", key), zap.Error(err))
	}

	e, err := c.store.repo.GetConfig(ctx, key)
	switch {
	case err == nil:
		cv = cachedValue{Set: true, Value: e.Value}
	case errors.Is(err, domain.ErrNotFound):
		// unset keys are cached too
		cv = cachedValue{}
	default:
		return nil, false, err
	}

	c.fill(ctx, cacheKeyPrefix+key, cv)
	if !cv.Set {
		return nil, false, nil
	}
	return ParseValue(cv.Value), true, nil
}

// Public stored config merged over Defaults, as served to the PWA.
func (c *CachedSource) Public(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	err := store.GetJSON(ctx, c.kv, cacheKeyAll, &out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, store.ErrMiss) {
		c.logger.Warn("Config cache read failed", zap.String("key", cacheKeyAll), zap.Error(err))
	}

	out, err = c.store.Public(ctx)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, cacheKeyAll, out)
	return out, nil
}

func (c *CachedSource) fill(ctx context.Context, key string, v any) {
	if err := store.SetJSON(ctx, c.kv, key, v, c.ttl); err != nil {
		c.logger.Warn("Config cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Set writes through to Store and drops the cached entries.
func (c *CachedSource) Set(ctx context.Context, key string, value any, description string) error {
	if err := c.store.Set(ctx, key, value, description); err != nil {
		return err
	}
	c.Invalidate(ctx, key)
	return nil
}

// Invalidate drops cached entries for keys plus the merged view. With no
// keys every cached config entry is dropped.
func (c *CachedSource) Invalidate(ctx context.Context, keys ...string) {
	del := []string{cacheKeyAll}
	if len(keys) == 0 {
		found, err := c.kv.ScanKeys(ctx, cacheKeyPrefix+"*")
		if err != nil {
			c.logger.Warn("Config cache scan failed", zap.Error(err))
		}
		del = append(del, found...)
	}
	for _, k := range keys {
		del = append(del, cacheKeyPrefix+k)
	}
	if err := c.kv.Del(ctx, del...); err != nil {
		c.logger.Warn("Config cache invalidation failed", zap.Strings("keys", del), zap.Error(err))
	}
}
