// Package cache provides an optional read-through cache for upstream API
// responses (weather, news, newspapers). Conversation state is never stored
// here; each chat request remains stateless.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/vayllon301/menteviva-backend/internal/core/errx"
	logx "github.com/vayllon301/menteviva-backend/pkg/logger"
)

// Config controls the upstream response cache.
type Config struct {
	TTL string `envconfig:"CACHE_TTL" default:"5m"`
}

// Store is the minimal contract adapters need. A miss is never an error:
// cache failures degrade to a live upstream fetch.
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string)
}

// Key builds a namespaced cache key from its parts.
func Key(parts ...string) string {
	return "menteviva:" + strings.Join(parts, ":")
}

// RedisStore caches values in Redis with a fixed TTL.
type RedisStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logx.Warn().Err(errx.WrapRedis(err)).Str("key", key).Msg("cache read failed, falling back to upstream")
		}
		return "", false
	}
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) {
	if err := s.rdb.Set(ctx, key, value, s.ttl).Err(); err != nil {
		logx.Warn().Err(errx.WrapRedis(err)).Str("key", key).Msg("cache write failed")
	}
}

var _ Store = (*RedisStore)(nil)

// Noop satisfies Store when no Redis URL is configured.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) (string, bool) { return "", false }
func (Noop) Set(ctx context.Context, key string, value string)  {}

var _ Store = Noop{}
