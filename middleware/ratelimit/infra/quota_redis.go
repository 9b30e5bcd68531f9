package infra

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-backend/middleware/ratelimit/domain"
)

// RedisQuotaStore guarda cada RateLimitRecord num hash:
//
//	<prefix>:<op>:<user>:<hour|day>:<windowStartUnix> -> {count, windowStart, windowEnd}
//
// com EXPIREAT em windowEnd + margem.
type RedisQuotaStore struct {
	rdb    redis.Cmdable
	prefix string
}

type RedisQuotaOption func(*RedisQuotaStore)

func WithQuotaPrefix(prefix string) RedisQuotaOption {
	return func(s *RedisQuotaStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func NewRedisQuotaStore(rdb redis.Cmdable, opts ...RedisQuotaOption) *RedisQuotaStore {
	s := &RedisQuotaStore{rdb: rdb, prefix: "ratelimit:quota"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisQuotaStore) key(k domain.CounterKey) string {
	return s.prefix + ":" + k.String()
}

func (s *RedisQuotaStore) Count(ctx context.Context, k domain.CounterKey) (int64, error) {
	n, err := s.rdb.HGet(ctx, s.key(k), "count").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Increment roda num MULTI/EXEC: HINCRBY é atômico por chave e os metadados
// da janela só são gravados na criação (HSETNX).
func (s *RedisQuotaStore) Increment(ctx context.Context, keys []domain.CounterKey, margin time.Duration) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			rk := s.key(k)
			pipe.HIncrBy(ctx, rk, "count", 1)
			pipe.HSetNX(ctx, rk, "windowStart", k.Window.Start.Unix())
			pipe.HSetNX(ctx, rk, "windowEnd", k.Window.End.Unix())
			pipe.ExpireAt(ctx, rk, k.Window.End.Add(margin))
		}
		return nil
	})
	return err
}
