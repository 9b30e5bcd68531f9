package infra

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"rental-backend/middleware/ratelimit/domain"
)

// RedisStatsStore agrega decisões em hashes, separados por escopo:
//
//	<prefix>:<scope>:total            allowed/denied/degraded (cumulativo)
//	<prefix>:<scope>:minute:<yyyymmddhhmm>  série por minuto (expira)
//	<prefix>:<scope>:route            "<METHOD> <path>:<allowed|denied>"
//	<prefix>:quota:op                 "<op>:<allowed|denied>"
//	<prefix>:<scope>:key:<key>        por cliente/usuário (opcional, expira)
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix    string
	ttl       time.Duration
	bucket    string // "minute" (padrão) ou "none"
	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	scope := string(ev.Scope)
	if scope == "" {
		scope = string(domain.ScopeEdge)
	}
	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}
	base := s.prefix + ":" + scope

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, base+":total", field, 1)
	if ev.Degraded {
		pipe.HIncrBy(ctx, base+":total", "degraded", 1)
	}

	if s.bucket == "minute" {
		bucketKey := base + ":minute:" + at.UTC().Format("200601021504")
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if route := strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path)); route != "" {
		pipe.HIncrBy(ctx, base+":route", route+":"+field, 1)
	}

	if ev.Operation != "" {
		pipe.HIncrBy(ctx, s.prefix+":quota:op", string(ev.Operation)+":"+field, 1)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			keyKey := base + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
