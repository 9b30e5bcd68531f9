package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"rental-backend/httpx"
	"rental-backend/middleware/ratelimit/application"
	"rental-backend/middleware/ratelimit/domain"
)

type KeyFunc func(r *http.Request) string

// EdgeOptions configura o limite de borda por cliente.
type EdgeOptions struct {
	Store               domain.LimiterStore
	Stats               domain.StatsStore
	Logger              *zap.Logger
	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	RetryAfter          time.Duration
	AddRateLimitHeaders bool
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

// DefaultKeyFunc identifica o cliente por header, X-Forwarded-For (se confiável)
// ou RemoteAddr, nessa ordem.
func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For é o cliente original
			if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
				return strings.TrimSpace(first)
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// EdgeMiddleware bloqueia rajadas por cliente com 429 RATE_LIMIT_EXCEEDED.
func EdgeMiddleware(opts EdgeOptions) func(next http.Handler) http.Handler {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	svc := application.EdgeService{Store: opts.Store, RetryAfter: opts.RetryAfter}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := opts.KeyFn(r)

			if opts.AddRateLimitHeaders {
				w.Header().Set("X-RateLimit-Key", key)
				if ri, ok := opts.Store.(rateInfo); ok {
					w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
					w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
				}
			}

			dec := svc.Decide(domain.Key(key))
			recordStats(r, opts.Stats, opts.Logger, domain.StatsEvent{
				Scope:   dec.Scope,
				Key:     domain.Key(key),
				Allowed: dec.Allowed,
			})
			if !dec.Allowed {
				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
				httpx.WriteAPIError(w, httpx.RateLimited("too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// recordStats é best-effort: erro só vai para o log.
func recordStats(r *http.Request, stats domain.StatsStore, logger *zap.Logger, ev domain.StatsEvent) {
	if stats == nil {
		return
	}
	ev.Method = r.Method
	ev.Path = r.URL.Path
	ev.At = time.Now()
	if err := stats.Record(r.Context(), ev); err != nil {
		logger.Debug("rate limit stats not recorded", zap.String("scope", string(ev.Scope)), zap.Error(err))
	}
}
