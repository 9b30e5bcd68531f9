package ratelimit

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"rental-backend/auth"
	"rental-backend/httpx"
	"rental-backend/middleware/ratelimit/domain"
)

// QuotaChecker é o contrato do QuotaService visto pelo adapter HTTP.
type QuotaChecker interface {
	CheckAndIncrement(ctx context.Context, userID string, op domain.OperationType) (domain.QuotaResult, error)
}

type QuotaOptions struct {
	Checker QuotaChecker
	Stats   domain.StatsStore
	Logger  *zap.Logger
}

// Quota devolve um construtor de middleware por operação, para uso em rotas:
//
//	r.With(gate.RequirePermission(p), quota(OpPlanWrite)).Post(...)
//
// Precisa rodar depois do gate: o usuário vem do contexto.
func Quota(opts QuotaOptions) func(op domain.OperationType) func(http.Handler) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return func(op domain.OperationType) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if opts.Checker == nil {
					next.ServeHTTP(w, r)
					return
				}
				userID, ok := auth.ExtractUserID(r.Context())
				if !ok {
					httpx.WriteAPIError(w, httpx.Unauthorized("authentication required"))
					return
				}

				res, err := opts.Checker.CheckAndIncrement(r.Context(), userID, op)
				if err != nil {
					// operação fora da tabela: bug de wiring, não do usuário
					if errors.Is(err, domain.ErrUnknownOperation) {
						opts.Logger.Error("quota misconfigured", zap.String("operation", string(op)), zap.Error(err))
					}
					httpx.WriteError(w, r, opts.Logger, err)
					return
				}

				recordStats(r, opts.Stats, opts.Logger, domain.StatsEvent{
					Scope:     domain.ScopeQuota,
					Key:       domain.Key(userID),
					Operation: op,
					Allowed:   res.Allowed,
					Degraded:  res.Degraded,
				})

				if !res.Allowed {
					if res.RetryAfter > 0 {
						w.Header().Set("Retry-After", formatSeconds(res.RetryAfter))
					}
					setRemainingHeaders(w, res)
					httpx.WriteAPIError(w, httpx.RateLimited(res.Message))
					return
				}
				setRemainingHeaders(w, res)
				next.ServeHTTP(w, r)
			})
		}
	}
}

func setRemainingHeaders(w http.ResponseWriter, res domain.QuotaResult) {
	if res.Degraded {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Hourly-Remaining", formatInt(res.HourlyRemaining))
	h.Set("X-RateLimit-Daily-Remaining", formatInt(res.DailyRemaining))
	if !res.ResetAt.IsZero() {
		h.Set("X-RateLimit-Reset", formatInt(int(res.ResetAt.Unix())))
	}
}
