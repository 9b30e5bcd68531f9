package ratelimit

import (
	"net/http"
	"time"

	"rental-backend/httpx"
	"rental-backend/middleware/ratelimit/application"
	"rental-backend/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	Max            int
	AcquireTimeout time.Duration
}

// ConcurrencyMiddleware limita requisições em voo; sem vaga responde 503.
// O serviço devolvido expõe InFlight/Rejected para o health check.
func ConcurrencyMiddleware(opts ConcurrencyOptions) (func(next http.Handler) http.Handler, *application.ConcurrencyService) {
	svc := &application.ConcurrencyService{AcquireTimeout: opts.AcquireTimeout}
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }, svc
	}
	svc.Pool = infra.NewChanPool(opts.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, ok := svc.Acquire(r.Context())
			if !ok {
				httpx.WriteAPIError(w, httpx.Unavailable("server busy, try again"))
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}, svc
}
