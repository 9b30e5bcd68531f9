package auth

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"rental-backend/httpx"
)

// Gate decora handlers com checagens de identidade e permissão.
// Em caso de falha responde direto com o envelope de erro; o handler não roda.
type Gate struct {
	Extractor Extractor
	Logger    *zap.Logger
}

func NewGate(ex Extractor, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{Extractor: ex, Logger: logger}
}

// authenticate reaproveita a identidade já presente no contexto (gates encadeados).
func (g *Gate) authenticate(r *http.Request) (*http.Request, UserContext, bool) {
	if u, ok := UserFrom(r.Context()); ok {
		return r, u, true
	}
	if g.Extractor == nil {
		return r, UserContext{}, false
	}
	u, err := g.Extractor.Extract(r)
	if err != nil {
		g.Logger.Debug("authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
		return r, UserContext{}, false
	}
	return r.WithContext(WithUser(r.Context(), u)), u, true
}

func (g *Gate) guard(check func(r *http.Request, u UserContext) *httpx.Error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, u, ok := g.authenticate(r)
			if !ok {
				httpx.WriteAPIError(w, httpx.Unauthorized("authentication required"))
				return
			}
			if check != nil {
				if apiErr := check(r, u); apiErr != nil {
					g.Logger.Warn("access denied",
						zap.String("user_id", u.SubjectID),
						zap.String("role", string(u.Role)),
						zap.String("path", r.URL.Path),
						zap.String("reason", apiErr.Message))
					httpx.WriteAPIError(w, apiErr)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth exige claims válidas (401 caso contrário).
func (g *Gate) RequireAuth() func(http.Handler) http.Handler {
	return g.guard(nil)
}

func (g *Gate) RequirePermission(perm string) func(http.Handler) http.Handler {
	return g.guard(func(_ *http.Request, u UserContext) *httpx.Error {
		if u.Has(perm) {
			return nil
		}
		return httpx.Forbidden("missing permission " + perm)
	})
}

func (g *Gate) RequireAnyPermission(perms ...string) func(http.Handler) http.Handler {
	return g.guard(func(_ *http.Request, u UserContext) *httpx.Error {
		for _, p := range perms {
			if u.Has(p) {
				return nil
			}
		}
		return httpx.Forbidden("requires one of: " + strings.Join(perms, ", "))
	})
}

func (g *Gate) RequireAdmin() func(http.Handler) http.Handler {
	return g.guard(func(_ *http.Request, u UserContext) *httpx.Error {
		if u.IsAdmin() {
			return nil
		}
		return httpx.Forbidden("admin role required")
	})
}

// RequireHostAccess libera ADMIN sempre; HOST só acessa o próprio hostId do path.
func (g *Gate) RequireHostAccess(param string) func(http.Handler) http.Handler {
	return g.guard(func(r *http.Request, u UserContext) *httpx.Error {
		if u.IsAdmin() {
			return nil
		}
		pathHostID := chi.URLParam(r, param)
		if u.Role == RoleHost && u.HostID != "" && u.HostID == pathHostID {
			return nil
		}
		return httpx.Forbidden("access to this host is not allowed")
	})
}
