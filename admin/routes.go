package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rental-backend/admin/domain"
	"rental-backend/auth"
	"rental-backend/httpx"
	ratelimit "rental-backend/middleware/ratelimit/domain"
)

// QuotaFunc monta o middleware de cota de uma operação (ratelimit.Quota).
type QuotaFunc func(op ratelimit.OperationType) func(http.Handler) http.Handler

func noQuota(ratelimit.OperationType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return next }
}

// Routes registra a tabela de rotas. A cota roda sempre depois do gate,
// que é quem coloca o usuário no contexto. quota nil desliga as cotas.
func (h *Handler) Routes(gate *auth.Gate, quota QuotaFunc) chi.Router {
	if quota == nil {
		quota = noQuota
	}
	r := chi.NewRouter()
	r.NotFound(httpx.RouteNotFound)
	r.MethodNotAllowed(httpx.RouteMethodNotAllowed)
	r.Get("/health", h.health)

	r.Route("/admin", func(r chi.Router) {
		r.Route("/hosts", func(r chi.Router) {
			r.With(gate.RequirePermission(auth.PermKYCView)).Get("/", h.listHosts)
			r.With(gate.RequireAnyPermission(auth.PermKYCView, auth.PermKYCApprove)).Get("/{hostId}", h.getHost)
			r.With(gate.RequirePermission(auth.PermKYCView)).Get("/{hostId}/documents", h.hostDocuments)

			decide := r.With(gate.RequirePermission(auth.PermKYCApprove), quota(domain.OpHostDecision))
			decide.Post("/{hostId}/approve", h.approveHost)
			decide.Post("/{hostId}/reject", h.rejectHost)
		})

		r.Route("/listings", func(r chi.Router) {
			view := r.With(gate.RequireAnyPermission(auth.PermListingView, auth.PermListingApprove, auth.PermListingSuspend))
			view.Get("/", h.listListings)
			view.Get("/{listingId}", h.getListing)

			r.With(gate.RequirePermission(auth.PermListingApprove), quota(domain.OpListingBulkApprove)).
				Post("/bulk-approve", h.bulkApprove)
			r.With(gate.RequirePermission(auth.PermListingSuspend), quota(domain.OpListingSuspend)).
				Post("/{listingId}/suspend", h.suspendListing)
		})

		r.Route("/subscription-plans", func(r chi.Router) {
			read := r.With(gate.RequireAdmin())
			read.Get("/", h.listPlans)
			read.Get("/{planId}", h.getPlan)

			write := r.With(gate.RequirePermission(auth.PermPlanManage), quota(domain.OpPlanWrite))
			write.Post("/", h.createPlan)
			write.Put("/{planId}", h.updatePlan)
			write.Delete("/{planId}", h.deactivatePlan)
		})
	})

	r.Route("/hosts/{hostId}/verification", func(r chi.Router) {
		r.Use(gate.RequireHostAccess("hostId"))
		r.Get("/", h.verificationStatus)
		r.With(quota(domain.OpVerificationSubmit)).Post("/submit", h.submitVerification)
	})
	return r
}
