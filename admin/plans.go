package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rental-backend/admin/domain"
	"rental-backend/httpx"
)

// createPlanRequest só aceita os campos editáveis; status e datas são do servidor.
type createPlanRequest struct {
	PlanID      string                 `json:"planId"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	PriceCents  int64                  `json:"priceCents"`
	Currency    string                 `json:"currency"`
	Interval    domain.BillingInterval `json:"interval"`
	MaxListings int                    `json:"maxListings"`
	Features    []string               `json:"features"`
}

func (req createPlanRequest) plan() domain.Plan {
	return domain.Plan{
		PlanID:      req.PlanID,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Interval:    req.Interval,
		MaxListings: req.MaxListings,
		Features:    req.Features,
	}
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	includeInactive, err := queryBool(r, "includeInactive")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	plans, err := h.plans.List(r.Context(), includeInactive)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"plans": plans, "count": len(plans)})
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.plans.Get(r.Context(), chi.URLParam(r, "planId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"plan": p})
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req createPlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.plans.Create(r.Context(), a, req.plan())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, map[string]any{"plan": p})
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var patch domain.PlanPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.plans.Update(r.Context(), a, chi.URLParam(r, "planId"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"plan": p})
}

func (h *Handler) deactivatePlan(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	p, err := h.plans.Deactivate(r.Context(), a, chi.URLParam(r, "planId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"plan": p, "message": "subscription plan deactivated"})
}
