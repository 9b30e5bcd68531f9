package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"rental-backend/httpx"
)

func (h *Handler) listHosts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	hosts, err := h.hosts.List(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"hosts": hosts, "count": len(hosts)})
}

func (h *Handler) getHost(w http.ResponseWriter, r *http.Request) {
	host, err := h.hosts.Get(r.Context(), chi.URLParam(r, "hostId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"host": host})
}

func (h *Handler) hostDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.hosts.Documents(r.Context(), chi.URLParam(r, "hostId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"documents": docs})
}

func (h *Handler) approveHost(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	host, err := h.hosts.Approve(r.Context(), a, chi.URLParam(r, "hostId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"host": host, "message": "host approved"})
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) rejectHost(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req reasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	host, err := h.hosts.Reject(r.Context(), a, chi.URLParam(r, "hostId"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"host": host, "message": "host rejected"})
}

// verificationStatus é a visão do próprio host sobre o KYC.
func (h *Handler) verificationStatus(w http.ResponseWriter, r *http.Request) {
	host, err := h.hosts.Get(r.Context(), chi.URLParam(r, "hostId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"hostId":          host.HostID,
		"status":          host.Status,
		"rejectionReason": host.RejectionReason,
		"submittedAt":     host.SubmittedAt,
	})
}

func (h *Handler) submitVerification(w http.ResponseWriter, r *http.Request) {
	host, err := h.hosts.SubmitVerification(r.Context(), chi.URLParam(r, "hostId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"hostId": host.HostID, "status": host.Status, "submittedAt": host.SubmittedAt})
}
