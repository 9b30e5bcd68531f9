package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rental-backend/httpx"
)

func (h *Handler) listListings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	listings, err := h.listings.List(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"listings": listings, "count": len(listings)})
}

func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.listings.Get(r.Context(), chi.URLParam(r, "listingId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{"listing": l})
}

func (h *Handler) suspendListing(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	// corpo opcional: sem motivo a suspensão segue
	var req reasonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !missingBody(err) {
		h.fail(w, r, err)
		return
	}
	res, err := h.listings.Suspend(r.Context(), a, chi.URLParam(r, "listingId"), req.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"listing":              res.Listing,
		"publicRecordsRemoved": res.WasOnline,
		"message":              "listing suspended",
	})
}

func missingBody(err error) bool {
	var apiErr *httpx.Error
	return errors.As(err, &apiErr) && apiErr.Message == httpx.MsgBodyRequired
}

type bulkApproveRequest struct {
	ListingIDs []string `json:"listingIds"`
}

func (h *Handler) bulkApprove(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	var req bulkApproveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.listings.BulkApprove(r.Context(), a, req.ListingIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, map[string]any{
		"results":  res.Results,
		"approved": res.Approved,
		"failed":   res.Failed,
	})
}
