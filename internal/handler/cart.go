package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// FindApplicableCoupons evaluates every non-expired coupon against the posted
// cart and returns the ones that apply, with their discount amounts.
func (h *Handler) FindApplicableCoupons(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	crt, err := req.Cart.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}

	evals, err := h.scanner.FindApplicable(r.Context(), crt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplicableResponse(evals))
}

// ApplyCoupon applies the coupon named in the URL to the posted cart and
// returns the resulting cart with discounts folded in.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	crt, err := req.Cart.toDomain()
	if err != nil {
		writeError(w, r, err)
		return
	}

	applied, err := h.applier.Apply(r.Context(), chi.URLParam(r, "id"), crt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplyResponse(applied))
}
