package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// CreateCoupon persists a new coupon after validating its variant fields.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if err := decodeBody(r, &payload); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	c, err := payload.toDomain(uuid.New().String())
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.repo.Create(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(c))
}

// ListCoupons returns one page of coupons. Query params: page (1-based,
// default 1) and limit (default 20, capped at 100).
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", defaultPageLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}

	coupons, err := h.repo.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = toCouponResponse(&coupons[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCoupon returns a single coupon by ID.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.repo.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

// UpdateCoupon replaces a coupon's definition, keeping its ID.
func (h *Handler) UpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var payload couponPayload
	if err := decodeBody(r, &payload); err != nil {
		badRequest(w, "Invalid request body.")
		return
	}

	c, err := payload.toDomain(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.repo.Update(r.Context(), c); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCouponResponse(c))
}

// DeleteCoupon removes a coupon by ID.
func (h *Handler) DeleteCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
