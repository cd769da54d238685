// Package handler exposes the coupon engine over HTTP. It owns the wire
// DTOs, the route table, and the mapping from domain errors to status codes;
// all business logic lives in the domain packages.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/promokit/coupon-service/internal/domain/cart"
	"github.com/promokit/coupon-service/internal/domain/coupon"
)

// Handler serves the coupon API.
type Handler struct {
	repo    coupon.Repository
	scanner *coupon.Scanner
	applier *coupon.Applier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(repo coupon.Repository, scanner *coupon.Scanner, applier *coupon.Applier) *Handler {
	return &Handler{
		repo:    repo,
		scanner: scanner,
		applier: applier,
	}
}

// Routes returns the chi route table for the coupon API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/coupons", func(r chi.Router) {
		r.Post("/", h.CreateCoupon)
		r.Get("/", h.ListCoupons)
		r.Get("/{id}", h.GetCoupon)
		r.Put("/{id}", h.UpdateCoupon)
		r.Delete("/{id}", h.DeleteCoupon)
	})
	r.Post("/applicable-coupons", h.FindApplicableCoupons)
	r.Post("/apply-coupon/{id}", h.ApplyCoupon)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Message string `json:"message"`
}

// writeError maps domain errors onto HTTP status codes. Anything unrecognized
// is a 500 with a generic body; the cause is logged, not leaked.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		fieldErr *coupon.FieldError
		itemErr  *cart.InvalidItemError
	)
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Coupon not found."})
	case errors.Is(err, coupon.ErrExpired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Coupon has expired."})
	case errors.Is(err, coupon.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Coupon already exists."})
	case errors.Is(err, cart.ErrEmptyCart), errors.As(err, &itemErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Cart is empty or invalid."})
	case errors.As(err, &fieldErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: fieldErr.Error()})
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Internal server error."})
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Message: msg})
}
