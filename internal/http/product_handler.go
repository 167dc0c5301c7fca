package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/repository"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductGetter interface {
	GetProductByCode(ctx context.Context, code string) (*domain.Product, error)
}

type ProductHandler struct {
	products ProductGetter
	timeout  time.Duration
	logger   *zap.Logger
}

func NewProductHandler(products ProductGetter, timeout time.Duration, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		timeout:  timeout,
		logger:   logger,
	}
}

// Get serves GET /api/products/{code}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	code := chi.URLParam(r, "code")
	if code == "" {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_code", "product code is required")
		return
	}

	p, err := h.products.GetProductByCode(ctx, code)
	if errors.Is(err, repository.ErrProductNotFound) {
		respondError(w, h.logger, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		h.logger.Error("product lookup failed",
			zap.String("code", code),
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, p)
}
