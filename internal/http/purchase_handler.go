package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/repository"
	"go.uber.org/zap"
)

// IdempotencyHeader carries the terminal's per-cart purchase key.
const IdempotencyHeader = "Idempotency-Key"

type TransactionCreator interface {
	CreateTransaction(ctx context.Context, req domain.PurchaseRequest, idempotencyKey string) (int64, error)
}

type PurchaseHandler struct {
	transactions TransactionCreator
	timeout      time.Duration
	logger       *zap.Logger
}

func NewPurchaseHandler(transactions TransactionCreator, timeout time.Duration, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		transactions: transactions,
		timeout:      timeout,
		logger:       logger,
	}
}

type PurchaseResponse struct {
	Success     bool  `json:"success"`
	TotalAmount int64 `json:"total_amt"`
}

// Create serves POST /api/purchase. Business rejections answer 200 with success false.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	key := r.Header.Get(IdempotencyHeader)
	log := h.logger.With(
		zap.String("request_id", getRequestID(r.Context())),
		zap.String("idempotency_key", key),
		zap.String("store_cd", req.StoreCode),
		zap.String("pos_no", req.PosNo),
		zap.Int("items", len(req.Items)))

	total, err := h.transactions.CreateTransaction(ctx, req, key)
	switch {
	case errors.Is(err, repository.ErrNoItems),
		errors.Is(err, repository.ErrUnknownProduct),
		errors.Is(err, repository.ErrInvalidQuantity):
		log.Info("purchase rejected", zap.Error(err))
		respondJSON(w, h.logger, http.StatusOK, PurchaseResponse{Success: false})
		return
	case errors.Is(err, repository.ErrIdempotencyConflict):
		log.Warn("idempotency key reused", zap.Error(err))
		respondError(w, h.logger, http.StatusConflict, "idempotency_conflict", "idempotency key was used for a different purchase")
		return
	case err != nil:
		log.Error("purchase failed", zap.Error(err))
		respondError(w, h.logger, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	log.Info("purchase stored", zap.Int64("total_amt", total))
	respondJSON(w, h.logger, http.StatusOK, PurchaseResponse{Success: true, TotalAmount: total})
}
