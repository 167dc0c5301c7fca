package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/metrics"
	"go.uber.org/zap"
)

type PurchaseSubmitter struct {
	backend      PurchasePoster
	opContext    domain.OperationalContext
	withQuantity bool
	metrics      *metrics.TerminalMetrics
	logger       *zap.Logger
}

type SubmitterConfig struct {
	Context domain.OperationalContext
	// SendQuantity adds the quantity field to every item on the wire.
	SendQuantity bool
}

func NewPurchaseSubmitter(backend PurchasePoster, cfg SubmitterConfig, m *metrics.TerminalMetrics, logger *zap.Logger) *PurchaseSubmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseSubmitter{
		backend:      backend,
		opContext:    cfg.Context,
		withQuantity: cfg.SendQuantity,
		metrics:      m,
		logger:       logger,
	}
}

// Submit sends lines as one transaction. It never touches the cart: on success the
// caller clears it, on any error the cart must stay as it was so the operator can retry.
// A retry after ErrSubmissionFailed may be processed twice unless the backend honours
// idempotencyKey.
func (s *PurchaseSubmitter) Submit(ctx context.Context, lines []domain.CartLine, idempotencyKey string) (domain.PurchaseResult, error) {
	if len(lines) == 0 {
		s.count(metrics.ResultEmpty)
		return domain.PurchaseResult{}, domain.ErrEmptyCart
	}

	req := domain.NewPurchaseRequest(s.opContext, lines, s.withQuantity)
	s.logger.Debug("submitting purchase",
		zap.String("emp_cd", req.EmpCode),
		zap.String("store_cd", req.StoreCode),
		zap.String("pos_no", req.PosNo),
		zap.Int("items", len(req.Items)),
		zap.String("idempotency_key", idempotencyKey))

	start := time.Now()
	res, err := s.backend.Purchase(ctx, req, idempotencyKey)
	if s.metrics != nil {
		s.metrics.ObserveCall("purchase", start)
	}
	if err != nil {
		s.logger.Warn("purchase submission failed", zap.String("idempotency_key", idempotencyKey), zap.Error(err))
		s.count(metrics.ResultFailed)
		return domain.PurchaseResult{}, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}
	if !res.Success {
		s.logger.Info("purchase rejected", zap.String("idempotency_key", idempotencyKey))
		s.count(metrics.ResultRejected)
		return res, domain.ErrPurchaseRejected
	}

	s.logger.Info("purchase completed",
		zap.Int64("total_amt", res.TotalAmount),
		zap.Int("items", len(req.Items)),
		zap.String("idempotency_key", idempotencyKey))
	s.count(metrics.ResultOK)
	return res, nil
}

func (s *PurchaseSubmitter) count(result string) {
	if s.metrics != nil {
		s.metrics.Purchases.WithLabelValues(result).Inc()
	}
}
