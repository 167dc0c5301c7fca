package service

import (
	"context"

	"github.com/fjod/go_pos/internal/domain"
)

// ProductFetcher is the backend side of a product lookup.
type ProductFetcher interface {
	GetProduct(ctx context.Context, code string) (domain.Product, error)
}

// PurchasePoster is the backend side of a purchase submission.
type PurchasePoster interface {
	Purchase(ctx context.Context, req domain.PurchaseRequest, idempotencyKey string) (domain.PurchaseResult, error)
}
