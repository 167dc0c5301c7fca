package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_pos/internal/domain"
)

type ProductCache interface {
	Get(ctx context.Context, code string) (domain.Product, error)
	Set(ctx context.Context, product domain.Product) error
	Delete(ctx context.Context, code string) error
}

var ErrCacheMiss = errors.New("cache miss")
