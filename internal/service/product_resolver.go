package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/cache"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/fjod/go_pos/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cacheOpTimeout = time.Second

type ProductResolver struct {
	backend ProductFetcher
	cache   cache.ProductCache
	metrics *metrics.TerminalMetrics
	logger  *zap.Logger
	sfg     singleflight.Group
}

// NewProductResolver builds a resolver. productCache and m may be nil.
func NewProductResolver(backend ProductFetcher, productCache cache.ProductCache, m *metrics.TerminalMetrics, logger *zap.Logger) *ProductResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductResolver{
		backend: backend,
		cache:   productCache,
		metrics: m,
		logger:  logger,
	}
}

// Lookup resolves code to a product. Every failure, including transport errors,
// is reported as domain.ErrNotFound with the cause attached.
func (r *ProductResolver) Lookup(ctx context.Context, code string) (domain.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		r.count(metrics.ResultNotFound)
		return domain.Product{}, fmt.Errorf("%w: empty code", domain.ErrNotFound)
	}

	// The shared fetch outlives any one caller; each caller still stops at its own ctx.
	ch := r.sfg.DoChan(code, func() (interface{}, error) {
		return r.fetch(context.WithoutCancel(ctx), code)
	})
	var v interface{}
	var err error
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		r.logger.Info("product lookup failed", zap.String("code", code), zap.Error(err))
		r.count(metrics.ResultNotFound)
		return domain.Product{}, fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}

	r.count(metrics.ResultOK)
	return v.(domain.Product), nil
}

func (r *ProductResolver) fetch(ctx context.Context, code string) (domain.Product, error) {
	if r.cache != nil {
		p, err := r.cache.Get(ctx, code)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			r.logger.Warn("product cache get error", zap.String("code", code), zap.Error(err))
		}
	}

	start := time.Now()
	p, err := r.backend.GetProduct(ctx, code)
	if r.metrics != nil {
		r.metrics.ObserveCall("lookup", start)
	}
	if err != nil {
		return domain.Product{}, err
	}

	if r.cache != nil {
		setCtx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
		defer cancel()
		if err := r.cache.Set(setCtx, p); err != nil {
			r.logger.Warn("product cache set error", zap.String("code", code), zap.Error(err))
		}
	}
	return p, nil
}

func (r *ProductResolver) count(result string) {
	if r.metrics != nil {
		r.metrics.Lookups.WithLabelValues(result).Inc()
	}
}
