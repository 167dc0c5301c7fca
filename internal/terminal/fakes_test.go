package terminal

import (
	"context"
	"fmt"

	"github.com/fjod/go_pos/internal/domain"
)

type fakeResolver struct {
	products map[string]domain.Product
	calls    int
}

func (f *fakeResolver) Lookup(_ context.Context, code string) (domain.Product, error) {
	f.calls++
	p, ok := f.products[code]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrNotFound, code)
	}
	return p, nil
}

type fakeSubmitter struct {
	result domain.PurchaseResult
	err    error

	calls int
	lines []domain.CartLine
	keys  []string
}

func (f *fakeSubmitter) Submit(_ context.Context, lines []domain.CartLine, key string) (domain.PurchaseResult, error) {
	if len(lines) == 0 {
		return domain.PurchaseResult{}, domain.ErrEmptyCart
	}
	f.calls++
	f.lines = lines
	f.keys = append(f.keys, key)
	return f.result, f.err
}

func sequentialKeys() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("key-%d", n)
	}
}

var catalog = map[string]domain.Product{
	"4901": {ID: 1, Code: "4901", Name: "Tea", Price: 150},
	"4902": {ID: 2, Code: "4902", Name: "Coffee", Price: 100},
	"4903": {ID: 3, Code: "4903", Name: "Cake", Price: 250},
}
