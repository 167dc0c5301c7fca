package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var opContext = domain.OperationalContext{EmpCode: "A001", StoreCode: "00001", PosNo: "001"}

func twoLines() []domain.CartLine {
	return []domain.CartLine{
		{Product: domain.Product{ID: 2, Code: "4902", Name: "Coffee", Price: 100}, Quantity: 2},
		{Product: domain.Product{ID: 3, Code: "4903", Name: "Cake", Price: 250}, Quantity: 1},
	}
}

func TestSubmit_EmptyCartSkipsBackend(t *testing.T) {
	poster := &MockPoster{}
	s := NewPurchaseSubmitter(poster, SubmitterConfig{Context: opContext}, nil, nil)

	_, err := s.Submit(context.Background(), nil, "key")

	assert.ErrorIs(t, err, domain.ErrEmptyCart)
	assert.Equal(t, 0, poster.calls)
}

func TestSubmit_Success(t *testing.T) {
	poster := &MockPoster{result: domain.PurchaseResult{Success: true, TotalAmount: 450}}
	s := NewPurchaseSubmitter(poster, SubmitterConfig{Context: opContext}, nil, nil)

	res, err := s.Submit(context.Background(), twoLines(), "key-1")

	require.NoError(t, err)
	assert.Equal(t, int64(450), res.TotalAmount)
	assert.True(t, res.Success)
	assert.Equal(t, "key-1", poster.lastKey)
}

func TestSubmit_MapsLinesIntoRequest(t *testing.T) {
	poster := &MockPoster{result: domain.PurchaseResult{Success: true}}
	s := NewPurchaseSubmitter(poster, SubmitterConfig{Context: opContext}, nil, nil)

	_, err := s.Submit(context.Background(), twoLines(), "")
	require.NoError(t, err)

	req := poster.lastReq
	assert.Equal(t, "A001", req.EmpCode)
	assert.Equal(t, "00001", req.StoreCode)
	assert.Equal(t, "001", req.PosNo)
	assert.Equal(t, []domain.PurchaseItem{
		{ProductID: 2, Code: "4902", Name: "Coffee", Price: 100},
		{ProductID: 3, Code: "4903", Name: "Cake", Price: 250},
	}, req.Items)
}

func TestSubmit_SendQuantity(t *testing.T) {
	poster := &MockPoster{result: domain.PurchaseResult{Success: true}}
	s := NewPurchaseSubmitter(poster, SubmitterConfig{Context: opContext, SendQuantity: true}, nil, nil)

	_, err := s.Submit(context.Background(), twoLines(), "")
	require.NoError(t, err)

	assert.Equal(t, 2, poster.lastReq.Items[0].Quantity)
	assert.Equal(t, 1, poster.lastReq.Items[1].Quantity)
}

func TestSubmit_TransportFailure(t *testing.T) {
	poster := &MockPoster{err: errors.New("connection reset")}
	s := NewPurchaseSubmitter(poster, SubmitterConfig{Context: opContext}, nil, nil)

	_, err := s.Submit(context.Background(), twoLines(), "")

	assert.ErrorIs(t, err, domain.ErrSubmissionFailed)
	assert.NotErrorIs(t, err, domain.ErrPurchaseRejected)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSubmit_Rejected(t *testing.T) {
	poster := &MockPoster{result: domain.PurchaseResult{Success: false}}
	s := NewPurchaseSubmitter(poster, SubmitterConfig{Context: opContext}, nil, nil)

	_, err := s.Submit(context.Background(), twoLines(), "")

	assert.ErrorIs(t, err, domain.ErrPurchaseRejected)
	assert.NotErrorIs(t, err, domain.ErrSubmissionFailed)
}

func TestSubmit_DoesNotMutateLines(t *testing.T) {
	poster := &MockPoster{err: errors.New("timeout")}
	s := NewPurchaseSubmitter(poster, SubmitterConfig{Context: opContext}, nil, nil)
	lines := twoLines()

	_, _ = s.Submit(context.Background(), lines, "")

	assert.Equal(t, twoLines(), lines)
}
