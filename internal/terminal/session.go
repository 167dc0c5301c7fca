// Package terminal is the operator-facing controller of the POS client: it owns the
// cart of the current transaction, the product on display and the operator message,
// and it sequences the asynchronous lookups and purchases started by the operator.
package terminal

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_pos/internal/cart"
	"github.com/fjod/go_pos/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Operator messages.
const (
	MsgNotFound       = "商品が見つかりません"
	MsgEmptyCart      = "購入リストが空です"
	MsgPurchaseFailed = "購入処理に失敗しました"
	MsgBusy           = "購入処理中です"
	msgCompletedFmt   = "購入完了！合計金額: %d円"
)

type ProductLookup interface {
	Lookup(ctx context.Context, code string) (domain.Product, error)
}

type PurchaseSubmit interface {
	Submit(ctx context.Context, lines []domain.CartLine, idempotencyKey string) (domain.PurchaseResult, error)
}

// LookupTicket identifies one issued lookup.
type LookupTicket struct {
	Seq  uint64
	Code string
}

type LookupOutcome struct {
	Ticket  LookupTicket
	Product domain.Product
	Err     error
}

// SubmitTicket carries the cart snapshot of one issued purchase.
type SubmitTicket struct {
	Seq            uint64
	Lines          []domain.CartLine
	IdempotencyKey string
}

type SubmitOutcome struct {
	Ticket SubmitTicket
	Result domain.PurchaseResult
	Err    error
}

// Option configures a Session.
type Option func(*Session)

// WithKeyGenerator replaces the idempotency key source.
func WithKeyGenerator(gen func() string) Option {
	return func(s *Session) { s.newKey = gen }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithCartObserver is called with the line count after every cart change.
func WithCartObserver(fn func(lines int)) Option {
	return func(s *Session) { s.onCart = fn }
}

// Session is not safe for concurrent use. Begin*/Apply* and the cart operations must
// run on one goroutine; only ResolveLookup and Submit may run elsewhere.
type Session struct {
	cart      *cart.Manager
	resolver  ProductLookup
	submitter PurchaseSubmit
	logger    *zap.Logger
	newKey    func() string
	onCart    func(lines int)

	displayed *domain.Product
	errMsg    string
	notice    string

	lookupSeq  uint64
	submitSeq  uint64
	submitting bool
	txKey      string
	keySent    bool
}

func NewSession(resolver ProductLookup, submitter PurchaseSubmit, opts ...Option) *Session {
	s := &Session{
		cart:      cart.NewManager(),
		resolver:  resolver,
		submitter: submitter,
		logger:    zap.NewNop(),
		newKey:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.txKey = s.newKey()
	return s
}

// BeginLookup starts a lookup for code. Any earlier lookup still in flight becomes
// stale and its outcome will be ignored.
func (s *Session) BeginLookup(code string) LookupTicket {
	s.errMsg = ""
	s.displayed = nil
	s.lookupSeq++
	return LookupTicket{Seq: s.lookupSeq, Code: code}
}

// ResolveLookup performs the network call for t. It reads no session state.
func (s *Session) ResolveLookup(ctx context.Context, t LookupTicket) LookupOutcome {
	p, err := s.resolver.Lookup(ctx, t.Code)
	return LookupOutcome{Ticket: t, Product: p, Err: err}
}

// ApplyLookup shows the outcome unless a newer lookup was issued since. It reports
// whether the outcome was applied.
func (s *Session) ApplyLookup(o LookupOutcome) bool {
	if o.Ticket.Seq != s.lookupSeq {
		s.logger.Debug("discarding stale lookup",
			zap.Uint64("seq", o.Ticket.Seq),
			zap.Uint64("latest", s.lookupSeq),
			zap.String("code", o.Ticket.Code))
		return false
	}
	if o.Err != nil {
		s.displayed = nil
		s.errMsg = MsgNotFound
		return true
	}
	p := o.Product
	s.displayed = &p
	return true
}

// Lookup runs a whole lookup synchronously.
func (s *Session) Lookup(ctx context.Context, code string) error {
	o := s.ResolveLookup(ctx, s.BeginLookup(code))
	s.ApplyLookup(o)
	return o.Err
}

// Displayed returns the looked-up product, if any.
func (s *Session) Displayed() (domain.Product, bool) {
	if s.displayed == nil {
		return domain.Product{}, false
	}
	return *s.displayed, true
}

// AddDisplayed moves the displayed product into the cart. It reports false when
// nothing is displayed.
func (s *Session) AddDisplayed() (bool, error) {
	if s.displayed == nil {
		return false, nil
	}
	if s.submitting {
		return false, s.busy()
	}
	s.cart.Add(*s.displayed)
	s.displayed = nil
	s.cartChanged()
	return true, nil
}

// UpdateQuantity follows cart.Manager.UpdateQuantity.
func (s *Session) UpdateQuantity(index, quantity int) (bool, error) {
	if s.submitting {
		return false, s.busy()
	}
	applied, err := s.cart.UpdateQuantity(index, quantity)
	if applied {
		s.renewKeyIfSent()
	}
	return applied, err
}

func (s *Session) Remove(index int) error {
	if s.submitting {
		return s.busy()
	}
	if err := s.cart.Remove(index); err != nil {
		return err
	}
	s.cartChanged()
	return nil
}

// BeginSubmit snapshots the cart for submission. It fails without a network call on an
// empty cart and while another purchase is pending.
func (s *Session) BeginSubmit() (SubmitTicket, error) {
	if s.submitting {
		return SubmitTicket{}, s.busy()
	}
	if s.cart.IsEmpty() {
		s.errMsg = MsgEmptyCart
		return SubmitTicket{}, domain.ErrEmptyCart
	}
	s.errMsg = ""
	s.notice = ""
	s.submitting = true
	s.keySent = true
	s.submitSeq++
	return SubmitTicket{
		Seq:            s.submitSeq,
		Lines:          s.cart.Lines(),
		IdempotencyKey: s.txKey,
	}, nil
}

// Submit performs the network call for t. It reads no session state.
func (s *Session) Submit(ctx context.Context, t SubmitTicket) SubmitOutcome {
	res, err := s.submitter.Submit(ctx, t.Lines, t.IdempotencyKey)
	return SubmitOutcome{Ticket: t, Result: res, Err: err}
}

// ApplySubmit finishes a purchase. The cart is cleared only on success.
func (s *Session) ApplySubmit(o SubmitOutcome) bool {
	if o.Ticket.Seq != s.submitSeq {
		return false
	}
	s.submitting = false
	if o.Err != nil {
		switch {
		case errors.Is(o.Err, domain.ErrEmptyCart):
			s.errMsg = MsgEmptyCart
		default:
			s.errMsg = MsgPurchaseFailed
		}
		return true
	}
	s.cart.Clear()
	s.cartChanged()
	s.notice = fmt.Sprintf(msgCompletedFmt, o.Result.TotalAmount)
	return true
}

// Purchase runs a whole purchase synchronously.
func (s *Session) Purchase(ctx context.Context) (domain.PurchaseResult, error) {
	t, err := s.BeginSubmit()
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	o := s.Submit(ctx, t)
	s.ApplySubmit(o)
	return o.Result, o.Err
}

func (s *Session) Lines() []domain.CartLine { return s.cart.Lines() }
func (s *Session) Total() int64             { return s.cart.Total() }
func (s *Session) Submitting() bool         { return s.submitting }
func (s *Session) Error() string            { return s.errMsg }
func (s *Session) Notice() string           { return s.notice }

// IdempotencyKey is the key sent with every submit attempt of the current cart. A cart
// changed after an attempt is a different transaction and gets a new key.
func (s *Session) IdempotencyKey() string { return s.txKey }

func (s *Session) busy() error {
	s.errMsg = MsgBusy
	return domain.ErrSubmitInFlight
}

func (s *Session) renewKeyIfSent() {
	if s.keySent {
		s.txKey = s.newKey()
		s.keySent = false
	}
}

func (s *Session) cartChanged() {
	s.renewKeyIfSent()
	if s.onCart != nil {
		s.onCart(s.cart.Len())
	}
}
