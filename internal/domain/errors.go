package domain

import "errors"

var (
	ErrNotFound         = errors.New("product not found")
	ErrEmptyCart        = errors.New("cart is empty, nothing to purchase")
	ErrSubmissionFailed = errors.New("purchase submission failed")
	ErrPurchaseRejected = errors.New("purchase rejected by backend")
	ErrIndexOutOfRange  = errors.New("cart line index out of range")
	// ErrSubmitInFlight is returned while a purchase is pending.
	ErrSubmitInFlight = errors.New("purchase already in progress")
)
