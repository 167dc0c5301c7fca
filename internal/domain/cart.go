package domain

// CartLine is one entry of the purchase list. Quantity is always >= 1.
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

// Subtotal returns unit price times quantity.
func (l CartLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}
