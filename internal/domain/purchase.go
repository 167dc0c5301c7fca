package domain

// OperationalContext identifies who and where a transaction is rung up.
type OperationalContext struct {
	EmpCode   string
	StoreCode string
	PosNo     string
}

// PurchaseItem is a cart line re-keyed into the transaction schema.
// Quantity is only sent when the terminal is configured to do so.
type PurchaseItem struct {
	ProductID int64  `json:"prd_id"`
	Code      string `json:"prd_code"`
	Name      string `json:"prd_name"`
	Price     int64  `json:"prd_price"`
	Quantity  int    `json:"quantity,omitempty"`
}

// PurchaseRequest is the body of POST /api/purchase.
type PurchaseRequest struct {
	EmpCode   string         `json:"emp_cd"`
	StoreCode string         `json:"store_cd"`
	PosNo     string         `json:"pos_no"`
	Items     []PurchaseItem `json:"items"`
}

// PurchaseResult is the interpreted backend answer to a purchase.
type PurchaseResult struct {
	Success     bool
	TotalAmount int64
}

// NewPurchaseRequest snapshots lines into a request. When withQuantity is false the
// quantity field is left zero and therefore omitted from the wire.
func NewPurchaseRequest(oc OperationalContext, lines []CartLine, withQuantity bool) PurchaseRequest {
	items := make([]PurchaseItem, 0, len(lines))
	for _, l := range lines {
		item := PurchaseItem{
			ProductID: l.ID,
			Code:      l.Code,
			Name:      l.Name,
			Price:     l.Price,
		}
		if withQuantity {
			item.Quantity = l.Quantity
		}
		items = append(items, item)
	}
	return PurchaseRequest{
		EmpCode:   oc.EmpCode,
		StoreCode: oc.StoreCode,
		PosNo:     oc.PosNo,
		Items:     items,
	}
}
