package domain

// Product is the catalog entry returned by GET /api/products/{code}.
type Product struct {
	ID    int64  `json:"prd_id"`
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}
