package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:     srv.URL + "/",
		Timeout:     2 * time.Second,
		MaxFailures: 2,
		OpenTimeout: time.Minute,
	}), srv
}

func TestGetProduct_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/products/4901", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"prd_id":1,"code":"4901","name":"Tea","price":150}`))
	})

	p, err := c.GetProduct(context.Background(), "4901")

	require.NoError(t, err)
	assert.Equal(t, domain.Product{ID: 1, Code: "4901", Name: "Tea", Price: 150}, p)
}

func TestGetProduct_EscapesCode(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/a%2Fb", r.URL.RawPath)
		w.Write([]byte(`{"prd_id":9,"code":"a/b","name":"Odd","price":1}`))
	})

	p, err := c.GetProduct(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", p.Code)
}

func TestGetProduct_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"product not found"}`, http.StatusNotFound)
	})

	_, err := c.GetProduct(context.Background(), "0000")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetProduct_MalformedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prd_id":`))
	})

	_, err := c.GetProduct(context.Background(), "4901")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGetProduct_NegativePrice(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prd_id":1,"code":"4901","name":"Tea","price":-5}`))
	})

	_, err := c.GetProduct(context.Background(), "4901")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGetProduct_OversizedBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"prd_id":1,"code":"4901","name":"`))
		w.Write([]byte(strings.Repeat("x", maxResponseBytes)))
		w.Write([]byte(`","price":150}`))
	})

	_, err := c.GetProduct(context.Background(), "4901")
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestPurchase_BodyAtLimitIsRead(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := `{"success":true,"total_amt":150}`
		w.Write([]byte(body + strings.Repeat(" ", maxResponseBytes-len(body))))
	})

	res, err := c.Purchase(context.Background(), domain.PurchaseRequest{}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(150), res.TotalAmount)
}

func TestGetProduct_TransportError(t *testing.T) {
	c, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := c.GetProduct(context.Background(), "4901")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestPurchase_SendsWireFormat(t *testing.T) {
	var got map[string]any
	var key string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/purchase", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		key = r.Header.Get(IdempotencyHeader)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"success":true,"total_amt":450}`))
	})

	req := domain.PurchaseRequest{
		EmpCode: "A001", StoreCode: "00001", PosNo: "001",
		Items: []domain.PurchaseItem{{ProductID: 1, Code: "4901", Name: "Tea", Price: 150}},
	}
	res, err := c.Purchase(context.Background(), req, "key-1")

	require.NoError(t, err)
	assert.Equal(t, domain.PurchaseResult{Success: true, TotalAmount: 450}, res)
	assert.Equal(t, "key-1", key)
	assert.Equal(t, "A001", got["emp_cd"])
	assert.Equal(t, "00001", got["store_cd"])
	assert.Equal(t, "001", got["pos_no"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, float64(1), item["prd_id"])
	assert.Equal(t, "4901", item["prd_code"])
	assert.Equal(t, "Tea", item["prd_name"])
	assert.Equal(t, float64(150), item["prd_price"])
	assert.NotContains(t, item, "quantity")
}

func TestPurchase_NoKeyNoHeader(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.Header[IdempotencyHeader]
		assert.False(t, ok)
		w.Write([]byte(`{"success":true,"total_amt":0}`))
	})

	_, err := c.Purchase(context.Background(), domain.PurchaseRequest{}, "")
	require.NoError(t, err)
}

func TestPurchase_Rejected(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false}`))
	})

	res, err := c.Purchase(context.Background(), domain.PurchaseRequest{}, "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Zero(t, res.TotalAmount)
}

func TestPurchase_FloatTotal(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"total_amt":450.0}`))
	})

	res, err := c.Purchase(context.Background(), domain.PurchaseRequest{}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(450), res.TotalAmount)
}

func TestPurchase_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `<html>`,
		"missing success": `{"total_amt":450}`,
		"fractional":      `{"success":true,"total_amt":1.5}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			_, err := c.Purchase(context.Background(), domain.PurchaseRequest{}, "")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestPurchase_ServerError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Purchase(context.Background(), domain.PurchaseRequest{}, "")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 2; i++ {
		_, err := c.GetProduct(context.Background(), "4901")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())

	_, err := c.GetProduct(context.Background(), "4901")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
}

func TestBreaker_NotFoundIsNotAFailure(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for i := 0; i < 5; i++ {
		_, err := c.GetProduct(context.Background(), "0000")
		require.ErrorIs(t, err, ErrProductNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
}
