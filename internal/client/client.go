// Package client talks to the POS backend over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const IdempotencyHeader = "Idempotency-Key"

var (
	ErrProductNotFound   = errors.New("backend has no such product")
	ErrUnexpectedStatus  = errors.New("unexpected backend status")
	ErrMalformedResponse = errors.New("malformed backend response")
	ErrResponseTooLarge  = errors.New("backend response too large")
)

// maxResponseBytes bounds every backend response body.
const maxResponseBytes = 1 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// MaxFailures consecutive failures open the breaker for OpenTimeout.
	MaxFailures uint32
	OpenTimeout time.Duration
	// Transport overrides the base round tripper, mostly for tests.
	Transport http.RoundTripper
}

type response struct {
	status int
	body   []byte
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*response]
}

func NewClient(cfg Config) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base),
		},
		breaker: gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
			Name:    "pos-backend",
			Timeout: cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
		}),
	}
}

// BreakerState reports the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// GetProduct fetches the product registered under code.
func (c *Client) GetProduct(ctx context.Context, code string) (domain.Product, error) {
	endpoint := c.baseURL + "/api/products/" + url.PathEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Product{}, fmt.Errorf("build product request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.do(req)
	if err != nil {
		return domain.Product{}, err
	}
	if res.status == http.StatusNotFound {
		return domain.Product{}, ErrProductNotFound
	}
	if res.status < 200 || res.status >= 300 {
		return domain.Product{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.status)
	}

	var p domain.Product
	if err := json.Unmarshal(res.body, &p); err != nil {
		return domain.Product{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if p.Price < 0 {
		return domain.Product{}, fmt.Errorf("%w: negative price %d", ErrMalformedResponse, p.Price)
	}
	return p, nil
}

type purchaseResponse struct {
	Success  *bool       `json:"success"`
	TotalAmt json.Number `json:"total_amt"`
}

// Purchase posts the transaction. A non-empty idempotencyKey is sent as a header;
// the body is the request verbatim.
func (c *Client) Purchase(ctx context.Context, body domain.PurchaseRequest, idempotencyKey string) (domain.PurchaseResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("marshal purchase request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/purchase", bytes.NewReader(payload))
	if err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("build purchase request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}

	res, err := c.do(req)
	if err != nil {
		return domain.PurchaseResult{}, err
	}
	if res.status < 200 || res.status >= 300 {
		return domain.PurchaseResult{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.status)
	}

	var pr purchaseResponse
	if err := json.Unmarshal(res.body, &pr); err != nil {
		return domain.PurchaseResult{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if pr.Success == nil {
		return domain.PurchaseResult{}, fmt.Errorf("%w: missing success flag", ErrMalformedResponse)
	}

	result := domain.PurchaseResult{Success: *pr.Success}
	if pr.TotalAmt != "" {
		total, err := parseAmount(pr.TotalAmt)
		if err != nil {
			return domain.PurchaseResult{}, fmt.Errorf("%w: total_amt: %w", ErrMalformedResponse, err)
		}
		result.TotalAmount = total
	}
	return result, nil
}

// do runs req through the breaker. Transport errors and 5xx count as failures.
func (c *Client) do(req *http.Request) (*response, error) {
	res, err := c.breaker.Execute(func() (*response, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if len(body) > maxResponseBytes {
			return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, maxResponseBytes)
		}
		r := &response{status: resp.StatusCode, body: body}
		if resp.StatusCode >= 500 {
			return r, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return res, nil
}

func parseAmount(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("fractional amount %s", n.String())
	}
	return int64(f), nil
}
