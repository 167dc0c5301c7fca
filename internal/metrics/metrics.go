// Package metrics defines the Prometheus collectors of the terminal and the backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pos"

// Result label values.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
	ResultEmpty    = "empty"
)

type TerminalMetrics struct {
	Lookups   *prometheus.CounterVec
	Purchases *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
	CartLines prometheus.Gauge
}

func NewTerminalMetrics(reg prometheus.Registerer) *TerminalMetrics {
	m := &TerminalMetrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "terminal",
			Name:      "product_lookups_total",
			Help:      "Product lookups by result.",
		}, []string{"result"}),
		Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "terminal",
			Name:      "purchases_total",
			Help:      "Purchase submissions by result.",
		}, []string{"result"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "terminal",
			Name:      "backend_call_duration_ms",
			Help:      "Backend call latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"operation"}),
		CartLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "terminal",
			Name:      "cart_lines",
			Help:      "Lines in the current cart.",
		}),
	}
	reg.MustRegister(m.Lookups, m.Purchases, m.LatencyMS, m.CartLines)
	return m
}

// ObserveCall records the latency of a backend operation started at start.
func (m *TerminalMetrics) ObserveCall(operation string, start time.Time) {
	m.LatencyMS.WithLabelValues(operation).Observe(float64(time.Since(start).Milliseconds()))
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"route", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"route"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
