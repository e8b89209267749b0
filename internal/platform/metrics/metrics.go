// Package metrics exposes Prometheus instrumentation for the money-movement
// API.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors registered for this service.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movementsTotal  *prometheus.CounterVec
	idempotentHits  prometheus.Counter
}

// New creates and registers the service collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sahelpay_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sahelpay_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		movementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sahelpay_money_movements_total",
			Help: "Completed money movements by transaction type.",
		}, []string{"type"}),
		idempotentHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sahelpay_idempotent_replays_total",
			Help: "Requests answered from the idempotency cache.",
		}),
	}

	registry.MustRegister(m.requestsTotal, m.requestDuration, m.movementsTotal, m.idempotentHits)
	return m
}

// ObserveMovement counts one completed money movement.
func (m *Metrics) ObserveMovement(txType string) {
	m.movementsTotal.WithLabelValues(txType).Inc()
}

// ObserveIdempotentReplay counts one cache-served replay.
func (m *Metrics) ObserveIdempotentReplay() {
	m.idempotentHits.Inc()
}

// GinMiddleware records request counts and latency per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.requestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
