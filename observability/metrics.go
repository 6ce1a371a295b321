package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records request activity on the boost HTTP gateway.
type GatewayMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	claims   *prometheus.CounterVec
}

var (
	gatewayOnce     sync.Once
	gatewayRegistry *GatewayMetrics
)

// Gateway returns the lazily-initialised gateway metrics registry.
func Gateway() *GatewayMetrics {
	gatewayOnce.Do(func() {
		gatewayRegistry = &GatewayMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "boost",
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Total gateway requests segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "boost",
				Subsystem: "gateway",
				Name:      "request_seconds",
				Help:      "Gateway request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"operation"}),
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "boost",
				Subsystem: "engine",
				Name:      "claims_total",
				Help:      "Total settled claims segmented by authorization strategy.",
			}, []string{"strategy"}),
		}
		prometheus.MustRegister(gatewayRegistry.requests, gatewayRegistry.latency, gatewayRegistry.claims)
	})
	return gatewayRegistry
}

// ObserveRequest records one gateway request with its outcome and duration.
func (m *GatewayMetrics) ObserveRequest(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// CountClaim records one settled claim for the given strategy.
func (m *GatewayMetrics) CountClaim(strategy string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(strategy).Inc()
}
