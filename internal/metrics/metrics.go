// Package metrics holds the Prometheus collectors shared by the RPC client
// and the relay.
package metrics

import (
	"net/url"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"archivas-rpc-go/internal/rpc"
)

// UpstreamLatencyBuckets are in milliseconds.
var UpstreamLatencyBuckets = []float64{10, 50, 100, 500, 1000, 2000, 5000}

// Metrics holds all Prometheus metrics for the client and the relay
type Metrics struct {
	// RPC client metrics
	RPCAttemptsTotal  *prometheus.CounterVec
	RPCAttemptLatency *prometheus.HistogramVec
	RPCCallsTotal     *prometheus.CounterVec
	RPCCallLatency    *prometheus.HistogramVec

	// Relay metrics
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	UpstreamLatency prometheus.Histogram
	RateLimited     prometheus.Counter
	TxSubmitSuccess prometheus.Counter
	TxSubmitFailed  prometheus.Counter
	CacheSize       prometheus.Gauge
	CacheFreeSpace  prometheus.Gauge
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics returns the singleton registered on the default registry
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return metrics
}

// NewRegistry returns a registry with the seed2_ prefixed process and Go
// runtime collectors already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "seed2"}),
		collectors.NewGoCollector(),
	)
	return reg
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RPCAttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archivas_rpc_attempts_total",
			Help: "RPC attempts by host, operation and result",
		}, []string{"host", "operation", "result"}),
		RPCAttemptLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archivas_rpc_attempt_duration_seconds",
			Help:    "Latency of single RPC attempts by host and operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"host", "operation"}),
		RPCCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "archivas_rpc_calls_total",
			Help: "Logical RPC calls by operation and result, failover included",
		}, []string{"operation", "result"}),
		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archivas_rpc_call_duration_seconds",
			Help:    "Latency of logical RPC calls including failover and jitter",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		CacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seed2_cache_hits_total",
			Help: "Total number of cache hits",
		}, []string{"endpoint"}),
		CacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "seed2_cache_miss_total",
			Help: "Total number of cache misses",
		}, []string{"endpoint"}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "seed2_upstream_latency_ms",
			Help:    "Upstream request latency in milliseconds",
			Buckets: UpstreamLatencyBuckets,
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "seed2_rate_limited_total",
			Help: "Total number of rate-limited requests",
		}),
		TxSubmitSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "seed2_tx_submit_success_total",
			Help: "Total number of successful transaction submissions",
		}),
		TxSubmitFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "seed2_tx_submit_failed_total",
			Help: "Total number of failed transaction submissions",
		}),
		CacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "seed2_cache_size_bytes",
			Help: "Current cache size in bytes",
		}),
		CacheFreeSpace: factory.NewGauge(prometheus.GaugeOpts{
			Name: "seed2_cache_free_space_percent",
			Help: "Free space percentage on cache disk",
		}),
	}
}

// AttemptObserved implements rpc.Observer.
func (m *Metrics) AttemptObserved(host, operation string, duration time.Duration, err error) {
	host = hostLabel(host)
	m.RPCAttemptsTotal.WithLabelValues(host, operation, resultLabel(err)).Inc()
	m.RPCAttemptLatency.WithLabelValues(host, operation).Observe(duration.Seconds())
}

// CallObserved implements rpc.Observer.
func (m *Metrics) CallObserved(operation, _ string, duration time.Duration, err error) {
	m.RPCCallsTotal.WithLabelValues(operation, resultLabel(err)).Inc()
	m.RPCCallLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCacheStatus counts one nginx cache lookup. EXPIRED is served from
// cache and counts as a hit; other statuses are ignored.
func (m *Metrics) RecordCacheStatus(endpoint, status string) {
	if endpoint == "" {
		endpoint = "unknown"
	}
	switch status {
	case "HIT", "EXPIRED":
		m.CacheHits.WithLabelValues(endpoint).Inc()
	case "MISS":
		m.CacheMisses.WithLabelValues(endpoint).Inc()
	}
}

// RecordTxSubmit counts a transaction submission result
func (m *Metrics) RecordTxSubmit(success bool) {
	if success {
		m.TxSubmitSuccess.Inc()
		return
	}
	m.TxSubmitFailed.Inc()
}

// RecordRateLimited counts a rate-limited request
func (m *Metrics) RecordRateLimited() {
	m.RateLimited.Inc()
}

// RecordUpstreamLatency observes an upstream check in milliseconds
func (m *Metrics) RecordUpstreamLatency(d time.Duration) {
	m.UpstreamLatency.Observe(float64(d.Milliseconds()))
}

// UpdateCacheGauges sets the cache size and free space gauges
func (m *Metrics) UpdateCacheGauges(sizeBytes int64, freePercent float64) {
	m.CacheSize.Set(float64(sizeBytes))
	m.CacheFreeSpace.Set(freePercent)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if kind := rpc.KindOf(err); kind != 0 {
		return kind.String()
	}
	return "error"
}

// hostLabel keeps only host[:port] so credentials in paths never become label values.
func hostLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}

var _ rpc.Observer = (*Metrics)(nil)
