package observability

import (
	"time"

	"github.com/HammadCopilot/expense-tracker/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the expense tracker.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	receiptUploads  prometheus.Counter
	orphanedBlobs   prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expensed_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensed_external_errors_total",
				Help: "Total errors from external collaborators.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensed_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensed_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expensed_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		receiptUploads: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "expensed_receipt_uploads_total",
				Help: "Total receipt files accepted and stored.",
			},
		),
		orphanedBlobs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "expensed_orphaned_blobs_total",
				Help: "Receipt blobs whose best-effort deletion failed.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// IncrReceiptUpload counts a stored receipt blob.
func (m *Metrics) IncrReceiptUpload() {
	m.receiptUploads.Inc()
}

// IncrOrphanedBlob counts a blob left behind after a swallowed delete failure.
func (m *Metrics) IncrOrphanedBlob() {
	m.orphanedBlobs.Inc()
}

// GetOpsSnapshot returns a snapshot of operational counters for the
// GET /v1/metrics/ops endpoint.
func (m *Metrics) GetOpsSnapshot() *domain.OpsMetrics {
	var totalRequests float64
	for _, class := range []string{"1xx", "2xx", "3xx", "4xx", "5xx"} {
		totalRequests += getCounterValue(m.requestsTotal, class)
	}
	errorCount := getCounterValue(m.requestsTotal, "5xx")
	cacheHits := getCounterValue(m.cacheHits, "categories")
	cacheMisses := getCounterValue(m.cacheMisses, "categories")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.OpsMetrics{
		TotalRequests:  int64(totalRequests),
		ErrorRate:      errorRate,
		CacheHitRate:   cacheHitRate,
		ReceiptUploads: int64(getPlainCounterValue(m.receiptUploads)),
		OrphanedBlobs:  int64(getPlainCounterValue(m.orphanedBlobs)),
	}
}

// getCounterValue reads the current value of a labelled counter.
func getCounterValue(vec *prometheus.CounterVec, label string) float64 {
	c, err := vec.GetMetricWithLabelValues(label)
	if err != nil {
		return 0
	}
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}

func getPlainCounterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
