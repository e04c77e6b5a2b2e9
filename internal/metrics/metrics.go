// Package metrics exposes Prometheus collectors for the ingestion pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
)

// Session outcomes reported through ObserveSession.
const (
	SessionWritten = "written"
	SessionEmpty   = "empty"
	SessionNoWork  = "no_work"
	SessionFailed  = "failed"
)

var (
	recordsTotal               *prometheus.CounterVec
	sessionsTotal              *prometheus.CounterVec
	articlesWrittenTotal       prometheus.Counter
	publishFailuresTotal       prometheus.Counter
	sampleDurationSeconds      prometheus.Histogram
	activeMonths               prometheus.Gauge
	fetchThrottleSeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccnews_records_total",
				Help: "Per-sample diagnostic counters summed across samples, labeled by counter name.",
			},
			[]string{"counter"},
		)

		sessionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ccnews_sessions_total",
				Help: "Date/session slices processed, labeled by result.",
			},
			[]string{"result"},
		)

		articlesWrittenTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ccnews_articles_written_total",
				Help: "Deduplicated articles persisted.",
			},
		)

		publishFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "ccnews_publish_failures_total",
				Help: "Slice completion notifications that failed to publish.",
			},
		)

		sampleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ccnews_sample_duration_seconds",
				Help:    "Time spent streaming and gating one archive sample.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)

		activeMonths = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ccnews_active_month_workers",
				Help: "Number of month workers currently running.",
			},
		)

		fetchThrottleSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ccnews_fetch_throttle_seconds",
				Help:    "Delay introduced by the archive fetch limiter, labeled by bucket.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"bucket"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSample adds one sample's counters and duration. No-op before Init.
func ObserveSample(m ccnews.SampleMetrics, duration time.Duration) {
	if recordsTotal == nil {
		return
	}
	for name, value := range m.Counters() {
		if value > 0 {
			recordsTotal.WithLabelValues(name).Add(float64(value))
		}
	}
	sampleDurationSeconds.Observe(duration.Seconds())
}

// ObserveSession counts a slice outcome and the articles it wrote.
func ObserveSession(result string, articles int) {
	if sessionsTotal == nil {
		return
	}
	sessionsTotal.WithLabelValues(result).Inc()
	if articles > 0 {
		articlesWrittenTotal.Add(float64(articles))
	}
}

// ObservePublishFailure increments the failed notification counter.
func ObservePublishFailure() {
	if publishFailuresTotal == nil {
		return
	}
	publishFailuresTotal.Inc()
}

// IncActiveMonths increments the active month worker gauge.
func IncActiveMonths() {
	if activeMonths != nil {
		activeMonths.Inc()
	}
}

// DecActiveMonths decrements the active month worker gauge.
func DecActiveMonths() {
	if activeMonths != nil {
		activeMonths.Dec()
	}
}

// ObserveFetchThrottle records time spent waiting on the fetch limiter.
func ObserveFetchThrottle(bucket string, delay time.Duration) {
	if fetchThrottleSeconds == nil {
		return
	}
	fetchThrottleSeconds.WithLabelValues(bucket).Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
