// ABOUTME: Prometheus metrics for recording sessions and the control server
// ABOUTME: Implements the recorder observer on a private registry
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the recorder
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	ActiveSessions  prometheus.Gauge
	SessionsStarted *prometheus.CounterVec
	SessionsFailed  prometheus.Counter
	AccessDenials   *prometheus.CounterVec
	SessionDuration prometheus.Histogram
	ArtifactSize    prometheus.Histogram

	// Block pipeline metrics
	BlocksReceived prometheus.Counter
	BlocksEncoded  prometheus.Counter
	BlockFaults    prometheus.Counter
	DroppedBlocks  prometheus.Counter
	EncodedBytes   prometheus.Counter
	PendingBlocks  prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "recorder_active_sessions",
			Help: "Number of recording sessions currently capturing",
		}),
		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_sessions_started_total",
			Help: "Total number of recording sessions started",
		}, []string{"strategy", "mime_type"}),
		SessionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_sessions_failed_total",
			Help: "Total number of sessions that stopped with errors",
		}),
		AccessDenials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_access_denials_total",
			Help: "Total number of denied device access requests",
		}, []string{"reason"}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_session_duration_seconds",
			Help:    "Duration of recording sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68 minutes
		}),
		ArtifactSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recorder_artifact_size_bytes",
			Help:    "Size of finished recordings",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
		}),

		BlocksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_blocks_received_total",
			Help: "Total number of captured blocks taken off the bridge",
		}),
		BlocksEncoded: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_blocks_encoded_total",
			Help: "Total number of blocks encoded successfully",
		}),
		BlockFaults: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_block_faults_total",
			Help: "Total number of blocks skipped after an encode error",
		}),
		DroppedBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_blocks_dropped_total",
			Help: "Total number of blocks evicted by the back-pressure policy",
		}),
		EncodedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "recorder_encoded_bytes_total",
			Help: "Total number of encoded bytes appended to artifacts",
		}),
		PendingBlocks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "recorder_queue_depth",
			Help: "Blocks admitted by the capture bridge and not yet encoded",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recorder_http_requests_total",
			Help: "Total number of control API requests",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recorder_http_request_duration_seconds",
			Help:    "Control API request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SessionStarted records a session entering the capturing state
func (m *Metrics) SessionStarted(strategy, mimeType string) {
	m.ActiveSessions.Inc()
	m.SessionsStarted.WithLabelValues(strategy, mimeType).Inc()
}

// SessionStopped records a finished session
func (m *Metrics) SessionStopped(duration time.Duration, size int, failed bool) {
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(duration.Seconds())
	m.ArtifactSize.Observe(float64(size))
	m.PendingBlocks.Set(0)
	if failed {
		m.SessionsFailed.Inc()
	}
}

// AccessDenied records a failed access request
func (m *Metrics) AccessDenied(reason string) {
	m.AccessDenials.WithLabelValues(reason).Inc()
}

// BlockReceived records one block taken off the bridge
func (m *Metrics) BlockReceived() {
	m.BlocksReceived.Inc()
}

// BlockEncoded records one encoded block and its output size
func (m *Metrics) BlockEncoded(bytes int) {
	m.BlocksEncoded.Inc()
	m.EncodedBytes.Add(float64(bytes))
}

// BlockFault records a skipped block
func (m *Metrics) BlockFault() {
	m.BlockFaults.Inc()
}

// BlocksDropped records blocks evicted by the back-pressure policy
func (m *Metrics) BlocksDropped(n uint64) {
	m.DroppedBlocks.Add(float64(n))
}

// QueueDepth records the bridge's pending depth
func (m *Metrics) QueueDepth(depth int) {
	m.PendingBlocks.Set(float64(depth))
}

// RecordHTTPRequest records a control API request
func (m *Metrics) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
