package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cdpgate"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Relay session metrics
	RelaysActive   prometheus.Gauge
	RelaysTotal    *prometheus.CounterVec
	RelayDuration  prometheus.Histogram
	RelayFrames    *prometheus.CounterVec
	RelayBytes     *prometheus.CounterVec
	UpstreamErrors *prometheus.CounterVec

	// Metadata rewrite metrics
	Rewrites *prometheus.CounterVec

	// Resolver metrics
	ResolverAttempts    *prometheus.CounterVec
	ResolverResolutions *prometheus.CounterVec
	ResolverDuration    prometheus.Histogram

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time
}

// NewMetrics creates a metrics collector backed by its own registry, so
// several instances (one per test) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Relay session metrics
		RelaysActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "relay_sessions_active",
				Help:      "Number of open WebSocket relay sessions",
			},
		),
		RelaysTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_sessions_total",
				Help:      "Total number of finished WebSocket relay sessions",
			},
			[]string{"outcome"},
		),
		RelayDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "relay_session_duration_seconds",
				Help:      "WebSocket relay session lifetime in seconds",
				Buckets:   []float64{.1, 1, 10, 60, 300, 900, 3600, 14400},
			},
		),
		RelayFrames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_frames_total",
				Help:      "Total number of relayed WebSocket frames",
			},
			[]string{"direction", "type"},
		),
		RelayBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "relay_bytes_total",
				Help:      "Total number of relayed WebSocket payload bytes",
			},
			[]string{"direction"},
		),
		UpstreamErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of failures talking to the upstream CDP server",
			},
			[]string{"kind"},
		),

		// Metadata rewrite metrics
		Rewrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "metadata_rewrites_total",
				Help:      "Total number of metadata documents processed by the rewriter",
			},
			[]string{"document", "result"},
		),

		// Resolver metrics
		ResolverAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolver_attempts_total",
				Help:      "Total number of endpoint resolution attempts",
			},
			[]string{"candidate", "result"},
		),
		ResolverResolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolver_resolutions_total",
				Help:      "Total number of endpoint resolutions",
			},
			[]string{"result"},
		),
		ResolverDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolver_duration_seconds",
				Help:      "Endpoint resolution duration in seconds",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the registry every collector is registered with
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
}

// RelayStarted marks a relay session as open
func (m *Metrics) RelayStarted() {
	m.RelaysActive.Inc()
}

// RelayFinished marks a relay session as closed
func (m *Metrics) RelayFinished(outcome string, duration time.Duration) {
	m.RelaysActive.Dec()
	m.RelaysTotal.WithLabelValues(outcome).Inc()
	m.RelayDuration.Observe(duration.Seconds())
}

// RecordRelayFrame records one relayed frame
func (m *Metrics) RecordRelayFrame(direction, frameType string, size int64) {
	m.RelayFrames.WithLabelValues(direction, frameType).Inc()
	m.RelayBytes.WithLabelValues(direction).Add(float64(size))
}

// RecordUpstreamError records a failure talking to the upstream
func (m *Metrics) RecordUpstreamError(kind string) {
	m.UpstreamErrors.WithLabelValues(kind).Inc()
}

// RecordRewrite records the result of a metadata rewrite
func (m *Metrics) RecordRewrite(document, result string) {
	m.Rewrites.WithLabelValues(document, result).Inc()
}

// RecordResolverAttempt records one resolver attempt against a candidate
func (m *Metrics) RecordResolverAttempt(candidate, result string) {
	m.ResolverAttempts.WithLabelValues(candidate, result).Inc()
}

// RecordResolution records the outcome of a whole resolution call
func (m *Metrics) RecordResolution(result string, duration time.Duration) {
	m.ResolverResolutions.WithLabelValues(result).Inc()
	m.ResolverDuration.Observe(duration.Seconds())
}
