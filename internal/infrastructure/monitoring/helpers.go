package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the Prometheus exposition format for this collector
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:          m.registry,
		EnableOpenMetrics: true,
	})
}

// Timer measures the duration of a resolution
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer starts a resolution timer
func NewTimer(metrics *Metrics) *Timer {
	return &Timer{start: time.Now(), metrics: metrics}
}

// Stop records the resolution result and its duration. A timer without
// metrics only measures.
func (t *Timer) Stop(result string) time.Duration {
	elapsed := time.Since(t.start)
	if t.metrics != nil {
		t.metrics.RecordResolution(result, elapsed)
	}
	return elapsed
}
