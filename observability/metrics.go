package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records report rendering statistics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	renderDuration *prometheus.HistogramVec
	pages          *prometheus.CounterVec
	failures       *prometheus.CounterVec
}

// NewMetrics registers the report metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "plantreport_render_duration_seconds",
			Help:    "Time spent rendering a report to PDF",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
		pages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plantreport_pages_rendered_total",
			Help: "Physical PDF pages rendered",
		}, []string{"kind"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "plantreport_render_failures_total",
			Help: "Reports that failed to render",
		}, []string{"kind"}),
	}
}

// ObserveRender records one successful render.
func (m *Metrics) ObserveRender(kind string, d time.Duration, pages int) {
	if m == nil {
		return
	}
	m.renderDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.pages.WithLabelValues(kind).Add(float64(pages))
}

// RenderFailed records one failed render.
func (m *Metrics) RenderFailed(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}
