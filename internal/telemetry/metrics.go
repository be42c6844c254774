package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RefreshPasses   prometheus.Counter
	RefreshesTotal  *prometheus.CounterVec
	RefreshDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
	TokenLogins     *prometheus.CounterVec
}

// NewMetrics creates and registers Prometheus metrics on the given
// registerer. Tests pass a fresh registry to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RefreshPasses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "parcelwatch_refresh_passes_total",
				Help: "Total number of refresh passes run",
			},
		),
		RefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcelwatch_delivery_refreshes_total",
				Help: "Per-delivery refresh outcomes by carrier and status",
			},
			[]string{"carrier", "status"},
		),
		RefreshDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parcelwatch_refresh_duration_seconds",
				Help:    "Carrier tracking call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcelwatch_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error type",
			},
			[]string{"carrier", "error_type"},
		),
		TokenLogins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parcelwatch_token_logins_total",
				Help: "Total OAuth token logins by carrier",
			},
			[]string{"carrier"},
		),
	}
}

// LoginCounter returns the token login counter for one carrier.
func (m *Metrics) LoginCounter(carrier string) prometheus.Counter {
	return m.TokenLogins.WithLabelValues(carrier)
}

// RecordRefresh records one delivery's refresh outcome.
func (m *Metrics) RecordRefresh(carrier, status string, seconds float64) {
	m.RefreshesTotal.WithLabelValues(carrier, status).Inc()
	if seconds > 0 {
		m.RefreshDuration.WithLabelValues(carrier).Observe(seconds)
	}
}

// RecordError records a carrier error metric.
func (m *Metrics) RecordError(carrier, errorType string) {
	m.CarrierErrors.WithLabelValues(carrier, errorType).Inc()
}
