package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run outcomes recorded by Metrics.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Metrics holds the Prometheus collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal   *prometheus.CounterVec // Runs by outcome
	runDuration prometheus.Histogram   // Time spent computing a run
	lastBits    prometheus.Gauge       // Bit count of the last successful run
	wsClients   prometheus.Gauge       // Connected WebSocket clients
}

// NewMetrics registers the collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpfsk_runs_total",
				Help: "Modulation runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cpfsk_run_duration_seconds",
				Help:    "Time to compute trajectory, formulas and waveform",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
		),
		lastBits: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cpfsk_last_run_bits",
				Help: "Number of bits in the last successful run",
			},
		),
		wsClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cpfsk_websocket_clients",
				Help: "Currently connected WebSocket clients",
			},
		),
	}
}

// ObserveRun records one run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration, bits int) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	m.runDuration.Observe(d.Seconds())
	m.lastBits.Set(float64(bits))
}

// SetClients records the WebSocket client count.
func (m *Metrics) SetClients(n int) {
	m.wsClients.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
