package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wsp"

// Poll outcomes used as the "outcome" label of PollsTotal.
const (
	OutcomeSuccess      = "success"
	OutcomeFetchError   = "fetch_error"
	OutcomeMappingError = "mapping_error"
	OutcomeSinkError    = "sink_error"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the node server.
type Metrics struct {
	PollsTotal       *prometheus.CounterVec // labels: outcome={success,fetch_error,mapping_error,sink_error}
	PollDuration     prometheus.Histogram
	DriversPublished *prometheus.CounterVec // labels: driver
	SinkErrors       prometheus.Counter
	FetchRetries     prometheus.Counter
	PollerRunning    prometheus.Gauge

	// DriverValue mirrors the last published value of each driver.
	DriverValue *prometheus.GaugeVec // labels: driver
}

func newMetrics() *Metrics {
	return &Metrics{
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by outcome.",
		}, []string{"outcome"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of a complete fetch-map-publish cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DriversPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drivers_published_total",
			Help:      "Driver values handed to the sink, by driver.",
		}, []string{"driver"}),
		SinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Driver values the sink failed to accept.",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_retries_total",
			Help:      "Weather API requests retried after a transient failure.",
		}),
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "poller_running",
			Help:      "1 when the node server is started, 0 when stopped.",
		}),
		DriverValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "driver_value",
			Help:      "Last published value per driver.",
		}, []string{"driver"}),
	}
}

// NewMetrics creates and registers all node server metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollsTotal,
		m.PollDuration,
		m.DriversPublished,
		m.SinkErrors,
		m.FetchRetries,
		m.PollerRunning,
		m.DriverValue,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
