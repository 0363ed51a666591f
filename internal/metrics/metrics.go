package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels completed operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations.
	OutcomeError = "error"
)

var (
	forecastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "care_engine",
			Name:      "forecasts_total",
			Help:      "Total forecasts produced, partitioned by kind and interval source.",
		},
		[]string{"kind", "source"},
	)

	forecastDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "care_engine",
			Name:      "forecast_seconds",
			Help:      "Forecast computation latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	solverRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "care_engine",
			Name:      "solver_runs_total",
			Help:      "Total auto-solver runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	solveDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "care_engine",
			Name:      "solve_seconds",
			Help:      "Auto-solver latency in seconds, including persistence.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	eventsLoggedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "care_engine",
			Name:      "events_logged_total",
			Help:      "Total care events logged, partitioned by event type.",
		},
		[]string{"type"},
	)
)

// Register attaches care-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		forecastsTotal,
		forecastDurationSeconds,
		solverRunsTotal,
		solveDurationSeconds,
		eventsLoggedTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveForecast records one forecast with its duration and labels.
func ObserveForecast(kind, source string, duration time.Duration) {
	forecastsTotal.WithLabelValues(kind, source).Inc()
	if duration < 0 {
		duration = 0
	}
	forecastDurationSeconds.Observe(duration.Seconds())
}

// ObserveSolve records one solver run with its duration and outcome label.
func ObserveSolve(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	solverRunsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	solveDurationSeconds.Observe(duration.Seconds())
}

// ObserveEventLogged counts a newly logged care event.
func ObserveEventLogged(eventType string) {
	eventsLoggedTotal.WithLabelValues(eventType).Inc()
}
