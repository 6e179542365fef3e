package engine

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/nqm/internal/model"
)

// Metrics are the execution metrics. A nil *Metrics records nothing.
type Metrics struct {
	Executions *prometheus.CounterVec
	Errors     *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates the execution metrics. They are not registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nqm",
				Subsystem: "query",
				Name:      "executions_total",
				Help:      "Total number of query executions by outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nqm",
				Subsystem: "query",
				Name:      "errors_total",
				Help:      "Total number of failed query executions by error category",
			},
			[]string{"endpoint", "category"},
		),

		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nqm",
				Subsystem: "query",
				Name:      "duration_seconds",
				Help:      "Query execution duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"endpoint"},
		),
	}
}

// Register registers every collector. When reg already holds collectors of
// the same description they are adopted, so two engines may share one
// registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	var err error
	if m.Executions, err = register(reg, m.Executions); err != nil {
		return err
	}
	if m.Errors, err = register(reg, m.Errors); err != nil {
		return err
	}
	if m.Duration, err = register(reg, m.Duration); err != nil {
		return err
	}
	return nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordExecution records one finished attempt.
func (m *Metrics) RecordExecution(st model.QueryStats, elapsed time.Duration) {
	if m == nil {
		return
	}
	if f, failed := st.Failure(); failed {
		m.Executions.WithLabelValues(st.EndpointName, "failure").Inc()
		m.Errors.WithLabelValues(st.EndpointName, string(f.Category)).Inc()
	} else {
		m.Executions.WithLabelValues(st.EndpointName, "success").Inc()
	}
	m.Duration.WithLabelValues(st.EndpointName).Observe(elapsed.Seconds())
}
