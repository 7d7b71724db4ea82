// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Collected metrics are pushed to a Pushgateway instance when the run ends
// instead of being exposed on a scrape endpoint. The job label becomes the
// Pushgateway grouping key.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/SitadziMado/migration-aggregator/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter      *prometheus.CounterVec // schemaagg_step_total
	stepDuration     *prometheus.SummaryVec // schemaagg_step_duration_seconds
	statementCounter *prometheus.CounterVec // schemaagg_statements_total
	objectCounter    *prometheus.CounterVec // schemaagg_objects_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name.
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "schemaagg"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemaagg_step_total",
			Help: "Total number of run phase executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "schemaagg_step_duration_seconds",
			Help:       "Duration of run phases in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	statementCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemaagg_statements_total",
			Help: "Replayed statements per outcome (applied, ignored, unsupported, failed).",
		},
		[]string{"outcome"},
	)
	objectCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schemaagg_objects_total",
			Help: "Objects surviving the replay, per kind.",
		},
		[]string{"kind"},
	)

	for name, c := range map[string]prometheus.Collector{
		"step counter":      stepCounter,
		"step summary":      stepDuration,
		"statement counter": statementCounter,
		"object counter":    objectCounter,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}

	return &Backend{
		gatewayURL:       gatewayURL,
		jobName:          jobName,
		reg:              reg,
		stepCounter:      stepCounter,
		stepDuration:     stepDuration,
		statementCounter: statementCounter,
		objectCounter:    objectCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "schemaagg_step_total":
		if b.stepCounter == nil {
			return
		}
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)

	case "schemaagg_statements_total":
		if b.statementCounter == nil {
			return
		}
		b.statementCounter.WithLabelValues(labels["outcome"]).Add(delta)

	case "schemaagg_objects_total":
		if b.objectCounter == nil {
			return
		}
		b.objectCounter.WithLabelValues(labels["kind"]).Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "schemaagg_step_duration_seconds" || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
