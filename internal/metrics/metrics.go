// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics of a schema aggregation run.
//
// The package exposes a narrow interface (Backend) focused on counters and
// timing data. A global backend defaults to a no-op implementation, so the
// helpers are always safe to call even when no real backend is configured.
// Concrete metric systems live in subpackages (prompush, datadog).
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// Statement outcomes reported by RecordStatement.
const (
	OutcomeApplied     = "applied"
	OutcomeIgnored     = "ignored"
	OutcomeUnsupported = "unsupported"
	OutcomeFailed      = "failed"
)

// RecordStep measures latency and success/failure of one run phase
// (list, load, replay, emit).
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter("schemaagg_step_total", 1, lbls)
	backend.ObserveHistogram("schemaagg_step_duration_seconds", d.Seconds(), lbls)
}

// RecordStatement counts replayed statements by outcome, one of the
// Outcome constants.
func RecordStatement(job, outcome string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("schemaagg_statements_total", float64(delta), Labels{
		"job":     job,
		"outcome": outcome,
	})
}

// RecordObjects counts the objects of kind that survived the replay.
func RecordObjects(job, kind string, n int) {
	if n <= 0 {
		return
	}
	backend.IncCounter("schemaagg_objects_total", float64(n), Labels{
		"job":  job,
		"kind": kind,
	})
}
