// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the warehouse loader.
//
// The package exposes a narrow interface (Backend) focused on counters and
// timing data, with a global, pluggable backend that defaults to a no-op
// implementation. Metrics calls are therefore always safe, with or without a
// real backend configured. Concrete metric systems (Prometheus Pushgateway,
// Datadog) live in subpackages so the pipeline depends only on this
// interface.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
// It is intentionally generic so we can plug in Prometheus, Datadog, etc.
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

// RecordStage records the outcome of one pipeline stage: an execution
// counter partitioned by status, the stage latency, and the number of rows
// the stage landed in its destination table.
func RecordStage(job, stage string, rows int64, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"stage":  stage,
		"status": status,
	}

	backend.IncCounter("etl_stage_total", 1, lbls)
	backend.ObserveHistogram("etl_stage_duration_seconds", d.Seconds(), lbls)
	if rows > 0 {
		backend.IncCounter("etl_rows_total", float64(rows), Labels{
			"job":   job,
			"stage": stage,
		})
	}
}

// RecordObjects counts schema objects (indexes, functions, views) created by
// the post-load build, partitioned by script.
func RecordObjects(job, script string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("etl_schema_objects_total", float64(delta), Labels{
		"job":    job,
		"script": script,
	})
}
