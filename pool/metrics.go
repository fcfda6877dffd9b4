package pool

import "time"

// Metrics collects pool-level observability events. Implementations
// should be fast and non-blocking; the observability/prometheus package
// provides a concrete one backed by client_golang.
type Metrics interface {
	// RecordSubmit is called once per SubmitTask/Submit call.
	RecordSubmit()

	// RecordCompletion is called after a task finishes, whatever the
	// outcome.
	RecordCompletion(priority int8, dur time.Duration, err error)

	// RecordQueueDepth reports the queue length observed at submit
	// time.
	RecordQueueDepth(depth int)

	// RecordWorkerReport reports a full pool snapshot, typically called
	// periodically by a poller rather than per-operation.
	RecordWorkerReport(r Report)
}

// NilMetrics discards every event. It is the default when Config.Metrics
// is left unset.
type NilMetrics struct{}

func (NilMetrics) RecordSubmit()                                                {}
func (NilMetrics) RecordCompletion(priority int8, dur time.Duration, err error) {}
func (NilMetrics) RecordQueueDepth(depth int)                                   {}
func (NilMetrics) RecordWorkerReport(r Report)                                  {}
