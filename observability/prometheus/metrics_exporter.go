// Package prometheus adapts pool.Metrics to Prometheus collectors.
package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/nexuslabs/exec-pool/pool"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	DurationBuckets []float64
}

// MetricsExporter adapts pool.Metrics to Prometheus collectors.
type MetricsExporter struct {
	tasksSubmittedTotal prom.Counter
	taskDurationSeconds *prom.HistogramVec
	taskErrorTotal      *prom.CounterVec
	queueDepth          prom.Gauge
	workersRunning      prom.Gauge
	workersCancelWait   prom.Gauge
	workersCancelled    prom.Gauge
}

var _ pool.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors backing
// pool.Metrics.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "execpool"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	buckets := opts.DurationBuckets
	if len(buckets) == 0 {
		buckets = prom.DefBuckets
	}

	submittedTotal := prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_submitted_total",
		Help:      "Total number of tasks submitted to the pool.",
	})
	durationVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_duration_seconds",
		Help:      "Task execution duration in seconds.",
		Buckets:   buckets,
	}, []string{"priority"})
	errorVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_error_total",
		Help:      "Total number of tasks that completed with a non-nil error.",
	}, []string{"priority"})
	queueDepthGauge := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current task queue depth.",
	})
	running := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "workers_running",
		Help:      "Number of workers currently active.",
	})
	cancelWait := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "workers_cancel_wait",
		Help:      "Number of workers that were asked to stop but have not yet exited.",
	})
	cancelled := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "workers_cancelled",
		Help:      "Number of workers that have fully exited.",
	})

	var err error
	if submittedTotal, err = registerCollector(reg, submittedTotal); err != nil {
		return nil, err
	}
	if durationVec, err = registerCollector(reg, durationVec); err != nil {
		return nil, err
	}
	if errorVec, err = registerCollector(reg, errorVec); err != nil {
		return nil, err
	}
	if queueDepthGauge, err = registerCollector(reg, queueDepthGauge); err != nil {
		return nil, err
	}
	if running, err = registerCollector(reg, running); err != nil {
		return nil, err
	}
	if cancelWait, err = registerCollector(reg, cancelWait); err != nil {
		return nil, err
	}
	if cancelled, err = registerCollector(reg, cancelled); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		tasksSubmittedTotal: submittedTotal,
		taskDurationSeconds: durationVec,
		taskErrorTotal:      errorVec,
		queueDepth:          queueDepthGauge,
		workersRunning:      running,
		workersCancelWait:   cancelWait,
		workersCancelled:    cancelled,
	}, nil
}

// RecordSubmit increments the submitted-task counter.
func (m *MetricsExporter) RecordSubmit() {
	if m == nil {
		return
	}
	m.tasksSubmittedTotal.Inc()
}

// RecordCompletion records a completed task's duration, and its error
// count when it failed.
func (m *MetricsExporter) RecordCompletion(priority int8, dur time.Duration, err error) {
	if m == nil {
		return
	}
	label := priorityLabel(priority)
	m.taskDurationSeconds.WithLabelValues(label).Observe(dur.Seconds())
	if err != nil {
		m.taskErrorTotal.WithLabelValues(label).Inc()
	}
}

// RecordQueueDepth sets the queue depth gauge.
func (m *MetricsExporter) RecordQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// RecordWorkerReport sets the worker lifecycle gauges from a pool.Report
// snapshot.
func (m *MetricsExporter) RecordWorkerReport(r pool.Report) {
	if m == nil {
		return
	}
	m.workersRunning.Set(float64(r.Running))
	m.workersCancelWait.Set(float64(r.CancelWait))
	m.workersCancelled.Set(float64(r.Cancelled))
}

func priorityLabel(priority int8) string {
	return fmt.Sprintf("%d", priority)
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
