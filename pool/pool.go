// Package pool implements a resizable worker pool executing tasks
// pulled from a single shared queue, grounded on
// original_source/include/nexus/exec/thread/pool.hpp and
// src/exec/pool.cpp for the worker lifecycle and resize semantics, and
// on Go idioms (Config struct, error returns, structured logging) for
// the surrounding surface.
package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/nexuslabs/exec-pool/queue"
	"github.com/nexuslabs/exec-pool/task"
	"github.com/nexuslabs/exec-pool/worker"
)

// Config configures a ThreadPool. Policy/MaxWorkers/MinWorkers/
// InitWorkers/RemoveCancelled mirror nexus::exec::thread::ThreadPool::
// Config exactly; PanicHandler/Metrics/Logger are ambient additions.
// When left unset, Metrics defaults to NilMetrics, Logger to a slog
// logger writing to stderr, and PanicHandler to a DefaultPanicHandler
// that logs through that Logger.
type Config struct {
	Policy          queue.PolicyKind
	MaxWorkers      int
	MinWorkers      int
	InitWorkers     int
	RemoveCancelled bool

	PanicHandler PanicHandler
	Metrics      Metrics
	Logger       Logger
}

// Report is a point-in-time snapshot of worker states.
type Report struct {
	Running    int
	CancelWait int
	Cancelled  int
}

// ThreadPool pulls tasks off one shared queue with a fixed, runtime
// resizable set of workers. Lock ordering is pool mutex -> worker
// inner mutex -> queue mutex; no worker code path ever touches the
// pool mutex, so Resize/Release never deadlock against a running task.
type ThreadPool struct {
	cfg   Config
	queue *queue.TaskQueue

	mu     sync.Mutex
	active []*worker.Worker
	parked []*worker.Worker
	nextID int
}

// New validates cfg and builds a ThreadPool with InitWorkers running.
func New(cfg Config) (*ThreadPool, error) {
	if cfg.MaxWorkers < cfg.MinWorkers {
		return nil, fmt.Errorf("%w: max=%d min=%d", ErrInvalidWorkerBounds, cfg.MaxWorkers, cfg.MinWorkers)
	}
	if cfg.Logger == nil {
		cfg.Logger = NewSlogLogger(nil)
	}
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = DefaultPanicHandler{Logger: cfg.Logger}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NilMetrics{}
	}

	p := &ThreadPool{cfg: cfg, queue: queue.New(cfg.Policy)}
	p.Resize(cfg.InitWorkers)
	return p, nil
}

// Submit wraps fn into a task.Task at task.DefaultPriority and queues
// it.
func (p *ThreadPool) Submit(fn func() (any, error)) *task.Future {
	return p.SubmitTask(task.New(fn))
}

// SubmitTask queues a caller-built task.Task, which lets the caller
// set a priority before it is enqueued.
func (p *ThreadPool) SubmitTask(t *task.Task) *task.Future {
	fut := t.Future()
	p.queue.Push(t)
	p.cfg.Metrics.RecordSubmit()
	p.cfg.Metrics.RecordQueueDepth(p.queue.Len())
	return fut
}

// QueueDepth reports the number of tasks currently waiting to be
// popped, for use by a periodic metrics poller.
func (p *ThreadPool) QueueDepth() int {
	return p.queue.Len()
}

// Resize adjusts the number of active workers toward newSize, clamped
// to [MinWorkers, MaxWorkers]. Growing reuses parked (previously
// cancelled) workers before spawning new ones; shrinking cancels the
// excess into the parked set, optionally sweeping already-cancelled
// ones out of it when Config.RemoveCancelled is set.
func (p *ThreadPool) Resize(newSize int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if newSize < p.cfg.MinWorkers {
		newSize = p.cfg.MinWorkers
	}
	if newSize > p.cfg.MaxWorkers {
		newSize = p.cfg.MaxWorkers
	}

	prevSize := len(p.active)
	if prevSize == newSize {
		return
	}

	if prevSize < newSize {
		diff := newSize - prevSize
		diff -= p.reuseWorkersLocked(diff)
		for i := 0; i < diff; i++ {
			w := worker.New(p.nextID, p.queue, p.onWorkerPanic, p.onWorkerComplete)
			p.nextID++
			w.Run()
			p.active = append(p.active, w)
		}
		return
	}

	p.cancelWorkersLocked(prevSize - newSize)
	if p.cfg.RemoveCancelled {
		p.cleanCancelledLocked()
	}
}

// Release cancels every active worker and blocks until each one
// reports StateCancelled, handing the pool mutex over for the
// bookkeeping phase only.
func (p *ThreadPool) Release() {
	p.mu.Lock()
	p.cancelWorkersLocked(len(p.active))
	toWait := make([]*worker.Worker, len(p.parked))
	copy(toWait, p.parked)
	p.mu.Unlock()

	for _, w := range toWait {
		w.WaitForCancel()
	}
}

// Report returns a snapshot of worker lifecycle counts.
func (p *ThreadPool) Report() Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := Report{Running: len(p.active)}
	for _, w := range p.parked {
		switch w.Status() {
		case worker.StateCancelled:
			r.Cancelled++
		case worker.StateCancelWait:
			r.CancelWait++
		}
	}
	return r
}

func (p *ThreadPool) reuseWorkersLocked(need int) int {
	reused := 0
	for len(p.parked) > 0 && reused < need {
		w := p.parked[0]
		p.parked[0] = nil
		p.parked = p.parked[1:]

		w.Uncancel()
		p.active = append(p.active, w)
		reused++
	}
	return reused
}

func (p *ThreadPool) cancelWorkersLocked(need int) int {
	cancelled := 0
	for len(p.active) > 0 && cancelled < need {
		w := p.active[0]
		p.active[0] = nil
		p.active = p.active[1:]

		w.Cancel()
		p.parked = append(p.parked, w)
		cancelled++
	}
	p.queue.WakeAll()
	return cancelled
}

func (p *ThreadPool) cleanCancelledLocked() int {
	kept := p.parked[:0]
	cleaned := 0
	for _, w := range p.parked {
		if w.Status() == worker.StateCancelled {
			cleaned++
			continue
		}
		kept = append(kept, w)
	}
	p.parked = kept
	return cleaned
}

func (p *ThreadPool) onWorkerPanic(id int, t *task.Task, recovered any, stack []byte) {
	p.cfg.Metrics.RecordCompletion(t.Priority(), 0, fmt.Errorf("panic: %v", recovered))
	p.cfg.PanicHandler.HandlePanic(id, recovered, stack)
}

func (p *ThreadPool) onWorkerComplete(id int, t *task.Task, dur time.Duration, err error) {
	p.cfg.Metrics.RecordCompletion(t.Priority(), dur, err)
	if pe, ok := err.(*task.PanicError); ok {
		p.cfg.PanicHandler.HandlePanic(id, pe.Value, pe.Stack)
	}
}
