// Package worker implements the goroutine that drives a TaskQueue: pop
// a task, invoke it, check whether cancellation was requested, repeat.
// It is grounded on original_source/include/nexus/exec/worker.hpp and
// src/exec/worker.cpp, translated from a move-only C++ object wrapping
// a jthread into a Go value whose inner state is shared by pointer with
// the goroutine it starts.
package worker

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nexuslabs/exec-pool/queue"
	"github.com/nexuslabs/exec-pool/task"
)

// Status is the worker's lifecycle state.
type Status uint8

const (
	// StateCreated is the status of a Worker that has never run.
	StateCreated Status = iota
	// StateRunning is the status of a Worker actively pulling tasks.
	StateRunning
	// StateCancelWait is the status of a Worker that has been asked to
	// stop but has not yet observed the request.
	StateCancelWait
	// StateCancelled is the status of a Worker whose loop has exited.
	StateCancelled
)

func (s Status) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateRunning:
		return "Running"
	case StateCancelWait:
		return "CancelWait"
	case StateCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// PanicHandler is invoked from the worker loop whenever a task's
// Invoke itself panics (as opposed to the task's closure panicking,
// which task.Task already converts into an error). It lets a pool
// observe and log otherwise-fatal bugs in task plumbing rather than
// crashing the process.
type PanicHandler func(id int, t *task.Task, recovered any, stack []byte)

// CompletionHandler is invoked after every task that finishes without
// Invoke itself panicking, whatever the task's own outcome was. It
// gives a pool a single place to record per-task duration and error
// metrics regardless of pop policy or priority.
type CompletionHandler func(id int, t *task.Task, dur time.Duration, err error)

// inner is the state a Worker shares with its own goroutine. Because
// it is referenced by pointer, a Worker value can be relocated between
// a pool's collections (e.g. active/parked slices) without the running
// goroutine ever losing track of its status or condition variable.
type inner struct {
	mu     sync.Mutex
	cond   *sync.Cond
	status Status
}

func newInner() *inner {
	in := &inner{status: StateCreated}
	in.cond = sync.NewCond(&in.mu)
	return in
}

func (in *inner) get() Status {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.status
}

func (in *inner) set(s Status) {
	in.mu.Lock()
	in.status = s
	in.mu.Unlock()
}

// Worker pulls tasks from a shared queue and invokes them on its own
// goroutine until cancelled.
type Worker struct {
	id    int
	queue *queue.TaskQueue
	in    *inner

	onPanic    PanicHandler
	onComplete CompletionHandler
}

// New creates a Worker identified by id and bound to q. It does not
// start running until Run is called. id is caller-assigned (a pool
// hands out small sequential numbers) and exists purely for
// logging/metrics correlation. Either handler may be nil.
func New(id int, q *queue.TaskQueue, onPanic PanicHandler, onComplete CompletionHandler) *Worker {
	if onPanic == nil {
		onPanic = func(int, *task.Task, any, []byte) {}
	}
	if onComplete == nil {
		onComplete = func(int, *task.Task, time.Duration, error) {}
	}
	return &Worker{id: id, queue: q, in: newInner(), onPanic: onPanic, onComplete: onComplete}
}

// ID returns the worker's caller-assigned identifier.
func (w *Worker) ID() int { return w.id }

// Status reports the worker's current lifecycle state.
func (w *Worker) Status() Status { return w.in.get() }

// Run starts the worker's goroutine. It returns false without effect
// if the worker is already Running or CancelWait.
func (w *Worker) Run() bool {
	w.in.mu.Lock()
	defer w.in.mu.Unlock()

	if w.in.status == StateRunning || w.in.status == StateCancelWait {
		return false
	}

	w.in.status = StateRunning
	go w.loop()
	return true
}

// Cancel asks a running worker to stop once its current task (if any)
// finishes. It returns false if the worker is Created or already
// Cancelled.
func (w *Worker) Cancel() bool {
	w.in.mu.Lock()
	defer w.in.mu.Unlock()

	if w.in.status == StateCreated || w.in.status == StateCancelled {
		return false
	}

	w.in.status = StateCancelWait
	w.in.cond.Broadcast()
	w.queue.WakeAll()
	return true
}

// Uncancel withdraws a pending cancellation, or restarts a cancelled
// worker. It returns false only when the worker is already Running,
// where there is nothing to undo.
func (w *Worker) Uncancel() bool {
	w.in.mu.Lock()

	switch w.in.status {
	case StateRunning:
		w.in.mu.Unlock()
		return false
	case StateCancelWait:
		w.in.status = StateRunning
		w.in.mu.Unlock()
		return true
	default:
		w.in.mu.Unlock()
		return w.Run()
	}
}

// WaitForCancel blocks until the worker reaches StateCancelled.
func (w *Worker) WaitForCancel() {
	w.in.mu.Lock()
	defer w.in.mu.Unlock()
	for w.in.status != StateCancelled {
		w.in.cond.Wait()
	}
}

// WaitForCancelTimeout blocks until the worker reaches StateCancelled
// or timeout elapses, whichever happens first. It returns true if the
// worker was observed as cancelled before the timeout.
func (w *Worker) WaitForCancelTimeout(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, w.in.cond.Broadcast)
	defer timer.Stop()

	w.in.mu.Lock()
	defer w.in.mu.Unlock()
	for w.in.status != StateCancelled {
		if !time.Now().Before(deadline) {
			return false
		}
		w.in.cond.Wait()
	}
	return true
}

func (w *Worker) loop() {
	for {
		t, cancelRequested := w.queue.PopUntil(func() bool {
			return w.in.get() == StateCancelWait
		})

		if t != nil {
			w.invoke(t)
		}

		if cancelRequested {
			w.in.mu.Lock()
			if w.in.status != StateCancelWait {
				// Uncancel withdrew the request after PopUntil saw it.
				w.in.mu.Unlock()
				continue
			}
			w.in.status = StateCancelled
			w.in.mu.Unlock()
			w.in.cond.Broadcast()
			return
		}
	}
}

func (w *Worker) invoke(t *task.Task) {
	defer func() {
		if r := recover(); r != nil {
			w.onPanic(w.id, t, r, debug.Stack())
		}
	}()

	start := time.Now()
	t.Invoke(context.Background())
	_, err := t.Future().Get()
	w.onComplete(w.id, t, time.Since(start), err)
}
