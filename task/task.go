// Package task defines the unit of work executed by the pool: a
// zero-argument closure paired with a one-shot result handle. It is
// modeled on the promise/future pair of original_source's
// nexus::exec::Task, translated to a closed channel used purely as a
// broadcast-once signal.
package task

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultPriority is the priority assigned to a Task that never calls
// SetPriority.
const DefaultPriority int8 = 0

// Func is the closure a Task wraps. It receives no arguments; callers
// that need arguments close over them, matching the "reference types
// decayed to values" capture rule of the task this package is modeled
// on.
type Func func() (any, error)

// Outcome is the value delivered through a Future: either the closure's
// return value or the error it produced (including a recovered panic,
// wrapped as a PanicError).
type Outcome struct {
	Value any
	Err   error
}

// PanicError wraps a value recovered from a panicking task closure so
// that it satisfies the error interface without losing the original
// panic value or stack.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Task holds a prepared closure and the one-shot handle that carries
// its outcome back to the submitter. A Task must be invoked exactly
// once; invoking it twice panics.
type Task struct {
	ID uuid.UUID

	fn       Func
	done     chan struct{}
	outcome  Outcome
	invoked  atomic.Bool
	enqueued atomic.Bool

	mu       sync.Mutex
	priority int8
}

// New wraps fn into a Task with DefaultPriority.
func New(fn Func) *Task {
	return &Task{
		ID:   uuid.New(),
		fn:   fn,
		done: make(chan struct{}),
	}
}

// Priority returns the task's current priority.
func (t *Task) Priority() int8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.priority
}

// SetPriority sets the task's priority. It panics if the task has
// already been pushed to a queue: priority mutation is only allowed
// before enqueue (the RAND policy is the sole exception, and it
// overwrites the priority itself during Push via setPriorityLocked,
// bypassing this check).
func (t *Task) SetPriority(p int8) {
	if t.enqueued.Load() {
		panic("task: SetPriority called after task was enqueued")
	}
	t.setPriorityLocked(p)
}

func (t *Task) setPriorityLocked(p int8) {
	t.mu.Lock()
	t.priority = p
	t.mu.Unlock()
}

// queueAccess groups the two operations only a queue.Policy may perform
// on a Task, keeping them out of the public API surface that ordinary
// submitters see.
type queueAccess struct{}

// QueueAccess is the capability handed to the queue package so it can
// mark a task enqueued and, for the RAND policy, overwrite its
// priority during Push.
var QueueAccess queueAccess

func (queueAccess) MarkEnqueued(t *Task)        { t.enqueued.Store(true) }
func (queueAccess) SetPriority(t *Task, p int8) { t.setPriorityLocked(p) }

// Invoke runs the task's closure exactly once and fulfils its result
// handle. It never lets the closure's error or panic escape to the
// caller; both are routed into the Outcome instead, so a worker loop
// driving Invoke can never observe a task failure directly. Invoke
// itself panics if it is called a second time.
func (t *Task) Invoke(ctx context.Context) {
	if !t.invoked.CompareAndSwap(false, true) {
		panic("task: Invoke called more than once")
	}

	t.outcome = t.run(ctx)
	close(t.done)
}

func (t *Task) run(ctx context.Context) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Outcome{Err: err}
	}

	v, err := t.fn()
	return Outcome{Value: v, Err: err}
}

// Future returns the consumer half of the task's one-shot handle.
func (t *Task) Future() *Future {
	return &Future{task: t}
}

// Future is the pending-result handle returned to a submitter. Get and
// GetContext may be called any number of times, concurrently; every
// call observes the same outcome once the paired Task has run.
type Future struct {
	task *Task
}

// Get blocks until the task completes and returns its outcome.
func (f *Future) Get() (any, error) {
	<-f.task.done
	return f.task.outcome.Value, f.task.outcome.Err
}

// GetContext blocks until the task completes or ctx is done, whichever
// happens first. A context cancellation does not affect the underlying
// task, which keeps running to completion; a later call to Get or
// GetContext still observes its eventual outcome.
func (f *Future) GetContext(ctx context.Context) (any, error) {
	select {
	case <-f.task.done:
		return f.task.outcome.Value, f.task.outcome.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
