// Package queue implements the thread-safe, policy-driven task queue
// a pool's workers pull from. It is grounded on
// original_source/include/nexus/exec/queue.hpp for its exact
// pop/pop_for/pop semantics, expressed with sync.Mutex and sync.Cond
// since a plain channel cannot express PopUntil's "wake on either a
// caller predicate or new data" wait condition.
package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexuslabs/exec-pool/task"
)

// TaskQueue is a mutex-and-condition-variable shell around a Policy.
// All synchronization lives here; a Policy implementation is plain,
// single-threaded storage.
type TaskQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	policy Policy
	size   atomic.Int64
}

// New builds a TaskQueue that pops according to kind.
func New(kind PolicyKind) *TaskQueue {
	q := &TaskQueue{policy: NewPolicy(kind)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push adds a task to the queue and wakes one waiting Pop.
func (q *TaskQueue) Push(t *task.Task) {
	task.QueueAccess.MarkEnqueued(t)

	q.mu.Lock()
	q.policy.Push(t)
	q.size.Add(1)
	q.mu.Unlock()

	q.cond.Signal()
}

// Pop blocks until a task is available and returns it.
func (q *TaskQueue) Pop() *task.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.policy.Len() == 0 {
		q.cond.Wait()
	}
	return q.popLocked()
}

// PopFor blocks until a task is available or timeout elapses,
// whichever happens first. The returned bool is false on timeout.
func (q *TaskQueue) PopFor(timeout time.Duration) (*task.Task, bool) {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, q.cond.Broadcast)
	defer timer.Stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.policy.Len() == 0 {
		if !time.Now().Before(deadline) {
			return nil, false
		}
		q.cond.Wait()
	}
	return q.popLocked(), true
}

// PopUntil blocks until either a task is available or pred reports
// true, whichever happens first, re-evaluating pred on every wakeup
// while holding the queue's lock. It returns (nil, true) when pred won
// the race, and (task, false) when a task became available first.
func (q *TaskQueue) PopUntil(pred func() bool) (*task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if pred() {
			return nil, true
		}
		if q.policy.Len() > 0 {
			return q.popLocked(), false
		}
		q.cond.Wait()
	}
}

func (q *TaskQueue) popLocked() *task.Task {
	t := q.policy.Pop()
	q.size.Add(-1)
	return t
}

// Len returns the number of tasks currently queued.
func (q *TaskQueue) Len() int {
	return int(q.size.Load())
}

// Empty reports whether the queue currently holds no tasks.
func (q *TaskQueue) Empty() bool {
	return q.Len() == 0
}

// WakeAll wakes every goroutine blocked in Pop, PopFor, or PopUntil,
// typically so each can re-check a predicate tied to pool shutdown.
func (q *TaskQueue) WakeAll() {
	q.cond.Broadcast()
}
