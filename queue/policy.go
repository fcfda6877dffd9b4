package queue

import "github.com/nexuslabs/exec-pool/task"

// PolicyKind names one of the four pop orderings a TaskQueue supports.
// It is the Go analogue of original_source's nexus::exec::TaskPolicy
// enum.
type PolicyKind uint8

const (
	// FIFO pops tasks in the order they were pushed.
	FIFO PolicyKind = iota
	// LIFO pops the most recently pushed task first.
	LIFO
	// PRIO pops the highest-priority task first, breaking ties by
	// insertion order.
	PRIO
	// RAND overwrites each task's priority with a fresh random value at
	// push time, then behaves like PRIO.
	RAND
)

func (p PolicyKind) String() string {
	switch p {
	case FIFO:
		return "FIFO"
	case LIFO:
		return "LIFO"
	case PRIO:
		return "PRIO"
	case RAND:
		return "RAND"
	default:
		return "UNKNOWN"
	}
}

// Policy is the storage strategy a TaskQueue delegates to. TaskQueue
// owns the mutex and condition variable; a Policy implementation is
// never called concurrently and never blocks.
type Policy interface {
	Push(t *task.Task)
	Pop() *task.Task
	Len() int
}

// NewPolicy builds the Policy backing a given PolicyKind.
func NewPolicy(kind PolicyKind) Policy {
	switch kind {
	case FIFO:
		return newFIFOPolicy()
	case LIFO:
		return newLIFOPolicy()
	case PRIO:
		return newPrioPolicy()
	case RAND:
		return newRandPolicy()
	default:
		panic("queue: unknown PolicyKind")
	}
}
