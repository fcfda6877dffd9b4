package queue

import (
	"container/heap"
	"container/list"
	"math/rand/v2"

	"github.com/nexuslabs/exec-pool/task"
)

// prioEntry indexes one element of the owning list inside the heap.
// A bare heap of tasks can only ever hand back a copy of its root; by
// heaping pointers into a list instead, Pop can remove the winning
// element from the list directly rather than searching for it.
type prioEntry struct {
	elem     *list.Element
	sequence uint64
}

type prioHeap []*prioEntry

func (h prioHeap) Len() int { return len(h) }

func (h prioHeap) Less(i, j int) bool {
	pi := h[i].elem.Value.(*task.Task).Priority()
	pj := h[j].elem.Value.(*task.Task).Priority()
	if pi != pj {
		return pi > pj
	}
	return h[i].sequence < h[j].sequence
}

func (h prioHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *prioHeap) Push(x any) {
	*h = append(*h, x.(*prioEntry))
}

func (h *prioHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// PrioPolicy pops the highest-priority task first, breaking ties by
// insertion order. Tasks are stored in a list (for owned, movable
// removal) while a heap of pointers into that list tracks priority
// order.
type PrioPolicy struct {
	tasks        list.List
	pq           prioHeap
	nextSequence uint64
}

func newPrioPolicy() *PrioPolicy {
	p := &PrioPolicy{pq: make(prioHeap, 0, defaultQueueCap)}
	p.tasks.Init()
	return p
}

func (q *PrioPolicy) Push(t *task.Task) {
	elem := q.tasks.PushBack(t)
	heap.Push(&q.pq, &prioEntry{elem: elem, sequence: q.nextSequence})
	q.nextSequence++
}

func (q *PrioPolicy) Pop() *task.Task {
	if len(q.pq) == 0 {
		return nil
	}
	entry := heap.Pop(&q.pq).(*prioEntry)
	t := entry.elem.Value.(*task.Task)
	q.tasks.Remove(entry.elem)
	return t
}

func (q *PrioPolicy) Len() int {
	return q.tasks.Len()
}

// RandPolicy behaves like PrioPolicy, but overwrites each task's
// priority with a fresh random int8 value at push time, so the queue
// pops in a random rather than caller-chosen order.
type RandPolicy struct {
	PrioPolicy
}

func newRandPolicy() *RandPolicy {
	r := &RandPolicy{}
	r.tasks.Init()
	r.pq = make(prioHeap, 0, defaultQueueCap)
	return r
}

func (q *RandPolicy) Push(t *task.Task) {
	task.QueueAccess.SetPriority(t, randomPriority())
	q.PrioPolicy.Push(t)
}

func randomPriority() int8 {
	return int8(rand.IntN(256) - 128)
}
