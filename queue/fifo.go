package queue

import "github.com/nexuslabs/exec-pool/task"

const defaultQueueCap = 16

// FIFOPolicy pops tasks in push order, backed by a slice used as a deque.
type FIFOPolicy struct {
	tasks []*task.Task
}

func newFIFOPolicy() *FIFOPolicy {
	return &FIFOPolicy{tasks: make([]*task.Task, 0, defaultQueueCap)}
}

func (q *FIFOPolicy) Push(t *task.Task) {
	q.tasks = append(q.tasks, t)
}

func (q *FIFOPolicy) Pop() *task.Task {
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t
}

func (q *FIFOPolicy) Len() int {
	return len(q.tasks)
}
