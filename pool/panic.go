package pool

// PanicHandler is called whenever a task's closure panics, in addition
// to the *task.PanicError already delivered through that task's Future,
// and whenever a worker observes a panic out of a task's Invoke call.
type PanicHandler interface {
	HandlePanic(workerID int, recovered any, stack []byte)
}

// DefaultPanicHandler logs the panic through a Logger rather than
// writing to stdout directly.
type DefaultPanicHandler struct {
	Logger Logger
}

func (h DefaultPanicHandler) HandlePanic(workerID int, recovered any, stack []byte) {
	logger := h.Logger
	if logger == nil {
		logger = NoOpLogger{}
	}
	logger.Error("worker panicked invoking task",
		F("worker_id", workerID),
		F("panic", recovered),
		F("stack", string(stack)),
	)
}
