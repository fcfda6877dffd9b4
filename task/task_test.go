package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestTask_InvokeDeliversValue verifies the happy path of running a task
// Given: a Task wrapping a closure that returns a value
// When: Invoke runs it and the Future is read
// Then: Get returns the closure's value with a nil error
func TestTask_InvokeDeliversValue(t *testing.T) {
	// Arrange
	tk := New(func() (any, error) { return 42, nil })
	fut := tk.Future()

	// Act
	tk.Invoke(context.Background())

	// Assert
	v, err := fut.Get()
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if v != 42 {
		t.Fatalf("Get() value = %v, want 42", v)
	}
}

// TestTask_InvokeDeliversError verifies that a closure's own error reaches the future
// Given: a Task wrapping a closure that returns an error
// When: Invoke runs it
// Then: Get returns that same error
func TestTask_InvokeDeliversError(t *testing.T) {
	// Arrange
	want := errors.New("boom")
	tk := New(func() (any, error) { return nil, want })
	fut := tk.Future()

	// Act
	tk.Invoke(context.Background())

	// Assert
	_, err := fut.Get()
	if !errors.Is(err, want) {
		t.Fatalf("Get() error = %v, want %v", err, want)
	}
}

// TestTask_InvokeTwicePanics verifies the single-invocation invariant
// Given: a Task that has already been invoked
// When: Invoke is called a second time
// Then: it panics
func TestTask_InvokeTwicePanics(t *testing.T) {
	// Arrange
	tk := New(func() (any, error) { return nil, nil })
	tk.Invoke(context.Background())

	// Act and Assert
	defer func() {
		if recover() == nil {
			t.Fatal("second Invoke should have panicked")
		}
	}()
	tk.Invoke(context.Background())
}

// TestTask_PanicIsCapturedAsOutcome verifies that a panicking closure never
// escapes Invoke
// Given: a Task wrapping a closure that panics
// When: Invoke runs it
// Then: the Future reports a *PanicError carrying the panic value, and Invoke
// itself does not panic
func TestTask_PanicIsCapturedAsOutcome(t *testing.T) {
	// Arrange
	tk := New(func() (any, error) { panic("kaboom") })
	fut := tk.Future()

	// Act
	tk.Invoke(context.Background())

	// Assert
	_, err := fut.Get()
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Get() error = %v, want *PanicError", err)
	}
	if pe.Value != "kaboom" {
		t.Fatalf("PanicError.Value = %v, want %q", pe.Value, "kaboom")
	}
}

// TestTask_SetPriorityAfterEnqueuePanics verifies priority is only mutable
// before the task enters a queue
// Given: a Task marked enqueued via the queue package's access point
// When: SetPriority is called
// Then: it panics
func TestTask_SetPriorityAfterEnqueuePanics(t *testing.T) {
	// Arrange
	tk := New(func() (any, error) { return nil, nil })
	QueueAccess.MarkEnqueued(tk)

	// Act and Assert
	defer func() {
		if recover() == nil {
			t.Fatal("SetPriority after enqueue should have panicked")
		}
	}()
	tk.SetPriority(5)
}

// TestTask_QueueAccessSetPriorityBypassesEnqueueCheck verifies the RAND
// policy's escape hatch for overwriting priority after enqueue
// Given: a Task marked enqueued
// When: QueueAccess.SetPriority is used instead of the public setter
// Then: the priority is updated without panicking
func TestTask_QueueAccessSetPriorityBypassesEnqueueCheck(t *testing.T) {
	// Arrange
	tk := New(func() (any, error) { return nil, nil })
	QueueAccess.MarkEnqueued(tk)

	// Act
	QueueAccess.SetPriority(tk, -7)

	// Assert
	if got := tk.Priority(); got != -7 {
		t.Fatalf("Priority() = %d, want -7", got)
	}
}

// TestFuture_GetContextTimesOut verifies GetContext respects cancellation
// Given: a Task that never gets invoked
// When: GetContext is called with an already-expired context
// Then: it returns the context's error rather than blocking forever
func TestFuture_GetContextTimesOut(t *testing.T) {
	// Arrange
	tk := New(func() (any, error) { return nil, nil })
	fut := tk.Future()
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	// Act
	<-ctx.Done()
	_, err := fut.GetContext(ctx)

	// Assert
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("GetContext() error = %v, want context.DeadlineExceeded", err)
	}
}

// TestFuture_MultipleReadersObserveSameOutcome verifies Get is safe to call
// repeatedly and concurrently once the task has completed
// Given: a completed Task
// When: Get is called from several goroutines
// Then: every call observes the same value
func TestFuture_MultipleReadersObserveSameOutcome(t *testing.T) {
	// Arrange
	tk := New(func() (any, error) { return "done", nil })
	fut := tk.Future()
	tk.Invoke(context.Background())

	// Act
	results := make(chan any, 8)
	for i := 0; i < 8; i++ {
		go func() {
			v, _ := fut.Get()
			results <- v
		}()
	}

	// Assert
	for i := 0; i < 8; i++ {
		if v := <-results; v != "done" {
			t.Fatalf("Get() value = %v, want %q", v, "done")
		}
	}
}
