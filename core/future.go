package core

import (
	"context"
	"fmt"
	"runtime/debug"
)

// future is the goroutine-backed completion handle behind a dispatched task.
// It always settles exactly once, even if the body panics.
type future[T any] struct {
	handle Handle
	cancel context.CancelFunc
	done   chan struct{}

	outcome    Outcome[T]
	panicInfo  any
	panicStack []byte
}

// spawn starts body on its own goroutine, deriving a cancellable context
// from ctx. The future settles when body returns or panics.
func spawn[T any](ctx context.Context, handle Handle, body TaskBody[T]) *future[T] {
	taskCtx, cancel := context.WithCancel(ctx)
	f := &future[T]{
		handle: handle,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.panicInfo = r
				f.panicStack = debug.Stack()
				f.outcome = errOutcome[T](fmt.Errorf("core: task %d panicked: %v", handle, r))
			}
		}()

		v, err := body(taskCtx)
		if err != nil {
			f.outcome = errOutcome[T](err)
			return
		}
		f.outcome = okOutcome(v)
	}()

	return f
}

// pollSettled reports whether the future has settled without blocking.
func (f *future[T]) pollSettled() (Outcome[T], bool) {
	select {
	case <-f.done:
		return f.outcome, true
	default:
		return Outcome[T]{}, false
	}
}

// wait blocks until the future settles or ctx is cancelled.
func (f *future[T]) wait(ctx context.Context) (Outcome[T], error) {
	select {
	case <-f.done:
		return f.outcome, nil
	case <-ctx.Done():
		return Outcome[T]{}, ctx.Err()
	}
}

// cancelAndDiscard cancels the underlying context. The goroutine may keep
// running until its next context check; its eventual outcome is discarded
// by the caller, which has already removed this future from the pool.
func (f *future[T]) cancelAndDiscard() {
	f.cancel()
}
