package task

import (
	"errors"
	"sync"
)

var (
	// ErrKilled resolves a Future whose task was force-terminated.
	ErrKilled = errors.New("task killed")
	// ErrCancelled resolves a Future whose task was cancelled before finishing.
	ErrCancelled = errors.New("task cancelled")
)

// Future is the completion handle of a task. It resolves exactly once with
// the task's return value or error.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value int
	err   error
}

// NewFuture returns an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve records the result. Only the first call has any effect; it
// reports whether this call resolved the Future.
func (f *Future) Resolve(value int, err error) bool {
	resolved := false
	f.once.Do(func() {
		f.value = value
		f.err = err
		resolved = true
		close(f.done)
	})
	return resolved
}

// Done is closed when the Future resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the Future has a result.
func (f *Future) Resolved() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Value blocks until the Future resolves and returns its result.
func (f *Future) Value() (int, error) {
	<-f.done
	return f.value, f.err
}
