// Package task runs background worker tasks that talk to a coordinator over
// named channels and report completion through futures.
//
// Stopping a task is cooperative first: its channel is closed and the task
// gets a grace period to notice and return. A task still running after that
// is force-terminated: its context is cancelled and its future resolves with
// ErrKilled without waiting for the goroutine.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const stopStep = 10 * time.Millisecond

// EntryFunc is the body of a task. ctx is cancelled when the task is
// force-terminated; ep is the task's side of its channel.
type EntryFunc func(ctx context.Context, ep *Endpoint) (int, error)

// Logger receives task lifecycle errors.
type Logger interface {
	Errorf(format string, args ...any)
}

// Worker is a restartable background task with a dedicated channel and a
// completion handle.
type Worker struct {
	name string
	log  Logger

	mu     sync.Mutex
	ch     *Channel
	future *Future
	cancel context.CancelFunc
}

// NewWorker returns a stopped worker whose channel is already created.
func NewWorker(name string, log Logger) *Worker {
	return &Worker{name: name, log: log, ch: NewChannel(name)}
}

// Name returns the worker name; futures are registered under it.
func (w *Worker) Name() string { return w.name }

// Channel returns the worker's current channel, nil after Stop.
func (w *Worker) Channel() *Channel {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ch
}

// Future returns the completion handle of the current run, nil when stopped.
func (w *Worker) Future() *Future {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.future
}

// Start runs entry in a new goroutine. Starting a running worker is an error
// that is logged; the existing future is returned unchanged.
func (w *Worker) Start(entry EntryFunc) *Future {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.future != nil && !w.future.Resolved() {
		if w.log != nil {
			w.log.Errorf("%s is already running", w.name)
		}
		return w.future
	}
	if w.ch == nil || w.ch.Closed() {
		w.ch = NewChannel(w.name)
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := NewFuture()
	ep := w.ch.Worker()
	go run(ctx, w.name, entry, ep, f)

	w.future = f
	w.cancel = cancel
	return f
}

func run(ctx context.Context, name string, entry EntryFunc, ep *Endpoint, f *Future) {
	defer func() {
		if r := recover(); r != nil {
			f.Resolve(-1, fmt.Errorf("%s panicked: %v", name, r))
		}
	}()
	value, err := entry(ctx, ep)
	f.Resolve(value, err)
}

// IsRunning reports whether the current run has not finished yet.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.future != nil && !w.future.Resolved()
}

// Stop closes the worker's channel and waits up to grace, in 10ms steps, for
// the task to return. A task still running is force-terminated and Stop
// returns ErrKilled; otherwise it returns the task's result. Stop is
// idempotent and always leaves the worker without a channel and future.
func (w *Worker) Stop(grace time.Duration) (int, error) {
	w.mu.Lock()
	ch, f, cancel := w.ch, w.future, w.cancel
	w.ch, w.future, w.cancel = nil, nil, nil
	w.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	if f == nil {
		return 0, nil
	}
	defer cancel()

	for waited := time.Duration(0); waited < grace && !f.Resolved(); waited += stopStep {
		time.Sleep(stopStep)
	}
	if !f.Resolved() {
		f.Resolve(-1, ErrKilled)
		cancel()
	}
	return f.Value()
}

// Close disposes of the worker, stopping it without a grace period when it
// is still running.
func (w *Worker) Close() {
	if w.IsRunning() {
		_, _ = w.Stop(0)
	}
}
