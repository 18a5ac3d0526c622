package services

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Dispatcher runs posted closures one at a time on a single goroutine.
// Everything a session owns is read and written only from inside closures
// run by its dispatcher.
type Dispatcher struct {
	queue    chan func()
	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

func NewDispatcher(buffer int, logger *slog.Logger) *Dispatcher {
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		queue:   make(chan func(), buffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Run drains the queue until Stop is called. It must be started exactly once.
func (d *Dispatcher) Run() {
	defer close(d.stopped)
	for {
		select {
		case <-d.done:
			return
		default:
		}

		select {
		case <-d.done:
			return
		case fn := <-d.queue:
			d.invoke(fn)
		}
	}
}

func (d *Dispatcher) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic recovered in event loop",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Post enqueues fn. It returns false once the dispatcher has been stopped;
// a closure that was accepted may still be dropped if Stop wins the race.
func (d *Dispatcher) Post(fn func()) bool {
	select {
	case <-d.done:
		return false
	default:
	}

	select {
	case d.queue <- fn:
		return true
	case <-d.done:
		return false
	}
}

// Call posts fn and waits for it to finish. Never call it from inside the loop.
func (d *Dispatcher) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !d.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrDispatcherStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopped:
		select {
		case <-finished:
			return nil
		default:
			return ErrDispatcherStopped
		}
	}
}

// Stop ends the loop after the closure currently running, if any. Safe to
// call more than once and from inside the loop.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
}

// Done is closed once Run has returned.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.stopped
}
