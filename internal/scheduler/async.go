package scheduler

import (
	"log/slog"
	"runtime/debug"
	"sync"
)

// Executor runs functions off the caller's goroutine.
type Executor interface {
	Go(fn func())
}

// Interface guard
var _ Executor = (*Async)(nil)

// Async is a bounded worker pool. Go never blocks the caller: when every
// worker is busy the function waits in its own goroutine for a free slot.
type Async struct {
	logger *slog.Logger
	slots  chan struct{}
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsync(workers int, logger *slog.Logger) *Async {
	if workers <= 0 {
		workers = 16
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{
		logger: logger,
		slots:  make(chan struct{}, workers),
	}
}

func (a *Async) Go(fn func()) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.logger.Warn("ASYNC_REJECTED: executor closed")
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		a.slots <- struct{}{}
		defer func() { <-a.slots }()

		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("PANIC_RECOVERED", "err", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// Close rejects new work and waits for queued and running functions.
func (a *Async) Close() {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	a.wg.Wait()
}

// Inline runs functions on the caller's goroutine. Useful in tests.
type Inline struct{}

func (Inline) Go(fn func()) { fn() }
