// Package buffer coalesces bursts of requests for the same work into one deferred execution.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// ErrClosed is delivered to waiters once the buffer has been closed.
var ErrClosed = errors.New("buffer: closed")

type State int

const (
	NoRequest State = iota
	RequestScheduled
	Executing
)

func (s State) String() string {
	switch s {
	case NoRequest:
		return "NO_REQUEST"
	case RequestScheduled:
		return "REQUEST_SCHEDULED"
	case Executing:
		return "EXECUTING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Func is the coalesced operation.
type Func[T any] func(ctx context.Context) (T, error)

// Request is the handle returned to every caller that joined one execution.
type Request[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Done is closed once the outcome is available.
func (r *Request[T]) Done() <-chan struct{} { return r.done }

// Wait blocks until the outcome is available or ctx ends.
// Cancelling ctx only stops waiting; the execution still runs.
func (r *Request[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-r.done:
		return r.result, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

type processor[T any] struct {
	req   *Request[T]
	timer *time.Timer
	once  sync.Once
}

// BufferedRequest debounces Trigger calls: all calls inside one window share
// a single execution of fn and observe the same outcome. Only one execution
// runs at a time.
type BufferedRequest[T any] struct {
	window time.Duration
	fn     Func[T]
	ctx    context.Context

	mu        sync.Mutex
	pending   *processor[T]
	executing int
	closed    bool

	// [MUTUAL_EXCLUSION] scheduled runs and TriggerNow runs never overlap
	execMu sync.Mutex
}

func New[T any](window time.Duration, fn Func[T]) *BufferedRequest[T] {
	return NewWithContext(context.Background(), window, fn)
}

// NewWithContext binds executions to ctx, so callers can hand in a context
// carrying values or a cancellation used at shutdown.
func NewWithContext[T any](ctx context.Context, window time.Duration, fn Func[T]) *BufferedRequest[T] {
	return &BufferedRequest[T]{window: window, fn: fn, ctx: ctx}
}

// Trigger joins the scheduled execution or schedules a new one after the window.
// A trigger that arrives while an execution is running schedules a follow-up,
// because the running pass may already have missed the change.
func (b *BufferedRequest[T]) Trigger() *Request[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return closedRequest[T]()
	}
	if b.pending != nil {
		return b.pending.req
	}

	p := &processor[T]{req: &Request[T]{done: make(chan struct{})}}
	p.timer = time.AfterFunc(b.window, func() { b.execute(p) })
	b.pending = p
	return p.req
}

// TriggerNow skips the window. A scheduled execution is pulled forward and
// its waiters share the result. If an execution is already running, the new
// one starts as soon as it finishes.
func (b *BufferedRequest[T]) TriggerNow() *Request[T] {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		return closedRequest[T]()
	}

	p := b.pending
	if p != nil && !p.timer.Stop() {
		// timer already fired, execute is on its way
		b.mu.Unlock()
		return p.req
	}
	if p == nil {
		// not published as pending: triggers from now on schedule a follow-up
		p = &processor[T]{req: &Request[T]{done: make(chan struct{})}}
	}
	b.mu.Unlock()

	go b.execute(p)
	return p.req
}

func (b *BufferedRequest[T]) execute(p *processor[T]) {
	p.once.Do(func() {
		b.mu.Lock()
		if b.pending == p {
			b.pending = nil
		}
		b.mu.Unlock()

		b.execMu.Lock()
		defer b.execMu.Unlock()

		b.mu.Lock()
		b.executing++
		b.mu.Unlock()

		p.req.result, p.req.err = b.run()

		b.mu.Lock()
		b.executing--
		b.mu.Unlock()

		close(p.req.done)
	})
}

func (b *BufferedRequest[T]) run() (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("buffer: panic: %v\n%s", r, debug.Stack())
		}
	}()
	return b.fn(b.ctx)
}

// State reports where the buffer is in its cycle. A scheduled follow-up
// takes precedence over a running execution.
func (b *BufferedRequest[T]) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.pending != nil:
		return RequestScheduled
	case b.executing > 0:
		return Executing
	default:
		return NoRequest
	}
}

// Close rejects further triggers. A scheduled execution that has not started
// is cancelled and its waiters receive ErrClosed; a running one completes.
func (b *BufferedRequest[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	if p := b.pending; p != nil && p.timer.Stop() {
		b.pending = nil
		p.once.Do(func() {
			p.req.err = ErrClosed
			close(p.req.done)
		})
	}
}

func closedRequest[T any]() *Request[T] {
	r := &Request[T]{done: make(chan struct{}), err: ErrClosed}
	close(r.done)
	return r
}
