package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Task is a unit of periodic work. The context is cancelled when the task is cancelled.
type Task func(ctx context.Context)

// RepeatingTask runs a Task on a fixed interval from a single goroutine.
// Runs never overlap: a slow run delays the next tick instead of stacking.
type RepeatingTask struct {
	name     string
	interval time.Duration
	logger   *slog.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewRepeatingTask starts fn immediately in the background. The first run
// happens after initialDelay (zero runs at once), then every interval.
func NewRepeatingTask(name string, initialDelay, interval time.Duration, logger *slog.Logger, fn Task) *RepeatingTask {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &RepeatingTask{
		name:     name,
		interval: interval,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go t.loop(ctx, initialDelay, fn)
	return t
}

func (t *RepeatingTask) loop(ctx context.Context, initialDelay time.Duration, fn Task) {
	defer close(t.done)

	if initialDelay > 0 {
		timer := time.NewTimer(initialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}

	// [SINGLE_SLOT] The next tick is armed only after the previous run returned.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			t.runOnce(ctx, fn)
			if ctx.Err() != nil {
				return
			}
			timer.Reset(t.interval)
		}
	}
}

func (t *RepeatingTask) runOnce(ctx context.Context, fn Task) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("TASK_PANIC_RECOVERED",
				"task", t.name,
				"err", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn(ctx)
}

// Cancel stops the task and waits for an in-flight run to return.
// Safe to call more than once and on a nil task.
func (t *RepeatingTask) Cancel() {
	if t == nil {
		return
	}
	t.stopOnce.Do(t.cancel)
	<-t.done
}

func (t *RepeatingTask) Name() string { return t.name }
