package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRepeatingTask_RunsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	task := NewRepeatingTask("test", 0, 10*time.Millisecond, nil, func(ctx context.Context) {
		runs.Add(1)
	})

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	task.Cancel()
	task.Cancel() // idempotent

	after := runs.Load()
	if after < 3 {
		t.Fatalf("expected at least 3 runs, got %d", after)
	}
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Fatal("task kept running after Cancel returned")
	}
}

func TestRepeatingTask_NeverOverlaps(t *testing.T) {
	var active, maxActive atomic.Int32
	task := NewRepeatingTask("slow", 0, time.Millisecond, nil, func(ctx context.Context) {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
	})
	time.Sleep(50 * time.Millisecond)
	task.Cancel()

	if maxActive.Load() != 1 {
		t.Fatalf("runs overlapped: max concurrent = %d", maxActive.Load())
	}
}

func TestRepeatingTask_CancelWaitsForRun(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	task := NewRepeatingTask("wait", 0, time.Hour, nil, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
	})
	<-started
	task.Cancel()
	if !finished.Load() {
		t.Fatal("Cancel returned before the running cycle finished")
	}
}

func TestRepeatingTask_RecoversPanics(t *testing.T) {
	var runs atomic.Int32
	task := NewRepeatingTask("panicky", 0, time.Millisecond, nil, func(ctx context.Context) {
		if runs.Add(1) == 1 {
			panic("boom")
		}
	})
	deadline := time.Now().Add(time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Cancel()
	if runs.Load() < 2 {
		t.Fatal("task stopped after a panic")
	}
}

func TestAsync_BoundedAndDrains(t *testing.T) {
	a := NewAsync(2, nil)

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		a.Go(func() {
			defer wg.Done()
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
		})
	}
	a.Close()
	wg.Wait()

	if maxActive.Load() > 2 {
		t.Fatalf("more than 2 workers ran at once: %d", maxActive.Load())
	}

	ran := false
	a.Go(func() { ran = true })
	if ran {
		t.Fatal("closed executor accepted work")
	}
}
