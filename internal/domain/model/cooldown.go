package model

import (
	"sync"
	"time"
)

// Cooldown remembers when a subject was last allowed through.
// A zero lastTested means the subject was never tested.
type Cooldown struct {
	mu         sync.Mutex
	lastTested int64 // unix millis
	timeout    time.Duration
	now        func() time.Time
}

func NewCooldown(timeout time.Duration) *Cooldown {
	return &Cooldown{timeout: timeout, now: time.Now}
}

// Test reports whether the cooldown has elapsed and, if so, restarts it.
func (c *Cooldown) Test() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now().UnixMilli()
	if c.elapsedLocked(now) < c.timeout.Milliseconds() {
		return false
	}
	c.lastTested = now
	return true
}

// TestSilently reports whether the cooldown has elapsed without restarting it.
func (c *Cooldown) TestSilently() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsedLocked(c.now().UnixMilli()) >= c.timeout.Milliseconds()
}

// Remaining is how long until the next Test succeeds. Zero once elapsed.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	left := c.timeout.Milliseconds() - c.elapsedLocked(c.now().UnixMilli())
	if left <= 0 {
		return 0
	}
	return time.Duration(left) * time.Millisecond
}

func (c *Cooldown) Reset() {
	c.mu.Lock()
	c.lastTested = 0
	c.mu.Unlock()
}

func (c *Cooldown) LastTested() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastTested == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(c.lastTested), true
}

// SetLastTested moves the test time forward. Negative values clamp to zero
// and earlier values than the current one are ignored.
func (c *Cooldown) SetLastTested(millis int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastTested = max(c.lastTested, millis, 0)
}

func (c *Cooldown) elapsedLocked(now int64) int64 {
	if c.lastTested == 0 {
		return c.timeout.Milliseconds()
	}
	return now - c.lastTested
}

// CooldownMap keeps at most one Cooldown per key.
type CooldownMap[K comparable] struct {
	timeout time.Duration
	entries sync.Map // map[K]*Cooldown
}

func NewCooldownMap[K comparable](timeout time.Duration) *CooldownMap[K] {
	return &CooldownMap[K]{timeout: timeout}
}

func (m *CooldownMap[K]) Get(key K) *Cooldown {
	if v, ok := m.entries.Load(key); ok {
		return v.(*Cooldown)
	}
	v, _ := m.entries.LoadOrStore(key, NewCooldown(m.timeout))
	return v.(*Cooldown)
}

func (m *CooldownMap[K]) Test(key K) bool         { return m.Get(key).Test() }
func (m *CooldownMap[K]) TestSilently(key K) bool { return m.Get(key).TestSilently() }
func (m *CooldownMap[K]) Remaining(key K) time.Duration {
	return m.Get(key).Remaining()
}

func (m *CooldownMap[K]) Reset(key K) { m.Get(key).Reset() }

func (m *CooldownMap[K]) Delete(key K) { m.entries.Delete(key) }

// Prune drops entries whose cooldown has elapsed and reports how many went.
// A pruned key starts over with a fresh Cooldown, which tests the same.
func (m *CooldownMap[K]) Prune() int {
	n := 0
	m.entries.Range(func(k, v any) bool {
		if v.(*Cooldown).TestSilently() && m.entries.CompareAndDelete(k, v) {
			n++
		}
		return true
	})
	return n
}

func (m *CooldownMap[K]) Len() int {
	n := 0
	m.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
