/*
Package registry keeps the in-memory state of the node: loaded users and
live stream subscriptions.

Stream subscriptions follow the actor model:
  - Virtual Cells: every channel with subscribers is an isolated Cell that
    owns all stream sessions listening on that channel.
  - Backpressure: each cell has its own mailbox, so a slow client never
    blocks the messenger receive loop.
  - Concurrency: lookups go through sync.Map; each cell guards only its own
    session set.
*/
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/event"
)

// Celler defines the internal API for channel-specific delivery units.
type Celler interface {
	Push(ev event.Eventer) bool
	Attach(conn Connector) bool
	Detach(connID uuid.UUID) bool
	Sessions() int
	IsIdle(timeout time.Duration) bool
	Stop()
}

// Cell implements [ISOLATED_DELIVERY] logic for a single channel.
type Cell struct {
	channel     string
	sendTimeout time.Duration

	// [MAILBOX] decouples the hub from per-session delivery.
	mailbox chan event.Eventer

	mu       sync.RWMutex
	sessions map[uuid.UUID]Connector

	doneCh   chan struct{}
	stopOnce sync.Once

	lastActivityAt time.Time
}

func NewCell(channel string, bufferSize int, sendTimeout time.Duration) *Cell {
	c := &Cell{
		channel:        channel,
		sendTimeout:    sendTimeout,
		mailbox:        make(chan event.Eventer, bufferSize),
		sessions:       make(map[uuid.UUID]Connector),
		doneCh:         make(chan struct{}),
		lastActivityAt: time.Now(),
	}
	go c.loop()
	return c
}

// IsIdle reports no sessions and no traffic for longer than timeout.
func (c *Cell) IsIdle(timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions) == 0 && time.Since(c.lastActivityAt) > timeout
}

func (c *Cell) Sessions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

func (c *Cell) touch() {
	c.mu.Lock()
	c.lastActivityAt = time.Now()
	c.mu.Unlock()
}

// Push never blocks; it reports false when the mailbox is full.
func (c *Cell) Push(ev event.Eventer) bool {
	c.touch()
	select {
	case c.mailbox <- ev:
		return true
	default:
		return false
	}
}

// Attach reports false when the cell was already stopped.
func (c *Cell) Attach(conn Connector) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.doneCh:
		return false
	default:
	}
	c.lastActivityAt = time.Now()
	c.sessions[conn.GetID()] = conn
	return true
}

// Detach closes the session and reports whether the cell has no sessions left.
func (c *Cell) Detach(connID uuid.UUID) bool {
	c.mu.Lock()
	conn, ok := c.sessions[connID]
	delete(c.sessions, connID)
	c.lastActivityAt = time.Now()
	empty := len(c.sessions) == 0
	c.mu.Unlock()

	if ok {
		conn.Close()
	}
	return empty
}

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case ev := <-c.mailbox:
			c.deliver(ev)
		}
	}
}

func (c *Cell) deliver(ev event.Eventer) {
	c.mu.RLock()
	conns := make([]Connector, 0, len(c.sessions))
	for _, conn := range c.sessions {
		conns = append(conns, conn)
	}
	c.mu.RUnlock()

	for _, conn := range conns {
		conn.Send(ev, c.sendTimeout)
	}
}

// Stop ends the delivery loop and closes every attached session.
func (c *Cell) Stop() {
	c.stopOnce.Do(func() {
		close(c.doneCh)

		c.mu.Lock()
		conns := c.sessions
		c.sessions = make(map[uuid.UUID]Connector)
		c.mu.Unlock()

		for _, conn := range conns {
			conn.Close()
		}
	})
}
