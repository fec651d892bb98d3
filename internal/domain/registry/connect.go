package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/player-sync-service/internal/domain/event"
)

// Interface guard
var _ Connector = (*connect)(nil)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (REGISTRY/HUB)
type Connector interface {
	GetID() uuid.UUID
	GetChannel() string
	Send(ev event.Eventer, timeout time.Duration) bool // Thread-safe send with backpressure handling
	Recv() <-chan event.Eventer
	Dropped() uint64
	Close() // Terminate connection and release resources
}

type connect struct {
	id        uuid.UUID
	channel   string
	createdAt time.Time
	ctx       context.Context
	cancelFn  context.CancelFunc
	sendCh    chan event.Eventer

	// mu orders sends against Close so nothing is written to a closed channel.
	mu     sync.RWMutex
	closed bool

	droppedCount atomic.Uint64
}

func NewConnector(ctx context.Context, channel string, bufferSize int) Connector {
	childCtx, cancel := context.WithCancel(ctx)
	return &connect{
		id:        uuid.New(),
		channel:   channel,
		createdAt: time.Now(),
		ctx:       childCtx,
		cancelFn:  cancel,
		sendCh:    make(chan event.Eventer, bufferSize),
	}
}

func (c *connect) GetID() uuid.UUID   { return c.id }
func (c *connect) GetChannel() string { return c.channel }
func (c *connect) Dropped() uint64    { return c.droppedCount.Load() }

// Send waits up to timeout for buffer space, then falls back to priority shedding.
func (c *connect) Send(ev event.Eventer, timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	// 1. [LIFECYCLE_GATE] Immediately abort if the underlying transport is already dead.
	case <-c.ctx.Done():
		return false

	// 2. [PRIMARY_DELIVERY]
	case c.sendCh <- ev:
		return true

	// 3. [BACKPRESSURE_THRESHOLD] Persistent slow consumer.
	case <-timer.C:
		return c.handleBackpressure(ev)
	}
}

// handleBackpressure makes room for a high-priority event by evicting one
// lower-priority event. Low-priority events are simply dropped.
func (c *connect) handleBackpressure(ev event.Eventer) bool {
	if ev.GetPriority() <= event.PriorityLow {
		c.droppedCount.Add(1)
		return false
	}

	select {
	case oldEv := <-c.sendCh:
		if oldEv.GetPriority() < ev.GetPriority() {
			c.droppedCount.Add(1)
			select {
			case c.sendCh <- ev:
				return true
			default:
			}
		} else {
			select {
			case c.sendCh <- oldEv:
			default:
				c.droppedCount.Add(1)
			}
		}
	default:
	}

	c.droppedCount.Add(1)
	return false
}

func (c *connect) Recv() <-chan event.Eventer { return c.sendCh }

// Close cancels pending sends and closes the receive channel. Idempotent.
func (c *connect) Close() {
	// [SIGNAL_ABORT] wake senders blocked on a full buffer before taking the lock
	c.cancelFn()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	// [UPSTREAM_NOTIFY] Stream handlers observe !ok on Recv and exit.
	close(c.sendCh)
}
