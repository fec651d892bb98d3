// Package redismessenger broadcasts messages over a Redis pub/sub channel.
// Delivery is at-most-once: nothing is retried or acknowledged.
package redismessenger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/webitel/player-sync-service/internal/messaging"
)

const DefaultChannel = "playersync:update"

// Interface guards
var (
	_ messaging.Provider  = (*Provider)(nil)
	_ messaging.Messenger = (*Messenger)(nil)
)

type Provider struct {
	rdb     redis.UniversalClient
	channel string
	logger  *slog.Logger
}

func NewProvider(rdb redis.UniversalClient, channel string, logger *slog.Logger) *Provider {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Provider{rdb: rdb, channel: channel, logger: logger}
}

func (p *Provider) Name() string { return "Redis" }

func (p *Provider) Obtain(ctx context.Context, consumer messaging.Consumer) (messaging.Messenger, error) {
	return New(ctx, p.rdb, p.channel, consumer, p.logger)
}

type Messenger struct {
	rdb      redis.UniversalClient
	channel  string
	consumer messaging.Consumer
	logger   *slog.Logger
	cb       *gobreaker.CircuitBreaker

	sub    *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New subscribes to channel and starts the receive loop. Reconnects are left
// to go-redis, which re-subscribes on its own after a dropped connection.
func New(ctx context.Context, rdb redis.UniversalClient, channel string, consumer messaging.Consumer, logger *slog.Logger) (*Messenger, error) {
	logger = logger.With("channel", channel)

	sub := rdb.Subscribe(ctx, channel)
	// [HANDSHAKE] Wait for the subscription confirmation so startup fails fast.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redismessenger: subscribe %s: %w", channel, err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	m := &Messenger{
		rdb:      rdb,
		channel:  channel,
		consumer: consumer,
		logger:   logger,
		sub:      sub,
		cancel:   cancel,
		done:     make(chan struct{}),
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis-publish",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("CIRCUIT_STATE_CHANGED", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}

	go m.receive(loopCtx)
	logger.Info("REDIS_MESSENGER_SUBSCRIBED")
	return m, nil
}

func (m *Messenger) receive(ctx context.Context) {
	defer close(m.done)

	ch := m.sub.Channel(redis.WithChannelHealthCheckInterval(30 * time.Second))
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			m.handle(ctx, msg.Payload)
		}
	}
}

func (m *Messenger) handle(ctx context.Context, payload string) {
	// [PANIC_RECOVERY] Keep the subscription alive.
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("PANIC_RECOVERED", "err", r, "stack", string(debug.Stack()))
		}
	}()
	m.consumer.ConsumeEncoded(ctx, payload)
}

// Send publishes immediately. While the breaker is open sends fail fast
// instead of piling up on a dead connection.
func (m *Messenger) Send(ctx context.Context, msg messaging.Outgoing) error {
	_, err := m.cb.Execute(func() (any, error) {
		return nil, m.rdb.Publish(ctx, m.channel, msg.Encoded).Err()
	})
	if err != nil {
		return fmt.Errorf("redismessenger: publish %s: %w", msg.ID, err)
	}
	return nil
}

func (m *Messenger) Close() error {
	var err error
	m.once.Do(func() {
		m.cancel()
		err = m.sub.Close()
		<-m.done
		m.logger.Info("REDIS_MESSENGER_CLOSED")
	})
	return err
}
