// Package amqp runs the broker-backed messenger: a watermill router feeding
// the messaging consumer and a publisher on a fanout topic.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"

	"github.com/webitel/player-sync-service/internal/adapter/pubsub"
	"github.com/webitel/player-sync-service/internal/messaging"
)

const (
	DefaultTopic = "playersync.update"
	handlerName  = "ON_PLAYERSYNC_MESSAGE"
)

// Interface guards
var (
	_ messaging.Provider  = (*Provider)(nil)
	_ messaging.Messenger = (*Messenger)(nil)
)

// Backend supplies the pub/sub pair a messenger runs on.
type Backend interface {
	BuildPublisher() (message.Publisher, error)
	BuildSubscriber(nodeID string) (message.Subscriber, error)
}

type Provider struct {
	name    string
	backend Backend
	topic   string
	nodeID  string
	logger  *slog.Logger
	wmLog   watermill.LoggerAdapter
}

// NewProvider names the transport (e.g. "RabbitMQ") and binds it to a topic.
// An empty nodeID gets a random one.
func NewProvider(name string, backend Backend, topic, nodeID string, logger *slog.Logger) *Provider {
	if topic == "" {
		topic = DefaultTopic
	}
	if nodeID == "" {
		nodeID = uuid.NewString()[:8]
	}
	return &Provider{
		name:    name,
		backend: backend,
		topic:   topic,
		nodeID:  nodeID,
		logger:  logger,
		wmLog:   watermill.NewSlogLogger(logger),
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Obtain(ctx context.Context, consumer messaging.Consumer) (messaging.Messenger, error) {
	return New(ctx, p, consumer)
}

type Messenger struct {
	logger     *slog.Logger
	dispatcher pubsub.EnvelopeDispatcher
	subscriber message.Subscriber
	router     *message.Router

	done chan struct{}
	once sync.Once
}

// New builds the pipeline and waits until the router is consuming.
func New(ctx context.Context, p *Provider, consumer messaging.Consumer) (*Messenger, error) {
	logger := p.logger.With("topic", p.topic, "node", p.nodeID)

	pub, err := p.backend.BuildPublisher()
	if err != nil {
		return nil, err
	}
	sub, err := p.backend.BuildSubscriber(p.nodeID)
	if err != nil {
		_ = pub.Close()
		return nil, err
	}

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, p.wmLog)
	if err != nil {
		_ = pub.Close()
		_ = sub.Close()
		return nil, fmt.Errorf("amqp messenger: router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	// [REGISTRATION_PIPELINE]
	// No retry or poison queue: delivery is at-most-once.
	router.AddConsumerHandler(handlerName, p.topic, sub, Bind(consumer, logger)).AddMiddleware(
		TraceIDMiddleware,
		LoggingMiddleware(logger),
		middleware.NewThrottle(100, time.Second).Middleware,
		middleware.Timeout(30*time.Second),
	)

	m := &Messenger{
		logger:     logger,
		dispatcher: pubsub.NewEnvelopeDispatcher(pub, p.topic),
		subscriber: sub,
		router:     router,
		done:       make(chan struct{}),
	}

	go func() {
		defer close(m.done)
		if err := router.Run(context.Background()); err != nil {
			logger.Error("ROUTER_STOPPED", "err", err)
		}
	}()

	select {
	case <-router.Running():
	case <-m.done:
		return nil, fmt.Errorf("amqp messenger: router exited during startup")
	case <-ctx.Done():
		_ = m.Close()
		return nil, ctx.Err()
	}

	logger.Info("AMQP_PIPELINE_READY")
	return m, nil
}

func (m *Messenger) Send(ctx context.Context, out messaging.Outgoing) error {
	return m.dispatcher.Publish(ctx, out)
}

func (m *Messenger) Close() error {
	var err error
	m.once.Do(func() {
		err = m.router.Close()
		<-m.done
		if cerr := m.subscriber.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if cerr := m.dispatcher.Publisher().Close(); cerr != nil && err == nil {
			err = cerr
		}
		m.logger.Info("AMQP_MESSENGER_CLOSED")
	})
	return err
}
