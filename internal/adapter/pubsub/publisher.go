package pubsub

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
)

// AMQPFactory builds publishers and subscribers on a durable fanout exchange.
// Each node consumes through its own exclusive, auto-deleted queue, so every
// node sees every message once and nothing lingers after a node goes away.
type AMQPFactory struct {
	uri    string
	logger watermill.LoggerAdapter
}

func NewAMQPFactory(uri string, logger watermill.LoggerAdapter) *AMQPFactory {
	return &AMQPFactory{uri: uri, logger: logger}
}

func (f *AMQPFactory) config(nodeID string) amqp.Config {
	cfg := amqp.NewDurablePubSubConfig(f.uri, amqp.GenerateQueueNameTopicNameWithSuffix(nodeID))
	cfg.Queue.Durable = false
	cfg.Queue.AutoDelete = true
	cfg.Queue.Exclusive = true
	return cfg
}

func (f *AMQPFactory) BuildPublisher() (message.Publisher, error) {
	pub, err := amqp.NewPublisher(f.config(""), f.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp factory: publisher: %w", err)
	}
	return pub, nil
}

func (f *AMQPFactory) BuildSubscriber(nodeID string) (message.Subscriber, error) {
	sub, err := amqp.NewSubscriber(f.config(nodeID), f.logger)
	if err != nil {
		return nil, fmt.Errorf("amqp factory: subscriber: %w", err)
	}
	return sub, nil
}
