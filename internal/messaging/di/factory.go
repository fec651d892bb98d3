// Package messagingdi picks the messenger transport from configuration.
package messagingdi

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/webitel/player-sync-service/config"
	clientdi "github.com/webitel/player-sync-service/infra/client/di"
	"github.com/webitel/player-sync-service/internal/adapter/pubsub"
	amqphandler "github.com/webitel/player-sync-service/internal/handler/amqp"
	"github.com/webitel/player-sync-service/internal/messaging"
	"github.com/webitel/player-sync-service/internal/messaging/redismessenger"
	"github.com/webitel/player-sync-service/internal/messaging/sqlmessenger"
	"github.com/webitel/player-sync-service/internal/metrics"
	"github.com/webitel/player-sync-service/internal/storage"
)

// Service names accepted by messaging.service.
const (
	ServiceAuto  = "auto"
	ServiceNone  = "none"
	ServiceRedis = "redis"
	ServiceAMQP  = "amqp"
	ServiceSQL   = "sql"
)

// Resolve turns "auto" into a concrete service: redis, then amqp, then the
// SQL table when the primary storage is SQL, else none.
func Resolve(cfg *config.Config) string {
	if cfg.Messaging.Service != ServiceAuto {
		return cfg.Messaging.Service
	}
	switch {
	case cfg.Redis.Enabled:
		return ServiceRedis
	case cfg.AMQP.Enabled:
		return ServiceAMQP
	}
	if t, err := storage.ParseType(cfg.Storage.Method); err == nil && t.IsSQL() {
		return ServiceSQL
	}
	return ServiceNone
}

// NewProvider builds the transport named by the resolved service.
func NewProvider(cfg *config.Config, clients *clientdi.Clients, logger *slog.Logger, m *metrics.Metrics) (messaging.Provider, error) {
	service := Resolve(cfg)
	logger.Info("MESSAGING_SERVICE_SELECTED", "configured", cfg.Messaging.Service, "service", service)

	switch service {
	case ServiceNone:
		return messaging.NoopProvider{}, nil

	case ServiceRedis:
		if clients.Redis == nil {
			return nil, fmt.Errorf("messaging: redis selected but redis.enabled is false")
		}
		return redismessenger.NewProvider(clients.Redis, cfg.Redis.Channel, logger), nil

	case ServiceAMQP:
		factory := pubsub.NewAMQPFactory(cfg.AMQP.URI, watermill.NewSlogLogger(logger))
		return amqphandler.NewProvider("RabbitMQ", factory, cfg.AMQP.Exchange, cfg.Server.ID, logger), nil

	case ServiceSQL:
		t, err := storage.ParseType(cfg.Storage.Method)
		if err != nil {
			return nil, err
		}
		db, ok := clients.SQL(t)
		if !ok {
			return nil, fmt.Errorf("messaging: sql selected but storage.method %q is not a SQL backend", cfg.Storage.Method)
		}
		sql := cfg.Messaging.SQL
		return sqlmessenger.NewProvider(db, sqlmessenger.Settings{
			TablePrefix:          cfg.Storage.TablePrefix,
			PollInterval:         sql.PollInterval,
			HousekeepingInterval: sql.HousekeepingInterval,
			PollWindow:           sql.PollWindow,
			Retention:            sql.Retention,
		}, logger, m), nil
	}
	return nil, fmt.Errorf("messaging: unknown service %q", service)
}
