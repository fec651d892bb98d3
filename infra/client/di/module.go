package clientdi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/webitel/player-sync-service/config"
	"github.com/webitel/player-sync-service/infra/client/redisclient"
	"github.com/webitel/player-sync-service/infra/client/sqldb"
	"github.com/webitel/player-sync-service/internal/storage"
)

// Clients holds the connections the configuration asks for. Absent ones stay nil.
type Clients struct {
	sql   map[storage.Type]*gorm.DB
	Redis redis.UniversalClient
}

// SQL returns the connection opened for t.
func (c *Clients) SQL(t storage.Type) (*gorm.DB, bool) {
	db, ok := c.sql[t]
	return db, ok
}

// Close releases every open connection.
func (c *Clients) Close() error {
	var errs []error
	for t, db := range c.sql {
		if err := sqldb.Close(db); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
		}
	}
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	return errors.Join(errs...)
}

// Open dials every SQL backend referenced by storage routing, and Redis when
// storage or messaging needs it.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Clients, error) {
	routes, err := storage.Routes(cfg.Storage.Method, cfg.SplitStorage.Enabled, cfg.SplitStorage.Methods)
	if err != nil {
		return nil, err
	}

	c := &Clients{sql: make(map[storage.Type]*gorm.DB)}
	needRedis := cfg.Redis.Enabled

	for _, t := range storage.Distinct(routes) {
		switch {
		case t.IsSQL():
			db, err := sqldb.Open(sqldb.Options{
				Type:       t,
				DSN:        cfg.Storage.DSN,
				SQLitePath: cfg.Storage.SQLitePath,
				PoolSize:   cfg.Storage.PoolSize,
			}, logger)
			if err != nil {
				_ = c.Close()
				return nil, err
			}
			c.sql[t] = db
		case t == storage.TypeRedis:
			needRedis = true
		}
	}

	if needRedis {
		rdb, err := redisclient.New(ctx, redisclient.Options{
			Address:   cfg.Redis.Address,
			Addresses: cfg.Redis.Addresses,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			SSL:       cfg.Redis.SSL,
		}, logger)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Redis = rdb
	}
	return c, nil
}

var Module = fx.Module(
	"clients",

	// [CONSTRUCTOR] Connections are dialed once and shared by storage and messaging
	fx.Provide(func(cfg *config.Config, logger *slog.Logger) (*Clients, error) {
		return Open(context.Background(), cfg, logger)
	}),

	// [LIFECYCLE] Ensures pools are closed after every consumer has stopped
	fx.Invoke(func(lc fx.Lifecycle, clients *Clients) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return clients.Close()
			},
		})
	}),
)
