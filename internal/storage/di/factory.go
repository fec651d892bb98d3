// Package storagedi assembles the configured storage backends behind the storage facade.
package storagedi

import (
	"fmt"
	"log/slog"

	"github.com/webitel/player-sync-service/config"
	clientdi "github.com/webitel/player-sync-service/infra/client/di"
	"github.com/webitel/player-sync-service/internal/storage"
	"github.com/webitel/player-sync-service/internal/storage/memory"
	"github.com/webitel/player-sync-service/internal/storage/redisstore"
	"github.com/webitel/player-sync-service/internal/storage/sqlstore"
)

// NewImplementation builds one backend per distinct configured type, wraps
// each in logging, and routes through Split when more than one is in use.
func NewImplementation(cfg *config.Config, clients *clientdi.Clients, logger *slog.Logger) (storage.Implementation, error) {
	routes, err := storage.Routes(cfg.Storage.Method, cfg.SplitStorage.Enabled, cfg.SplitStorage.Methods)
	if err != nil {
		return nil, err
	}

	backends := make(map[storage.Type]storage.Implementation)
	for _, t := range storage.Distinct(routes) {
		impl, err := newBackend(t, cfg, clients)
		if err != nil {
			return nil, err
		}
		backends[t] = storage.NewLoggingMiddleware(impl, logger.With("backend", t.DisplayName()))
	}

	if len(backends) == 1 {
		return backends[routes[storage.SplitUser]], nil
	}
	return storage.NewSplit(logger, backends, routes)
}

func newBackend(t storage.Type, cfg *config.Config, clients *clientdi.Clients) (storage.Implementation, error) {
	switch {
	case t == storage.TypeMemory:
		return memory.New(), nil
	case t == storage.TypeRedis:
		if clients.Redis == nil {
			return nil, fmt.Errorf("storage: %s selected but no redis client is available", t)
		}
		return redisstore.New(clients.Redis, redisstore.WithPrefix(cfg.Storage.RedisPrefix)), nil
	case t.IsSQL():
		db, ok := clients.SQL(t)
		if !ok {
			return nil, fmt.Errorf("storage: %s selected but no connection was opened", t)
		}
		return sqlstore.New(db, t, cfg.Storage.TablePrefix)
	}
	return nil, fmt.Errorf("storage: unsupported method %s", t)
}
