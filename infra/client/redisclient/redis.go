// Package redisclient builds the go-redis client shared by Redis storage and the pub/sub messenger.
package redisclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Address   string
	Addresses []string
	Username  string
	Password  string
	SSL       bool
}

// New returns a cluster client when several addresses are configured and a
// single-node client otherwise, then pings it.
func New(ctx context.Context, opts Options, log *slog.Logger) (redis.UniversalClient, error) {
	addrs := opts.Addresses
	if len(addrs) == 0 {
		addrs = []string{opts.Address}
	}

	uopts := &redis.UniversalOptions{
		Addrs:      addrs,
		Username:   opts.Username,
		Password:   opts.Password,
		MaxRetries: 3,
	}
	if opts.SSL {
		uopts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewUniversalClient(uopts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisclient: ping %v: %w", addrs, err)
	}

	log.Info("REDIS_CONNECTED", "addrs", addrs, "tls", opts.SSL)
	return rdb, nil
}
