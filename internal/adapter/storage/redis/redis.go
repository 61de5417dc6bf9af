package redis

import (
	"context"
	"fmt"

	"governance-ledger/config"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// keyPrefix namespaces every key this service writes.
const keyPrefix = "gov:"

// NewClient dials Redis and pings it. A single endpoint gives a plain
// client, several give a cluster client, and a master name selects
// sentinel failover.
func NewClient(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (goredis.UniversalClient, error) {
	opts := &goredis.UniversalOptions{
		Addrs:      cfg.Endpoints(),
		MasterName: cfg.MasterName,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
	}
	if cfg.Timeout > 0 {
		opts.DialTimeout = cfg.Timeout
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}
	client := goredis.NewUniversalClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %v: %w", opts.Addrs, err)
	}

	log.Debug().
		Strs("addrs", opts.Addrs).
		Str("master", cfg.MasterName).
		Int("pool_size", cfg.PoolSize).
		Msg("redis client ready")
	return client, nil
}
