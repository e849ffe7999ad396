package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/stash/internal/config"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/redis"
	"github.com/MrSnakeDoc/stash/internal/statestore"
	"github.com/MrSnakeDoc/stash/internal/statestore/file"
	"github.com/MrSnakeDoc/stash/internal/statestore/memory"
	redisstate "github.com/MrSnakeDoc/stash/internal/statestore/redis"
)

// openStateStore opens the configured persisted-state backend.
func openStateStore(ctx context.Context, cfg *config.Config, log logger.Logger) (statestore.Store, error) {
	switch cfg.StateBackend {
	case config.StateBackendMemory:
		log.Debug("using in-memory state, the session will not survive this process")
		return memory.New(), nil

	case config.StateBackendRedis:
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis state backend: %w", err)
		}
		st := redisstate.NewStore(client, cfg.RedisPrefix)
		if keys, err := st.Keys(ctx); err == nil {
			log.Debug("using redis state",
				logger.String("prefix", cfg.RedisPrefix),
				logger.Int("keys", len(keys)))
		}
		return st, nil

	case config.StateBackendFile:
		st, err := file.Open(cfg.StateFile, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open state file: %w", err)
		}
		log.Debug("using state file", logger.String("path", st.Path()))
		return st, nil

	default:
		return nil, fmt.Errorf("unknown state backend %q (want file, redis or memory)", cfg.StateBackend)
	}
}
