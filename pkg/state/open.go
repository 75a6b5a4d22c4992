package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"assistbot/pkg/config"
)

// Open builds the store selected by state.backend. The returned close
// function releases backend connections and is never nil.
func Open(ctx context.Context, cfg config.StateConfig) (Store, func() error, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch backend {
	case "", "memory":
		return NewMemoryStore(WithTTL(cfg.PendingTTL())), func() error { return nil }, nil
	case "redis":
		addr := strings.TrimSpace(cfg.Redis.Addr)
		if addr == "" {
			return nil, nil, fmt.Errorf("state.redis.addr is required for the redis backend")
		}

		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", addr, err)
		}

		return NewRedisStore(client, cfg.Redis.KeyPrefix, cfg.PendingTTL()), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported state backend %q", cfg.Backend)
	}
}
