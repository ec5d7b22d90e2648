// Package tokenstore provides the persistent key-value stores a session
// uses to remember its token across restarts.
package tokenstore

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/redis/go-redis/v9"
)

// Store is a string key-value store that survives process restarts.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Open builds the store selected by the client configuration.
func Open(ctx context.Context, cfg config.ClientConfig) (Store, error) {
	switch cfg.GetTokenStore() {
	case config.StoreMemory:
		return NewMemory(), nil
	case config.StoreRedis:
		opts, err := redis.ParseURL(cfg.GetRedisURL())
		if err != nil {
			return nil, fmt.Errorf("[tokenstore Open] invalid redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("[tokenstore Open] redis not ready: %w", err)
		}
		return NewRedis(client, DefaultRedisPrefix), nil
	default:
		return NewFile(cfg.GetTokenFile())
	}
}
