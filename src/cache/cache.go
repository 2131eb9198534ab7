// Package cache persists the last-issued OAuth token between invocations.
package cache

import (
	"context"
	"fmt"

	"github.com/apimgr/idealista/src/model"
)

// Store is the token cache interface. Get returns (nil, nil) on a miss;
// a corrupt or unreadable entry degrades to a miss rather than an error.
type Store interface {
	// Get retrieves the cached token, or nil when absent.
	Get(ctx context.Context) (*model.CachedToken, error)
	// Put replaces the cached token.
	Put(ctx context.Context, token model.CachedToken) error
	// Clear removes the cached token.
	Clear(ctx context.Context) error
}

// Config selects and configures the token cache backend.
type Config struct {
	Backend string      `yaml:"backend" mapstructure:"backend"` // file, memory, redis
	Redis   RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Backend: "file",
		Redis: RedisConfig{
			Host:   "localhost",
			Port:   6379,
			Prefix: "idealista:",
		},
	}
}

// New builds a Store for the configured backend. filePath is used by the
// file backend.
func New(cfg Config, filePath string) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(filePath), nil
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
