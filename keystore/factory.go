package keystore

import (
	"github.com/redis/go-redis/v9"
)

// StoreType selects a keystore driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

type storeConfig struct {
	redisClient *redis.Client
	keyPrefix   string
}

// StoreOption configures driver construction.
type StoreOption func(*storeConfig)

// WithRedisClient supplies the client the redis driver operates on.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) {
		c.redisClient = client
	}
}

// WithKeyPrefix namespaces redis keys; default "seo-mcp".
func WithKeyPrefix(prefix string) StoreOption {
	return func(c *storeConfig) {
		c.keyPrefix = prefix
	}
}

// NewStore creates a Store for the given driver type.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{keyPrefix: "seo-mcp"}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{client: config.redisClient, prefix: config.keyPrefix}, nil
	default:
		return nil, ErrInvalidStoreType
	}
}
