// Package redis is a Redis-backed noncestore.Store for deployments where
// several verifier instances must share one replay registry.
package redis

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix = "endorsed:nonce:"
	connectTimeout   = 5 * time.Second
)

// RedisConfig holds the configuration for connecting to Redis.
type RedisConfig struct {
	// Address is the Redis server address (host:port).
	Address string
	// Password is the optional Redis password.
	Password string
	// DB is the Redis database number (0-15).
	DB int
	// KeyPrefix overrides the default "endorsed:nonce:" key prefix,
	// for multi-tenant setups.
	KeyPrefix string
}

// RedisStore is a consume-once nonce registry backed by Redis. Atomicity
// of Consume comes from SETNX, which is a single-round-trip atomic
// check-and-set, so the registry is safe to share across processes.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

// NewRedisStore connects to Redis and verifies the connection with a
// ping before returning.
func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, errors.New("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to Redis at %s", cfg.Address)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	logger.Info("connected to redis nonce store",
		zap.String("address", cfg.Address),
		zap.Int("db", cfg.DB),
	)

	return &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: prefix,
	}, nil
}

// Consume atomically records the pair via SETNX, reporting whether this
// was the first use.
func (r *RedisStore) Consume(ctx context.Context, endorser common.Address, nonce [32]byte) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, fmt.Errorf("nonce store is closed")
	}

	first, err := r.client.SetNX(ctx, r.nonceKey(endorser, nonce), 1, 0).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to consume nonce")
	}
	return first, nil
}

// Seen reports whether the pair has been consumed.
func (r *RedisStore) Seen(ctx context.Context, endorser common.Address, nonce [32]byte) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, fmt.Errorf("nonce store is closed")
	}

	n, err := r.client.Exists(ctx, r.nonceKey(endorser, nonce)).Result()
	if err != nil {
		return false, errors.Wrap(err, "failed to read nonce")
	}
	return n > 0, nil
}

// HealthCheck pings the Redis server.
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("nonce store is closed")
	}

	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "redis health check failed")
	}
	return nil
}

// Close closes the Redis client. Idempotent.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return errors.Wrap(err, "failed to close redis client")
	}
	return nil
}

// nonceKey builds the Redis key for an (endorser, nonce) pair.
func (r *RedisStore) nonceKey(endorser common.Address, nonce [32]byte) string {
	return r.keyPrefix + endorser.Hex() + ":" + hex.EncodeToString(nonce[:])
}
