package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/config"
	"github.com/BaSui01/browseruse/types"
)

const redisKeyPrefix = "browseruse:task:"

// RedisStore keeps records as JSON values in Redis. A zero TTL keeps
// records indefinitely, mirroring the memory backend.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg config.RegistryConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	logger.Info("redis task registry connected",
		zap.String("addr", cfg.Addr),
		zap.Duration("ttl", cfg.TTL),
	)

	return &RedisStore{
		client: client,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "redis_registry")),
	}, nil
}

// Record inserts or overwrites the entry for rec.TaskID.
func (s *RedisStore) Record(ctx context.Context, rec types.TaskRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal task record: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+rec.TaskID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store task record: %w", err)
	}
	return nil
}

// Lookup returns the record for id, or ErrNotFound.
func (s *RedisStore) Lookup(ctx context.Context, id string) (types.TaskRecord, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return types.TaskRecord{}, ErrNotFound
	}
	if err != nil {
		return types.TaskRecord{}, fmt.Errorf("failed to load task record: %w", err)
	}

	var rec types.TaskRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return types.TaskRecord{}, fmt.Errorf("failed to unmarshal task record: %w", err)
	}
	return rec, nil
}

// List scans all task keys and returns their records.
func (s *RedisStore) List(ctx context.Context) ([]types.TaskRecord, error) {
	var out []types.TaskRecord

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			// Expired between SCAN and GET.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load task record: %w", err)
		}

		var rec types.TaskRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			s.logger.Warn("skipping malformed task record", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan task records: %w", err)
	}

	return out, nil
}

// Ping checks the Redis connection, for readiness probes.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
