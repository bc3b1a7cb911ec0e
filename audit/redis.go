package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BaSui01/agentcore/orchestrator"
)

// RedisConfig configures the Redis-backed store.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// RedisStore persists task results in Redis: one JSON value per task plus
// a sorted-set index ordered by save time for recency queries.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "agentcore:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "audit:"}, nil
}

// NewRedisStoreWithClient wraps an existing client, mainly for testing.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = "agentcore:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "audit:"}
}

func (s *RedisStore) resultKey(taskID string) string {
	return s.keyPrefix + "result:" + taskID
}

func (s *RedisStore) indexKey() string {
	return s.keyPrefix + "index"
}

// SaveResult persists one task result.
func (s *RedisStore) SaveResult(ctx context.Context, result *orchestrator.TaskResult) error {
	if result == nil || result.TaskID == "" {
		return ErrInvalidInput
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal task result: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.resultKey(result.TaskID), payload, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: result.TaskID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// GetResult returns the result stored under taskID.
func (s *RedisStore) GetResult(ctx context.Context, taskID string) (*orchestrator.TaskResult, error) {
	payload, err := s.client.Get(ctx, s.resultKey(taskID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodePayload(payload)
}

// ListRecent returns up to limit results, most recent first.
func (s *RedisStore) ListRecent(ctx context.Context, limit int) ([]*orchestrator.TaskResult, error) {
	if limit <= 0 {
		limit = 100
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*orchestrator.TaskResult, 0, len(ids))
	for _, id := range ids {
		result, err := s.GetResult(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

// Ping checks Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
