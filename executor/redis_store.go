package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentcommerce/x402-a2a/types"
)

const redisKeyPrefix = "x402a2a:requirements:"

// RedisStore persists offered requirements in Redis so a merchant restart
// (or a multi-replica merchant) does not orphan in-flight payments. Take is
// atomic via GETDEL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore builds a store around an existing redis client. Entries
// expire after ttl; zero means no expiry.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(taskID string) string {
	return redisKeyPrefix + taskID
}

// Put implements RequirementsStore.
func (s *RedisStore) Put(ctx context.Context, taskID string, accepts []types.PaymentRequirements) error {
	raw, err := json.Marshal(accepts)
	if err != nil {
		return fmt.Errorf("redis store: marshal requirements: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(taskID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis store: put %s: %w", taskID, err)
	}
	return nil
}

// Take implements RequirementsStore.
func (s *RedisStore) Take(ctx context.Context, taskID string) ([]types.PaymentRequirements, bool, error) {
	raw, err := s.client.GetDel(ctx, redisKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis store: take %s: %w", taskID, err)
	}
	return decodeAccepts(raw)
}

// Get implements RequirementsStore.
func (s *RedisStore) Get(ctx context.Context, taskID string) ([]types.PaymentRequirements, bool, error) {
	raw, err := s.client.Get(ctx, redisKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis store: get %s: %w", taskID, err)
	}
	return decodeAccepts(raw)
}

func decodeAccepts(raw []byte) ([]types.PaymentRequirements, bool, error) {
	var accepts []types.PaymentRequirements
	if err := json.Unmarshal(raw, &accepts); err != nil {
		return nil, false, fmt.Errorf("redis store: decode requirements: %w", err)
	}
	return accepts, true, nil
}
