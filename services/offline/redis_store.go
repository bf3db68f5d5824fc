package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	redisOpKeyPrefix = "offline:op:"
	redisQueueKey    = "offline:queue"
)

// RedisStore is the durable queue implementation. Each operation lives in
// its own key; a sorted set scored by enqueue timestamp preserves replay
// order across restarts.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Enqueue(ctx context.Context, op Operation) (string, error) {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now().UTC()
	}
	op.Synced = false

	b, err := json.Marshal(op)
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, redisOpKeyPrefix+op.ID, b, 0).Err(); err != nil {
		return "", err
	}
	if err := r.client.ZAdd(ctx, redisQueueKey, &redis.Z{
		Score:  float64(op.Timestamp.UnixNano()),
		Member: op.ID,
	}).Err(); err != nil {
		return "", err
	}
	return op.ID, nil
}

func (r *RedisStore) load(ctx context.Context, id string) (Operation, error) {
	var op Operation
	raw, err := r.client.Get(ctx, redisOpKeyPrefix+id).Result()
	if err != nil {
		return op, err
	}
	err = json.Unmarshal([]byte(raw), &op)
	return op, err
}

func (r *RedisStore) ListUnsynced(ctx context.Context) ([]Operation, error) {
	ids, err := r.client.ZRange(ctx, redisQueueKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	var out []Operation
	for _, id := range ids {
		op, err := r.load(ctx, id)
		if err == redis.Nil {
			// Orphaned index entry; drop it.
			r.client.ZRem(ctx, redisQueueKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load operation %s: %w", id, err)
		}
		if !op.Synced {
			out = append(out, op)
		}
	}
	return out, nil
}

func (r *RedisStore) MarkSynced(ctx context.Context, id string) error {
	op, err := r.load(ctx, id)
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	op.Synced = true
	b, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisOpKeyPrefix+op.ID, b, 0).Err()
}

func (r *RedisStore) PurgeSynced(ctx context.Context) error {
	ids, err := r.client.ZRange(ctx, redisQueueKey, 0, -1).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		op, err := r.load(ctx, id)
		if err == redis.Nil {
			r.client.ZRem(ctx, redisQueueKey, id)
			continue
		}
		if err != nil {
			return err
		}
		if op.Synced {
			if err := r.client.Del(ctx, redisOpKeyPrefix+id).Err(); err != nil {
				return err
			}
			if err := r.client.ZRem(ctx, redisQueueKey, id).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *RedisStore) CountUnsynced(ctx context.Context) (int, error) {
	ops, err := r.ListUnsynced(ctx)
	if err != nil {
		return 0, err
	}
	return len(ops), nil
}
