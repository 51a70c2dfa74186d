package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix    = "powerlister:"
	redisFieldValue   = "value"
	redisFieldVersion = "version"
)

// RedisKV implements KV with one Redis hash per key holding the value and its version.
// Compare-and-set uses WATCH/MULTI.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV returns a KV backed by client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (s *RedisKV) key(key string) string {
	return redisKeyPrefix + key
}

func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, int64, error) {
	return s.get(ctx, s.client, key)
}

type hashGetter interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

func (s *RedisKV) get(ctx context.Context, c hashGetter, key string) ([]byte, int64, error) {
	vals, err := c.HMGet(ctx, s.key(key), redisFieldValue, redisFieldVersion).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("getting %s: %w", key, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, 0, nil
	}
	value, _ := vals[0].(string)
	rawVersion, _ := vals[1].(string)
	version, err := strconv.ParseInt(rawVersion, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing version of %s: %w", key, err)
	}
	return []byte(value), version, nil
}

func (s *RedisKV) Put(ctx context.Context, key string, value []byte) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key(key), redisFieldValue, value)
		incr = pipe.HIncrBy(ctx, s.key(key), redisFieldVersion, 1)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("putting %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (s *RedisKV) CompareAndSet(ctx context.Context, key string, value []byte, expected int64) (int64, error) {
	var version int64
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		_, current, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expected {
			return &ConflictError{Key: key, Expected: expected}
		}

		var incr *redis.IntCmd
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.key(key), redisFieldValue, value)
			incr = pipe.HIncrBy(ctx, s.key(key), redisFieldVersion, 1)
			return nil
		})
		if err != nil {
			return err
		}
		version = incr.Val()
		return nil
	}, s.key(key))

	if errors.Is(err, redis.TxFailedErr) {
		return 0, &ConflictError{Key: key, Expected: expected}
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return 0, err
	}
	if err != nil {
		return 0, fmt.Errorf("writing %s: %w", key, err)
	}
	return version, nil
}

func (s *RedisKV) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}
