package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatrelay/relay/core/protocol"
)

const redisKeyPrefix = "chat:"

// redisStore persists each session as a JSON message list under a
// TTL-refreshed key. CommitTurn uses an optimistic WATCH transaction so
// concurrent commits to the same session cannot interleave a partial turn.
type redisStore struct {
	client   *redis.Client
	maxTurns int
	ttl      time.Duration
}

func newRedisStore(cfg *storeConfig) (*redisStore, error) {
	if cfg.redisClient == nil {
		return nil, fmt.Errorf("%w: redis driver requires a client", ErrInvalidConfig)
	}

	ttl := cfg.redisTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &redisStore{
		client:   cfg.redisClient,
		maxTurns: cfg.maxTurns,
		ttl:      ttl,
	}, nil
}

func (s *redisStore) History(ctx context.Context, id string) ([]protocol.Message, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+id).Result()
	if err == redis.Nil {
		return []protocol.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var history []protocol.Message
	if err := json.Unmarshal([]byte(val), &history); err != nil {
		return nil, fmt.Errorf("session: redis decode: %w", err)
	}

	// Refresh TTL on read.
	_ = s.client.Expire(ctx, redisKeyPrefix+id, s.ttl).Err()

	return history, nil
}

func (s *redisStore) CommitTurn(ctx context.Context, id string, user, assistant protocol.Message) error {
	if id == "" {
		return ErrEmptySessionID
	}

	key := redisKeyPrefix + id

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		var history []protocol.Message

		val, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			if err := json.Unmarshal([]byte(val), &history); err != nil {
				return err
			}
		}

		history = append(history, user, assistant)
		if max := 2 * s.maxTurns; len(history) > max {
			history = history[len(history)-max:]
		}

		encoded, err := json.Marshal(history)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		return err
	}, key)

	if err != nil {
		return fmt.Errorf("session: redis commit: %w", err)
	}
	return nil
}

func (s *redisStore) Clear(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session: redis clear: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
