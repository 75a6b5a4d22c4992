package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "assistbot:state:"

// RedisStore keeps contexts as JSON values so several gateway replicas can
// share follow-up state.
type RedisStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl keeps entries until cleared.
func NewRedisStore(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisStore {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}

	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(senderID string) string {
	return s.prefix + senderID
}

func (s *RedisStore) Get(ctx context.Context, senderID string) (Context, error) {
	key, err := senderKey(senderID)
	if err != nil {
		return Context{}, err
	}

	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return idle(key), nil
		}
		return Context{}, fmt.Errorf("conversation state: get: %w", err)
	}

	var stored Context
	if err := json.Unmarshal(data, &stored); err != nil {
		return Context{}, fmt.Errorf("conversation state: unmarshal: %w", err)
	}
	stored.SenderID = key
	return stored, nil
}

func (s *RedisStore) SetPending(ctx context.Context, senderID string, pending Pending, aux map[string]string) error {
	key, err := senderKey(senderID)
	if err != nil {
		return err
	}
	if pending == PendingNone {
		return s.Clear(ctx, key)
	}

	data, err := json.Marshal(Context{SenderID: key, Pending: pending, Aux: cloneAux(aux)})
	if err != nil {
		return fmt.Errorf("conversation state: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation state: set: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, senderID string) error {
	key, err := senderKey(senderID)
	if err != nil {
		return err
	}

	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("conversation state: clear: %w", err)
	}
	return nil
}
