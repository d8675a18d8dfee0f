package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRestoreStateGone means the nonce was never stored, has expired, or was
// already claimed.
var ErrRestoreStateGone = errors.New("restore state not found")

// RestoreStore keeps one-time cart restore payloads keyed by ticket nonce.
type RestoreStore interface {
	Put(ctx context.Context, nonce string, payload []byte, ttl time.Duration) error
	Take(ctx context.Context, nonce string) ([]byte, error)
}

// RedisRestoreStore implements RestoreStore on redis.
type RedisRestoreStore struct {
	client *redis.Client
}

func NewRedisRestoreStore(client *redis.Client) RestoreStore {
	return &RedisRestoreStore{client: client}
}

func restoreKey(nonce string) string {
	return "storefront:restore:" + nonce
}

func (s *RedisRestoreStore) Put(ctx context.Context, nonce string, payload []byte, ttl time.Duration) error {
	return s.client.Set(ctx, restoreKey(nonce), payload, ttl).Err()
}

// Take atomically reads and deletes the payload so a ticket works once.
func (s *RedisRestoreStore) Take(ctx context.Context, nonce string) ([]byte, error) {
	b, err := s.client.GetDel(ctx, restoreKey(nonce)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRestoreStateGone
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
