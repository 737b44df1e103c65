package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore is an scs.Store keeping session data as Redis strings
// that expire with the session.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a store writing keys under prefix.
func NewRedisSessionStore(client *redis.Client, prefix string) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: prefix}
}

// Find returns the data for token. found is false for unknown or expired tokens.
func (s *RedisSessionStore) Find(token string) ([]byte, bool, error) {
	b, err := s.client.Get(context.Background(), s.prefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Commit stores b until expiry.
func (s *RedisSessionStore) Commit(token string, b []byte, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return s.Delete(token)
	}
	return s.client.Set(context.Background(), s.prefix+token, b, ttl).Err()
}

// Delete removes token. Missing tokens are not an error.
func (s *RedisSessionStore) Delete(token string) error {
	return s.client.Del(context.Background(), s.prefix+token).Err()
}
