package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store persists state entries as plain Redis strings without TTL.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore creates a Redis-backed state store. An empty prefix uses DefaultPrefix.
func NewStore(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

// Get retrieves a state entry.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, StateKey(s.prefix, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores a state entry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, StateKey(s.prefix, key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Delete removes a state entry. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, StateKey(s.prefix, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the state keys currently stored under the prefix.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	pattern := StateKey(s.prefix, "*")

	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan state keys: %w", err)
		}
		for _, k := range batch {
			if key, ok := ExtractStateKey(s.prefix, k); ok {
				keys = append(keys, key)
			}
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
