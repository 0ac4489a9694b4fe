package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Redis keeps one key per logical path with JSON string values. Children
// are discovered by prefix SCAN, which is adequate for the record counts a
// single monitoring deployment holds.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a redis-backed store.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, path string) (json.RawMessage, error) {
	val, err := r.client.Get(ctx, path).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", path, err)
	}
	return json.RawMessage(val), nil
}

func (r *Redis) Set(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", path, err)
	}
	if err := r.client.Set(ctx, path, string(data), 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Update does a read-merge-write. Concurrent updates to the same path are
// last-writer-wins, matching the store contract.
func (r *Redis) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	merged := make(map[string]interface{})

	raw, err := r.Get(ctx, path)
	if err == nil {
		if err := json.Unmarshal(raw, &merged); err != nil {
			return fmt.Errorf("failed to unmarshal existing value at %s: %w", path, err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	for k, v := range fields {
		merged[k] = v
	}
	return r.Set(ctx, path, merged)
}

func (r *Redis) Push(ctx context.Context, path string, value interface{}) (string, error) {
	id := uuid.NewString()
	if err := r.Set(ctx, Join(path, id), value); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Redis) Children(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	return r.scanChildren(ctx, path, "", "")
}

func (r *Redis) Query(ctx context.Context, path, field, equals string) (map[string]json.RawMessage, error) {
	return r.scanChildren(ctx, path, field, equals)
}

func (r *Redis) scanChildren(ctx context.Context, path, field, equals string) (map[string]json.RawMessage, error) {
	children := make(map[string]json.RawMessage)

	iter := r.client.Scan(ctx, 0, path+"/*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := childID(path, key)
		if id == "" {
			continue
		}
		val, err := r.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get child %s: %w", key, err)
		}
		raw := json.RawMessage(val)
		if field != "" && !fieldEquals(raw, field, equals) {
			continue
		}
		children[id] = raw
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan children of %s: %w", path, err)
	}
	return children, nil
}

