package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process store for local development and unit tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(ctx context.Context, path string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.data[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return raw, nil
}

func (m *Memory) Set(ctx context.Context, path string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", path, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[path] = data
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := make(map[string]interface{})
	if raw, ok := m.data[path]; ok {
		if err := json.Unmarshal(raw, &merged); err != nil {
			return fmt.Errorf("failed to unmarshal existing value at %s: %w", path, err)
		}
	}
	for k, v := range fields {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to marshal merged value for %s: %w", path, err)
	}
	m.data[path] = data
	return nil
}

func (m *Memory) Push(ctx context.Context, path string, value interface{}) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, Join(path, id), value); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Children(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	return m.filterChildren(path, "", ""), nil
}

func (m *Memory) Query(ctx context.Context, path, field, equals string) (map[string]json.RawMessage, error) {
	return m.filterChildren(path, field, equals), nil
}

func (m *Memory) filterChildren(path, field, equals string) map[string]json.RawMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	children := make(map[string]json.RawMessage)
	for key, raw := range m.data {
		id := childID(path, key)
		if id == "" {
			continue
		}
		if field != "" && !fieldEquals(raw, field, equals) {
			continue
		}
		children[id] = raw
	}
	return children
}
