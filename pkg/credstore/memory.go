package credstore

import (
	"context"
	"maps"
	"sync"
)

type Memory struct {
	mu sync.RWMutex
	kv map[string]string
}

func NewMemory() *Memory {
	return &Memory{kv: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.kv[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	return m.SetMany(ctx, map[string]string{key: value})
}

func (m *Memory) SetMany(_ context.Context, kv map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	maps.Copy(m.kv, kv)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.kv, k)
	}
	return nil
}

func (m *Memory) Close() error { return nil }
