package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Values are copied on the way in and out.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

// Get retrieves a value by key
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Apply writes every op under one lock
func (m *MemoryStore) Apply(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return wrap("apply", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		if op.Delete {
			delete(m.data, op.Key)
			continue
		}
		m.data[op.Key] = append([]byte(nil), op.Value...)
	}
	return nil
}

// Keys returns every stored key
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
