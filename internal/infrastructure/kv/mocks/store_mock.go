package mocks

import (
	"context"
	"sync"

	"github.com/example/farm2home/internal/infrastructure/kv"
)

// Store is a recording kv.Store for tests. It keeps data in memory and can be
// told to fail reads or writes.
type Store struct {
	mu    sync.Mutex
	inner *kv.MemoryStore

	// For tracking calls in tests
	ApplyCalls [][]kv.Op
	ApplyErr   error
	GetErr     error
}

// NewStore creates a new Store
func NewStore() *Store {
	return &Store{
		inner:      kv.NewMemoryStore(),
		ApplyCalls: make([][]kv.Op, 0),
	}
}

func (m *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	getErr := m.GetErr
	m.mu.Unlock()

	if getErr != nil {
		return nil, false, getErr
	}
	return m.inner.Get(ctx, key)
}

func (m *Store) Apply(ctx context.Context, ops ...kv.Op) error {
	m.mu.Lock()
	m.ApplyCalls = append(m.ApplyCalls, append([]kv.Op(nil), ops...))
	applyErr := m.ApplyErr
	m.mu.Unlock()

	if applyErr != nil {
		return applyErr
	}
	return m.inner.Apply(ctx, ops...)
}

// Seed writes a value directly, bypassing call recording
func (m *Store) Seed(key string, value []byte) {
	_ = m.inner.Apply(context.Background(), kv.Op{Key: key, Value: value})
}

// Value returns the stored value for key, or nil
func (m *Store) Value(key string) []byte {
	v, _, _ := m.inner.Get(context.Background(), key)
	return v
}

// FailWrites makes every following Apply return err
func (m *Store) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplyErr = err
}

// Reset clears recorded calls and injected errors
func (m *Store) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplyCalls = make([][]kv.Op, 0)
	m.ApplyErr = nil
	m.GetErr = nil
}
