package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrPersistence marks a failed read or write against the durable store.
// Backends wrap every I/O failure with it.
var ErrPersistence = errors.New("persistence failure")

// Op is a single write inside an atomic batch.
type Op struct {
	Key    string
	Value  []byte
	Delete bool
}

// Store is a durable key-value store. Apply must write all ops or none.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Apply(ctx context.Context, ops ...Op) error
}

// Batch collects writes from several owners so they commit as one unit.
// Hooks registered with OnCommit run only after the store accepted the batch.
type Batch struct {
	ops   []Op
	hooks []func()
}

func (b *Batch) Put(key string, value []byte) {
	b.ops = append(b.ops, Op{Key: key, Value: value})
}

// PutJSON encodes v and stages it under key.
func (b *Batch) PutJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	b.Put(key, data)
	return nil
}

func (b *Batch) Delete(key string) {
	b.ops = append(b.ops, Op{Key: key, Delete: true})
}

// OnCommit registers fn to run after a successful Commit.
func (b *Batch) OnCommit(fn func()) {
	b.hooks = append(b.hooks, fn)
}

// Ops returns the staged writes in order.
func (b *Batch) Ops() []Op {
	return b.ops
}

func (b *Batch) Len() int {
	return len(b.ops)
}

// Commit applies the batch to s. On failure no hook runs.
func (b *Batch) Commit(ctx context.Context, s Store) error {
	if len(b.ops) > 0 {
		if err := s.Apply(ctx, b.ops...); err != nil {
			return err
		}
	}
	for _, hook := range b.hooks {
		hook()
	}
	return nil
}

// GetJSON loads key from s and decodes it into v.
func GetJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("%w: failed to decode %s: %v", ErrPersistence, key, err)
	}
	return true, nil
}

// wrap tags a backend error as a persistence failure.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// collapse keeps the last op per key, preserving first-seen order.
func collapse(ops []Op) []Op {
	index := make(map[string]int, len(ops))
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		if i, ok := index[op.Key]; ok {
			out[i] = op
			continue
		}
		index[op.Key] = len(out)
		out = append(out, op)
	}
	return out
}
