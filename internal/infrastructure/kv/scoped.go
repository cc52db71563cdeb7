package kv

import "context"

type scoped struct {
	inner  Store
	prefix string
}

// Scoped returns a view of s where every key lives under prefix.
// Two scopes with different prefixes never observe each other's writes.
func Scoped(s Store, prefix string) Store {
	return &scoped{inner: s, prefix: prefix + ":"}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s *scoped) Apply(ctx context.Context, ops ...Op) error {
	prefixed := make([]Op, len(ops))
	for i, op := range ops {
		op.Key = s.prefix + op.Key
		prefixed[i] = op
	}
	return s.inner.Apply(ctx, prefixed...)
}
