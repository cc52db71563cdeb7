package order

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/farm2home/internal/infrastructure/kv"
	"go.uber.org/zap"
)

// KeyOrders holds every order of a session as one JSON array
const KeyOrders = "orders"

// Store is an append-only order collection. Orders are loaded once in Open
// and served from memory afterwards.
type Store struct {
	mu     sync.RWMutex
	kv     kv.Store
	logger *zap.Logger
	now    func() time.Time
	orders []Order
	index  map[string]int
}

func Open(ctx context.Context, s kv.Store, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &Store{
		kv:     s,
		logger: logger.Named("order"),
		now:    time.Now,
		index:  make(map[string]int),
	}

	var stored []Order
	if _, err := kv.GetJSON(ctx, s, KeyOrders, &stored); err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	for _, o := range stored {
		if _, dup := store.index[o.ID]; dup || o.ID == "" {
			store.logger.Warn("skipping unusable stored order", zap.String("order_id", o.ID))
			continue
		}
		store.index[o.ID] = len(store.orders)
		store.orders = append(store.orders, o)
	}
	return store, nil
}

// Append persists o. Duplicate ids are rejected.
func (s *Store) Append(ctx context.Context, o Order) error {
	var b kv.Batch
	if err := s.StageAppend(&b, o); err != nil {
		return err
	}
	return b.Commit(ctx, s.kv)
}

// StageAppend adds the write for o to b; o becomes visible once b commits.
func (s *Store) StageAppend(b *kv.Batch, o Order) error {
	if o.ID == "" {
		return ErrInvalidOrder
	}

	s.mu.RLock()
	_, dup := s.index[o.ID]
	next := make([]Order, len(s.orders), len(s.orders)+1)
	copy(next, s.orders)
	s.mu.RUnlock()

	if dup {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.ID)
	}
	next = append(next, o.clone())

	if err := b.PutJSON(KeyOrders, next); err != nil {
		return err
	}
	b.OnCommit(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.replace(next)
		s.logger.Info("order stored", zap.String("order_id", o.ID))
	})
	return nil
}

// FindByID returns the order and true, or false when id is unknown.
func (s *Store) FindByID(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return Order{}, false
	}
	return s.orders[i].clone(), true
}

// List returns all orders, newest first
func (s *Store) List() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// AdvanceStatus moves an order along the fulfilment table. An empty
// location keeps the current one.
func (s *Store) AdvanceStatus(ctx context.Context, id string, to Status, location string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	current := s.orders[i]
	if !CanTransition(current.Tracking.Status, to) {
		return Order{}, transitionError(current.Tracking.Status, to)
	}

	updated := current.clone()
	updated.Tracking.Status = to
	updated.Tracking.UpdatedAt = s.now()
	if location != "" {
		updated.Tracking.Location = location
	}

	next := make([]Order, len(s.orders))
	copy(next, s.orders)
	next[i] = updated

	var b kv.Batch
	if err := b.PutJSON(KeyOrders, next); err != nil {
		return Order{}, err
	}
	if err := b.Commit(ctx, s.kv); err != nil {
		return Order{}, err
	}
	s.replace(next)

	s.logger.Info("order status advanced",
		zap.String("order_id", id),
		zap.String("from", string(current.Tracking.Status)),
		zap.String("to", string(to)))
	return updated.clone(), nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

// replace swaps in a new order slice; callers hold mu.
func (s *Store) replace(orders []Order) {
	s.orders = orders
	s.index = make(map[string]int, len(orders))
	for i, o := range orders {
		s.index[o.ID] = i
	}
}
