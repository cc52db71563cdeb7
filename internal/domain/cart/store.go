package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"sync"

	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/example/farm2home/internal/infrastructure/kv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store owns one session's cart and wallet balance. Every mutation is
// persisted before the in-memory state changes, so a failed write leaves
// the cart as it was.
type Store struct {
	mu     sync.Mutex
	kv     kv.Store
	logger *zap.Logger
	state  State
}

// Open rehydrates the cart from s. Missing keys yield an empty cart.
func Open(ctx context.Context, s kv.Store, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &Store{kv: s, logger: logger.Named("cart")}

	var rec record
	if _, err := kv.GetJSON(ctx, s, KeyCart, &rec); err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	store.state.Items = store.sanitize(rec.LineItems)

	points, err := store.loadPoints(ctx)
	if err != nil {
		return nil, err
	}
	store.state.Points = points

	return store, nil
}

// sanitize drops unusable line items and merges duplicates
func (s *Store) sanitize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			s.logger.Warn("dropping invalid stored line item",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity))
			continue
		}
		next := State{Items: out}
		if i := next.indexOf(item.ProductID); i >= 0 {
			if !fits(out[i].Quantity, item.Quantity) {
				s.logger.Warn("dropping stored line item that overflows quantity",
					zap.String("product_id", item.ProductID),
					zap.Int("quantity", item.Quantity))
				continue
			}
			out[i].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
	}
	return out
}

// fits reports whether existing+n stays within int
func fits(existing, n int) bool {
	return n <= math.MaxInt-existing
}

func (s *Store) loadPoints(ctx context.Context) (int, error) {
	raw, ok, err := s.kv.Get(ctx, KeyWalletPoints)
	if err != nil {
		return 0, fmt.Errorf("failed to load wallet points: %w", err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil || n < 0 {
		s.logger.Warn("stored wallet points unreadable, starting from zero", zap.ByteString("value", raw))
		return 0, nil
	}
	return n, nil
}

// Add inserts p or increments its existing line. A line keeps the price it
// was first added with. Stock is the caller's concern.
func (s *Store) Add(ctx context.Context, p catalog.Product, quantity int) error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if i := next.indexOf(p.ID); i >= 0 {
		if !fits(next.Items[i].Quantity, quantity) {
			return ErrInvalidQuantity
		}
		next.Items[i].Quantity += quantity
	} else {
		next.Items = append(next.Items, newLineItem(p, quantity))
	}
	return s.commitItems(ctx, next)
}

// Remove deletes the line for productID. Absent ids are a no-op.
func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(ctx, productID)
}

func (s *Store) removeLocked(ctx context.Context, productID string) error {
	i := s.state.indexOf(productID)
	if i < 0 {
		return nil
	}
	next := s.state.clone()
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	return s.commitItems(ctx, next)
}

// SetQuantity overwrites a line's quantity; zero or less removes it.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, productID)
	}
	i := s.state.indexOf(productID)
	if i < 0 {
		return nil
	}
	next := s.state.clone()
	next.Items[i].Quantity = quantity
	return s.commitItems(ctx, next)
}

// Clear empties the cart. The wallet balance is untouched.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	next.Items = nil
	return s.commitItems(ctx, next)
}

// AddPoints credits n points to the wallet.
func (s *Store) AddPoints(ctx context.Context, n int) error {
	if n < 0 {
		return ErrInvalidPoints
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Points + n
	if err := s.kv.Apply(ctx, kv.Op{Key: KeyWalletPoints, Value: encodePoints(next)}); err != nil {
		return err
	}
	s.state.Points = next
	return nil
}

// StageSettlement adds the order-placement writes (clear the cart, credit
// points) to b. Memory is updated only once b commits.
func (s *Store) StageSettlement(b *kv.Batch, points int) error {
	if points < 0 {
		return ErrInvalidPoints
	}

	s.mu.Lock()
	next := State{Points: s.state.Points + points}
	s.mu.Unlock()

	data, err := encodeItems(nil)
	if err != nil {
		return err
	}
	b.Put(KeyCart, data)
	b.Put(KeyWalletPoints, encodePoints(next.Points))
	b.OnCommit(func() {
		s.mu.Lock()
		s.state = next
		s.mu.Unlock()
	})
	return nil
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) Items() []LineItem {
	return s.Snapshot().Items
}

// Total is the cart subtotal in full precision.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Total()
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ItemCount()
}

func (s *Store) Points() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Points
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsEmpty()
}

func (s *Store) commitItems(ctx context.Context, next State) error {
	data, err := encodeItems(next.Items)
	if err != nil {
		return err
	}
	if err := s.kv.Apply(ctx, kv.Op{Key: KeyCart, Value: data}); err != nil {
		return err
	}
	s.state = next
	return nil
}

func encodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	data, err := json.Marshal(record{LineItems: items})
	if err != nil {
		return nil, fmt.Errorf("failed to encode cart: %w", err)
	}
	return data, nil
}

func encodePoints(n int) []byte {
	return []byte(strconv.Itoa(n))
}
