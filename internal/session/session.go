// Package session gives each shopper one cart, one order history and at most
// one checkout in progress, all persisted under a per-session storage scope.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/farm2home/internal/checkout"
	"github.com/example/farm2home/internal/domain/cart"
	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/domain/pricing"
	"github.com/example/farm2home/internal/infrastructure/kv"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoSession  = errors.New("session id is required")
	ErrNoCheckout = errors.New("no checkout in progress")
)

type Config struct {
	Store     kv.Store
	Catalog   catalog.Catalog
	Pricing   *pricing.Engine
	Publisher order.Publisher
	// IdleTTL drops in-memory sessions nobody has touched for this long.
	// Zero keeps them until Forget.
	IdleTTL time.Duration
	Metrics checkout.Recorder
	Logger  *zap.Logger
	Now     func() time.Time
	NewID   func(now time.Time) string
}

type entry struct {
	session  *Session
	lastUsed time.Time
}

// Manager opens sessions on first use and keeps them in memory
type Manager struct {
	cfg    Config
	logger *zap.Logger
	// opens of the same id share one storage read; different ids never wait on each other
	group singleflight.Group

	mu        sync.Mutex
	sessions  map[string]*entry
	lastSweep time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil || cfg.Catalog == nil {
		return nil, errors.New("session manager requires a store and a catalog")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = order.NopPublisher{}
	}
	return &Manager{
		cfg:      cfg,
		logger:   cfg.Logger.Named("session"),
		sessions: make(map[string]*entry),
	}, nil
}

// Publisher is where every order event of every session goes
func (m *Manager) Publisher() order.Publisher {
	return m.cfg.Publisher
}

// Scope is the storage prefix for a session's records
func Scope(sessionID string) string {
	return "session:" + sessionID
}

func (m *Manager) now() time.Time {
	if m.cfg.Now != nil {
		return m.cfg.Now()
	}
	return time.Now()
}

// Get returns the session for id, loading its cart and orders the first time.
// A failed load is not cached, so the next call retries it.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}
	if s, ok := m.cached(id); ok {
		return s, nil
	}

	v, err, _ := m.group.Do(id, func() (any, error) {
		// an earlier flight may have stored it after our miss
		if s, ok := m.cached(id); ok {
			return s, nil
		}
		s, err := m.open(ctx, id)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.sessions[id] = &entry{session: s, lastUsed: m.now()}
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) cached(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evictIdleLocked(now)
	e, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = now
	return e.session, true
}

// evictIdleLocked sweeps at most twice per IdleTTL. Records stay in storage,
// so an evicted session reloads on its next request.
func (m *Manager) evictIdleLocked(now time.Time) {
	ttl := m.cfg.IdleTTL
	if ttl <= 0 || now.Sub(m.lastSweep) < ttl/2 {
		return
	}
	m.lastSweep = now

	evicted := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastUsed) > ttl {
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		m.logger.Debug("idle sessions evicted", zap.Int("count", evicted), zap.Int("remaining", len(m.sessions)))
	}
}

func (m *Manager) open(ctx context.Context, id string) (*Session, error) {
	store := kv.Scoped(m.cfg.Store, Scope(id))
	logger := m.cfg.Logger.With(zap.String("session", id))

	c, err := cart.Open(ctx, store, logger)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}
	o, err := order.Open(ctx, store, logger)
	if err != nil {
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}

	m.logger.Debug("session opened", zap.String("session", id),
		zap.Int("items", c.ItemCount()), zap.Int("orders", o.Len()))
	return &Session{
		id:      id,
		cfg:     m.cfg,
		logger:  logger,
		kv:      store,
		cart:    c,
		orders:  o,
		catalog: m.cfg.Catalog,
	}, nil
}

// Forget drops the in-memory copy of a session; its records stay in storage
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Session serializes everything one shopper does: cart edits never run
// while an order is being placed.
type Session struct {
	id      string
	cfg     Config
	logger  *zap.Logger
	catalog catalog.Catalog

	mu       sync.Mutex
	kv       kv.Store
	cart     *cart.Store
	orders   *order.Store
	workflow *checkout.Workflow
}

func (s *Session) ID() string {
	return s.id
}

// AddToCart looks the product up and adds it when it is in stock
func (s *Session) AddToCart(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return cart.ErrInvalidQuantity
	}
	if productID == "" {
		return cart.ErrInvalidProduct
	}

	p, err := s.catalog.Product(ctx, productID)
	if err != nil {
		return err
	}
	if !p.InStock() {
		return fmt.Errorf("%w: %s", catalog.ErrOutOfStock, p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Add(ctx, p, quantity)
}

func (s *Session) RemoveFromCart(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Remove(ctx, productID)
}

func (s *Session) SetQuantity(ctx context.Context, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.SetQuantity(ctx, productID, quantity)
}

func (s *Session) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clear(ctx)
}

func (s *Session) Cart() cart.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// StartCheckout begins a new checkout, replacing any unfinished one
func (s *Session) StartCheckout() (checkout.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := checkout.New(checkout.Config{
		Cart:      s.cart,
		Orders:    s.orders,
		KV:        s.kv,
		Pricing:   s.cfg.Pricing,
		Publisher: s.cfg.Publisher,
		Metrics:   s.cfg.Metrics,
		Logger:    s.logger,
		Now:       s.cfg.Now,
		NewID:     s.cfg.NewID,
	})
	if err != nil {
		return checkout.Summary{}, err
	}
	s.workflow = w
	return w.Summary(), nil
}

func (s *Session) SubmitShipping(info checkout.ShippingInfo) (checkout.Summary, error) {
	return s.withCheckout(func(w *checkout.Workflow) error {
		return w.SubmitShipping(info)
	})
}

func (s *Session) SubmitPayment(info checkout.PaymentInfo) (checkout.Summary, error) {
	return s.withCheckout(func(w *checkout.Workflow) error {
		return w.SubmitPayment(info)
	})
}

func (s *Session) BackCheckout() (checkout.Summary, error) {
	return s.withCheckout(func(w *checkout.Workflow) error {
		return w.Back()
	})
}

func (s *Session) Checkout() (checkout.Summary, error) {
	return s.withCheckout(func(*checkout.Workflow) error { return nil })
}

// PlaceOrder places the order of the checkout in progress
func (s *Session) PlaceOrder(ctx context.Context) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workflow == nil {
		return order.Order{}, ErrNoCheckout
	}
	return s.workflow.PlaceOrder(ctx)
}

// withCheckout runs fn on the current workflow. The summary is returned even
// when fn fails so callers can show the form again with what was entered.
func (s *Session) withCheckout(fn func(w *checkout.Workflow) error) (checkout.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workflow == nil {
		return checkout.Summary{}, ErrNoCheckout
	}
	err := fn(s.workflow)
	return s.workflow.Summary(), err
}

func (s *Session) Orders() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.List()
}

func (s *Session) Order(id string) (order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.FindByID(id)
}

// AdvanceStatus moves an order along and reports the status it left
func (s *Session) AdvanceStatus(ctx context.Context, id string, to order.Status, location string) (order.Order, order.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders.FindByID(id)
	if !ok {
		return order.Order{}, "", fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	updated, err := s.orders.AdvanceStatus(ctx, id, to, location)
	if err != nil {
		return order.Order{}, current.Tracking.Status, err
	}
	return updated, current.Tracking.Status, nil
}
