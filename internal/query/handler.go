package query

import (
	"context"
	"fmt"

	"github.com/example/farm2home/internal/checkout"
	"github.com/example/farm2home/internal/domain/cart"
	"github.com/example/farm2home/internal/domain/impact"
	"github.com/example/farm2home/internal/domain/loyalty"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/domain/pricing"
	"github.com/example/farm2home/internal/session"
)

type Handler struct {
	sessions *session.Manager
	pricing  pricing.Engine
}

// NewHandler builds the read side. A nil engine means pricing.Default().
func NewHandler(sessions *session.Manager, engine *pricing.Engine) *Handler {
	h := &Handler{sessions: sessions, pricing: pricing.Default()}
	if engine != nil {
		h.pricing = *engine
	}
	return h
}

// Cart
func (h *Handler) Cart(ctx context.Context, sessionID string) (CartView, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return CartView{}, err
	}

	snap := s.Cart()
	amounts := h.pricing.Breakdown(snap)
	items := snap.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return CartView{
		Items:        items,
		ItemCount:    snap.ItemCount(),
		Amounts:      amounts,
		Points:       snap.Points,
		PointsToEarn: loyalty.PointsEarned(amounts.Subtotal),
		Footprint:    impact.Footprint(snap),
	}, nil
}

// Checkout
func (h *Handler) Checkout(ctx context.Context, sessionID string) (checkout.Summary, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return checkout.Summary{}, err
	}
	return s.Checkout()
}

// Orders
func (h *Handler) ListOrders(ctx context.Context, sessionID string) ([]OrderSummaryView, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	orders := s.Orders()
	views := make([]OrderSummaryView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderSummaryView(o))
	}
	return views, nil
}

// TrackOrder joins the stored order with its status descriptor
func (h *Handler) TrackOrder(ctx context.Context, sessionID, orderID string) (TrackingView, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return TrackingView{}, err
	}

	o, ok := s.Order(orderID)
	if !ok {
		return TrackingView{}, fmt.Errorf("%w: %s", order.ErrOrderNotFound, orderID)
	}
	return newTrackingView(o), nil
}
