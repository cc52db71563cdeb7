package command

import (
	"context"

	"github.com/example/farm2home/internal/checkout"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/session"
	"go.uber.org/zap"
)

// Recorder receives write-side outcomes
type Recorder interface {
	CartMutation(op string, err error)
	StatusChanged(status string)
}

type nopRecorder struct{}

func (nopRecorder) CartMutation(string, error) {}
func (nopRecorder) StatusChanged(string)       {}

type Handler struct {
	sessions *session.Manager
	metrics  Recorder
	logger   *zap.Logger
}

// NewHandler builds the write side. Events go to the session manager's publisher.
func NewHandler(sessions *session.Manager, metrics Recorder, logger *zap.Logger) *Handler {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger.Named("command"),
	}
}

// AddToCart adds an in-stock catalog product to the session's cart
func (h *Handler) AddToCart(ctx context.Context, sessionID string, cmd AddToCart) error {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	err = s.AddToCart(ctx, cmd.ProductID, cmd.Quantity)
	h.metrics.CartMutation("add", err)
	return err
}

// SetQuantity changes a line item's quantity; zero or less removes it
func (h *Handler) SetQuantity(ctx context.Context, sessionID string, cmd SetQuantity) error {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	err = s.SetQuantity(ctx, cmd.ProductID, cmd.Quantity)
	h.metrics.CartMutation("set_quantity", err)
	return err
}

func (h *Handler) RemoveFromCart(ctx context.Context, sessionID string, cmd RemoveFromCart) error {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	err = s.RemoveFromCart(ctx, cmd.ProductID)
	h.metrics.CartMutation("remove", err)
	return err
}

func (h *Handler) ClearCart(ctx context.Context, sessionID string) error {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	err = s.ClearCart(ctx)
	h.metrics.CartMutation("clear", err)
	return err
}

// StartCheckout opens the wizard at the shipping step
func (h *Handler) StartCheckout(ctx context.Context, sessionID string) (checkout.Summary, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return checkout.Summary{}, err
	}
	return s.StartCheckout()
}

func (h *Handler) SubmitShipping(ctx context.Context, sessionID string, cmd SubmitShipping) (checkout.Summary, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return checkout.Summary{}, err
	}
	return s.SubmitShipping(cmd.ShippingInfo)
}

func (h *Handler) SubmitPayment(ctx context.Context, sessionID string, cmd SubmitPayment) (checkout.Summary, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return checkout.Summary{}, err
	}
	return s.SubmitPayment(cmd.PaymentInfo)
}

func (h *Handler) BackCheckout(ctx context.Context, sessionID string) (checkout.Summary, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return checkout.Summary{}, err
	}
	return s.BackCheckout()
}

// PlaceOrder creates the order from the reviewed checkout
func (h *Handler) PlaceOrder(ctx context.Context, sessionID string) (order.Order, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return order.Order{}, err
	}
	return s.PlaceOrder(ctx)
}

// AdvanceStatus moves an order along the fulfilment table and publishes
// OrderStatusChanged once the change is stored
func (h *Handler) AdvanceStatus(ctx context.Context, sessionID string, cmd AdvanceStatus) (order.Order, error) {
	s, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		return order.Order{}, err
	}

	to := order.Status(cmd.Status)
	updated, from, err := s.AdvanceStatus(ctx, cmd.OrderID, to, cmd.Location)
	if err != nil {
		return order.Order{}, err
	}
	h.metrics.StatusChanged(string(to))

	evt, err := order.NewEvent(updated.ID, order.EventOrderStatusChanged, order.OrderStatusChanged{
		OrderID:   updated.ID,
		From:      from,
		To:        to,
		Location:  updated.Tracking.Location,
		ChangedAt: updated.Tracking.UpdatedAt,
	})
	if err != nil {
		h.logger.Warn("failed to build status event", zap.String("order_id", updated.ID), zap.Error(err))
		return updated, nil
	}
	if err := h.sessions.Publisher().Publish(ctx, updated.ID, evt); err != nil {
		h.logger.Warn("failed to publish status event", zap.String("order_id", updated.ID), zap.Error(err))
	}
	return updated, nil
}
