package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/email"
	"go.uber.org/zap"
)

// Mailer sends the order confirmation
type Mailer interface {
	SendOrderConfirmation(to string, c email.Confirmation) error
}

// Handler processes events for sending notifications
type Handler struct {
	mailer Mailer
	logger *zap.Logger
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		mailer: mailer,
		logger: logger.Named("notifier"),
	}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.logger.Warn("failed to unmarshal event", zap.ByteString("key", key), zap.Error(err))
		return err
	}

	// Only OrderPlaced triggers mail
	if event.EventType == order.EventOrderPlaced {
		return h.handleOrderPlaced(event)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(event order.Event) error {
	var e order.OrderPlaced
	if err := json.Unmarshal(event.Data, &e); err != nil {
		return fmt.Errorf("failed to unmarshal OrderPlaced event: %w", err)
	}

	logger := h.logger.With(zap.String("order_id", e.OrderID))
	if e.CustomerEmail == "" {
		logger.Warn("order has no email address, skipping confirmation")
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	err := h.mailer.SendOrderConfirmation(e.CustomerEmail, email.Confirmation{
		OrderID:           e.OrderID,
		CustomerName:      e.CustomerName,
		ShippingAddress:   e.ShippingAddress,
		PaymentMethod:     paymentLabel(e.PaymentMethod),
		Items:             items,
		Total:             e.Total,
		PointsEarned:      e.PointsEarned,
		EstimatedDelivery: e.EstimatedDelivery,
	})
	if err != nil {
		return fmt.Errorf("failed to send confirmation for %s: %w", e.OrderID, err)
	}

	logger.Info("order confirmation sent", zap.String("to", e.CustomerEmail))
	return nil
}

func paymentLabel(m order.PaymentMethod) string {
	switch m {
	case order.PaymentCard:
		return "Credit / debit card"
	case order.PaymentUPI:
		return "UPI"
	case order.PaymentCashOnDelivery:
		return "Cash on delivery"
	default:
		return string(m)
	}
}
