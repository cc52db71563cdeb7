package order

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateType = "Order"

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Event is the envelope published for every order change
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewEvent(orderID, eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.New().String(),
		AggregateID:   orderID,
		AggregateType: AggregateType,
		EventType:     eventType,
		Data:          raw,
		Timestamp:     time.Now(),
	}, nil
}

type PlacedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlaced struct {
	OrderID           string          `json:"order_id"`
	CustomerName      string          `json:"customer_name"`
	CustomerEmail     string          `json:"customer_email"`
	ShippingAddress   string          `json:"shipping_address"`
	Items             []PlacedItem    `json:"items"`
	Total             decimal.Decimal `json:"total"`
	PointsEarned      int             `json:"points_earned"`
	PaymentMethod     PaymentMethod   `json:"payment_method"`
	PlacedAt          time.Time       `json:"placed_at"`
	EstimatedDelivery time.Time       `json:"estimated_delivery"`
}

func NewOrderPlaced(o Order) OrderPlaced {
	items := make([]PlacedItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, PlacedItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return OrderPlaced{
		OrderID:           o.ID,
		CustomerName:      o.Customer.Name,
		CustomerEmail:     o.Customer.Email,
		ShippingAddress:   o.Customer.FormattedAddress(),
		Items:             items,
		Total:             o.Total,
		PointsEarned:      o.PointsEarned,
		PaymentMethod:     o.Payment.Method,
		PlacedAt:          o.CreatedAt,
		EstimatedDelivery: o.Tracking.EstimatedDelivery,
	}
}

type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	Location  string    `json:"location"`
	ChangedAt time.Time `json:"changed_at"`
}

// Publisher sends events to the outside world, keyed by order id.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
