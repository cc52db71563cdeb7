package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/farm2home/internal/domain/cart"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order id already exists")
	ErrInvalidOrder      = errors.New("order id is required")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrOrderClosed       = errors.New("order is already closed")
	ErrUnknownStatus     = errors.New("unknown order status")
)

type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "card"
	PaymentUPI            PaymentMethod = "upi"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

// ParsePaymentMethod defaults to card when s is empty.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return PaymentCard, nil
	case PaymentCard, PaymentUPI, PaymentCashOnDelivery:
		return m, nil
	default:
		return "", fmt.Errorf("unknown payment method %q", s)
	}
}

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// FormattedAddress renders "address, city, state pincode", skipping blanks.
func (c Customer) FormattedAddress() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Address, c.City, strings.TrimSpace(c.State + " " + c.Pincode)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Payment holds display-only payment details. Nothing here is used to charge.
type Payment struct {
	Method     PaymentMethod `json:"method"`
	CardHolder string        `json:"card_holder,omitempty"`
	CardLast4  string        `json:"card_last4,omitempty"`
	UPIID      string        `json:"upi_id,omitempty"`
}

type Tracking struct {
	Status            Status    `json:"status"`
	Location          string    `json:"location"`
	EstimatedDelivery time.Time `json:"estimated_delivery"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Order is immutable once placed except for Tracking.
type Order struct {
	ID           string          `json:"id"`
	Items        []cart.LineItem `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Shipping     decimal.Decimal `json:"shipping"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	PointsEarned int             `json:"points_earned"`
	Customer     Customer        `json:"customer"`
	Payment      Payment         `json:"payment"`
	CreatedAt    time.Time       `json:"created_at"`
	Tracking     Tracking        `json:"tracking"`
}

func (o Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

func (o Order) clone() Order {
	items := make([]cart.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}
