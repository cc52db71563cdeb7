package query

import (
	"time"

	"github.com/example/farm2home/internal/domain/cart"
	"github.com/example/farm2home/internal/domain/order"
	"github.com/example/farm2home/internal/domain/pricing"
	"github.com/example/farm2home/internal/projection"
	"github.com/shopspring/decimal"
)

// CartView is everything the cart page shows
type CartView struct {
	Items        []cart.LineItem   `json:"items"`
	ItemCount    int               `json:"item_count"`
	Amounts      pricing.Breakdown `json:"amounts"`
	Points       int               `json:"wallet_points"`
	PointsToEarn int               `json:"points_to_earn"`
	Footprint    decimal.Decimal   `json:"footprint"`
}

// OrderSummaryView is one row of the order history
type OrderSummaryView struct {
	OrderID   string                `json:"order_id"`
	PlacedAt  time.Time             `json:"placed_at"`
	ItemCount int                   `json:"item_count"`
	Total     decimal.Decimal       `json:"total"`
	Status    projection.StatusInfo `json:"status"`
}

// TrackingView is the complete payload for the order tracking page
type TrackingView struct {
	OrderID           string                `json:"order_id"`
	PlacedAt          time.Time             `json:"placed_at"`
	Items             []cart.LineItem       `json:"items"`
	ItemCount         int                   `json:"item_count"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	Shipping          decimal.Decimal       `json:"shipping"`
	Tax               decimal.Decimal       `json:"tax"`
	Total             decimal.Decimal       `json:"total"`
	PointsEarned      int                   `json:"points_earned"`
	Customer          order.Customer        `json:"customer"`
	ShippingAddress   string                `json:"shipping_address"`
	Payment           order.Payment         `json:"payment"`
	Status            projection.StatusInfo `json:"status"`
	Location          string                `json:"location"`
	EstimatedDelivery time.Time             `json:"estimated_delivery"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func newTrackingView(o order.Order) TrackingView {
	return TrackingView{
		OrderID:           o.ID,
		PlacedAt:          o.CreatedAt,
		Items:             o.Items,
		ItemCount:         o.ItemCount(),
		Subtotal:          o.Subtotal,
		Shipping:          o.Shipping,
		Tax:               o.Tax,
		Total:             o.Total,
		PointsEarned:      o.PointsEarned,
		Customer:          o.Customer,
		ShippingAddress:   o.Customer.FormattedAddress(),
		Payment:           o.Payment,
		Status:            projection.Describe(o.Tracking.Status),
		Location:          o.Tracking.Location,
		EstimatedDelivery: o.Tracking.EstimatedDelivery,
		UpdatedAt:         o.Tracking.UpdatedAt,
	}
}

func newOrderSummaryView(o order.Order) OrderSummaryView {
	return OrderSummaryView{
		OrderID:   o.ID,
		PlacedAt:  o.CreatedAt,
		ItemCount: o.ItemCount(),
		Total:     o.Total,
		Status:    projection.Describe(o.Tracking.Status),
	}
}
