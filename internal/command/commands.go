package command

import "github.com/example/farm2home/internal/checkout"

// Cart Commands
type AddToCart struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SetQuantity struct {
	ProductID string `json:"-"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCart struct {
	ProductID string `json:"product_id"`
}

// Checkout Commands
type SubmitShipping struct {
	checkout.ShippingInfo
}

type SubmitPayment struct {
	checkout.PaymentInfo
}

// Order Commands
type AdvanceStatus struct {
	OrderID  string `json:"-"`
	Status   string `json:"status"`
	Location string `json:"location"`
}
