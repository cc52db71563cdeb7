package cart

import (
	"errors"

	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// Storage keys, relative to the session scope
const (
	KeyCart         = "cart"
	KeyWalletPoints = "walletPoints"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product id is required")
	ErrInvalidPoints   = errors.New("points must not be negative")
)

// LineItem is a product snapshot taken when it was added, plus a quantity.
type LineItem struct {
	ProductID string           `json:"id"`
	Name      string           `json:"name"`
	Category  catalog.Category `json:"category"`
	Price     decimal.Decimal  `json:"price"`
	ImageURL  string           `json:"image_url,omitempty"`
	Quantity  int              `json:"quantity"`
}

func (i LineItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func newLineItem(p catalog.Product, quantity int) LineItem {
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		ImageURL:  p.ImageURL,
		Quantity:  quantity,
	}
}

// State is a read-only copy of the cart and the wallet balance.
type State struct {
	Items  []LineItem `json:"items"`
	Points int        `json:"points"`
}

// Total is the unrounded sum of price times quantity.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s State) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

func (s State) clone() State {
	items := make([]LineItem, len(s.Items))
	copy(items, s.Items)
	return State{Items: items, Points: s.Points}
}

func (s State) indexOf(productID string) int {
	for i, item := range s.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// record is the persisted shape of the cart key
type record struct {
	LineItems []LineItem `json:"lineItems"`
}
