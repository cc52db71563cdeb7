package pricing

import (
	"github.com/example/farm2home/internal/domain/cart"
	"github.com/shopspring/decimal"
)

var (
	DefaultShippingFee = decimal.NewFromInt(50)
	DefaultTaxRate     = decimal.RequireFromString("0.05")
)

// Engine derives order amounts from a cart snapshot. All results are kept
// in full precision; round with Display.
type Engine struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

func Default() Engine {
	return Engine{ShippingFee: DefaultShippingFee, TaxRate: DefaultTaxRate}
}

// Breakdown is every amount shown at checkout
type Breakdown struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

func (e Engine) Subtotal(c cart.State) decimal.Decimal {
	return c.Total()
}

// Shipping is a flat fee regardless of cart contents.
func (e Engine) Shipping(cart.State) decimal.Decimal {
	return e.ShippingFee
}

func (e Engine) Tax(c cart.State) decimal.Decimal {
	return e.Subtotal(c).Mul(e.TaxRate)
}

func (e Engine) GrandTotal(c cart.State) decimal.Decimal {
	return e.Subtotal(c).Add(e.Shipping(c)).Add(e.Tax(c))
}

func (e Engine) Breakdown(c cart.State) Breakdown {
	return Breakdown{
		Subtotal:   e.Subtotal(c),
		Shipping:   e.Shipping(c),
		Tax:        e.Tax(c),
		GrandTotal: e.GrandTotal(c),
	}
}

// Display rounds an amount to two places for presentation.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
