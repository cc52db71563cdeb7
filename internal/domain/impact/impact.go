package impact

import (
	"github.com/example/farm2home/internal/domain/cart"
	"github.com/example/farm2home/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

var (
	// DeliveryDistance and ImpactPerDistance model a constant delivery trip
	DeliveryDistance  = decimal.NewFromInt(10)
	ImpactPerDistance = decimal.RequireFromString("0.3")

	// TransportFactor is added once per cart
	TransportFactor = DeliveryDistance.Mul(ImpactPerDistance)

	defaultFactor   = decimal.RequireFromString("0.6")
	categoryFactors = map[catalog.Category]decimal.Decimal{
		catalog.CategoryVegetable: decimal.RequireFromString("0.5"),
		catalog.CategoryFruit:     decimal.RequireFromString("0.7"),
	}
)

// CategoryFactor is the per-unit impact of a product category.
func CategoryFactor(c catalog.Category) decimal.Decimal {
	if f, ok := categoryFactors[c]; ok {
		return f
	}
	return defaultFactor
}

// Footprint estimates the environmental impact of the cart, rounded to two places.
func Footprint(c cart.State) decimal.Decimal {
	total := TransportFactor
	for _, item := range c.Items {
		total = total.Add(CategoryFactor(item.Category).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}
