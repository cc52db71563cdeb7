package loyalty

import "github.com/shopspring/decimal"

// AmountPerPoint is how many currency units earn one loyalty point.
const AmountPerPoint = 10

// PointsEarned returns floor(amount / AmountPerPoint). Zero and negative
// amounts earn nothing.
func PointsEarned(amount decimal.Decimal) int {
	if !amount.IsPositive() {
		return 0
	}
	return int(amount.Div(decimal.NewFromInt(AmountPerPoint)).Floor().IntPart())
}
