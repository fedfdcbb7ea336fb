package pricing

import "github.com/shopspring/decimal"

var (
	// WeightIncrement is the step applied by the +/- controls on weight and area items.
	WeightIncrement = decimal.New(1, -1)
	// CountIncrement is the step applied to count items.
	CountIncrement = 1
)

// NormalizeWeight rounds raw to one decimal place, half-up at the tenths.
func NormalizeWeight(raw decimal.Decimal) decimal.Decimal {
	return raw.Round(1)
}

// Step moves amount by delta increments. When the result would be zero or
// negative it returns removed=true and the zero amount of the same kind.
func Step(amount Amount, delta int) (next Amount, removed bool) {
	switch amount.Kind {
	case KindCount:
		q := amount.Quantity + delta*CountIncrement
		if q <= 0 {
			return CountOf(0), true
		}
		return CountOf(q), false
	case KindWeight:
		w := NormalizeWeight(amount.Weight.Add(WeightIncrement.Mul(decimal.NewFromInt(int64(delta)))))
		if !w.IsPositive() {
			return WeightOf(decimal.Zero), true
		}
		return WeightOf(w), false
	}
	return amount, true
}
