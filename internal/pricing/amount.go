package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountKind discriminates count-based from weight/area-based amounts.
type AmountKind string

const (
	KindCount  AmountKind = "count"
	KindWeight AmountKind = "weight"
)

// Amount is either a whole quantity or a weight/area with one decimal place.
// Only the field matching Kind is meaningful.
type Amount struct {
	Kind     AmountKind
	Quantity int
	Weight   decimal.Decimal
}

// CountOf builds a count amount.
func CountOf(quantity int) Amount {
	return Amount{Kind: KindCount, Quantity: quantity}
}

// WeightOf builds a weight amount normalized to one decimal place.
func WeightOf(weight decimal.Decimal) Amount {
	return Amount{Kind: KindWeight, Weight: NormalizeWeight(weight)}
}

// IsPositive reports whether the amount can be priced and stored.
func (a Amount) IsPositive() bool {
	switch a.Kind {
	case KindCount:
		return a.Quantity > 0
	case KindWeight:
		return a.Weight.IsPositive()
	}
	return false
}

// Value returns the amount as a decimal multiplier.
func (a Amount) Value() decimal.Decimal {
	if a.Kind == KindCount {
		return decimal.NewFromInt(int64(a.Quantity))
	}
	return a.Weight
}

func (a Amount) String() string {
	if a.Kind == KindCount {
		return fmt.Sprintf("%d", a.Quantity)
	}
	return a.Weight.StringFixed(1)
}

type amountJSON struct {
	Kind     AmountKind       `json:"kind"`
	Quantity *int             `json:"quantity,omitempty"`
	Weight   *decimal.Decimal `json:"weight,omitempty"`
}

func (a Amount) MarshalJSON() ([]byte, error) {
	out := amountJSON{Kind: a.Kind}
	switch a.Kind {
	case KindCount:
		q := a.Quantity
		out.Quantity = &q
	case KindWeight:
		w := NormalizeWeight(a.Weight)
		out.Weight = &w
	default:
		return nil, fmt.Errorf("amount: unknown kind %q", a.Kind)
	}
	return json.Marshal(out)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var in amountJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case KindCount:
		if in.Quantity == nil {
			return fmt.Errorf("amount: count kind requires quantity")
		}
		*a = CountOf(*in.Quantity)
	case KindWeight:
		if in.Weight == nil {
			return fmt.Errorf("amount: weight kind requires weight")
		}
		*a = WeightOf(*in.Weight)
	default:
		return fmt.Errorf("amount: unknown kind %q", in.Kind)
	}
	return nil
}
