package pricing

import (
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultExpressMultiplier is the surcharge applied to express wash lines.
var DefaultExpressMultiplier = decimal.RequireFromString("1.5")

// Rate is the priceable part of a catalog service.
type Rate struct {
	BasePrice decimal.Decimal
	Unit      enums.ServiceUnit
}

// Rules prices sack lines. The express surcharge is applied here and nowhere
// else, and the returned price is always the total for the line.
type Rules struct {
	expressMultiplier decimal.Decimal
}

// NewRules builds pricing rules; a multiplier below 1 falls back to the default.
func NewRules(expressMultiplier decimal.Decimal) *Rules {
	if expressMultiplier.LessThan(decimal.NewFromInt(1)) {
		expressMultiplier = DefaultExpressMultiplier
	}
	return &Rules{expressMultiplier: expressMultiplier}
}

// ExpressMultiplier returns the configured surcharge.
func (r *Rules) ExpressMultiplier() decimal.Decimal {
	return r.expressMultiplier
}

// UnitRate returns the per-unit display rate for the fulfillment type.
func (r *Rules) UnitRate(rate Rate, fulfillment enums.FulfillmentType) decimal.Decimal {
	unit := rate.BasePrice
	if fulfillment == enums.FulfillmentExpress {
		unit = unit.Mul(r.expressMultiplier)
	}
	return unit.Round(2)
}

// Price computes the line total for amount of rate under fulfillment.
// Weight and area lines round to the nearest whole currency unit.
func (r *Rules) Price(rate Rate, fulfillment enums.FulfillmentType, amount Amount) (decimal.Decimal, error) {
	if !fulfillment.IsValid() {
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown fulfillment type %q", fulfillment)
	}
	if rate.BasePrice.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "base price cannot be negative")
	}
	if !amount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if err := checkKind(rate.Unit, amount); err != nil {
		return decimal.Zero, err
	}

	price := rate.BasePrice.Mul(amount.Value())
	if fulfillment == enums.FulfillmentExpress {
		price = price.Mul(r.expressMultiplier)
	}
	if rate.Unit.IsMeasured() {
		return price.Round(0), nil
	}
	return price.Round(2), nil
}

func checkKind(unit enums.ServiceUnit, amount Amount) error {
	if unit.IsMeasured() && amount.Kind != KindWeight {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s services are priced by weight", unit)
	}
	if !unit.IsMeasured() && amount.Kind != KindCount {
		return pkgerrors.New(pkgerrors.CodeValidation, "count services are priced by quantity")
	}
	return nil
}
