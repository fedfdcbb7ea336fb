// Package totals derives the money summary of a sack and splits it per studio
// for order placement.
package totals

import (
	"github.com/angelmondragon/skawsh-sack/internal/sack"
	"github.com/shopspring/decimal"
)

// Summary is the derived money view of a set of lines.
type Summary struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
	CouponCode  string          `json:"coupon_code,omitempty"`
	ItemCount   int             `json:"item_count"`
}

// Aggregator applies the configured fee and tax.
type Aggregator struct {
	deliveryFee decimal.Decimal
	taxPercent  decimal.Decimal
}

// NewAggregator builds an aggregator. Negative inputs are treated as zero.
func NewAggregator(deliveryFee, taxPercent decimal.Decimal) *Aggregator {
	if deliveryFee.IsNegative() {
		deliveryFee = decimal.Zero
	}
	if taxPercent.IsNegative() {
		taxPercent = decimal.Zero
	}
	return &Aggregator{deliveryFee: deliveryFee, taxPercent: taxPercent}
}

// Aggregate sums line prices, which are already line totals, and applies fee,
// tax and coupon. The total never drops below zero.
func (a *Aggregator) Aggregate(items []sack.LineItem, coupon Coupon) Summary {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Price)
	}

	summary := Summary{
		Subtotal:    subtotal.Round(2),
		DeliveryFee: decimal.Zero,
		Tax:         decimal.Zero,
		Discount:    decimal.Zero,
		ItemCount:   len(items),
	}
	if subtotal.IsPositive() {
		summary.DeliveryFee = a.deliveryFee.Round(2)
		summary.Tax = subtotal.Mul(a.taxPercent).Div(hundred).Round(2)
	}
	if coupon.Active() && subtotal.IsPositive() {
		pct := decimal.Min(coupon.Percent, hundred)
		summary.Discount = subtotal.Mul(pct).Div(hundred).Round(2)
		summary.CouponCode = coupon.Code
	}

	total := summary.Subtotal.Add(summary.DeliveryFee).Add(summary.Tax).Sub(summary.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	summary.Total = total.Round(2)
	return summary
}

// StudioGroup is the slice of a sack belonging to one studio.
type StudioGroup struct {
	StudioID   string
	StudioName string
	Items      []sack.LineItem
}

// GroupByStudio splits items by studio, keeping the order in which studios
// first appear.
func GroupByStudio(items []sack.LineItem) []StudioGroup {
	index := make(map[string]int)
	groups := make([]StudioGroup, 0)
	for _, item := range items {
		i, ok := index[item.StudioID]
		if !ok {
			i = len(groups)
			index[item.StudioID] = i
			groups = append(groups, StudioGroup{StudioID: item.StudioID, StudioName: item.StudioName})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
