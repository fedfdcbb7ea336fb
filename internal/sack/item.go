package sack

import (
	"strings"
	"time"

	"github.com/angelmondragon/skawsh-sack/internal/catalog"
	"github.com/angelmondragon/skawsh-sack/internal/pricing"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	"github.com/shopspring/decimal"
)

// SubItem is a named garment counted inside a line, e.g. shirts within a wash.
type SubItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// LineItem is one row of the sack, unique by ServiceID. Price is the total for
// the line and already includes any express surcharge.
type LineItem struct {
	ServiceID   string                `json:"service_id"`
	Name        string                `json:"name"`
	StudioID    string                `json:"studio_id"`
	StudioName  string                `json:"studio_name,omitempty"`
	Fulfillment enums.FulfillmentType `json:"fulfillment"`
	BasePrice   decimal.Decimal       `json:"base_price"`
	Unit        enums.ServiceUnit     `json:"unit,omitempty"`
	Amount      pricing.Amount        `json:"amount"`
	Price       decimal.Decimal       `json:"price"`
	SubItems    []SubItem             `json:"sub_items,omitempty"`
	Category    string                `json:"category,omitempty"`
	SubCategory string                `json:"sub_category,omitempty"`
	AddedAt     time.Time             `json:"added_at"`
}

// Rate returns the priceable view of the line.
func (li LineItem) Rate() pricing.Rate {
	return pricing.Rate{BasePrice: li.BasePrice, Unit: li.Unit}
}

func (li LineItem) clone() LineItem {
	if li.SubItems != nil {
		subs := make([]SubItem, len(li.SubItems))
		copy(subs, li.SubItems)
		li.SubItems = subs
	}
	return li
}

// Input carries the caller-provided fields of an upsert. Price is never taken
// from the caller.
type Input struct {
	ServiceID   string
	Name        string
	StudioID    string
	StudioName  string
	Fulfillment enums.FulfillmentType
	BasePrice   decimal.Decimal
	Unit        enums.ServiceUnit
	Amount      pricing.Amount
	SubItems    []SubItem
	Category    string
	SubCategory string
}

// InputFromService builds an upsert input for a catalog service.
func InputFromService(svc catalog.Service, studioName string, fulfillment enums.FulfillmentType, amount pricing.Amount, subItems []SubItem) Input {
	return Input{
		ServiceID:   svc.ID,
		Name:        svc.Name,
		StudioID:    svc.StudioID,
		StudioName:  studioName,
		Fulfillment: fulfillment,
		BasePrice:   svc.BasePrice,
		Unit:        svc.Unit,
		Amount:      amount,
		SubItems:    subItems,
		Category:    svc.Category,
		SubCategory: svc.SubCategory,
	}
}

func (in Input) rate() pricing.Rate {
	return pricing.Rate{BasePrice: in.BasePrice, Unit: in.Unit}
}

// cleanSubItems trims names and drops entries with no name or a non-positive quantity.
func cleanSubItems(subs []SubItem) []SubItem {
	if len(subs) == 0 {
		return nil
	}
	out := make([]SubItem, 0, len(subs))
	for _, sub := range subs {
		sub.Name = strings.TrimSpace(sub.Name)
		if sub.Name == "" || sub.Quantity <= 0 {
			continue
		}
		out = append(out, sub)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Dominant reports the fulfillment mix of items.
func Dominant(items []LineItem) enums.DominantType {
	var standard, express bool
	for _, item := range items {
		switch item.Fulfillment {
		case enums.FulfillmentExpress:
			express = true
		default:
			standard = true
		}
	}
	switch {
	case express && standard:
		return enums.DominantBoth
	case express:
		return enums.DominantExpress
	case standard:
		return enums.DominantStandard
	}
	return enums.DominantNone
}
