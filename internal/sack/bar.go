package sack

import (
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	"github.com/shopspring/decimal"
)

// Bar is the compact summary shown by the floating sack bar and the badge.
type Bar struct {
	StudioID     string             `json:"studio_id,omitempty"`
	StudioName   string             `json:"studio_name,omitempty"`
	ServiceCount int                `json:"service_count"`
	ServiceNames []string           `json:"service_names"`
	Subtotal     decimal.Decimal    `json:"subtotal"`
	Dominant     enums.DominantType `json:"dominant_type"`
	Visible      bool               `json:"visible"`
}

// Bar summarises the whole sack, or only studioID's lines when it is set.
func (s *Store) Bar(studioID string) Bar {
	var items []LineItem
	if studioID == "" {
		items = s.Items()
	} else {
		items = s.ItemsForStudio(studioID)
	}
	return BuildBar(studioID, items)
}

// BuildBar summarises items.
func BuildBar(studioID string, items []LineItem) Bar {
	bar := Bar{
		StudioID:     studioID,
		ServiceCount: len(items),
		ServiceNames: make([]string, 0, len(items)),
		Subtotal:     decimal.Zero,
		Dominant:     Dominant(items),
		Visible:      len(items) > 0,
	}
	for _, item := range items {
		bar.ServiceNames = append(bar.ServiceNames, item.Name)
		bar.Subtotal = bar.Subtotal.Add(item.Price)
		if studioID != "" && bar.StudioName == "" {
			bar.StudioName = item.StudioName
		}
	}
	bar.Subtotal = bar.Subtotal.Round(2)
	return bar
}
