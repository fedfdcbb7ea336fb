package sack

import (
	"context"

	"github.com/angelmondragon/skawsh-sack/api/controllers/sack/dto"
	"github.com/angelmondragon/skawsh-sack/internal/catalog"
	"github.com/angelmondragon/skawsh-sack/internal/pricing"
	sacksvc "github.com/angelmondragon/skawsh-sack/internal/sack"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
)

// toInput resolves the catalog service behind payload and builds the upsert input.
func toInput(ctx context.Context, cat catalog.Catalog, payload dto.AddItemRequest) (sacksvc.Input, error) {
	svc, err := cat.Service(ctx, payload.StudioID, payload.ServiceID)
	if err != nil {
		return sacksvc.Input{}, err
	}
	amount, err := toAmount(svc.Unit, payload)
	if err != nil {
		return sacksvc.Input{}, err
	}
	return sacksvc.InputFromService(
		svc,
		cat.StudioName(ctx, svc.StudioID),
		enums.FulfillmentType(payload.Fulfillment),
		amount,
		toSubItems(payload.SubItems),
	), nil
}

func toAmount(unit enums.ServiceUnit, payload dto.AddItemRequest) (pricing.Amount, error) {
	if unit.IsMeasured() {
		if payload.Weight == nil {
			return pricing.Amount{}, pkgerrors.New(pkgerrors.CodeValidation, "weight is required for measured services").
				WithDetails(map[string]any{"unit": string(unit)})
		}
		if payload.Weight.IsNegative() {
			return pricing.Amount{}, pkgerrors.New(pkgerrors.CodeValidation, "weight must not be negative")
		}
		return pricing.WeightOf(*payload.Weight), nil
	}
	if payload.Quantity == nil {
		return pricing.Amount{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity is required for count services")
	}
	return pricing.CountOf(*payload.Quantity), nil
}

func toSubItems(subs []dto.SubItem) []sacksvc.SubItem {
	if len(subs) == 0 {
		return nil
	}
	out := make([]sacksvc.SubItem, 0, len(subs))
	for _, sub := range subs {
		out = append(out, sacksvc.SubItem{Name: sub.Name, Quantity: sub.Quantity})
	}
	return out
}
