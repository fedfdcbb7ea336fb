package dto

import "github.com/shopspring/decimal"

// AddItemRequest asks for a catalog service to be added to or changed in the sack.
// Count services take Quantity; per kg and per sft services take Weight.
type AddItemRequest struct {
	StudioID    string           `json:"studio_id" validate:"required,max=64"`
	ServiceID   string           `json:"service_id" validate:"required,max=64"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,min=0,max=999"`
	Weight      *decimal.Decimal `json:"weight,omitempty"`
	Fulfillment string           `json:"fulfillment,omitempty" validate:"omitempty,oneof=standard express"`
	SubItems    []SubItem        `json:"sub_items,omitempty" validate:"omitempty,max=50,dive"`
}

type SubItem struct {
	Name     string `json:"name" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"min=1,max=999"`
}

// StepRequest moves a line by steps: one piece, or 0.1 kg/sft.
type StepRequest struct {
	Delta int `json:"delta" validate:"required,min=-100,max=100"`
}

type SubItemsRequest struct {
	SubItems []SubItem `json:"sub_items" validate:"max=50,dive"`
}

type FulfillmentRequest struct {
	Fulfillment string `json:"fulfillment" validate:"required,oneof=standard express"`
}

type ResolveConflictRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=switch_to_standard continue_mixed"`
}

// CouponRequest applies a code; an empty code removes the current coupon.
type CouponRequest struct {
	Code string `json:"code" validate:"max=32"`
}
