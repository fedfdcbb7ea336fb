package dto

import (
	"github.com/angelmondragon/skawsh-sack/internal/reconcile"
	"github.com/angelmondragon/skawsh-sack/internal/sack"
	"github.com/angelmondragon/skawsh-sack/internal/totals"
	"github.com/angelmondragon/skawsh-sack/pkg/enums"
)

// SackView is the full state a sack screen renders.
type SackView struct {
	SessionID           string                     `json:"session_id"`
	Items               []sack.LineItem            `json:"items"`
	UniqueServiceCount  int                        `json:"unique_service_count"`
	DominantType        enums.DominantType         `json:"dominant_type"`
	SelectedFulfillment enums.FulfillmentType      `json:"selected_fulfillment"`
	State               reconcile.State            `json:"state"`
	PendingConflict     *reconcile.PendingConflict `json:"pending_conflict,omitempty"`
	Coupon              *totals.Coupon             `json:"coupon,omitempty"`
	Totals              totals.Summary             `json:"totals"`
}

// AddItemResponse reports whether the request was applied or held for a decision.
type AddItemResponse struct {
	Applied   bool                       `json:"applied"`
	Item      *sack.LineItem             `json:"item,omitempty"`
	Conflict  *reconcile.PendingConflict `json:"conflict,omitempty"`
	Celebrate bool                       `json:"celebrate"`
	Sack      SackView                   `json:"sack"`
}

// ItemResponse carries the touched line, nil when it was removed.
type ItemResponse struct {
	Item    *sack.LineItem `json:"item"`
	Removed bool           `json:"removed"`
	Sack    SackView       `json:"sack"`
}

type StudioTotals struct {
	StudioID   string         `json:"studio_id"`
	StudioName string         `json:"studio_name"`
	Summary    totals.Summary `json:"summary"`
}

// TotalsView is the checkout summary for the whole sack plus its per-studio split.
type TotalsView struct {
	Summary totals.Summary `json:"summary"`
	Studios []StudioTotals `json:"studios"`
}
