package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/skawsh-sack/api/validators"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/angelmondragon/skawsh-sack/pkg/types"
)

// PlaceOrderRequest checks out the sack. StudioID limits placement to one
// studio; CouponCode overrides the session coupon when present, and an empty
// code places without a discount.
type PlaceOrderRequest struct {
	StudioID     string        `json:"studio_id,omitempty" validate:"omitempty,max=64"`
	Address      types.Address `json:"address"`
	Instructions *string       `json:"instructions,omitempty" validate:"omitempty,max=500"`
	CouponCode   *string       `json:"coupon_code,omitempty" validate:"omitempty,max=32"`
}

type placeOrderResponse struct {
	Orders []orderView `json:"orders"`
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw, err := validators.PathParam(r, "orderID")
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}
