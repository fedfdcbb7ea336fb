package types

import (
	"strings"

	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
)

// Address is the pickup and drop location attached to an order.
type Address struct {
	Label      string   `json:"label,omitempty" validate:"omitempty,max=64"`
	Line1      string   `json:"line1" validate:"required,max=256"`
	Line2      *string  `json:"line2,omitempty" validate:"omitempty,max=256"`
	Landmark   *string  `json:"landmark,omitempty" validate:"omitempty,max=128"`
	City       string   `json:"city" validate:"required,max=128"`
	PostalCode string   `json:"postal_code" validate:"required,max=16"`
	Lat        *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng        *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
}

// Validate checks the fields an order cannot be placed without.
func (a Address) Validate() error {
	missing := make([]string, 0, 3)
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	if (a.Lat == nil) != (a.Lng == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "address coordinates need both lat and lng")
	}
	return nil
}
