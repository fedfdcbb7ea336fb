package enums

import "fmt"

// FulfillmentType is the wash tier a line item is delivered under.
type FulfillmentType string

const (
	FulfillmentStandard FulfillmentType = "standard"
	FulfillmentExpress  FulfillmentType = "express"
)

var validFulfillmentTypes = []FulfillmentType{
	FulfillmentStandard,
	FulfillmentExpress,
}

// String implements fmt.Stringer.
func (f FulfillmentType) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentType.
func (f FulfillmentType) IsValid() bool {
	for _, candidate := range validFulfillmentTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFulfillmentType converts raw input into a FulfillmentType.
func ParseFulfillmentType(value string) (FulfillmentType, error) {
	for _, candidate := range validFulfillmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment type %q", value)
}

// DominantType summarises the fulfillment mix of a sack. The zero value means the sack is empty.
type DominantType string

const (
	DominantNone     DominantType = ""
	DominantStandard DominantType = "standard"
	DominantExpress  DominantType = "express"
	DominantBoth     DominantType = "both"
)

// String implements fmt.Stringer.
func (d DominantType) String() string {
	return string(d)
}

// Matches reports whether a single-type sack is already of type f.
func (d DominantType) Matches(f FulfillmentType) bool {
	return string(d) == string(f)
}
