package enums

import "fmt"

// ServiceUnit describes how a service is measured. The zero value is count based.
type ServiceUnit string

const (
	ServiceUnitCount  ServiceUnit = ""
	ServiceUnitPerKg  ServiceUnit = "per_kg"
	ServiceUnitPerSft ServiceUnit = "per_sft"
)

var validServiceUnits = []ServiceUnit{
	ServiceUnitCount,
	ServiceUnitPerKg,
	ServiceUnitPerSft,
}

// String implements fmt.Stringer.
func (u ServiceUnit) String() string {
	return string(u)
}

// IsValid reports whether the value is a known ServiceUnit.
func (u ServiceUnit) IsValid() bool {
	for _, candidate := range validServiceUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsMeasured reports whether the unit is priced by weight or area rather than count.
func (u ServiceUnit) IsMeasured() bool {
	return u == ServiceUnitPerKg || u == ServiceUnitPerSft
}

// ParseServiceUnit converts raw input into a ServiceUnit. Catalog sources spell the
// units a few different ways so the common display forms are accepted too.
func ParseServiceUnit(value string) (ServiceUnit, error) {
	switch value {
	case "", "item", "per_item", "count":
		return ServiceUnitCount, nil
	case "per_kg", "per kg", "kg":
		return ServiceUnitPerKg, nil
	case "per_sft", "per sft", "sft":
		return ServiceUnitPerSft, nil
	}
	return "", fmt.Errorf("invalid service unit %q", value)
}
