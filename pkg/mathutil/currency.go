// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/solarfarm-site/pkg/constants"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Used for making logical comparisons.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// IsFinite reports whether val is neither NaN nor an infinity.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// Clamp limits value to the closed interval [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// InRange reports whether value lies in the closed interval [min, max].
func InRange(value, min, max float64) bool {
	return value >= min && value <= max
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}

// SplitPercentage divides a non-negative value into the percentage share and
// the remainder so that part+rest == value exactly. Whichever share is at least
// value/2 is subtracted from value, which is exact in that range.
func SplitPercentage(value, percentage float64) (part, rest float64) {
	part = Clamp(ApplyPercentage(value, percentage), 0, value)
	rest = value - part
	if part < rest {
		part = value - rest
	}
	return part, rest
}
