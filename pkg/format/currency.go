// Package format renders monetary and percentage figures for reports and CLI output.
package format

import (
	"fmt"
	"math"
	"strings"
)

// Euro returns a currency string with a euro sign and thousands separators (e.g., "-€1,234.56").
func Euro(amount float64) string {
	formatted := formatPositiveCurrency(math.Abs(amount))
	if amount < 0 {
		return "-€" + formatted
	}
	return "€" + formatted
}

// WholeEuro returns a euro amount rounded to whole euros (e.g., "€1,050,000").
func WholeEuro(amount float64) string {
	rounded := math.Round(amount)
	formatted := groupThousands(fmt.Sprintf("%.0f", math.Abs(rounded)))
	if rounded < 0 {
		return "-€" + formatted
	}
	return "€" + formatted
}

// Percent returns a percentage with two decimals (e.g., "33.04%").
func Percent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

func formatPositiveCurrency(value float64) string {
	formatted := fmt.Sprintf("%.2f", value)
	parts := strings.SplitN(formatted, ".", 2)
	intPart := groupThousands(parts[0])
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}
	return intPart + "." + decPart
}

func groupThousands(intPart string) string {
	if len(intPart) <= 3 {
		return intPart
	}
	var builder strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			builder.WriteByte(',')
		}
		builder.WriteRune(digit)
	}
	return builder.String()
}
