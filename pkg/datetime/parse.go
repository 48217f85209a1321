// Package datetime provides date and time utility functions.
package datetime

import (
	"time"

	"github.com/iwvelando/solarfarm-site/pkg/constants"
)

const (
	// DateTimeLayout is the month layout used in reports and API output.
	DateTimeLayout = constants.DateTimeLayout
)

// MonthAfter returns the month label (DateTimeLayout) that lies the given number of
// months after start. The day of month is ignored so month-end starts do not skip.
func MonthAfter(start time.Time, months int) string {
	first := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, months, 0).Format(DateTimeLayout)
}
