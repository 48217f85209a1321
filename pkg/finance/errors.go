package finance

import (
	"errors"
	"fmt"

	"github.com/iwvelando/solarfarm-site/pkg/validation"
)

var (
	// ErrInvalidInput marks parameters outside their bounds or enumerations.
	ErrInvalidInput = errors.New("invalid projection input")

	// ErrDegenerateProjection marks valid inputs whose annual profit is not
	// positive, leaving payback, ROI and IRR undefined.
	ErrDegenerateProjection = errors.New("degenerate projection: annual profit is not positive")
)

func invalidInput(errs validation.Errors) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, errs)
}
