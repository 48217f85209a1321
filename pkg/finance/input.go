package finance

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/iwvelando/solarfarm-site/pkg/mathutil"
	"github.com/iwvelando/solarfarm-site/pkg/validation"
)

// CapacityClass is the nameplate size offered by the calculator.
type CapacityClass string

const (
	Capacity1MW  CapacityClass = "1MW"
	Capacity5MW  CapacityClass = "5MW"
	Capacity10MW CapacityClass = "10MW"
)

// CapacityClasses returns the recognized classes in ascending order.
func CapacityClasses() []CapacityClass {
	return []CapacityClass{Capacity1MW, Capacity5MW, Capacity10MW}
}

// ParseCapacityClass accepts "1MW", "5 mw", " 10Mw " and similar spellings.
func ParseCapacityClass(value string) (CapacityClass, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(value), " ", ""))
	class := CapacityClass(normalized)
	if !class.Valid() {
		return "", fmt.Errorf("unknown capacity class %q", value)
	}
	return class, nil
}

// Valid reports whether c is one of the recognized classes.
func (c CapacityClass) Valid() bool {
	return c.MW() > 0
}

// MW returns the nameplate capacity in megawatts, or 0 for unknown classes.
func (c CapacityClass) MW() float64 {
	switch c {
	case Capacity1MW:
		return 1
	case Capacity5MW:
		return 5
	case Capacity10MW:
		return 10
	}
	return 0
}

func (c CapacityClass) String() string {
	return string(c)
}

// InputParams is the loosely typed request shape. It only becomes usable by the
// engine after passing NewInput.
type InputParams struct {
	CapacityClass        string   `json:"capacityClass" yaml:"capacityClass"`
	InvestmentOverride   *float64 `json:"investmentOverride,omitempty" yaml:"investmentOverride,omitempty"`
	ElectricityRate      float64  `json:"electricityRate" yaml:"electricityRate"`
	OperatingCostPercent float64  `json:"operatingCostPercent" yaml:"operatingCostPercent"`
	Location             string   `json:"location,omitempty" yaml:"location,omitempty"`
}

// Input is a validated projection request. The zero value is not valid.
type Input struct {
	capacity    CapacityClass
	override    float64
	hasOverride bool
	rate        float64
	opCost      float64
	location    string
	validated   bool
}

// NewInput validates params against bounds and returns an immutable Input.
// Every offending field is reported; the error wraps ErrInvalidInput and a
// validation.Errors value.
func NewInput(params InputParams, bounds InputBounds) (Input, error) {
	var errs validation.Errors

	class, err := ParseCapacityClass(params.CapacityClass)
	if err != nil {
		errs.Add("capacityClass", "must be one of %s, %s or %s", Capacity1MW, Capacity5MW, Capacity10MW)
	}

	var override float64
	hasOverride := params.InvestmentOverride != nil
	if hasOverride {
		override = *params.InvestmentOverride
		if !mathutil.IsFinite(override) || override <= 0 {
			errs.Add("investmentOverride", "must be a positive amount")
		}
	}

	if !mathutil.IsFinite(params.ElectricityRate) ||
		!mathutil.InRange(params.ElectricityRate, bounds.MinElectricityRate, bounds.MaxElectricityRate) {
		errs.Add("electricityRate", "must be between %.2f and %.2f EUR/kWh",
			bounds.MinElectricityRate, bounds.MaxElectricityRate)
	}

	if !mathutil.IsFinite(params.OperatingCostPercent) ||
		!mathutil.InRange(params.OperatingCostPercent, bounds.MinOperatingCostPercent, bounds.MaxOperatingCostPercent) {
		errs.Add("operatingCostPercent", "must be between %g and %g percent",
			bounds.MinOperatingCostPercent, bounds.MaxOperatingCostPercent)
	}

	location := strings.TrimSpace(params.Location)
	if utf8.RuneCountInString(location) > constants.MaxLocationLength {
		errs.Add("location", "must be at most %d characters", constants.MaxLocationLength)
	}

	if len(errs) > 0 {
		return Input{}, invalidInput(errs)
	}

	return Input{
		capacity:    class,
		override:    override,
		hasOverride: hasOverride,
		rate:        params.ElectricityRate,
		opCost:      params.OperatingCostPercent,
		location:    location,
		validated:   true,
	}, nil
}

// CapacityClass returns the selected class.
func (in Input) CapacityClass() CapacityClass { return in.capacity }

// InvestmentOverride returns the override amount and whether one was supplied.
func (in Input) InvestmentOverride() (float64, bool) { return in.override, in.hasOverride }

// ElectricityRate returns the tariff in EUR/kWh.
func (in Input) ElectricityRate() float64 { return in.rate }

// OperatingCostPercent returns operating costs as a percentage of revenue.
func (in Input) OperatingCostPercent() float64 { return in.opCost }

// Location returns the informational location label.
func (in Input) Location() string { return in.location }

// Params converts the input back into its request shape.
func (in Input) Params() InputParams {
	params := InputParams{
		CapacityClass:        string(in.capacity),
		ElectricityRate:      in.rate,
		OperatingCostPercent: in.opCost,
		Location:             in.location,
	}
	if in.hasOverride {
		override := in.override
		params.InvestmentOverride = &override
	}
	return params
}
