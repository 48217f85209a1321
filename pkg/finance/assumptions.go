// Package finance implements the solar-farm financial projection engine: ROI,
// payback, NPV and IRR figures for a capacity class under a set of market
// assumptions. The engine performs no I/O and is safe for concurrent use.
package finance

import (
	"fmt"
	"sort"

	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/iwvelando/solarfarm-site/pkg/mathutil"
)

// IRRMethod selects how the internal rate of return is derived.
type IRRMethod string

const (
	// IRRApproximation uses ((profit*horizon/investment)^(1/horizon) - 1) * 100.
	IRRApproximation IRRMethod = "approximation"
	// IRRBisection solves NPV(r) = 0 over the degraded cash flows by bisection.
	IRRBisection IRRMethod = "bisection"
)

// InputBounds holds the accepted ranges for user supplied tariffs and costs.
type InputBounds struct {
	MinElectricityRate      float64 `json:"minElectricityRate"`
	MaxElectricityRate      float64 `json:"maxElectricityRate"`
	MinOperatingCostPercent float64 `json:"minOperatingCostPercent"`
	MaxOperatingCostPercent float64 `json:"maxOperatingCostPercent"`
}

// DefaultInputBounds returns the published calculator ranges.
func DefaultInputBounds() InputBounds {
	return InputBounds{
		MinElectricityRate:      constants.MinElectricityRate,
		MaxElectricityRate:      constants.MaxElectricityRate,
		MinOperatingCostPercent: constants.MinOperatingCostPercent,
		MaxOperatingCostPercent: constants.MaxOperatingCostPercent,
	}
}

// Assumptions is the market model the engine is bound to at construction.
type Assumptions struct {
	CapacityFactor    float64
	HoursPerYear      float64
	DiscountRate      float64
	AnnualDegradation float64
	HorizonYears      int
	IRRCapPercent     float64
	IRRMethod         IRRMethod
	DefaultInvestment map[CapacityClass]float64
	Bounds            InputBounds
}

// DefaultAssumptions returns the regional assumptions used by the public calculator.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		CapacityFactor:    constants.DefaultCapacityFactor,
		HoursPerYear:      constants.HoursPerYear,
		DiscountRate:      constants.DefaultDiscountRate,
		AnnualDegradation: constants.DefaultAnnualDegradation,
		HorizonYears:      constants.DefaultHorizonYears,
		IRRCapPercent:     constants.DefaultIRRCapPercent,
		IRRMethod:         IRRApproximation,
		DefaultInvestment: map[CapacityClass]float64{
			Capacity1MW:  1_050_000,
			Capacity5MW:  5_250_000,
			Capacity10MW: 10_500_000,
		},
		Bounds: DefaultInputBounds(),
	}
}

// Validate rejects assumptions that would make every projection meaningless.
func (a Assumptions) Validate() error {
	if !mathutil.IsFinite(a.CapacityFactor) || !mathutil.InRange(a.CapacityFactor, 0, 1) {
		return fmt.Errorf("capacity factor must be between 0 and 1, got %v", a.CapacityFactor)
	}
	if !mathutil.IsFinite(a.HoursPerYear) || a.HoursPerYear <= 0 {
		return fmt.Errorf("hours per year must be positive, got %v", a.HoursPerYear)
	}
	if !mathutil.IsFinite(a.DiscountRate) || a.DiscountRate <= -1 {
		return fmt.Errorf("discount rate must be greater than -1, got %v", a.DiscountRate)
	}
	if !mathutil.IsFinite(a.AnnualDegradation) || a.AnnualDegradation < 0 || a.AnnualDegradation >= 1 {
		return fmt.Errorf("annual degradation must be in [0, 1), got %v", a.AnnualDegradation)
	}
	if a.HorizonYears < 1 {
		return fmt.Errorf("horizon must be at least one year, got %d", a.HorizonYears)
	}
	if !mathutil.IsFinite(a.IRRCapPercent) || a.IRRCapPercent <= 0 {
		return fmt.Errorf("IRR cap must be positive, got %v", a.IRRCapPercent)
	}
	switch a.IRRMethod {
	case "", IRRApproximation, IRRBisection:
	default:
		return fmt.Errorf("unknown IRR method %q", a.IRRMethod)
	}
	for _, class := range CapacityClasses() {
		amount, ok := a.DefaultInvestment[class]
		if !ok {
			return fmt.Errorf("missing default investment for %s", class)
		}
		if !mathutil.IsFinite(amount) || amount <= 0 {
			return fmt.Errorf("default investment for %s must be positive, got %v", class, amount)
		}
	}
	b := a.Bounds
	for _, bound := range []float64{b.MinElectricityRate, b.MaxElectricityRate, b.MinOperatingCostPercent, b.MaxOperatingCostPercent} {
		if !mathutil.IsFinite(bound) {
			return fmt.Errorf("input bounds must be finite, got %+v", b)
		}
	}
	if b.MinElectricityRate < 0 || b.MinElectricityRate > b.MaxElectricityRate {
		return fmt.Errorf("invalid electricity rate bounds [%v, %v]", b.MinElectricityRate, b.MaxElectricityRate)
	}
	if b.MinOperatingCostPercent < 0 || b.MaxOperatingCostPercent > 100 || b.MinOperatingCostPercent > b.MaxOperatingCostPercent {
		return fmt.Errorf("invalid operating cost bounds [%v, %v]", b.MinOperatingCostPercent, b.MaxOperatingCostPercent)
	}
	return nil
}

func (a Assumptions) clone() Assumptions {
	out := a
	out.DefaultInvestment = make(map[CapacityClass]float64, len(a.DefaultInvestment))
	for class, amount := range a.DefaultInvestment {
		out.DefaultInvestment[class] = amount
	}
	if out.IRRMethod == "" {
		out.IRRMethod = IRRApproximation
	}
	return out
}

// DefaultInvestmentTable lists the class defaults in ascending capacity order.
func (a Assumptions) DefaultInvestmentTable() []ClassInvestment {
	table := make([]ClassInvestment, 0, len(a.DefaultInvestment))
	for class, amount := range a.DefaultInvestment {
		table = append(table, ClassInvestment{CapacityClass: class, Investment: amount})
	}
	sort.Slice(table, func(i, j int) bool {
		return table[i].CapacityClass.MW() < table[j].CapacityClass.MW()
	})
	return table
}

// ClassInvestment pairs a capacity class with its default investment.
type ClassInvestment struct {
	CapacityClass CapacityClass `json:"capacityClass"`
	Investment    float64       `json:"investment"`
}
