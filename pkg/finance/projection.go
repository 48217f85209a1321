package finance

import (
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/iwvelando/solarfarm-site/pkg/datetime"
	"github.com/iwvelando/solarfarm-site/pkg/mathutil"
	"github.com/iwvelando/solarfarm-site/pkg/validation"
)

// Investment sources reported in Result.InvestmentSource.
const (
	InvestmentSourceDefault  = "default"
	InvestmentSourceOverride = "override"
)

// YearProjection is one row of the yearly cash flow schedule.
type YearProjection struct {
	Year                 int     `json:"year"`
	DegradationFactor    float64 `json:"degradationFactor"`
	EnergyMWh            float64 `json:"energyMWh"`
	Profit               float64 `json:"profit"`
	DiscountedProfit     float64 `json:"discountedProfit"`
	CumulativeDiscounted float64 `json:"cumulativeDiscounted"`
}

// Result holds the derived financial metrics for one Input.
type Result struct {
	CapacityClass        CapacityClass    `json:"capacityClass"`
	CapacityMW           float64          `json:"capacityMW"`
	Location             string           `json:"location,omitempty"`
	Investment           float64          `json:"investment"`
	InvestmentSource     string           `json:"investmentSource"`
	ElectricityRate      float64          `json:"electricityRate"`
	OperatingCostPercent float64          `json:"operatingCostPercent"`
	AnnualEnergyMWh      float64          `json:"annualEnergyMWh"`
	AnnualRevenue        float64          `json:"annualRevenue"`
	AnnualOperatingCosts float64          `json:"annualOperatingCosts"`
	AnnualProfit         float64          `json:"annualProfit"`
	MonthlyProfit        float64          `json:"monthlyProfit"`
	ROIPercent           float64          `json:"roiPercent"`
	PaybackYears         float64          `json:"paybackYears"`
	BreakEvenMonth       int              `json:"breakEvenMonth"`
	BreakEvenDate        string           `json:"breakEvenDate,omitempty"`
	HorizonYears         int              `json:"horizonYears"`
	NPV                  float64          `json:"npv"`
	IRRPercent           float64          `json:"irrPercent"`
	IRRMethod            IRRMethod        `json:"irrMethod"`
	Schedule             []YearProjection `json:"schedule"`
	Degenerate           bool             `json:"degenerate"`
	CalculatedAt         time.Time        `json:"calculatedAt"`
}

// Engine projects solar-farm financials under a fixed set of Assumptions.
type Engine struct {
	assumptions Assumptions
	now         func() time.Time
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithClock replaces the clock used for Result.CalculatedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine validates and binds the assumptions. The engine keeps its own copy.
func NewEngine(assumptions Assumptions, opts ...Option) (*Engine, error) {
	if err := assumptions.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assumptions: %w", err)
	}
	e := &Engine{
		assumptions: assumptions.clone(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Assumptions returns a copy of the bound assumptions.
func (e *Engine) Assumptions() Assumptions {
	return e.assumptions.clone()
}

// Bounds returns the accepted input ranges.
func (e *Engine) Bounds() InputBounds {
	return e.assumptions.Bounds
}

// NewInput validates params against the engine's bounds.
func (e *Engine) NewInput(params InputParams) (Input, error) {
	return NewInput(params, e.assumptions.Bounds)
}

// Project computes the financial metrics for in.
//
// It returns ErrInvalidInput for inputs that did not pass NewInput or fall outside
// the engine's bounds, and ErrDegenerateProjection together with a partial result
// when the annual profit is not positive.
func (e *Engine) Project(in Input) (Result, error) {
	if err := e.check(in); err != nil {
		return Result{}, err
	}

	a := e.assumptions
	investment, source := e.resolveInvestment(in)
	capacityMW := in.capacity.MW()

	annualEnergy := capacityMW * a.CapacityFactor * a.HoursPerYear
	annualRevenue := annualEnergy * in.rate * constants.KWhPerMWh
	annualCosts, annualProfit := mathutil.SplitPercentage(annualRevenue, in.opCost)

	schedule, npv := e.discountedSchedule(annualEnergy, annualProfit, investment)

	result := Result{
		CapacityClass:        in.capacity,
		CapacityMW:           capacityMW,
		Location:             in.location,
		Investment:           investment,
		InvestmentSource:     source,
		ElectricityRate:      in.rate,
		OperatingCostPercent: in.opCost,
		AnnualEnergyMWh:      annualEnergy,
		AnnualRevenue:        annualRevenue,
		AnnualOperatingCosts: annualCosts,
		AnnualProfit:         annualProfit,
		MonthlyProfit:        annualProfit / constants.MonthsPerYear,
		HorizonYears:         a.HorizonYears,
		NPV:                  npv,
		IRRMethod:            a.IRRMethod,
		Schedule:             schedule,
		CalculatedAt:         e.now(),
	}

	if annualProfit <= 0 {
		result.Degenerate = true
		return result, ErrDegenerateProjection
	}

	result.ROIPercent = annualProfit / investment * constants.PercentageMultiplier
	result.PaybackYears = investment / annualProfit
	result.BreakEvenMonth = int(math.Ceil(result.PaybackYears * constants.MonthsPerYear))
	result.BreakEvenDate = datetime.MonthAfter(result.CalculatedAt, result.BreakEvenMonth)
	result.IRRPercent = e.irr(annualProfit, investment)

	return result, nil
}

func (e *Engine) check(in Input) error {
	if !in.validated {
		var errs validation.Errors
		errs.Add("input", "was not constructed by NewInput")
		return invalidInput(errs)
	}

	// Inputs built against other bounds are re-checked against ours.
	b := e.assumptions.Bounds
	var errs validation.Errors
	if !mathutil.InRange(in.rate, b.MinElectricityRate, b.MaxElectricityRate) {
		errs.Add("electricityRate", "must be between %.2f and %.2f EUR/kWh", b.MinElectricityRate, b.MaxElectricityRate)
	}
	if !mathutil.InRange(in.opCost, b.MinOperatingCostPercent, b.MaxOperatingCostPercent) {
		errs.Add("operatingCostPercent", "must be between %g and %g percent", b.MinOperatingCostPercent, b.MaxOperatingCostPercent)
	}
	if len(errs) > 0 {
		return invalidInput(errs)
	}
	return nil
}

func (e *Engine) resolveInvestment(in Input) (float64, string) {
	if in.hasOverride {
		return in.override, InvestmentSourceOverride
	}
	return e.assumptions.DefaultInvestment[in.capacity], InvestmentSourceDefault
}

// discountedSchedule builds the yearly rows and returns them with the NPV over
// the horizon: sum of degraded, discounted profits minus the investment.
func (e *Engine) discountedSchedule(annualEnergy, annualProfit, investment float64) ([]YearProjection, float64) {
	a := e.assumptions
	schedule := make([]YearProjection, 0, a.HorizonYears)
	cumulative := -investment
	for year := 1; year <= a.HorizonYears; year++ {
		factor := math.Pow(1-a.AnnualDegradation, float64(year-1))
		profit := annualProfit * factor
		discounted := profit * mathutil.DiscountFactor(a.DiscountRate, year)
		cumulative += discounted
		schedule = append(schedule, YearProjection{
			Year:                 year,
			DegradationFactor:    factor,
			EnergyMWh:            annualEnergy * factor,
			Profit:               profit,
			DiscountedProfit:     discounted,
			CumulativeDiscounted: cumulative,
		})
	}
	return schedule, cumulative
}
