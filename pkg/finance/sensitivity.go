package finance

import (
	"errors"
	"math"
)

// SensitivityPoint summarizes a projection re-run at a different tariff.
type SensitivityPoint struct {
	ElectricityRate float64 `json:"electricityRate"`
	AnnualProfit    float64 `json:"annualProfit"`
	ROIPercent      float64 `json:"roiPercent"`
	PaybackYears    float64 `json:"paybackYears"`
	NPV             float64 `json:"npv"`
	IRRPercent      float64 `json:"irrPercent"`
	Degenerate      bool    `json:"degenerate"`
}

// Sensitivity re-projects in at each of the given electricity rates, keeping
// every other parameter. Rates outside the engine's bounds yield ErrInvalidInput.
func (e *Engine) Sensitivity(in Input, rates []float64) ([]SensitivityPoint, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}

	points := make([]SensitivityPoint, 0, len(rates))
	for _, rate := range rates {
		params := in.Params()
		params.ElectricityRate = rate
		variant, err := e.NewInput(params)
		if err != nil {
			return nil, err
		}

		result, err := e.Project(variant)
		if err != nil && !errors.Is(err, ErrDegenerateProjection) {
			return nil, err
		}
		points = append(points, SensitivityPoint{
			ElectricityRate: rate,
			AnnualProfit:    result.AnnualProfit,
			ROIPercent:      result.ROIPercent,
			PaybackYears:    result.PaybackYears,
			NPV:             result.NPV,
			IRRPercent:      result.IRRPercent,
			Degenerate:      result.Degenerate,
		})
	}
	return points, nil
}

// RateSteps returns the rates from..to inclusive in increments of step, each
// rounded to 4 decimals so repeated addition does not drift past the bounds.
func RateSteps(from, to, step float64) []float64 {
	if step <= 0 || from > to {
		return nil
	}
	var rates []float64
	for i := 0; ; i++ {
		rate := math.Round((from+float64(i)*step)*10000) / 10000
		if rate > to+1e-9 {
			break
		}
		rates = append(rates, rate)
	}
	return rates
}
