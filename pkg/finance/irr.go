package finance

import (
	"math"

	"github.com/iwvelando/solarfarm-site/pkg/constants"
	"github.com/iwvelando/solarfarm-site/pkg/mathutil"
)

const (
	bisectionLowerRate = -0.99
	bisectionUpperRate = 1.0
	bisectionTolerance = 1e-7
	bisectionMaxIter   = 200
)

// irr returns the IRR in percent, clamped to the configured cap.
// annualProfit and investment are both positive here.
func (e *Engine) irr(annualProfit, investment float64) float64 {
	var percent float64
	switch e.assumptions.IRRMethod {
	case IRRBisection:
		rate, _ := e.solveIRR(annualProfit, investment)
		percent = rate * constants.PercentageMultiplier
	default:
		percent = ApproximateIRR(annualProfit, investment, e.assumptions.HorizonYears)
	}
	return math.Min(percent, e.assumptions.IRRCapPercent)
}

// ApproximateIRR is the closed-form stand-in used by the public calculator:
// ((annualProfit*horizon/investment)^(1/horizon) - 1) * 100. It ignores
// degradation and discounting and is not a root of the NPV equation.
func ApproximateIRR(annualProfit, investment float64, horizonYears int) float64 {
	h := float64(horizonYears)
	return (math.Pow(annualProfit*h/investment, 1/h) - 1) * constants.PercentageMultiplier
}

// solveIRR bisects NPV(r) = 0 over the degraded yearly profits. It returns the
// rate as a fraction and the iteration count. NPV is strictly decreasing in r
// for positive profits, so a sign change inside the bracket brackets the root.
func (e *Engine) solveIRR(annualProfit, investment float64) (float64, int) {
	lo, hi := bisectionLowerRate, bisectionUpperRate
	if e.npvAt(hi, annualProfit, investment) > 0 {
		return hi, 0
	}
	if e.npvAt(lo, annualProfit, investment) < 0 {
		return lo, 0
	}

	iterations := 0
	for iterations < bisectionMaxIter && hi-lo > bisectionTolerance {
		iterations++
		mid := (lo + hi) / 2
		if e.npvAt(mid, annualProfit, investment) > 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, iterations
}

func (e *Engine) npvAt(rate, annualProfit, investment float64) float64 {
	npv := -investment
	for year := 1; year <= e.assumptions.HorizonYears; year++ {
		profit := annualProfit * math.Pow(1-e.assumptions.AnnualDegradation, float64(year-1))
		npv += profit * mathutil.DiscountFactor(rate, year)
	}
	return npv
}
