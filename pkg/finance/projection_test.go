package finance

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/iwvelando/solarfarm-site/pkg/validation"
)

var fixedNow = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T, assumptions Assumptions) *Engine {
	t.Helper()
	engine, err := NewEngine(assumptions, WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func mustInput(t *testing.T, engine *Engine, params InputParams) Input {
	t.Helper()
	in, err := engine.NewInput(params)
	if err != nil {
		t.Fatalf("NewInput(%+v) error = %v", params, err)
	}
	return in
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestProjectReferenceScenario(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())
	in := mustInput(t, engine, InputParams{
		CapacityClass:        "1MW",
		ElectricityRate:      0.20,
		OperatingCostPercent: 10,
		Location:             "  Brandenburg ",
	})

	result, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	checks := []struct {
		name     string
		got      float64
		expected float64
		tol      float64
	}{
		{"capacityMW", result.CapacityMW, 1, 0},
		{"investment", result.Investment, 1_050_000, 0},
		{"annualEnergyMWh", result.AnnualEnergyMWh, 1927.2, 1e-9},
		{"annualRevenue", result.AnnualRevenue, 385_440, 1e-6},
		{"annualOperatingCosts", result.AnnualOperatingCosts, 38_544, 1e-6},
		{"annualProfit", result.AnnualProfit, 346_896, 1e-6},
		{"monthlyProfit", result.MonthlyProfit, 28_908, 1e-6},
		{"roiPercent", result.ROIPercent, 33.04, 0.005},
		{"paybackYears", result.PaybackYears, 3.03, 0.005},
		{"irrPercent", result.IRRPercent, 8.81, 0.01},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.expected) > c.tol {
			t.Errorf("%s = %v, expected %v (±%v)", c.name, c.got, c.expected, c.tol)
		}
	}

	if result.BreakEvenMonth != 37 {
		t.Errorf("breakEvenMonth = %d, expected 37", result.BreakEvenMonth)
	}
	if result.BreakEvenDate != "2029-11" {
		t.Errorf("breakEvenDate = %s, expected 2029-11", result.BreakEvenDate)
	}
	if result.InvestmentSource != InvestmentSourceDefault {
		t.Errorf("investmentSource = %s, expected %s", result.InvestmentSource, InvestmentSourceDefault)
	}
	if result.Location != "Brandenburg" {
		t.Errorf("location = %q, expected trimmed label", result.Location)
	}
	if !result.CalculatedAt.Equal(fixedNow) {
		t.Errorf("calculatedAt = %v, expected %v", result.CalculatedAt, fixedNow)
	}
	if result.IRRMethod != IRRApproximation {
		t.Errorf("irrMethod = %s, expected %s", result.IRRMethod, IRRApproximation)
	}
	if result.Degenerate {
		t.Error("expected non-degenerate result")
	}
}

func TestProjectNPVMatchesFormula(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())
	in := mustInput(t, engine, InputParams{CapacityClass: "5MW", ElectricityRate: 0.12, OperatingCostPercent: 18})

	result, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	expected := 0.0
	for year := 1; year <= 25; year++ {
		expected += result.AnnualProfit * math.Pow(0.995, float64(year-1)) / math.Pow(1.08, float64(year))
	}
	expected -= result.Investment

	if math.Abs(result.NPV-expected) > 1e-4 {
		t.Errorf("npv = %.4f, expected %.4f", result.NPV, expected)
	}
	if len(result.Schedule) != 25 {
		t.Fatalf("schedule length = %d, expected 25", len(result.Schedule))
	}
	last := result.Schedule[len(result.Schedule)-1]
	if math.Abs(last.CumulativeDiscounted-result.NPV) > 1e-6 {
		t.Errorf("final cumulative = %.4f, expected npv %.4f", last.CumulativeDiscounted, result.NPV)
	}
	if result.Schedule[0].DegradationFactor != 1 {
		t.Errorf("first year degradation factor = %v, expected 1", result.Schedule[0].DegradationFactor)
	}
	if math.Abs(result.Schedule[1].Profit-result.AnnualProfit*0.995) > 1e-6 {
		t.Errorf("second year profit = %v, expected degraded profit", result.Schedule[1].Profit)
	}
}

func TestProjectRevenueIdentityAndROI(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())

	for _, class := range CapacityClasses() {
		for _, rate := range RateSteps(0.05, 0.50, 0.05) {
			for _, opCost := range []float64{5, 7.3, 12.5, 17, 21.9, 25} {
				in := mustInput(t, engine, InputParams{
					CapacityClass:        string(class),
					ElectricityRate:      rate,
					OperatingCostPercent: opCost,
				})
				result, err := engine.Project(in)
				if err != nil {
					t.Fatalf("Project(%s, %v, %v) error = %v", class, rate, opCost, err)
				}

				if result.AnnualOperatingCosts+result.AnnualProfit != result.AnnualRevenue {
					t.Errorf("%s/%v/%v: revenue %v != costs %v + profit %v", class, rate, opCost,
						result.AnnualRevenue, result.AnnualOperatingCosts, result.AnnualProfit)
				}
				expectedROI := result.AnnualProfit / result.Investment * 100
				if math.Abs(result.ROIPercent-expectedROI) > 1e-9 {
					t.Errorf("%s/%v/%v: roi = %v, expected %v", class, rate, opCost, result.ROIPercent, expectedROI)
				}
				if result.IRRPercent > 35 {
					t.Errorf("%s/%v/%v: irr %v exceeds cap", class, rate, opCost, result.IRRPercent)
				}
				if math.IsNaN(result.PaybackYears) || math.IsInf(result.PaybackYears, 0) || result.PaybackYears <= 0 {
					t.Errorf("%s/%v/%v: payback %v is not a positive finite number", class, rate, opCost, result.PaybackYears)
				}
			}
		}
	}
}

func TestProjectNPVIncreasesWithElectricityRate(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())

	previous := math.Inf(-1)
	for _, rate := range RateSteps(0.05, 0.50, 0.01) {
		in := mustInput(t, engine, InputParams{CapacityClass: "10MW", ElectricityRate: rate, OperatingCostPercent: 15})
		result, err := engine.Project(in)
		if err != nil {
			t.Fatalf("Project(rate=%v) error = %v", rate, err)
		}
		if result.NPV <= previous {
			t.Fatalf("npv at rate %v = %v, not greater than %v", rate, result.NPV, previous)
		}
		previous = result.NPV
	}
}

func TestProjectIRRIsCapped(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())

	for _, override := range []float64{1, 10_000, 50_000} {
		in := mustInput(t, engine, InputParams{
			CapacityClass:        "10MW",
			InvestmentOverride:   floatPtr(override),
			ElectricityRate:      0.50,
			OperatingCostPercent: 5,
		})
		result, err := engine.Project(in)
		if err != nil {
			t.Fatalf("Project(override=%v) error = %v", override, err)
		}
		if result.IRRPercent != 35 {
			t.Errorf("irr with override %v = %v, expected cap of 35", override, result.IRRPercent)
		}
	}
}

func TestProjectInvestmentOverride(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())
	in := mustInput(t, engine, InputParams{
		CapacityClass:        "1MW",
		InvestmentOverride:   floatPtr(2_000_000),
		ElectricityRate:      0.20,
		OperatingCostPercent: 10,
	})

	result, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if result.Investment != 2_000_000 {
		t.Errorf("investment = %v, expected 2,000,000", result.Investment)
	}
	if result.InvestmentSource != InvestmentSourceOverride {
		t.Errorf("investmentSource = %s, expected %s", result.InvestmentSource, InvestmentSourceOverride)
	}
	if math.Abs(result.PaybackYears-2_000_000/346_896.0) > 1e-9 {
		t.Errorf("paybackYears = %v, expected %v", result.PaybackYears, 2_000_000/346_896.0)
	}
}

func TestProjectIsIdempotent(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())
	in := mustInput(t, engine, InputParams{CapacityClass: "5MW", ElectricityRate: 0.18, OperatingCostPercent: 12})

	first, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	second, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestProjectConcurrentUse(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())
	in := mustInput(t, engine, InputParams{CapacityClass: "10MW", ElectricityRate: 0.25, OperatingCostPercent: 20})
	expected, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan string, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := engine.Project(in)
			if err != nil || got.NPV != expected.NPV || got.IRRPercent != expected.IRRPercent {
				errs <- "concurrent projection diverged"
			}
		}()
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestProjectDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Assumptions)
		params InputParams
	}{
		{
			name:   "operating costs consume all revenue",
			mutate: func(a *Assumptions) { a.Bounds.MaxOperatingCostPercent = 100 },
			params: InputParams{CapacityClass: "5MW", ElectricityRate: 0.20, OperatingCostPercent: 100},
		},
		{
			name:   "no production",
			mutate: func(a *Assumptions) { a.CapacityFactor = 0 },
			params: InputParams{CapacityClass: "1MW", ElectricityRate: 0.20, OperatingCostPercent: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assumptions := DefaultAssumptions()
			tt.mutate(&assumptions)
			engine := newTestEngine(t, assumptions)
			in := mustInput(t, engine, tt.params)

			result, err := engine.Project(in)
			if !errors.Is(err, ErrDegenerateProjection) {
				t.Fatalf("Project() error = %v, expected ErrDegenerateProjection", err)
			}
			if errors.Is(err, ErrInvalidInput) {
				t.Fatal("degenerate projection must be distinct from invalid input")
			}
			if !result.Degenerate {
				t.Error("expected degenerate flag on partial result")
			}
			for name, v := range map[string]float64{
				"paybackYears": result.PaybackYears,
				"roiPercent":   result.ROIPercent,
				"irrPercent":   result.IRRPercent,
				"npv":          result.NPV,
			} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("%s is not finite: %v", name, v)
				}
			}
			if result.PaybackYears != 0 || result.BreakEvenMonth != 0 || result.BreakEvenDate != "" {
				t.Errorf("expected undefined payback fields to stay zero, got %v/%d/%q",
					result.PaybackYears, result.BreakEvenMonth, result.BreakEvenDate)
			}
			if result.AnnualProfit > 0 {
				t.Errorf("annualProfit = %v, expected non-positive", result.AnnualProfit)
			}
		})
	}
}

func TestProjectRejectsUnvalidatedInput(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())

	_, err := engine.Project(Input{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Project(Input{}) error = %v, expected ErrInvalidInput", err)
	}
}

func TestProjectRechecksForeignBounds(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())
	wide := DefaultInputBounds()
	wide.MaxElectricityRate = 1

	in, err := NewInput(InputParams{CapacityClass: "1MW", ElectricityRate: 0.8, OperatingCostPercent: 10}, wide)
	if err != nil {
		t.Fatalf("NewInput() with wide bounds error = %v", err)
	}

	_, err = engine.Project(in)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Project() error = %v, expected ErrInvalidInput", err)
	}
	var fields validation.Errors
	if !errors.As(err, &fields) || !fields.Has("electricityRate") {
		t.Errorf("expected electricityRate field error, got %v", err)
	}
}

func TestBisectionIRR(t *testing.T) {
	assumptions := DefaultAssumptions()
	assumptions.IRRMethod = IRRBisection
	engine := newTestEngine(t, assumptions)
	in := mustInput(t, engine, InputParams{CapacityClass: "1MW", ElectricityRate: 0.20, OperatingCostPercent: 10})

	result, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if result.IRRMethod != IRRBisection {
		t.Errorf("irrMethod = %s, expected %s", result.IRRMethod, IRRBisection)
	}

	npv := engine.npvAt(result.IRRPercent/100, result.AnnualProfit, result.Investment)
	if math.Abs(npv) > 1 {
		t.Errorf("npv at solved irr %.6f%% = %v, expected ~0", result.IRRPercent, npv)
	}
	if result.IRRPercent <= ApproximateIRR(result.AnnualProfit, result.Investment, 25) {
		t.Errorf("solved irr %v should exceed the approximation for a 3-year payback", result.IRRPercent)
	}
	if result.IRRPercent > 35 {
		t.Errorf("solved irr %v exceeds cap", result.IRRPercent)
	}
}

func TestBisectionIRRIsCapped(t *testing.T) {
	assumptions := DefaultAssumptions()
	assumptions.IRRMethod = IRRBisection
	engine := newTestEngine(t, assumptions)
	in := mustInput(t, engine, InputParams{
		CapacityClass:        "10MW",
		InvestmentOverride:   floatPtr(100_000),
		ElectricityRate:      0.40,
		OperatingCostPercent: 5,
	})

	result, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if result.IRRPercent != 35 {
		t.Errorf("irr = %v, expected cap of 35", result.IRRPercent)
	}
}

func TestSolveIRRKnownAnnuity(t *testing.T) {
	assumptions := DefaultAssumptions()
	assumptions.AnnualDegradation = 0
	assumptions.HorizonYears = 2
	engine := newTestEngine(t, assumptions)

	// -100 + 60/(1+r) + 60/(1+r)^2 = 0 has the root r ≈ 0.130662.
	rate, iterations := engine.solveIRR(60, 100)
	if math.Abs(rate-0.130662) > 1e-5 {
		t.Errorf("solveIRR() = %v, expected ≈ 0.130662", rate)
	}
	if iterations == 0 || iterations > bisectionMaxIter {
		t.Errorf("iterations = %d, expected within (0, %d]", iterations, bisectionMaxIter)
	}
}

func TestEngineCopiesAssumptions(t *testing.T) {
	assumptions := DefaultAssumptions()
	engine := newTestEngine(t, assumptions)
	assumptions.DefaultInvestment[Capacity1MW] = 1

	in := mustInput(t, engine, InputParams{CapacityClass: "1MW", ElectricityRate: 0.20, OperatingCostPercent: 10})
	result, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if result.Investment != 1_050_000 {
		t.Errorf("investment = %v, expected engine to keep its own default table", result.Investment)
	}

	exported := engine.Assumptions()
	exported.DefaultInvestment[Capacity5MW] = 1
	if engine.Assumptions().DefaultInvestment[Capacity5MW] != 5_250_000 {
		t.Error("expected Assumptions() to return a copy")
	}
}
