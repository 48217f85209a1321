package finance

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultAssumptionsAreValid(t *testing.T) {
	if err := DefaultAssumptions().Validate(); err != nil {
		t.Fatalf("DefaultAssumptions().Validate() error = %v", err)
	}
}

func TestAssumptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Assumptions)
	}{
		{"capacity factor above one", func(a *Assumptions) { a.CapacityFactor = 1.2 }},
		{"no hours", func(a *Assumptions) { a.HoursPerYear = 0 }},
		{"discount rate at -100%", func(a *Assumptions) { a.DiscountRate = -1 }},
		{"full degradation", func(a *Assumptions) { a.AnnualDegradation = 1 }},
		{"zero horizon", func(a *Assumptions) { a.HorizonYears = 0 }},
		{"zero IRR cap", func(a *Assumptions) { a.IRRCapPercent = 0 }},
		{"unknown IRR method", func(a *Assumptions) { a.IRRMethod = "newton" }},
		{"missing class default", func(a *Assumptions) { delete(a.DefaultInvestment, Capacity5MW) }},
		{"negative class default", func(a *Assumptions) { a.DefaultInvestment[Capacity10MW] = -1 }},
		{"inverted rate bounds", func(a *Assumptions) { a.Bounds.MinElectricityRate = 0.6 }},
		{"operating cost above 100", func(a *Assumptions) { a.Bounds.MaxOperatingCostPercent = 120 }},
		{"NaN max rate", func(a *Assumptions) { a.Bounds.MaxElectricityRate = math.NaN() }},
		{"NaN min rate", func(a *Assumptions) { a.Bounds.MinElectricityRate = math.NaN() }},
		{"infinite max rate", func(a *Assumptions) { a.Bounds.MaxElectricityRate = math.Inf(1) }},
		{"NaN max operating cost", func(a *Assumptions) { a.Bounds.MaxOperatingCostPercent = math.NaN() }},
		{"NaN min operating cost", func(a *Assumptions) { a.Bounds.MinOperatingCostPercent = math.NaN() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DefaultAssumptions()
			tt.mutate(&a)
			if err := a.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
			if _, err := NewEngine(a); err == nil {
				t.Fatal("expected NewEngine to reject invalid assumptions")
			}
		})
	}
}

func TestEmptyIRRMethodDefaultsToApproximation(t *testing.T) {
	a := DefaultAssumptions()
	a.IRRMethod = ""
	engine, err := NewEngine(a)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if engine.Assumptions().IRRMethod != IRRApproximation {
		t.Errorf("IRRMethod = %q, expected %q", engine.Assumptions().IRRMethod, IRRApproximation)
	}
}

func TestDefaultInvestmentTable(t *testing.T) {
	table := DefaultAssumptions().DefaultInvestmentTable()
	if len(table) != 3 {
		t.Fatalf("expected 3 classes, got %d", len(table))
	}
	expected := []ClassInvestment{
		{Capacity1MW, 1_050_000},
		{Capacity5MW, 5_250_000},
		{Capacity10MW, 10_500_000},
	}
	for i := range expected {
		if table[i] != expected[i] {
			t.Errorf("row %d = %+v, expected %+v", i, table[i], expected[i])
		}
	}
}

func TestSensitivity(t *testing.T) {
	engine := newTestEngine(t, DefaultAssumptions())
	in := mustInput(t, engine, InputParams{CapacityClass: "1MW", ElectricityRate: 0.20, OperatingCostPercent: 10})

	rates := RateSteps(0.10, 0.30, 0.05)
	if len(rates) != 5 || rates[0] != 0.10 || rates[4] != 0.30 {
		t.Fatalf("RateSteps() = %v", rates)
	}

	points, err := engine.Sensitivity(in, rates)
	if err != nil {
		t.Fatalf("Sensitivity() error = %v", err)
	}
	if len(points) != len(rates) {
		t.Fatalf("expected %d points, got %d", len(rates), len(points))
	}

	base, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if points[2].NPV != base.NPV || points[2].IRRPercent != base.IRRPercent {
		t.Errorf("point at 0.20 = %+v, expected to match base projection", points[2])
	}
	for i := 1; i < len(points); i++ {
		if points[i].NPV <= points[i-1].NPV {
			t.Errorf("npv not increasing between %v and %v", points[i-1].ElectricityRate, points[i].ElectricityRate)
		}
	}

	if _, err := engine.Sensitivity(in, []float64{0.2, 0.7}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Sensitivity() with out-of-bounds rate error = %v, expected ErrInvalidInput", err)
	}
}

func TestRateStepsEdgeCases(t *testing.T) {
	if got := RateSteps(0.3, 0.1, 0.05); got != nil {
		t.Errorf("expected nil for inverted range, got %v", got)
	}
	if got := RateSteps(0.1, 0.3, 0); got != nil {
		t.Errorf("expected nil for zero step, got %v", got)
	}
	if got := RateSteps(0.05, 0.50, 0.05); len(got) != 10 || got[9] != 0.5 {
		t.Errorf("RateSteps(0.05, 0.50, 0.05) = %v", got)
	}
}
