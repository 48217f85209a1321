// Package testutil provides common utility functions for testing.
package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/iwvelando/solarfarm-site/pkg/finance"
)

// FixedTime is the clock reading used by engines built with NewEngine.
var FixedTime = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

// FixedClock always returns FixedTime.
func FixedClock() time.Time {
	return FixedTime
}

// ReferenceParams is the 1MW scenario at 0.20 EUR/kWh and 10% operating costs.
func ReferenceParams() finance.InputParams {
	return finance.InputParams{
		CapacityClass:        string(finance.Capacity1MW),
		ElectricityRate:      0.20,
		OperatingCostPercent: 10,
		Location:             "Andalusia",
	}
}

// NewEngine builds an engine on the given assumptions with a fixed clock.
func NewEngine(t testing.TB, assumptions finance.Assumptions) *finance.Engine {
	t.Helper()
	engine, err := finance.NewEngine(assumptions, finance.WithClock(FixedClock))
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	return engine
}

// Project validates params and projects them, tolerating degenerate results.
func Project(t testing.TB, engine *finance.Engine, params finance.InputParams) finance.Result {
	t.Helper()
	in, err := engine.NewInput(params)
	if err != nil {
		t.Fatalf("invalid input %+v: %v", params, err)
	}
	result, err := engine.Project(in)
	if err != nil && !errors.Is(err, finance.ErrDegenerateProjection) {
		t.Fatalf("projection failed: %v", err)
	}
	return result
}

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 {
	return &v
}
