package mathutil

import (
	"math"
	"testing"
)

func TestRound(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected float64
	}{
		{"Round up at midpoint", 1.235, 1.24},
		{"Round down below midpoint", 1.234, 1.23},
		{"No rounding needed", 1.23, 1.23},
		{"Large number", 12345.678, 12345.68},
		{"Negative number round down", -1.234, -1.23},
		{"Zero", 0.0, 0.0},
		{"Very small positive", 0.001, 0.00},
		{"Annual profit", 346896.0, 346896.0},
		{"ROI percent", 33.0377142857, 33.04},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Round(tt.input)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("Round(%v) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsFinite(t *testing.T) {
	tests := map[string]struct {
		input    float64
		expected bool
	}{
		"finite":       {42.5, true},
		"zero":         {0, true},
		"nan":          {math.NaN(), false},
		"positive inf": {math.Inf(1), false},
		"negative inf": {math.Inf(-1), false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := IsFinite(tt.input); got != tt.expected {
				t.Errorf("IsFinite(%v) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestClampAndInRange(t *testing.T) {
	if got := Clamp(40, 0, 35); got != 35 {
		t.Errorf("Clamp above max = %v, expected 35", got)
	}
	if got := Clamp(-2, 0, 35); got != 0 {
		t.Errorf("Clamp below min = %v, expected 0", got)
	}
	if got := Clamp(12.5, 0, 35); got != 12.5 {
		t.Errorf("Clamp inside range = %v, expected 12.5", got)
	}

	if !InRange(0.05, 0.05, 0.50) || !InRange(0.50, 0.05, 0.50) {
		t.Error("expected bounds to be inclusive")
	}
	if InRange(0.04, 0.05, 0.50) || InRange(0.51, 0.05, 0.50) {
		t.Error("expected values outside bounds to be rejected")
	}
}

func TestApplyPercentage(t *testing.T) {
	if got := ApplyPercentage(385440, 10); math.Abs(got-38544) > 1e-9 {
		t.Errorf("ApplyPercentage(385440, 10) = %v, expected 38544", got)
	}
}

func TestSplitPercentage(t *testing.T) {
	if part, rest := SplitPercentage(385440, 10); math.Abs(part-38544) > 1e-9 || math.Abs(rest-346896) > 1e-9 {
		t.Errorf("SplitPercentage(385440, 10) = %v, %v", part, rest)
	}
	if part, rest := SplitPercentage(0, 25); part != 0 || rest != 0 {
		t.Errorf("SplitPercentage(0, 25) = %v, %v", part, rest)
	}

	// 96360.00000000001 at 17% sums back one ulp high with a plain subtraction.
	for _, value := range []float64{96360.00000000001, 385440, 1927200 * 0.137, 9636000 * 0.4999} {
		for percentage := 0.0; percentage <= 100; percentage += 0.5 {
			part, rest := SplitPercentage(value, percentage)
			if part+rest != value {
				t.Errorf("SplitPercentage(%v, %v): %v + %v != value", value, percentage, part, rest)
			}
			if part < 0 || rest < 0 {
				t.Errorf("SplitPercentage(%v, %v) produced a negative share: %v, %v", value, percentage, part, rest)
			}
		}
	}
}

func TestDiscountFactor(t *testing.T) {
	if got := DiscountFactor(0.08, 0); got != 1 {
		t.Errorf("DiscountFactor at period 0 = %v, expected 1", got)
	}
	if got := DiscountFactor(0.08, 1); math.Abs(got-1/1.08) > 1e-12 {
		t.Errorf("DiscountFactor(0.08, 1) = %v, expected %v", got, 1/1.08)
	}
	if got := DiscountFactor(0.08, 2); math.Abs(got-1/(1.08*1.08)) > 1e-12 {
		t.Errorf("DiscountFactor(0.08, 2) = %v, expected %v", got, 1/(1.08*1.08))
	}
}
