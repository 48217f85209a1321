package datetime

import (
	"testing"
	"time"
)

func TestMonthAfter(t *testing.T) {
	start := time.Date(2026, time.January, 31, 18, 30, 0, 0, time.UTC)
	if got := MonthAfter(start, 1); got != "2026-02" {
		t.Errorf("MonthAfter(Jan 31, 1) = %s, expected 2026-02", got)
	}
	if got := MonthAfter(start, 37); got != "2029-02" {
		t.Errorf("MonthAfter(Jan 31, 37) = %s, expected 2029-02", got)
	}
}
