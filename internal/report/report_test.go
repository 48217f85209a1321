package report

import (
	"strings"
	"testing"

	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"github.com/iwvelando/solarfarm-site/pkg/testutil"
)

func projection(t *testing.T) (finance.Result, []finance.SensitivityPoint) {
	t.Helper()
	engine := testutil.NewEngine(t, finance.DefaultAssumptions())
	in, err := engine.NewInput(testutil.ReferenceParams())
	if err != nil {
		t.Fatalf("NewInput() error = %v", err)
	}
	result, err := engine.Project(in)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	points, err := engine.Sensitivity(in, finance.RateSteps(0.10, 0.30, 0.05))
	if err != nil {
		t.Fatalf("Sensitivity() error = %v", err)
	}
	return result, points
}

func TestMarkdown(t *testing.T) {
	result, points := projection(t)
	md := Markdown(result, points)

	expected := []string{
		"# Solar investment projection: 1MW",
		"Location: Andalusia",
		"| Investment (default) | €1,050,000 |",
		"| Annual profit | €346,896.00 |",
		"| ROI | 33.04% |",
		"break-even 2029-11",
		"## Sensitivity to electricity rate",
		"| €0.10/kWh |",
		"| €0.30/kWh |",
		"## Yearly schedule",
		"| 25 |",
	}
	for _, want := range expected {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown() missing %q", want)
		}
	}
}

func TestMarkdownDegenerate(t *testing.T) {
	assumptions := finance.DefaultAssumptions()
	assumptions.CapacityFactor = 0
	engine := testutil.NewEngine(t, assumptions)
	result := testutil.Project(t, engine, testutil.ReferenceParams())

	md := Markdown(result, nil)
	if !strings.Contains(md, "not available: annual profit is not positive") {
		t.Error("Markdown() missing degenerate notice")
	}
	if strings.Contains(md, "## Sensitivity") {
		t.Error("Markdown() should omit an empty sensitivity section")
	}
}

func TestHTML(t *testing.T) {
	result, points := projection(t)
	page, err := HTML(result, points)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	out := string(page)

	for _, want := range []string{"<!DOCTYPE html>", "<title>1MW projection</title>", "<table>", "<h2>Yearly schedule</h2>"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML() missing %q", want)
		}
	}
}

func TestHTMLEscapesLocation(t *testing.T) {
	result, _ := projection(t)
	result.Location = "<script>alert(1)</script>"

	page, err := HTML(result, nil)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if strings.Contains(string(page), "<script>") {
		t.Error("HTML() must not emit raw markup from the location")
	}
}
