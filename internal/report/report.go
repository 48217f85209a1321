// Package report renders the investor summary offered next to the calculator.
package report

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"github.com/iwvelando/solarfarm-site/pkg/format"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const disclaimer = "Figures are estimates from a simplified model and do not constitute financial advice. " +
	"Actual yields depend on site, financing and market conditions."

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// Markdown renders result and its sensitivity table as a Markdown document.
func Markdown(result finance.Result, points []finance.SensitivityPoint) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Solar investment projection: %s\n\n", result.CapacityClass)
	if result.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n\n", escape(result.Location))
	}
	if !result.CalculatedAt.IsZero() {
		fmt.Fprintf(&b, "Calculated: %s\n\n", result.CalculatedAt.Format("2006-01-02 15:04 MST"))
	}

	b.WriteString("| Metric | Value |\n|---|---|\n")
	row(&b, fmt.Sprintf("Investment (%s)", result.InvestmentSource), format.WholeEuro(result.Investment))
	row(&b, "Electricity rate", fmt.Sprintf("€%.3f/kWh", result.ElectricityRate))
	row(&b, "Operating costs", fmt.Sprintf("%g%% of revenue", result.OperatingCostPercent))
	row(&b, "Annual production", fmt.Sprintf("%.1f MWh", result.AnnualEnergyMWh))
	row(&b, "Annual revenue", format.Euro(result.AnnualRevenue))
	row(&b, "Annual operating costs", format.Euro(result.AnnualOperatingCosts))
	row(&b, "Annual profit", format.Euro(result.AnnualProfit))
	row(&b, "Monthly profit", format.Euro(result.MonthlyProfit))
	if result.Degenerate {
		row(&b, "ROI / payback / IRR", "not available: annual profit is not positive")
	} else {
		row(&b, "ROI", format.Percent(result.ROIPercent))
		row(&b, "Payback", fmt.Sprintf("%.2f years (break-even %s)", result.PaybackYears, result.BreakEvenDate))
		row(&b, fmt.Sprintf("IRR (%s)", result.IRRMethod), format.Percent(result.IRRPercent))
	}
	row(&b, fmt.Sprintf("NPV over %d years", result.HorizonYears), format.Euro(result.NPV))

	if len(points) > 0 {
		b.WriteString("\n## Sensitivity to electricity rate\n\n")
		b.WriteString("| Rate | Annual profit | ROI | Payback | NPV | IRR |\n|---|---|---|---|---|---|\n")
		for _, p := range points {
			roi, payback, irr := "n/a", "n/a", "n/a"
			if !p.Degenerate {
				roi = format.Percent(p.ROIPercent)
				payback = fmt.Sprintf("%.2f years", p.PaybackYears)
				irr = format.Percent(p.IRRPercent)
			}
			fmt.Fprintf(&b, "| €%.2f/kWh | %s | %s | %s | %s | %s |\n",
				p.ElectricityRate, format.Euro(p.AnnualProfit), roi, payback, format.Euro(p.NPV), irr)
		}
	}

	if len(result.Schedule) > 0 {
		b.WriteString("\n## Yearly schedule\n\n")
		b.WriteString("| Year | Production | Profit | Discounted profit | Cumulative position |\n|---|---|---|---|---|\n")
		for _, y := range result.Schedule {
			fmt.Fprintf(&b, "| %d | %.1f MWh | %s | %s | %s |\n",
				y.Year, y.EnergyMWh, format.Euro(y.Profit), format.Euro(y.DiscountedProfit), format.Euro(y.CumulativeDiscounted))
		}
	}

	b.WriteString("\n_" + disclaimer + "_\n")
	return b.String()
}

// HTML renders the Markdown report into a standalone HTML page.
func HTML(result finance.Result, points []finance.SensitivityPoint) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(result, points)), &body); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s projection</title>\n", html.EscapeString(string(result.CapacityClass)))
	page.WriteString("<link rel=\"stylesheet\" href=\"/report.css\">\n</head>\n<body>\n<main class=\"report\">\n")
	page.Write(body.Bytes())
	page.WriteString("</main>\n</body>\n</html>\n")
	return page.Bytes(), nil
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", label, value)
}

// escape neutralizes Markdown syntax in user supplied text.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune("\\`*_{}[]()#+-.!|<>&", r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
