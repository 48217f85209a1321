// Package output provides utilities for formatting and displaying projection results.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iwvelando/solarfarm-site/pkg/finance"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat writes a human-readable summary followed by the yearly schedule.
func PrettyFormat(w io.Writer, result finance.Result) error {
	p := message.NewPrinter(language.English)

	title := string(result.CapacityClass)
	if result.Location != "" {
		title += " at " + result.Location
	}
	lines := []string{
		p.Sprintf("--- Projection for %s ---\n", title),
		p.Sprintf("Investment (%s) | €%.2f\n", result.InvestmentSource, result.Investment),
		p.Sprintf("Annual energy    | %.1f MWh\n", result.AnnualEnergyMWh),
		p.Sprintf("Annual revenue   | €%.2f\n", result.AnnualRevenue),
		p.Sprintf("Operating costs  | €%.2f\n", result.AnnualOperatingCosts),
		p.Sprintf("Annual profit    | €%.2f\n", result.AnnualProfit),
		p.Sprintf("Monthly profit   | €%.2f\n", result.MonthlyProfit),
	}
	if result.Degenerate {
		lines = append(lines, "ROI / payback    | n/a (annual profit is not positive)\n")
	} else {
		lines = append(lines,
			p.Sprintf("ROI              | %.2f%%\n", result.ROIPercent),
			p.Sprintf("Payback          | %.2f years (month %d, %s)\n", result.PaybackYears, result.BreakEvenMonth, result.BreakEvenDate),
			p.Sprintf("IRR (%s) | %.2f%%\n", result.IRRMethod, result.IRRPercent),
		)
	}
	lines = append(lines,
		p.Sprintf("NPV (%d years)   | €%.2f\n", result.HorizonYears, result.NPV),
		"\n",
		"Year | Factor | Energy MWh | Profit | Discounted | Cumulative\n",
		"____ | ______ | __________ | ______ | __________ | __________\n",
	)
	for _, row := range result.Schedule {
		lines = append(lines, p.Sprintf("%4d | %.4f | %.1f | €%.2f | €%.2f | €%.2f\n",
			row.Year, row.DegradationFactor, row.EnergyMWh, row.Profit, row.DiscountedProfit, row.CumulativeDiscounted))
	}

	for _, line := range lines {
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// CsvFormat writes the yearly schedule in comma-separated value format.
func CsvFormat(w io.Writer, result finance.Result) error {
	writer := csv.NewWriter(w)
	header := []string{"year", "degradation factor", "energy (MWh)", "profit", "discounted profit", "cumulative discounted"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range result.Schedule {
		record := []string{
			strconv.Itoa(row.Year),
			strconv.FormatFloat(row.DegradationFactor, 'f', 6, 64),
			strconv.FormatFloat(row.EnergyMWh, 'f', 3, 64),
			strconv.FormatFloat(row.Profit, 'f', 2, 64),
			strconv.FormatFloat(row.DiscountedProfit, 'f', 2, 64),
			strconv.FormatFloat(row.CumulativeDiscounted, 'f', 2, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// JSONFormat writes the full result as indented JSON.
func JSONFormat(w io.Writer, result finance.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}
