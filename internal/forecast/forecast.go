// Package forecast predicts next-month spend from expense history.
//
// The model is a deliberate simplification: an ordinary least-squares line
// over monthly totals, extrapolated one month ahead. No seasonality, no
// autoregression.
package forecast

import (
	"math"
	"sort"

	"kharcha/internal/core"
)

// MonthlyTotals groups history by calendar month and sums amounts, returning
// totals in ascending month order.
func MonthlyTotals(history []core.ExpenseRecord) []core.MonthlyTotal {
	if len(history) == 0 {
		return nil
	}

	sums := make(map[string]float64)
	for _, rec := range history {
		sums[core.MonthKey(rec.Date)] += rec.Amount
	}

	months := make([]string, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Strings(months)

	totals := make([]core.MonthlyTotal, len(months))
	for i, m := range months {
		totals[i] = core.MonthlyTotal{Month: m, Total: sums[m]}
	}
	return totals
}

// NextMonth predicts the coming month's total spend. No history yields 0; a
// single month of history is returned as-is; otherwise an OLS line fitted
// over month indices is evaluated at the next index and rounded to 2
// decimals.
func NextMonth(history []core.ExpenseRecord) float64 {
	totals := MonthlyTotals(history)
	if len(totals) == 0 {
		return 0
	}
	if len(totals) < 2 {
		return totals[len(totals)-1].Total
	}

	slope, intercept := fitLine(totals)
	predicted := intercept + slope*float64(len(totals))
	return math.Round(predicted*100) / 100
}

// fitLine computes the least-squares line of total against month index.
func fitLine(totals []core.MonthlyTotal) (slope, intercept float64) {
	n := float64(len(totals))

	var sumX, sumY float64
	for i, t := range totals {
		sumX += float64(i)
		sumY += t.Total
	}
	meanX := sumX / n
	meanY := sumY / n

	var num, den float64
	for i, t := range totals {
		dx := float64(i) - meanX
		num += dx * (t.Total - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0, meanY
	}

	slope = num / den
	intercept = meanY - slope*meanX
	return slope, intercept
}
