/*
Package variance rolls reconciled WorkItems up into the figures an estimator
compares: contract against K-weighted cost, certainty bands, the largest
deviations, and one version against another.

INPUTS:
  Every function reads values through wbs.ReadSeries/ReadAdjusted and only
  counts LineItem rows. Chapters and decomposition children would double
  count what their LineItem already carries.

  Callers pass the reallocated working set, never the raw load.
*/
package variance

import "github.com/warp/cost-engine/wbs"

// Versions picks the contract and cost revision being compared. CoefK
// multiplies cost prices and amounts.
type Versions struct {
	Contract int     `json:"contract_version"`
	Cost     int     `json:"cost_version"`
	CoefK    float64 `json:"coef_k"`
}

// Totals is the headline contract-vs-cost comparison.
type Totals struct {
	LineItems int     `json:"line_items"`
	Contract  float64 `json:"contract"`
	Cost      float64 `json:"cost"`
	CostK     float64 `json:"cost_k"`

	// Difference is CostK - Contract; Variance is Difference as a percentage
	// of Contract, 0 when Contract is 0.
	Difference float64 `json:"difference"`
	Variance   float64 `json:"variance"`
}

func ComputeTotals(items []wbs.WorkItem, v Versions) Totals {
	var t Totals
	for _, it := range wbs.LineItems(items) {
		t.LineItems++
		t.Contract += wbs.ReadSeries(it, wbs.SeriesContract, v.Contract).Amount
		cost := wbs.ReadSeries(it, wbs.SeriesCost, v.Cost)
		t.Cost += cost.Amount
		t.CostK += cost.Scaled(v.CoefK).Amount
	}
	t.Difference = t.CostK - t.Contract
	t.Variance = percent(t.Difference, t.Contract)
	return t
}

// percent is num/den*100, or 0 when den is 0.
func percent(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}
