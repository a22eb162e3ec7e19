package variance

import "github.com/warp/cost-engine/wbs"

// =============================================================================
// VERSION COMPARISON
// =============================================================================

// CompareRequest compares two revisions of the same series. CoefK applies
// to both sides when the series is cost.
type CompareRequest struct {
	Series wbs.Series `json:"series"`
	A      int        `json:"a"`
	B      int        `json:"b"`
	CoefK  float64    `json:"coef_k"`
}

// VersionDelta is one item's change from revision A to revision B.
// QuantityDiff is B - A, AmountDiff is A - B.
type VersionDelta struct {
	GUID  string   `json:"guid"`
	Code  string   `json:"code"`
	Kind  wbs.Kind `json:"kind"`
	Level int      `json:"level"`

	A wbs.Reading `json:"a"`
	B wbs.Reading `json:"b"`

	QuantityDiff float64 `json:"quantity_diff"`
	AmountDiff   float64 `json:"amount_diff"`
	Variance     float64 `json:"variance"`
}

type Comparison struct {
	Request CompareRequest `json:"request"`

	// Items covers every work item in input order.
	Items []VersionDelta `json:"items"`

	// Totals sum LineItem amounts only.
	TotalA     float64 `json:"total_a"`
	TotalB     float64 `json:"total_b"`
	Difference float64 `json:"difference"`
	Variance   float64 `json:"variance"`
}

func CompareVersions(items []wbs.WorkItem, req CompareRequest) Comparison {
	c := Comparison{Request: req, Items: make([]VersionDelta, 0, len(items))}
	for i := range items {
		it := &items[i]
		a := wbs.ReadAdjusted(it, req.Series, req.A, req.CoefK)
		b := wbs.ReadAdjusted(it, req.Series, req.B, req.CoefK)
		d := VersionDelta{
			GUID:         it.GUID,
			Code:         it.Code,
			Kind:         it.Kind,
			Level:        it.Level,
			A:            a,
			B:            b,
			QuantityDiff: b.Quantity - a.Quantity,
			AmountDiff:   a.Amount - b.Amount,
		}
		d.Variance = percent(d.AmountDiff, a.Amount)
		c.Items = append(c.Items, d)

		if it.Kind == wbs.KindLineItem {
			c.TotalA += a.Amount
			c.TotalB += b.Amount
		}
	}
	c.Difference = c.TotalA - c.TotalB
	c.Variance = percent(c.Difference, c.TotalA)
	return c
}
