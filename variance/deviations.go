package variance

import (
	"fmt"
	"slices"

	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/wbs"
)

// =============================================================================
// DEVIATION RANKING
// =============================================================================

// DefaultRankingSize is how many items each side of the ranking keeps.
const DefaultRankingSize = 10

// OrderKey selects the figure deviations are ranked by.
type OrderKey string

const (
	OrderByAmount   OrderKey = "amount"
	OrderByQuantity OrderKey = "quantity"
)

func ParseOrderKey(s string) (OrderKey, error) {
	switch s {
	case "", "amount", "importe":
		return OrderByAmount, nil
	case "quantity", "medicion", "medición":
		return OrderByQuantity, nil
	}
	return "", fmt.Errorf("%w: unknown ordering %q", generic.ErrInvalidSeries, s)
}

// Deviation compares one LineItem's contract against its K-weighted cost.
// Positive AmountDiff means the contract covers the cost with margin.
type Deviation struct {
	GUID    string `json:"guid"`
	Code    string `json:"code"`
	Summary string `json:"summary,omitempty"`
	Unit    string `json:"unit,omitempty"`

	Contract wbs.Reading `json:"contract"`
	CostK    wbs.Reading `json:"cost_k"`

	QuantityDiff float64 `json:"quantity_diff"` // cost qty - contract qty
	AmountDiff   float64 `json:"amount_diff"`   // contract - cost×K
	Variance     float64 `json:"variance"`      // AmountDiff / contract × 100
}

func (d Deviation) key(k OrderKey) float64 {
	if k == OrderByQuantity {
		return d.QuantityDiff
	}
	return d.AmountDiff
}

type Subtotal struct {
	Items        int     `json:"items"`
	Contract     float64 `json:"contract"`
	CostK        float64 `json:"cost_k"`
	AmountDiff   float64 `json:"amount_diff"`
	QuantityDiff float64 `json:"quantity_diff"`
	Variance     float64 `json:"variance"`
}

type Ranking struct {
	OrderBy OrderKey `json:"order_by"`

	// Negative lists the most negative deviations, most negative first.
	Negative         []Deviation `json:"negative"`
	NegativeSubtotal Subtotal    `json:"negative_subtotal"`

	// Positive lists the most positive deviations, most positive first.
	Positive         []Deviation `json:"positive"`
	PositiveSubtotal Subtotal    `json:"positive_subtotal"`
}

// Deviations computes the deviation of every LineItem, in input order.
func Deviations(items []wbs.WorkItem, v Versions) []Deviation {
	lines := wbs.LineItems(items)
	out := make([]Deviation, 0, len(lines))
	for _, it := range lines {
		contract := wbs.ReadSeries(it, wbs.SeriesContract, v.Contract)
		cost := wbs.ReadAdjusted(it, wbs.SeriesCost, v.Cost, v.CoefK)
		d := Deviation{
			GUID:         it.GUID,
			Code:         it.Code,
			Summary:      it.Summary,
			Unit:         it.Unit,
			Contract:     contract,
			CostK:        cost,
			QuantityDiff: cost.Quantity - contract.Quantity,
			AmountDiff:   contract.Amount - cost.Amount,
		}
		d.Variance = percent(d.AmountDiff, contract.Amount)
		out = append(out, d)
	}
	return out
}

// RankDeviations keeps the size most negative and size most positive
// deviations by the chosen key. Zero deviations are in neither list. The
// sort is stable, so equal negative deviations keep input order.
func RankDeviations(items []wbs.WorkItem, v Versions, by OrderKey, size int) Ranking {
	if size <= 0 {
		size = DefaultRankingSize
	}
	if by == "" {
		by = OrderByAmount
	}

	all := Deviations(items, v)
	slices.SortStableFunc(all, func(a, b Deviation) int {
		ka, kb := a.key(by), b.key(by)
		switch {
		case ka < kb:
			return -1
		case ka > kb:
			return 1
		}
		return 0
	})

	r := Ranking{OrderBy: by}
	for _, d := range all {
		if d.key(by) < 0 && len(r.Negative) < size {
			r.Negative = append(r.Negative, d)
		}
	}
	for i := len(all) - 1; i >= 0 && len(r.Positive) < size; i-- {
		if all[i].key(by) > 0 {
			r.Positive = append(r.Positive, all[i])
		}
	}
	r.NegativeSubtotal = subtotal(r.Negative)
	r.PositiveSubtotal = subtotal(r.Positive)
	return r
}

func subtotal(ds []Deviation) Subtotal {
	s := Subtotal{Items: len(ds)}
	for _, d := range ds {
		s.Contract += d.Contract.Amount
		s.CostK += d.CostK.Amount
		s.AmountDiff += d.AmountDiff
		s.QuantityDiff += d.QuantityDiff
	}
	s.Variance = percent(s.AmountDiff, s.Contract)
	return s
}
