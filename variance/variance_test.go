package variance_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cost-engine/variance"
	"github.com/warp/cost-engine/wbs"
)

func band(n int) *int { return &n }

// line builds a LineItem with contract v0 and cost v0 set as plain tuples.
func line(guid string, class *int, contractQty, contractAmt, costQty, costAmt float64) wbs.WorkItem {
	w := wbs.WorkItem{GUID: guid, Code: guid, Kind: wbs.KindLineItem, Classification: class}
	w.SetTuple(wbs.SeriesContract, 0, wbs.Tuple{Quantity: contractQty, Amount: contractAmt})
	w.SetTuple(wbs.SeriesCost, 0, wbs.Tuple{Quantity: costQty, Amount: costAmt})
	return w
}

var v0 = variance.Versions{Contract: 0, Cost: 0, CoefK: 1}

// =============================================================================
// TOTALS
// =============================================================================

func TestComputeTotals_LineItemsOnly(t *testing.T) {
	items := []wbs.WorkItem{
		{GUID: "ch", Kind: wbs.KindChapter, Contract: []wbs.Tuple{{Amount: 1e6}}},
		line("a", nil, 1, 1000, 1, 800),
		line("b", nil, 1, 500, 1, 300),
		{GUID: "m", Kind: wbs.KindMaterial, Cost: []wbs.Tuple{{Amount: 99}}},
	}

	tot := variance.ComputeTotals(items, variance.Versions{CoefK: 1.5})

	assert.Equal(t, 2, tot.LineItems)
	assert.InDelta(t, 1500, tot.Contract, 1e-9)
	assert.InDelta(t, 1100, tot.Cost, 1e-9)
	assert.InDelta(t, 1650, tot.CostK, 1e-9)
	assert.InDelta(t, 150, tot.Difference, 1e-9)
	assert.InDelta(t, 10, tot.Variance, 1e-9)
}

func TestComputeTotals_ZeroContractHasZeroVariance(t *testing.T) {
	tot := variance.ComputeTotals([]wbs.WorkItem{line("a", nil, 0, 0, 1, 100)}, v0)

	assert.Equal(t, 100.0, tot.Difference)
	assert.Equal(t, 0.0, tot.Variance)
}

// =============================================================================
// CERTAINTY
// =============================================================================

func TestComputeCertainty_Bands(t *testing.T) {
	// GIVEN: cost 100 in band 0 (nil), 200 in band 3, 50 in band 5
	items := []wbs.WorkItem{
		line("a", nil, 0, 400, 0, 100),
		line("b", band(3), 0, 300, 0, 200),
		line("c", band(5), 0, 0, 0, 50),
	}

	c := variance.ComputeCertainty(items, nil, v0)

	require.Len(t, c.Bands, 6)
	assert.Equal(t, "SIN CLASIFICAR", c.Bands[0].Description)
	assert.InDelta(t, 100, c.Bands[0].Planned, 1e-9)
	assert.InDelta(t, 75, c.Bands[0].Optimistic, 1e-9)
	assert.InDelta(t, 125, c.Bands[0].Pessimistic, 1e-9)
	assert.InDelta(t, 172, c.Bands[3].Optimistic, 1e-9)
	assert.InDelta(t, 51.5, c.Bands[5].Pessimistic, 1e-9)
	assert.Equal(t, 0, c.Bands[1].Items)

	assert.InDelta(t, 700, c.Sale, 1e-9)
	assert.InDelta(t, 350, c.Cost.Planned, 1e-9)
	assert.InDelta(t, 350, c.Result.Planned, 1e-9)
	assert.InDelta(t, 700-(75+172+48.5), c.Result.Optimistic, 1e-9)
}

func TestComputeCertainty_BandSumMatchesLineItemCost(t *testing.T) {
	var items []wbs.WorkItem
	var want float64
	for i := range 40 {
		class := band(i % 6)
		if i%7 == 0 {
			class = nil
		}
		cost := float64(i*i) + 0.25
		items = append(items, line(fmt.Sprintf("i%d", i), class, 0, 0, 0, cost))
		want += cost * 1.07
	}
	items = append(items, wbs.WorkItem{GUID: "ch", Kind: wbs.KindChapter, Cost: []wbs.Tuple{{Amount: 1e9}}})

	c := variance.ComputeCertainty(items, variance.DefaultBands(), variance.Versions{CoefK: 1.07})

	var got float64
	for _, b := range c.Bands {
		got += b.Planned
	}
	assert.InDelta(t, want, got, 1e-6)
	assert.Equal(t, 0, c.Unclassified)
}

func TestComputeCertainty_OutOfRangeClassificationIsExcluded(t *testing.T) {
	items := []wbs.WorkItem{line("a", band(9), 0, 10, 0, 100)}

	c := variance.ComputeCertainty(items, nil, v0)

	assert.Equal(t, 1, c.Unclassified)
	assert.Equal(t, 0.0, c.Cost.Planned)
	assert.InDelta(t, 10, c.Sale, 1e-9)
}

// =============================================================================
// DEVIATIONS
// =============================================================================

func TestRankDeviations_TopAndBottom(t *testing.T) {
	// GIVEN: amount deviations -12..+12 (contract 100, cost 100-d)
	var items []wbs.WorkItem
	for d := -12; d <= 12; d++ {
		items = append(items, line(fmt.Sprintf("d%+d", d), nil, 1, 100, 1, 100-float64(d)))
	}

	r := variance.RankDeviations(items, v0, variance.OrderByAmount, 10)

	require.Len(t, r.Negative, 10)
	require.Len(t, r.Positive, 10)
	assert.Equal(t, "d-12", r.Negative[0].GUID)
	assert.Equal(t, "d-3", r.Negative[9].GUID)
	assert.Equal(t, "d+12", r.Positive[0].GUID)
	assert.Equal(t, "d+3", r.Positive[9].GUID)

	assert.InDelta(t, -75, r.NegativeSubtotal.AmountDiff, 1e-9)
	assert.InDelta(t, 1000, r.NegativeSubtotal.Contract, 1e-9)
	assert.InDelta(t, -7.5, r.NegativeSubtotal.Variance, 1e-9)
	assert.InDelta(t, 75, r.PositiveSubtotal.AmountDiff, 1e-9)
}

func TestRankDeviations_ByQuantityAndZeroExcluded(t *testing.T) {
	items := []wbs.WorkItem{
		line("same", nil, 5, 100, 5, 100),
		line("more", nil, 5, 100, 8, 100),
		line("less", nil, 5, 100, 2, 100),
	}

	r := variance.RankDeviations(items, v0, variance.OrderByQuantity, 0)

	require.Len(t, r.Negative, 1)
	require.Len(t, r.Positive, 1)
	assert.Equal(t, "less", r.Negative[0].GUID)
	assert.Equal(t, -3.0, r.Negative[0].QuantityDiff)
	assert.Equal(t, "more", r.Positive[0].GUID)
}

func TestDeviations_CoefKAppliesToCost(t *testing.T) {
	w := line("a", nil, 2, 100, 2, 80)
	w.SetTuple(wbs.SeriesCost, 0, wbs.Tuple{Quantity: 2, Price: 40, Amount: 80})

	ds := variance.Deviations([]wbs.WorkItem{w}, variance.Versions{CoefK: 1.25})

	require.Len(t, ds, 1)
	assert.InDelta(t, 100, ds[0].CostK.Amount, 1e-9)
	assert.InDelta(t, 50, ds[0].CostK.Price, 1e-9)
	assert.InDelta(t, 0, ds[0].AmountDiff, 1e-9)
}

func TestParseOrderKey(t *testing.T) {
	k, err := variance.ParseOrderKey("importe")
	require.NoError(t, err)
	assert.Equal(t, variance.OrderByAmount, k)

	_, err = variance.ParseOrderKey("price")
	assert.Error(t, err)
}

// =============================================================================
// VERSION COMPARISON
// =============================================================================

func TestCompareVersions_Contract(t *testing.T) {
	a := line("a", nil, 10, 1000, 0, 0)
	a.SetTuple(wbs.SeriesContract, 1, wbs.Tuple{Quantity: 12, Amount: 900})
	ch := wbs.WorkItem{GUID: "ch", Kind: wbs.KindChapter}
	ch.SetTuple(wbs.SeriesContract, 0, wbs.Tuple{Amount: 5000})

	c := variance.CompareVersions([]wbs.WorkItem{ch, a}, variance.CompareRequest{Series: wbs.SeriesContract, A: 0, B: 1, CoefK: 2})

	require.Len(t, c.Items, 2)
	d := c.Items[1]
	assert.Equal(t, 2.0, d.QuantityDiff)
	assert.Equal(t, 100.0, d.AmountDiff)
	assert.InDelta(t, 10, d.Variance, 1e-9)
	assert.Equal(t, 1000.0, c.TotalA, "chapters are not totalled and coefK is ignored for contract")
	assert.Equal(t, 900.0, c.TotalB)
	assert.InDelta(t, 10, c.Variance, 1e-9)
}

func TestCompareVersions_CostUsesCoefK(t *testing.T) {
	a := line("a", nil, 0, 0, 1, 100)
	a.SetTuple(wbs.SeriesCost, 2, wbs.Tuple{Quantity: 1, Amount: 150})

	c := variance.CompareVersions([]wbs.WorkItem{a}, variance.CompareRequest{Series: wbs.SeriesCost, A: 0, B: 2, CoefK: 2})

	assert.Equal(t, 200.0, c.TotalA)
	assert.Equal(t, 300.0, c.TotalB)
	assert.Equal(t, -100.0, c.Difference)
	assert.InDelta(t, -50, c.Variance, 1e-9)
}

func TestCompareVersions_MissingVersionReadsZero(t *testing.T) {
	a := line("a", nil, 1, 100, 0, 0)

	c := variance.CompareVersions([]wbs.WorkItem{a}, variance.CompareRequest{Series: wbs.SeriesContract, A: 0, B: 5})

	assert.Equal(t, 100.0, c.Difference)
	assert.Equal(t, 0.0, c.Items[0].B.Amount)
}
