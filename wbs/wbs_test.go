package wbs_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cost-engine/wbs"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func item(guid, code, parent string, kind wbs.Kind) wbs.WorkItem {
	return wbs.WorkItem{GUID: guid, Code: code, ParentCode: parent, Kind: kind}
}

func withContract(w wbs.WorkItem, v int, qty, price, amount float64) wbs.WorkItem {
	w.SetTuple(wbs.SeriesContract, v, wbs.Tuple{Quantity: qty, Price: price, Amount: amount, LineType: wbs.LinePlain})
	return w
}

func withCost(w wbs.WorkItem, v int, qty, price, amount float64) wbs.WorkItem {
	w.SetTuple(wbs.SeriesCost, v, wbs.Tuple{Quantity: qty, Price: price, Amount: amount, LineType: wbs.LinePlain})
	return w
}

func byGUID(items []wbs.WorkItem, guid string) *wbs.WorkItem {
	for i := range items {
		if items[i].GUID == guid {
			return &items[i]
		}
	}
	return nil
}

func relErr(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}

// =============================================================================
// VERSION SERIES READER
// =============================================================================

func TestReadSeries_PlainTupleReadVerbatim(t *testing.T) {
	w := withCost(item("a", "A", "", wbs.KindLineItem), 1, 2, 10, 25)

	r := wbs.ReadSeries(&w, wbs.SeriesCost, 1)

	assert.Equal(t, 2.0, r.Quantity)
	assert.Equal(t, 10.0, r.Price)
	assert.Equal(t, 25.0, r.Amount, "plain amount is trusted even when it disagrees with qty*price")
}

func TestReadSeries_DecomposedRecomputesAmount(t *testing.T) {
	w := item("a", "A", "", wbs.KindLineItem)
	w.SetTuple(wbs.SeriesContract, 0, wbs.Tuple{
		Quantity:           99,
		QuantityDecomposed: 3,
		Price:              7,
		Amount:             1000,
		LineType:           wbs.LineDecomposed,
	})

	r := wbs.ReadSeries(&w, wbs.SeriesContract, 0)

	assert.Equal(t, 3.0, r.Quantity)
	assert.Equal(t, 21.0, r.Amount)
}

func TestReadSeries_NaNAndMissingReadAsZero(t *testing.T) {
	w := item("a", "A", "", wbs.KindLineItem)
	w.SetTuple(wbs.SeriesContract, 0, wbs.Tuple{
		QuantityDecomposed: math.NaN(),
		Price:              5,
		LineType:           wbs.LineDecomposed,
	})
	w.SetTuple(wbs.SeriesCost, 0, wbs.Tuple{Amount: math.Inf(1), Price: math.NaN()})

	assert.Equal(t, 0.0, wbs.ReadSeries(&w, wbs.SeriesContract, 0).Amount)
	assert.Equal(t, wbs.Reading{LineType: wbs.LinePlain}, wbs.ReadSeries(&w, wbs.SeriesCost, 0))
	assert.Equal(t, wbs.Reading{LineType: wbs.LinePlain}, wbs.ReadSeries(&w, wbs.SeriesCost, 7), "absent version")
	assert.Equal(t, wbs.Reading{LineType: wbs.LinePlain}, wbs.ReadSeries(&w, wbs.SeriesCost, -1))
}

func TestReadAdjusted_AppliesCoefKOnlyToCost(t *testing.T) {
	w := withCost(withContract(item("a", "A", "", wbs.KindLineItem), 0, 1, 100, 100), 0, 1, 80, 80)

	assert.Equal(t, 100.0, wbs.ReadAdjusted(&w, wbs.SeriesContract, 0, 1.5).Amount)
	assert.InDelta(t, 120.0, wbs.ReadAdjusted(&w, wbs.SeriesCost, 0, 1.5).Amount, 1e-9)
	assert.InDelta(t, 120.0, wbs.ReadAdjusted(&w, wbs.SeriesCost, 0, 1.5).Price, 1e-9)
}

func TestParseKind_SourceVocabulary(t *testing.T) {
	cases := map[string]wbs.Kind{
		"Capítulo":     wbs.KindChapter,
		"Partida":      wbs.KindLineItem,
		"Material":     wbs.KindMaterial,
		"Mano de obra": wbs.KindLabor,
		"Maquinaria":   wbs.KindEquipment,
		"Otros":        wbs.KindOther,
		"Descompuesto": wbs.KindUnknown,
		"":             wbs.KindUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, wbs.ParseKind(in), in)
	}
	assert.True(t, wbs.KindLabor.IsDecompositionChild())
	assert.False(t, wbs.KindLineItem.IsDecompositionChild())
}

// =============================================================================
// LINKAGE RESOLVER
// =============================================================================

func TestResolve_PriorityGUIDThenCodeThenAltCode(t *testing.T) {
	// GIVEN: "X" is both the GUID of one item and the code of another
	items := []wbs.WorkItem{
		item("X", "c-guid-owner", "", wbs.KindChapter),
		item("g2", "X", "", wbs.KindChapter),
		{GUID: "g3", Code: "c3", AltCode: "ALT"},
		item("child1", "c1", "X", wbs.KindLineItem),
		item("child2", "c2", "c3", wbs.KindLineItem),
		item("child3", "c4", "ALT", wbs.KindLineItem),
	}

	links := wbs.Resolve(items)

	// THEN: GUID wins over code, code over alt code
	r, ok := links.Resolution("child1")
	require.True(t, ok)
	assert.Equal(t, "X", r.Parent)
	assert.Equal(t, wbs.MatchGUID, r.By)

	r, _ = links.Resolution("child2")
	assert.Equal(t, "g3", r.Parent)
	assert.Equal(t, wbs.MatchCode, r.By)

	r, _ = links.Resolution("child3")
	assert.Equal(t, "g3", r.Parent)
	assert.Equal(t, wbs.MatchAltCode, r.By)

	assert.Equal(t, 1, links.Counts[wbs.MatchGUID])
	assert.Equal(t, 1, links.Counts[wbs.MatchCode])
	assert.Equal(t, 1, links.Counts[wbs.MatchAltCode])
}

func TestResolve_OrphansAreRootsNotErrors(t *testing.T) {
	items := []wbs.WorkItem{
		item("root", "R", "", wbs.KindChapter),
		item("lost", "L", "does-not-exist", wbs.KindLineItem),
		item("kid", "K", "R", wbs.KindLineItem),
	}

	links := wbs.Resolve(items)

	assert.Equal(t, []string{"root", "lost"}, links.Orphans)
	assert.Equal(t, 1, links.Unmatched())
	assert.Equal(t, 1, links.Reasons[wbs.OrphanNoParentCode])
	assert.Equal(t, []string{"kid"}, links.Children("root"))
}

func TestResolve_Deterministic(t *testing.T) {
	items := []wbs.WorkItem{
		item("a", "A", "", wbs.KindChapter),
		item("b", "B", "A", wbs.KindLineItem),
		item("c", "C", "b", wbs.KindMaterial),
		item("d", "D", "zzz", wbs.KindLineItem),
		item("e", "A", "B", wbs.KindMaterial),
	}

	first := wbs.Resolve(items)
	for range 20 {
		again := wbs.Resolve(items)
		assert.Equal(t, first.Orphans, again.Orphans)
		for _, it := range items {
			want, _ := first.Resolution(it.GUID)
			got, _ := again.Resolution(it.GUID)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("resolution for %s changed (-want +got):\n%s", it.GUID, diff)
			}
		}
	}
}

func TestResolve_CyclesAreBrokenAtFirstMember(t *testing.T) {
	// GIVEN: a -> b -> c -> a, plus d hanging off c, plus a self-loop
	items := []wbs.WorkItem{
		item("d", "D", "c", wbs.KindMaterial),
		item("b", "B", "a", wbs.KindLineItem),
		item("a", "A", "c", wbs.KindLineItem),
		item("c", "C", "b", wbs.KindLineItem),
		item("s", "S", "s", wbs.KindLineItem),
	}

	links := wbs.Resolve(items)

	// THEN: "b" is the first cycle member in input order and becomes a root
	r, _ := links.Resolution("b")
	assert.True(t, r.IsOrphan())
	assert.Equal(t, wbs.OrphanCycle, r.Reason)
	assert.Equal(t, 2, links.Reasons[wbs.OrphanCycle])

	forest := wbs.Assemble(items, links)
	assert.Len(t, wbs.Flatten(forest), len(items), "every item reachable exactly once")
}

// =============================================================================
// TREE ASSEMBLER
// =============================================================================

func TestAssemble_PreservesInputOrderAndDepth(t *testing.T) {
	items := []wbs.WorkItem{
		item("ch1", "01", "", wbs.KindChapter),
		item("p2", "01.02", "01", wbs.KindLineItem),
		item("ch2", "02", "", wbs.KindChapter),
		item("p1", "01.01", "01", wbs.KindLineItem),
		item("m1", "M1", "p1", wbs.KindMaterial),
	}

	forest := wbs.Assemble(items, wbs.Resolve(items))

	require.Len(t, forest, 2)
	assert.Equal(t, "ch1", forest[0].Item.GUID)
	assert.Equal(t, "ch2", forest[1].Item.GUID)
	require.Len(t, forest[0].Children, 2)
	assert.Equal(t, "p2", forest[0].Children[0].Item.GUID)
	assert.Equal(t, "p1", forest[0].Children[1].Item.GUID)
	assert.Equal(t, 2, forest[0].Children[1].Children[0].Depth)

	var order []string
	wbs.Walk(forest, func(n *wbs.TreeNode) { order = append(order, n.Item.GUID) })
	assert.Equal(t, []string{"ch1", "p2", "p1", "m1", "ch2"}, order)
}

func TestAssemble_NodesShareItemStorage(t *testing.T) {
	items := []wbs.WorkItem{item("a", "A", "", wbs.KindLineItem)}
	forest := wbs.Assemble(items, wbs.Resolve(items))

	items[0].Summary = "changed"
	assert.Equal(t, "changed", forest[0].Item.Summary)
}

// =============================================================================
// DECOMPOSITION REALLOCATOR
// =============================================================================

func decomposition() []wbs.WorkItem {
	parent := withContract(item("P", "P01", "", wbs.KindLineItem), 0, 1, 1000, 1000)
	parent = withContract(parent, 1, 1, 500, 500)
	parent = withContract(parent, 2, 0, 0, 0)
	return []wbs.WorkItem{
		parent,
		withCost(item("m", "M", "P01", wbs.KindMaterial), 0, 3, 10, 30),
		withCost(item("l", "L", "P", wbs.KindLabor), 0, 7, 10, 70),
	}
}

func TestReallocate_ExampleScenario(t *testing.T) {
	// GIVEN: parent contract 1000, child costs 30 and 70, coefK 1
	items := decomposition()

	// WHEN
	out, report := wbs.Reallocate(items, wbs.ReallocateOptions{CoefK: 1, ReferenceCostVersion: 0})

	// THEN
	m := wbs.ReadSeries(byGUID(out, "m"), wbs.SeriesContract, 0)
	l := wbs.ReadSeries(byGUID(out, "l"), wbs.SeriesContract, 0)
	assert.InDelta(t, 300, m.Amount, 1e-9)
	assert.InDelta(t, 700, l.Amount, 1e-9)
	assert.Equal(t, 3.0, m.Quantity, "quantity comes from the cost reference")
	assert.InDelta(t, 100, m.Price, 1e-9)

	assert.InDelta(t, 150, wbs.ReadSeries(byGUID(out, "m"), wbs.SeriesContract, 1).Amount, 1e-9)
	assert.Equal(t, 2, report.Reallocated)
	assert.Equal(t, 1, report.Skipped, "version 2 has no contract amount")
}

func TestReallocate_DoesNotMutateInput(t *testing.T) {
	items := decomposition()
	before := wbs.CloneAll(items)

	_, _ = wbs.Reallocate(items, wbs.ReallocateOptions{CoefK: 1})

	if diff := cmp.Diff(before, items); diff != "" {
		t.Fatalf("input mutated (-before +after):\n%s", diff)
	}
}

func TestReallocate_ConservesParentAmount(t *testing.T) {
	parent := withContract(item("P", "P", "", wbs.KindLineItem), 0, 1, 0, 123456.789)
	items := []wbs.WorkItem{parent}
	costs := []float64{0.1, 3.3, 17, 1e5, 42.42, 0, 9.99}
	for i, c := range costs {
		child := withCost(item(string(rune('a'+i)), "", "P", wbs.KindMaterial), 2, float64(i), 1, c)
		items = append(items, child)
	}

	out, _ := wbs.Reallocate(items, wbs.ReallocateOptions{CoefK: 1.37, ReferenceCostVersion: 2})

	var sum float64
	for _, c := range out[1:] {
		sum += wbs.ReadSeries(&c, wbs.SeriesContract, 0).Amount
	}
	assert.Less(t, relErr(sum, 123456.789), 1e-9)
}

func TestReallocate_ZeroWeightLeavesChildrenUntouched(t *testing.T) {
	parent := withContract(item("P", "P", "", wbs.KindLineItem), 0, 1, 1000, 1000)
	a := withContract(item("a", "A", "P", wbs.KindMaterial), 0, 4, 2, 8)
	b := item("b", "B", "P", wbs.KindLabor)
	items := []wbs.WorkItem{parent, a, b}

	out, report := wbs.Reallocate(items, wbs.ReallocateOptions{CoefK: 1})

	assert.Equal(t, items[1].Contract, out[1].Contract)
	assert.Equal(t, items[2].Contract, out[2].Contract)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, wbs.OutcomeNoWeightBasis, report.Entries[0].Outcome)
}

func TestReallocate_NegativeWeightsCountInTheDenominator(t *testing.T) {
	// GIVEN: a 1000 parent whose children cost 100 and -50 (net 50)
	parent := withContract(item("P", "P", "", wbs.KindLineItem), 0, 1, 1000, 1000)
	a := withCost(item("a", "A", "P", wbs.KindMaterial), 0, 10, 10, 100)
	b := withCost(item("b", "B", "P", wbs.KindOther), 0, 1, -50, -50)
	items := []wbs.WorkItem{parent, a, b}

	// WHEN
	out, report := wbs.Reallocate(items, wbs.ReallocateOptions{CoefK: 1})

	// THEN: the positive child takes 100/50 of the parent, the negative one is not written
	require.Len(t, report.Entries, 1)
	assert.Equal(t, wbs.OutcomeReallocated, report.Entries[0].Outcome)
	assert.Equal(t, 1, report.Entries[0].Weighted)
	assert.InDelta(t, 2000, wbs.ReadSeries(&out[1], wbs.SeriesContract, 0).Amount, 1e-9)
	assert.InDelta(t, 200, wbs.ReadSeries(&out[1], wbs.SeriesContract, 0).Price, 1e-9)
	assert.Equal(t, items[2].Contract, out[2].Contract)
}

func TestReallocate_NetNegativeWeightsSkip(t *testing.T) {
	// GIVEN: children costing 100 and -150 (net -50)
	parent := withContract(item("P", "P", "", wbs.KindLineItem), 0, 1, 1000, 1000)
	a := withCost(item("a", "A", "P", wbs.KindMaterial), 0, 10, 10, 100)
	b := withCost(item("b", "B", "P", wbs.KindOther), 0, 1, -150, -150)
	items := []wbs.WorkItem{parent, a, b}

	// WHEN
	out, report := wbs.Reallocate(items, wbs.ReallocateOptions{CoefK: 1})

	// THEN: nothing is split
	require.Len(t, report.Entries, 1)
	assert.Equal(t, wbs.OutcomeNoWeightBasis, report.Entries[0].Outcome)
	assert.Equal(t, 0, report.Reallocated)
	assert.Equal(t, items[1].Contract, out[1].Contract)
	assert.Equal(t, items[2].Contract, out[2].Contract)
}

func TestReallocate_ZeroQuantityLeavesPriceUnset(t *testing.T) {
	parent := withContract(item("P", "P", "", wbs.KindLineItem), 0, 1, 100, 100)
	child := withCost(item("c", "C", "P", wbs.KindOther), 0, 0, 0, 50)
	items := []wbs.WorkItem{parent, child}

	out, _ := wbs.Reallocate(items, wbs.ReallocateOptions{CoefK: 1})

	r := wbs.ReadSeries(&out[1], wbs.SeriesContract, 0)
	assert.InDelta(t, 100, r.Amount, 1e-9)
	assert.Equal(t, 0.0, r.Quantity)
	assert.Equal(t, 0.0, r.Price)
}

func TestReallocate_UsesNormalizedParentAmount(t *testing.T) {
	// GIVEN: a decomposed parent tuple whose stored amount is stale
	parent := item("P", "P", "", wbs.KindLineItem)
	parent.SetTuple(wbs.SeriesContract, 0, wbs.Tuple{QuantityDecomposed: 2, Price: 50, Amount: 9999, LineType: wbs.LineDecomposed})
	child := withCost(item("c", "C", "P", wbs.KindMaterial), 0, 1, 1, 1)

	out, _ := wbs.Reallocate([]wbs.WorkItem{parent, child}, wbs.ReallocateOptions{CoefK: 1})

	assert.InDelta(t, 100, wbs.ReadSeries(&out[1], wbs.SeriesContract, 0).Amount, 1e-9)
}

func TestReallocate_ChaptersAreNotSplit(t *testing.T) {
	chapter := withContract(item("C", "C", "", wbs.KindChapter), 0, 1, 100, 100)
	child := withCost(item("c", "c", "C", wbs.KindLineItem), 0, 1, 1, 1)

	out, report := wbs.Reallocate([]wbs.WorkItem{chapter, child}, wbs.ReallocateOptions{CoefK: 1})

	assert.Empty(t, report.Entries)
	assert.Equal(t, 0.0, wbs.ReadSeries(&out[1], wbs.SeriesContract, 0).Amount)
}
