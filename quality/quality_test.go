package quality_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cost-engine/quality"
	"github.com/warp/cost-engine/wbs"
)

// project builds n LineItems. amounts[v] is how many of them carry a
// positive contract and cost amount in version v.
func project(n int, withData ...int) []wbs.WorkItem {
	items := []wbs.WorkItem{{GUID: "ch", Kind: wbs.KindChapter}}
	for i := range n {
		w := wbs.WorkItem{GUID: fmt.Sprintf("p%d", i), ParentCode: "ch", Kind: wbs.KindLineItem}
		for v, k := range withData {
			amt := 0.0
			if i < k {
				amt = 100
			}
			w.SetTuple(wbs.SeriesContract, v, wbs.Tuple{Amount: amt})
			w.SetTuple(wbs.SeriesCost, v, wbs.Tuple{Amount: amt})
		}
		items = append(items, w)
	}
	return items
}

func TestAnalyze_EmptyDatasetSingleError(t *testing.T) {
	issues := quality.Analyze(nil, []int{0, 1}, []int{0, 1}, quality.ScopeBoth)

	require.Len(t, issues, 1)
	assert.Equal(t, quality.SeverityError, issues[0].Severity)
}

func TestAnalyze_HealthyRevisionsHaveNoIssues(t *testing.T) {
	items := project(10, 10, 9)

	assert.Empty(t, quality.Analyze(items, []int{0, 1}, []int{0, 1}, quality.ScopeBoth))
}

func TestAnalyze_ReductionWarning(t *testing.T) {
	// GIVEN: v1 keeps 4 of 10 rows (60% reduction)
	items := project(10, 10, 4)

	issues := quality.Analyze(items, []int{0, 1}, nil, quality.ScopeContract)

	require.Len(t, issues, 1)
	assert.Equal(t, quality.SeverityWarning, issues[0].Severity)
	assert.Equal(t, wbs.SeriesContract, issues[0].Series)
	assert.Equal(t, 1, issues[0].Version)
	assert.Contains(t, issues[0].Details, "Reduction: 60.0%")
}

func TestAnalyze_ReductionErrorAndZeroRows(t *testing.T) {
	// GIVEN: v2 keeps 1 of 10 rows (90% reduction, 90% zero rows)
	items := project(10, 10, 10, 1)

	issues := quality.Analyze(items, []int{0, 1, 2}, []int{0, 2}, quality.ScopeBoth)

	require.Len(t, issues, 4)
	assert.Equal(t, quality.SeverityError, issues[0].Severity)
	assert.Equal(t, wbs.SeriesContract, issues[0].Series)
	assert.Equal(t, 2, issues[0].Version)
	assert.Equal(t, quality.SeverityWarning, issues[1].Severity)
	assert.Contains(t, issues[1].Message, "90%")
	assert.Equal(t, wbs.SeriesCost, issues[2].Series)
}

func TestAnalyze_SingleVersionIsNotChecked(t *testing.T) {
	items := project(10, 0)

	assert.Empty(t, quality.Analyze(items, []int{0}, []int{0}, quality.ScopeBoth))
}

func TestStats(t *testing.T) {
	items := project(4, 3)
	items[4].SetTuple(wbs.SeriesCost, 0, wbs.Tuple{Amount: -5})

	st := quality.Stats(items, wbs.SeriesCost, []int{0})

	require.Len(t, st, 1)
	assert.Equal(t, 5, st[0].TotalRows)
	assert.Equal(t, 4, st[0].LineItems)
	assert.Equal(t, 1, st[0].Chapters)
	assert.Equal(t, 3, st[0].RowsWithData)
	assert.Equal(t, 0, st[0].ZeroRows, "negative amounts are neither data nor zero")
	assert.InDelta(t, 295.0/3, st[0].AvgAmount, 1e-9)
}

func TestLinkageIssues(t *testing.T) {
	items := []wbs.WorkItem{
		{GUID: "a", ParentCode: "missing"},
		{GUID: "b", ParentCode: "c"},
		{GUID: "c", ParentCode: "b"},
	}

	issues := quality.LinkageIssues(wbs.Resolve(items))

	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Message, "1 items")
	assert.Equal(t, "Cyclic parent links", issues[1].Title)
}
