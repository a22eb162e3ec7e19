package schedule_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/schedule"
	"github.com/warp/cost-engine/wbs"
)

func day(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

func period(a, b generic.TimePoint) generic.Period {
	return generic.Period{Start: a, End: b}
}

// sumMonths adds MonthlyValue over every month the range touches.
func sumMonths(total float64, start, end generic.TimePoint) float64 {
	var sum float64
	for _, m := range period(start, end).Months() {
		sum += schedule.MonthlyValue(total, start, end, m.Year(), m.Month())
	}
	return sum
}

// =============================================================================
// WORKING DAYS
// =============================================================================

func TestTotalWorkingDays_ExcludesCloseOfRange(t *testing.T) {
	// 2024-01-01 is a Monday
	assert.Equal(t, 4, schedule.TotalWorkingDays(period(day(2024, 1, 1), day(2024, 1, 5))))
	assert.Equal(t, 5, schedule.TotalWorkingDays(period(day(2024, 1, 1), day(2024, 1, 6))))
	assert.Equal(t, 0, schedule.TotalWorkingDays(period(day(2024, 1, 6), day(2024, 1, 8))), "Sat..Mon excludes Monday")
}

func TestTotalWorkingDays_SingleDay(t *testing.T) {
	assert.Equal(t, 1, schedule.TotalWorkingDays(period(day(2024, 1, 10), day(2024, 1, 10))))
	assert.Equal(t, 0, schedule.TotalWorkingDays(period(day(2024, 1, 13), day(2024, 1, 13))))
}

func TestWorkingDaysInMonth_LastMonthDropsEndDate(t *testing.T) {
	r := period(day(2024, 1, 29), day(2024, 2, 7))

	assert.Equal(t, 3, schedule.WorkingDaysInMonth(r, 2024, time.January), "Mon 29 .. Wed 31")
	assert.Equal(t, 4, schedule.WorkingDaysInMonth(r, 2024, time.February), "Thu 1 .. Tue 6")
	assert.Equal(t, 0, schedule.WorkingDaysInMonth(r, 2024, time.March))
}

func TestWorkingDaysInMonth_SingleDayOverlapIsNotTrimmed(t *testing.T) {
	// GIVEN: a range closing on Thursday 1 February
	r := period(day(2024, 1, 29), day(2024, 2, 1))

	// THEN: February still books the closing day, while the total excludes it
	assert.Equal(t, 1, schedule.WorkingDaysInMonth(r, 2024, time.February))
	assert.Equal(t, 3, schedule.TotalWorkingDays(r))
}

// =============================================================================
// MONTHLY VALUE
// =============================================================================

func TestMonthlyValue_SingleWednesday(t *testing.T) {
	wed := day(2024, 1, 10)

	assert.Equal(t, 500.0, schedule.MonthlyValue(500, wed, wed, 2024, time.January))
	assert.Equal(t, 0.0, schedule.MonthlyValue(500, wed, wed, 2024, time.February))
	assert.Equal(t, 0.0, schedule.MonthlyValue(500, wed, wed, 2023, time.December))
}

func TestMonthlyValue_SingleDayWeekendIsZero(t *testing.T) {
	sat := day(2024, 1, 13)
	assert.Equal(t, 0.0, schedule.MonthlyValue(500, sat, sat, 2024, time.January))
}

func TestMonthlyValue_SingleDayAnyWeekday(t *testing.T) {
	for d := day(2024, 3, 1); d.Before(day(2024, 4, 1)); d = d.AddDays(1) {
		want := 0.0
		if d.IsWorkday() {
			want = 1234.5
		}
		assert.Equal(t, want, schedule.MonthlyValue(1234.5, d, d, 2024, time.March), d.String())
	}
}

func TestMonthlyValue_FullMonthCoverage(t *testing.T) {
	got := sumMonths(1000, day(2024, 1, 1), day(2024, 1, 31))
	assert.InDelta(t, 1000, got, 1e-9)
}

func TestMonthlyValue_MultiMonthCoverage(t *testing.T) {
	ranges := []generic.Period{
		period(day(2024, 1, 15), day(2024, 3, 20)),
		period(day(2023, 11, 30), day(2024, 2, 29)),
		period(day(2024, 5, 6), day(2024, 5, 10)),
	}
	for _, r := range ranges {
		assert.InDelta(t, 7777, sumMonths(7777, r.Start, r.End), 1e-6, r.String())
	}
}

func TestMonthlyValue_SplitsByWorkingDays(t *testing.T) {
	// GIVEN: 3 working days in January, 4 in February
	start, end := day(2024, 1, 29), day(2024, 2, 7)

	assert.InDelta(t, 300, schedule.MonthlyValue(700, start, end, 2024, time.January), 1e-9)
	assert.InDelta(t, 400, schedule.MonthlyValue(700, start, end, 2024, time.February), 1e-9)
}

func TestMonthlyValue_RangeEndingOnFirstOverbooks(t *testing.T) {
	// GIVEN: Mon 29 Jan to Thu 1 Feb, three working days in the total
	start, end := day(2024, 1, 29), day(2024, 2, 1)

	// WHEN
	jan := schedule.MonthlyValue(300, start, end, 2024, time.January)
	feb := schedule.MonthlyValue(300, start, end, 2024, time.February)

	// THEN: January gets the whole total and the single-day February overlap
	// still books one day, so the months add up to more than the total
	assert.Equal(t, 3, schedule.TotalWorkingDays(period(start, end)))
	assert.InDelta(t, 300, jan, 1e-9)
	assert.InDelta(t, 100, feb, 1e-9)
	assert.InDelta(t, 400, sumMonths(300, start, end), 1e-9)
}

func TestMonthlyValue_NoWorkingDaysYieldsZero(t *testing.T) {
	assert.Equal(t, 0.0, schedule.MonthlyValue(100, day(2024, 1, 6), day(2024, 1, 8), 2024, time.January))
}

// =============================================================================
// MONTH COLUMNS & GRID
// =============================================================================

func forestOf(items []wbs.WorkItem) []*wbs.TreeNode {
	return wbs.Assemble(items, wbs.Resolve(items))
}

func TestMonthColumns_SpanMinToMax(t *testing.T) {
	items := []wbs.WorkItem{
		{GUID: "a", Code: "A", Kind: wbs.KindChapter},
		{GUID: "b", Code: "B", ParentCode: "A", Kind: wbs.KindLineItem},
		{GUID: "c", Code: "C", ParentCode: "A", Kind: wbs.KindLineItem},
	}
	dates := map[string]generic.Period{
		"b": period(day(2023, 11, 20), day(2024, 1, 3)),
		"c": period(day(2024, 1, 10), day(2024, 2, 2)),
	}

	cols := schedule.MonthColumns(forestOf(items), dates, nil)

	require.Len(t, cols, 4)
	assert.Equal(t, "Nov 2023", cols[0].Label)
	assert.Equal(t, "1/11/23", cols[0].DateLabel)
	assert.Equal(t, 1, cols[0].Number)
	assert.Equal(t, "Ene 2024", cols[2].Label)
	assert.Equal(t, 4, cols[3].Number)
	assert.Equal(t, "2024-02", cols[3].Key())
}

func TestMonthColumns_NoDates(t *testing.T) {
	items := []wbs.WorkItem{{GUID: "a"}}
	assert.Empty(t, schedule.MonthColumns(forestOf(items), nil, nil))
}

func TestMonthColumns_CustomLabels(t *testing.T) {
	items := []wbs.WorkItem{{GUID: "a"}}
	dates := map[string]generic.Period{"a": period(day(2024, 1, 2), day(2024, 1, 3))}
	labels := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

	cols := schedule.MonthColumns(forestOf(items), dates, labels)

	require.Len(t, cols, 1)
	assert.Equal(t, "Jan 2024", cols[0].Label)
}

func TestBuildGrid_RowsAndTotals(t *testing.T) {
	// GIVEN: a chapter with one scheduled and one unscheduled line item
	items := []wbs.WorkItem{
		{GUID: "ch", Code: "01", Kind: wbs.KindChapter},
		{GUID: "p1", Code: "01.01", ParentCode: "01", Kind: wbs.KindLineItem},
		{GUID: "p2", Code: "01.02", ParentCode: "01", Kind: wbs.KindLineItem},
	}
	items[1].SetTuple(wbs.SeriesCost, 0, wbs.Tuple{Quantity: 10, Price: 70, Amount: 700})
	items[2].SetTuple(wbs.SeriesCost, 0, wbs.Tuple{Quantity: 1, Price: 50, Amount: 50})
	dates := map[string]generic.Period{"p1": period(day(2024, 1, 29), day(2024, 2, 8))}

	// WHEN
	g := schedule.BuildGrid(forestOf(items), dates, schedule.Selector{
		Series: wbs.SeriesCost, Version: 0, Measure: schedule.MeasureAmount, CoefK: 1.1,
	}, nil)

	// THEN
	require.Len(t, g.Columns, 2)
	require.Len(t, g.Rows, 3)
	assert.Equal(t, []string{"ch", "p1", "p2"}, []string{g.Rows[0].GUID, g.Rows[1].GUID, g.Rows[2].GUID})

	p1 := g.Rows[1]
	assert.Equal(t, 1, p1.Depth)
	assert.InDelta(t, 770, p1.Value, 1e-9)
	assert.Equal(t, 10, p1.DurationDays)
	assert.InDelta(t, 10.0/30, p1.DurationMonths, 1e-12)
	assert.InDelta(t, 77, p1.DailyRate, 1e-9)
	// 3 working days in January, 5 in February (Thu 1 .. Wed 7)
	assert.InDelta(t, 770.0*3/8, p1.Months[0], 1e-9)
	assert.InDelta(t, 770.0*5/8, p1.Months[1], 1e-9)

	p2 := g.Rows[2]
	assert.False(t, p2.Scheduled)
	assert.Equal(t, []float64{0, 0}, p2.Months)

	assert.InDelta(t, 770+55, g.Totals.Value, 1e-9)
	assert.InDelta(t, 770, g.Totals.Months[0]+g.Totals.Months[1], 1e-9)
	assert.Equal(t, day(2024, 1, 29), g.Totals.MinDate)
}

func TestBuildGrid_QuantityIgnoresCoefK(t *testing.T) {
	items := []wbs.WorkItem{{GUID: "p", Kind: wbs.KindLineItem}}
	items[0].SetTuple(wbs.SeriesCost, 0, wbs.Tuple{Quantity: 12, Price: 1, Amount: 12})

	g := schedule.BuildGrid(forestOf(items), nil, schedule.Selector{
		Series: wbs.SeriesCost, Measure: schedule.MeasureQuantity, CoefK: 2,
	}, nil)

	assert.Equal(t, 12.0, g.Rows[0].Value)
	assert.Empty(t, g.Columns)
}
