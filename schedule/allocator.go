/*
Package schedule spreads a node's value over calendar months.

PURPOSE:
  Schedules arrive from an external planning tool as one [start, end] range
  per node. Values are apportioned to months by working-day (Mon-Fri)
  coverage so the grid reads as a time-phased cash curve.

BOUNDARY RULES (kept exactly as observed in production data):
  1. The close-of-range day is not counted, either in the month that holds
     it or in the range's total working days.
  2. A month whose overlap with the range is a single day counts 1 if that
     day is a weekday, 0 otherwise. This check runs before rule 1, so a range
     that ends on the first day of a month still books one day there.
  3. A single-day range has 1 total working day on a weekday, else 0.

  Rule 2 means the month values of a range ending on the 1st can add up to
  more than the range total. See DESIGN.md.

SEE ALSO:
  - grid.go: month columns and the per-node grid
*/
package schedule

import (
	"math"
	"time"

	"github.com/warp/cost-engine/generic"
)

// =============================================================================
// WORKING-DAY COUNTERS
// =============================================================================

// WorkingDaysInMonth is the number of working days r contributes to the
// given month.
func WorkingDaysInMonth(r generic.Period, year int, month time.Month) int {
	overlap, ok := r.Overlap(generic.MonthPeriod(year, month))
	if !ok {
		return 0
	}
	if overlap.IsSingleDay() {
		return boolToInt(overlap.Start.IsWorkday())
	}
	last := overlap.End
	if r.End.InMonth(year, month) {
		last = last.AddDays(-1)
	}
	return countWorkdays(overlap.Start, last)
}

// TotalWorkingDays counts weekdays in [r.Start, r.End), or the single day of
// a one-day range.
func TotalWorkingDays(r generic.Period) int {
	if r.IsSingleDay() {
		return boolToInt(r.Start.IsWorkday())
	}
	return countWorkdays(r.Start, r.End.AddDays(-1))
}

// countWorkdays counts weekdays in the closed range [from, to].
func countWorkdays(from, to generic.TimePoint) int {
	n := 0
	for d := from; d.BeforeOrEqual(to); d = d.AddDays(1) {
		if d.IsWorkday() {
			n++
		}
	}
	return n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// MONTHLY VALUE
// =============================================================================

// MonthlyValue is the share of total that falls in (year, month) for a node
// scheduled over [start, end]. Non-overlapping months and ranges with no
// working days yield 0.
func MonthlyValue(total float64, start, end generic.TimePoint, year int, month time.Month) float64 {
	r := generic.Period{Start: start, End: end}
	if !r.Intersects(generic.MonthPeriod(year, month)) {
		return 0
	}
	totalDays := TotalWorkingDays(r)
	if totalDays == 0 {
		return 0
	}
	v := total / float64(totalDays) * float64(WorkingDaysInMonth(r, year, month))
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
