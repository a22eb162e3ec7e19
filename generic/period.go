package generic

import "time"

// =============================================================================
// PERIOD - Closed date range [Start, End]
// =============================================================================

// Period is a scheduled date range. Schedules come from an external planning
// tool; the engine never computes them, it only distributes values over them.
type Period struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
}

// NewPeriod validates that end is not before start.
func NewPeriod(start, end TimePoint) (Period, error) {
	if end.Before(start) {
		return Period{}, ErrInvalidRange
	}
	return Period{Start: start, End: end}, nil
}

// MonthPeriod is the full calendar month.
func MonthPeriod(year int, month time.Month) Period {
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// IsSingleDay reports whether the range starts and ends on the same day.
func (p Period) IsSingleDay() bool {
	return p.Start.Equal(p.End)
}

// Intersects reports whether two closed ranges share at least one day.
func (p Period) Intersects(other Period) bool {
	return !p.End.Before(other.Start) && !p.Start.After(other.End)
}

// Overlap returns the shared sub-range. ok is false when they do not intersect.
func (p Period) Overlap(other Period) (Period, bool) {
	if !p.Intersects(other) {
		return Period{}, false
	}
	return Period{Start: MaxTime(p.Start, other.Start), End: MinTime(p.End, other.End)}, true
}

// Months lists the first day of every calendar month the period touches.
func (p Period) Months() []TimePoint {
	var months []TimePoint
	current := StartOfMonth(p.Start.Year(), p.Start.Month())
	last := StartOfMonth(p.End.Year(), p.End.Month())
	for current.BeforeOrEqual(last) {
		months = append(months, current)
		current = current.AddMonths(1)
	}
	return months
}

// CalendarDays is the rounded calendar-day length End - Start.
func (p Period) CalendarDays() int {
	return DaysBetween(p.Start, p.End)
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
