package schedule

import (
	"fmt"
	"time"

	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/wbs"
)

// =============================================================================
// MONTH COLUMNS
// =============================================================================

// SpanishMonthLabels are the default short labels.
var SpanishMonthLabels = []string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

type MonthColumn struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Number int        `json:"number"` // 1-based position in the grid
	Label  string     `json:"label"`  // "Ene 2024"
	// DateLabel is the first day of the month as d/m/yy.
	DateLabel string `json:"date_label"`
}

// Key is a stable "2024-01" identifier for the column.
func (c MonthColumn) Key() string {
	return fmt.Sprintf("%04d-%02d", c.Year, int(c.Month))
}

// MonthColumns spans every month from the earliest to the latest scheduled
// date of any node in the forest. labels must hold 12 entries; anything else
// falls back to SpanishMonthLabels.
func MonthColumns(forest []*wbs.TreeNode, dates map[string]generic.Period, labels []string) []MonthColumn {
	if len(labels) != 12 {
		labels = SpanishMonthLabels
	}

	var lo, hi generic.TimePoint
	found := false
	wbs.Walk(forest, func(n *wbs.TreeNode) {
		p, ok := dates[n.Item.GUID]
		if !ok {
			return
		}
		for _, d := range []generic.TimePoint{p.Start, p.End} {
			if !found {
				lo, hi, found = d, d, true
				continue
			}
			lo = generic.MinTime(lo, d)
			hi = generic.MaxTime(hi, d)
		}
	})
	if !found {
		return nil
	}

	span := generic.Period{Start: lo, End: hi}
	months := span.Months()
	cols := make([]MonthColumn, len(months))
	for i, m := range months {
		cols[i] = MonthColumn{
			Year:      m.Year(),
			Month:     m.Month(),
			Number:    i + 1,
			Label:     fmt.Sprintf("%s %d", labels[m.Month()-1], m.Year()),
			DateLabel: fmt.Sprintf("1/%d/%02d", int(m.Month()), m.Year()%100),
		}
	}
	return cols
}

// =============================================================================
// GRID
// =============================================================================

type Measure string

const (
	MeasureAmount   Measure = "amount"
	MeasureQuantity Measure = "quantity"
)

func ParseMeasure(s string) (Measure, error) {
	switch s {
	case "", "amount", "importe":
		return MeasureAmount, nil
	case "quantity", "cantidad":
		return MeasureQuantity, nil
	}
	return "", fmt.Errorf("%w: unknown measure %q", generic.ErrInvalidSeries, s)
}

// Selector picks the figure spread over the calendar. CoefK multiplies cost
// amounts only.
type Selector struct {
	Series  wbs.Series `json:"series"`
	Version int        `json:"version"`
	Measure Measure    `json:"measure"`
	CoefK   float64    `json:"coef_k"`
}

// Value reads the selected figure for one item.
func (s Selector) Value(item *wbs.WorkItem) float64 {
	r := wbs.ReadAdjusted(item, s.Series, s.Version, s.CoefK)
	if s.Measure == MeasureQuantity {
		return r.Quantity
	}
	return r.Amount
}

// GridRow is one node of the calendar grid.
type GridRow struct {
	GUID    string   `json:"guid"`
	Code    string   `json:"code"`
	Summary string   `json:"summary,omitempty"`
	Kind    wbs.Kind `json:"kind"`
	Depth   int      `json:"depth"`
	Value   float64  `json:"value"`

	Scheduled bool              `json:"scheduled"`
	Start     generic.TimePoint `json:"start,omitzero"`
	End       generic.TimePoint `json:"end,omitzero"`

	DurationDays   int     `json:"duration_days"`
	DurationMonths float64 `json:"duration_months"`
	DailyRate      float64 `json:"daily_rate"`

	// Months is aligned with Grid.Columns.
	Months []float64 `json:"months"`
}

// GridTotals sums LineItem rows only, so chapters and decomposition children
// are not counted twice.
type GridTotals struct {
	Value   float64           `json:"value"`
	MinDate generic.TimePoint `json:"min_date,omitzero"`
	MaxDate generic.TimePoint `json:"max_date,omitzero"`
	Months  []float64         `json:"months"`
}

type Grid struct {
	Selector Selector      `json:"selector"`
	Columns  []MonthColumn `json:"columns"`
	Rows     []GridRow     `json:"rows"`
	Totals   GridTotals    `json:"totals"`
}

// BuildGrid lays the forest out depth-first in input order, one row per node.
// Nodes without a date range get a row of zeros.
func BuildGrid(forest []*wbs.TreeNode, dates map[string]generic.Period, sel Selector, labels []string) Grid {
	cols := MonthColumns(forest, dates, labels)
	g := Grid{
		Selector: sel,
		Columns:  cols,
		Totals:   GridTotals{Months: make([]float64, len(cols))},
	}

	wbs.Walk(forest, func(n *wbs.TreeNode) {
		row := GridRow{
			GUID:    n.Item.GUID,
			Code:    n.Item.Code,
			Summary: n.Item.Summary,
			Kind:    n.Item.Kind,
			Depth:   n.Depth,
			Value:   sel.Value(n.Item),
			Months:  make([]float64, len(cols)),
		}
		p, scheduled := dates[n.Item.GUID]
		if scheduled {
			row.Scheduled = true
			row.Start, row.End = p.Start, p.End
			row.DurationDays = p.CalendarDays()
			row.DurationMonths = float64(row.DurationDays) / 30
			if row.DurationDays > 0 {
				row.DailyRate = row.Value / float64(row.DurationDays)
			}
			for i, c := range cols {
				row.Months[i] = MonthlyValue(row.Value, p.Start, p.End, c.Year, c.Month)
			}
		}

		if n.Item.Kind == wbs.KindLineItem {
			g.Totals.add(row)
		}
		g.Rows = append(g.Rows, row)
	})
	return g
}

func (t *GridTotals) add(row GridRow) {
	t.Value += row.Value
	if !row.Scheduled {
		return
	}
	if t.MinDate.IsZero() || row.Start.Before(t.MinDate) {
		t.MinDate = row.Start
	}
	if t.MaxDate.IsZero() || row.End.After(t.MaxDate) {
		t.MaxDate = row.End
	}
	for i, v := range row.Months {
		t.Months[i] += v
	}
}
