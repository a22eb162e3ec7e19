/*
quality.go - Data-quality checks over a loaded project

PURPOSE:
  Partial uploads are common: a new contract or cost revision arrives with
  only some of its lines. These checks compare every selected revision with
  the first one and flag revisions that look incomplete, so an estimator
  does not read a half-loaded version as a real change.

RULES (per series, LineItem rows only):
  - "rows with data" are rows whose amount is > 0
  - reduction = (base rows with data - rows with data) / base × 100
      > 50% => warning, > 80% => error
  - zero-amount rows above 80% of LineItems => warning
  - the first selected version is the baseline and is not itself checked
  - an empty dataset yields a single error and nothing else

  Linkage problems (unmatched parent codes, broken cycles) are reported as
  warnings; they never fail a run.
*/
package quality

import (
	"fmt"

	"github.com/warp/cost-engine/wbs"
)

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

type Issue struct {
	Severity Severity   `json:"severity"`
	Series   wbs.Series `json:"series,omitempty"`
	Version  int        `json:"version"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Details  []string   `json:"details,omitempty"`
}

// Scope restricts which series are checked.
type Scope string

const (
	ScopeBoth     Scope = "both"
	ScopeContract Scope = "contract"
	ScopeCost     Scope = "cost"
)

func (s Scope) includes(series wbs.Series) bool {
	switch s {
	case ScopeContract:
		return series == wbs.SeriesContract
	case ScopeCost:
		return series == wbs.SeriesCost
	}
	return true
}

const (
	reductionWarnPct  = 50.0
	reductionErrorPct = 80.0
	zeroRowsShare     = 0.8
)

// VersionStats summarizes one (series, version) over LineItem rows.
type VersionStats struct {
	Series       wbs.Series `json:"series"`
	Version      int        `json:"version"`
	TotalRows    int        `json:"total_rows"`
	LineItems    int        `json:"line_items"`
	Chapters     int        `json:"chapters"`
	RowsWithData int        `json:"rows_with_data"`
	ZeroRows     int        `json:"zero_rows"`
	AvgAmount    float64    `json:"avg_amount"`
}

// Stats computes VersionStats for every requested version, in order.
func Stats(items []wbs.WorkItem, s wbs.Series, versions []int) []VersionStats {
	lines := wbs.LineItems(items)
	chapters := 0
	for i := range items {
		if items[i].Kind == wbs.KindChapter {
			chapters++
		}
	}

	out := make([]VersionStats, 0, len(versions))
	for _, v := range versions {
		st := VersionStats{Series: s, Version: v, TotalRows: len(items), LineItems: len(lines), Chapters: chapters}
		var total float64
		for _, it := range lines {
			amt := wbs.ReadSeries(it, s, v).Amount
			switch {
			case amt > 0:
				st.RowsWithData++
			case amt == 0:
				st.ZeroRows++
			}
			total += amt
		}
		if st.RowsWithData > 0 {
			st.AvgAmount = total / float64(st.RowsWithData)
		}
		out = append(out, st)
	}
	return out
}

// Analyze runs the revision checks for the selected series.
func Analyze(items []wbs.WorkItem, contractVersions, costVersions []int, scope Scope) []Issue {
	if len(items) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Title:    "No data available",
			Message:  "No records were loaded for this project.",
		}}
	}

	var issues []Issue
	if scope.includes(wbs.SeriesContract) {
		issues = append(issues, detect(Stats(items, wbs.SeriesContract, contractVersions))...)
	}
	if scope.includes(wbs.SeriesCost) {
		issues = append(issues, detect(Stats(items, wbs.SeriesCost, costVersions))...)
	}
	return issues
}

func detect(stats []VersionStats) []Issue {
	if len(stats) < 2 {
		return nil
	}
	base := stats[0]

	var issues []Issue
	for _, cur := range stats[1:] {
		var reduction float64
		if base.RowsWithData > 0 {
			reduction = float64(base.RowsWithData-cur.RowsWithData) / float64(base.RowsWithData) * 100
		}
		if reduction > reductionWarnPct {
			sev := SeverityWarning
			if reduction > reductionErrorPct {
				sev = SeverityError
			}
			issues = append(issues, Issue{
				Severity: sev,
				Series:   cur.Series,
				Version:  cur.Version,
				Title:    fmt.Sprintf("Incomplete %s data in version %d", cur.Series, cur.Version),
				Message: fmt.Sprintf("Version %d has significantly less data than version %d; it may be a partial load.",
					cur.Version, base.Version),
				Details: []string{
					fmt.Sprintf("Version %d: %d line items with data", base.Version, base.RowsWithData),
					fmt.Sprintf("Version %d: %d line items with data", cur.Version, cur.RowsWithData),
					fmt.Sprintf("Reduction: %.1f%%", reduction),
					fmt.Sprintf("Line items without amount in v%d: %d", cur.Version, cur.ZeroRows),
				},
			})
		}

		if float64(cur.ZeroRows) > float64(cur.LineItems)*zeroRowsShare {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Series:   cur.Series,
				Version:  cur.Version,
				Title:    fmt.Sprintf("Many line items without amount in %s v%d", cur.Series, cur.Version),
				Message: fmt.Sprintf("%.0f%% of line items have a zero or empty amount.",
					float64(cur.ZeroRows)/float64(cur.LineItems)*100),
				Details: []string{
					fmt.Sprintf("Line items: %d", cur.LineItems),
					fmt.Sprintf("Without amount: %d", cur.ZeroRows),
					fmt.Sprintf("With data: %d", cur.RowsWithData),
				},
			})
		}
	}
	return issues
}

// LinkageIssues reports parent codes that matched nothing and links dropped
// to break cycles.
func LinkageIssues(links *wbs.Links) []Issue {
	var issues []Issue
	if n := links.Unmatched(); n > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Title:    "Unmatched parent codes",
			Message:  fmt.Sprintf("%d items reference a parent that does not exist and are shown as roots.", n),
		})
	}
	if n := links.Reasons[wbs.OrphanCycle]; n > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Title:    "Cyclic parent links",
			Message:  fmt.Sprintf("%d parent links formed cycles and were dropped.", n),
		})
	}
	return issues
}
