package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/warp/cost-engine/analysis"
	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/quality"
	"github.com/warp/cost-engine/schedule"
	"github.com/warp/cost-engine/variance"
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true)
	styleDim    = lipgloss.NewStyle().Faint(true)
	styleTitle  = lipgloss.NewStyle().Bold(true).Underline(true)
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// RenderTable renders an aligned table with a header separator line.
// Numeric cells are right-aligned.
func RenderTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}
	cols := len(headers)

	widths := make([]int, cols)
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < cols && i < len(row); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	const colGap = 2
	var b strings.Builder

	for i, h := range headers {
		b.WriteString(styleHeader.Render(h))
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(h)+colGap))
		}
	}
	b.WriteString("\n")

	for i, w := range widths {
		b.WriteString(styleDim.Render(strings.Repeat("─", w)))
		if i < cols-1 {
			b.WriteString(strings.Repeat(" ", colGap))
		}
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if isNumeric(cell) {
				b.WriteString(pad + cell)
			} else {
				b.WriteString(cell)
				if i < cols-1 {
					b.WriteString(pad)
				}
			}
			if i < cols-1 {
				b.WriteString(strings.Repeat(" ", colGap))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	return err == nil
}

// money formats a figure with two decimals.
func money(v float64) string {
	return strconv.FormatFloat(generic.Round2(v), 'f', 2, 64)
}

func pct(v float64) string { return money(v) + "%" }

// =============================================================================
// RENDERERS
// =============================================================================

func FormatProjects(pvs []generic.ProjectVersion) string {
	if len(pvs) == 0 {
		return styleDim.Render("no projects") + "\n"
	}
	rows := make([][]string, 0, len(pvs))
	for _, pv := range pvs {
		rows = append(rows, []string{pv.Project, strconv.Itoa(pv.Version)})
	}
	return RenderTable([]string{"PROJECT", "VERSION"}, rows)
}

func FormatVersions(project string, ds generic.Dataset, vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return fmt.Sprintf("%s %s versions: %s\n", project, ds, strings.Join(parts, ", "))
}

// FormatAnalysis renders totals, parent linkage and the certainty table.
func FormatAnalysis(res *analysis.Result) string {
	var b strings.Builder
	req := res.Request
	t := res.Totals

	fmt.Fprintf(&b, "%s\n", styleTitle.Render(fmt.Sprintf("%s v%d", req.Project, req.AnalysisVersion)))
	fmt.Fprintf(&b, "contract v%d  cost v%d  coefK %s  run %s\n\n",
		req.ContractVersion, req.CostVersion, strconv.FormatFloat(req.CoefK, 'f', -1, 64), res.RunID)

	b.WriteString(RenderTable(
		[]string{"LINE ITEMS", "CONTRACT", "COST", "COST×K", "DIFFERENCE", "VARIANCE"},
		[][]string{{strconv.Itoa(t.LineItems), money(t.Contract), money(t.Cost), money(t.CostK), money(t.Difference), pct(t.Variance)}},
	))
	b.WriteString("\n")

	l := res.Links
	fmt.Fprintf(&b, "items %d  roots %d  unmatched parents %d  reallocated %d  skipped %d\n\n",
		l.Items, l.Roots, l.Unmatched, res.Reallocation.Reallocated, res.Reallocation.Skipped)

	b.WriteString(FormatCertainty(res.Certainty))
	if n := len(res.Quality); n > 0 {
		fmt.Fprintf(&b, "\n%s\n", styleWarn.Render(fmt.Sprintf("%d data-quality issue(s); run `costctl quality`", n)))
	}
	return b.String()
}

func FormatCertainty(c variance.Certainty) string {
	rows := make([][]string, 0, len(c.Bands)+2)
	for _, bt := range c.Bands {
		rows = append(rows, []string{
			strconv.Itoa(bt.Classification), bt.Description, pct(bt.Percent), strconv.Itoa(bt.Items),
			money(bt.Planned), money(bt.Optimistic), money(bt.Pessimistic),
		})
	}
	rows = append(rows,
		[]string{"", "COST", "", "", money(c.Cost.Planned), money(c.Cost.Optimistic), money(c.Cost.Pessimistic)},
		[]string{"", "RESULT", "", "", money(c.Result.Planned), money(c.Result.Optimistic), money(c.Result.Pessimistic)},
	)
	out := RenderTable([]string{"CLASS", "DESCRIPTION", "BAND", "ITEMS", "PLANNED", "OPTIMISTIC", "PESSIMISTIC"}, rows)
	out += fmt.Sprintf("sale %s", money(c.Sale))
	if c.Unclassified > 0 {
		out += fmt.Sprintf("  unclassified %d", c.Unclassified)
	}
	return out + "\n"
}

func FormatDeviations(r variance.Ranking) string {
	var b strings.Builder
	section := func(title string, ds []variance.Deviation, sub variance.Subtotal) {
		b.WriteString(styleTitle.Render(title) + "\n")
		rows := make([][]string, 0, len(ds)+1)
		for _, d := range ds {
			rows = append(rows, []string{
				d.Code, d.Summary, d.Unit, money(d.Contract.Amount), money(d.CostK.Amount),
				money(d.AmountDiff), money(d.QuantityDiff), pct(d.Variance),
			})
		}
		rows = append(rows, []string{
			"", "SUBTOTAL", "", money(sub.Contract), money(sub.CostK),
			money(sub.AmountDiff), money(sub.QuantityDiff), pct(sub.Variance),
		})
		b.WriteString(RenderTable([]string{"CODE", "SUMMARY", "UNIT", "CONTRACT", "COST×K", "DIFF", "QTY DIFF", "VAR"}, rows))
	}
	section(fmt.Sprintf("Most negative (by %s)", r.OrderBy), r.Negative, r.NegativeSubtotal)
	b.WriteString("\n")
	section(fmt.Sprintf("Most positive (by %s)", r.OrderBy), r.Positive, r.PositiveSubtotal)
	return b.String()
}

// FormatGrid renders the scheduled rows of a calendar grid.
func FormatGrid(g *schedule.Grid) string {
	headers := []string{"CODE", "START", "END", "DAYS", "VALUE"}
	for _, c := range g.Columns {
		headers = append(headers, c.Label)
	}

	var rows [][]string
	for _, r := range g.Rows {
		if !r.Scheduled {
			continue
		}
		row := []string{
			strings.Repeat("  ", r.Depth) + r.Code, r.Start.String(), r.End.String(),
			strconv.Itoa(r.DurationDays), money(r.Value),
		}
		for _, m := range r.Months {
			row = append(row, money(m))
		}
		rows = append(rows, row)
	}
	total := []string{"TOTAL", g.Totals.MinDate.String(), g.Totals.MaxDate.String(), "", money(g.Totals.Value)}
	for _, m := range g.Totals.Months {
		total = append(total, money(m))
	}
	rows = append(rows, total)

	title := fmt.Sprintf("%s v%d %s", g.Selector.Series, g.Selector.Version, g.Selector.Measure)
	return styleTitle.Render(title) + "\n" + RenderTable(headers, rows)
}

func FormatComparison(c *variance.Comparison) string {
	rows := make([][]string, 0, len(c.Items)+1)
	for _, d := range c.Items {
		if d.A.Amount == 0 && d.B.Amount == 0 {
			continue
		}
		rows = append(rows, []string{
			d.Code, string(d.Kind), money(d.A.Amount), money(d.B.Amount), money(d.AmountDiff), pct(d.Variance),
		})
	}
	rows = append(rows, []string{"TOTAL", "", money(c.TotalA), money(c.TotalB), money(c.Difference), pct(c.Variance)})

	a, b := c.Request.A, c.Request.B
	title := fmt.Sprintf("%s v%d → v%d", c.Request.Series, a, b)
	return styleTitle.Render(title) + "\n" +
		RenderTable([]string{"CODE", "KIND", fmt.Sprintf("V%d", a), fmt.Sprintf("V%d", b), "DIFF", "VAR"}, rows)
}

func FormatIssues(issues []quality.Issue) string {
	if len(issues) == 0 {
		return styleDim.Render("no issues") + "\n"
	}
	var b strings.Builder
	for _, is := range issues {
		sev := styleWarn.Render(string(is.Severity))
		if is.Severity == quality.SeverityError {
			sev = styleError.Render(string(is.Severity))
		}
		scope := ""
		if is.Series != "" {
			scope = fmt.Sprintf(" [%s v%d]", is.Series, is.Version)
		}
		fmt.Fprintf(&b, "%s%s %s: %s\n", sev, scope, is.Title, is.Message)
		for _, d := range is.Details {
			fmt.Fprintf(&b, "    %s\n", styleDim.Render(d))
		}
	}
	return b.String()
}
