package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/warp/cost-engine/analysis"
	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/quality"
	"github.com/warp/cost-engine/schedule"
	"github.com/warp/cost-engine/variance"
	"github.com/warp/cost-engine/wbs"
)

// runFlags are the selectors shared by every analysis command.
type runFlags struct {
	version  int
	contract int
	cost     int
	coefK    float64
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.version, "version", 0, "Analysis version")
	cmd.Flags().IntVar(&f.contract, "contract", 0, "Contract version")
	cmd.Flags().IntVar(&f.cost, "cost", 0, "Cost version (also the reallocation weighting basis)")
	cmd.Flags().Float64Var(&f.coefK, "coefk", 0, "Cost multiplier; 0 uses the stored value")
}

func (f *runFlags) request(project string) analysis.Request {
	return analysis.Request{
		Project:         project,
		AnalysisVersion: f.version,
		ContractVersion: f.contract,
		CostVersion:     f.cost,
		CoefK:           f.coefK,
	}
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var rf runFlags

	cmd := &cobra.Command{
		Use:   "analyze <project>",
		Short: "Show totals, link summary and certainty bands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := app.Engine.Run(cmd.Context(), rf.request(args[0]))
			if err != nil {
				return err
			}
			return app.print(res, func() string { return FormatAnalysis(res) })
		},
	}
	rf.register(cmd)
	return cmd
}

func newDeviationsCmd(app *App) *cobra.Command {
	var rf runFlags
	var order string
	var top int

	cmd := &cobra.Command{
		Use:   "deviations <project>",
		Short: "Rank LineItems by contract minus cost×K",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := variance.ParseOrderKey(order)
			if err != nil {
				return err
			}
			req := rf.request(args[0])
			req.OrderBy = key
			if top > 0 {
				app.Engine.RankingSize = top
			}
			res, err := app.Engine.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			return app.print(res.Deviations, func() string { return FormatDeviations(res.Deviations) })
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&order, "order", string(variance.OrderByAmount), "Ranking key: amount or quantity")
	cmd.Flags().IntVar(&top, "top", 0, "Entries per list (default from config)")
	return cmd
}

func newCalendarCmd(app *App) *cobra.Command {
	var rf runFlags
	var series, measure string
	var sourceVersion int

	cmd := &cobra.Command{
		Use:   "calendar <project>",
		Short: "Spread a series over calendar months by working days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := wbs.ParseSeries(series)
			if err != nil {
				return err
			}
			m, err := schedule.ParseMeasure(measure)
			if err != nil {
				return err
			}
			grid, err := app.Engine.Calendar(cmd.Context(), rf.request(args[0]), schedule.Selector{
				Series: s, Version: sourceVersion, Measure: m,
			})
			if err != nil {
				return err
			}
			return app.print(grid, func() string { return FormatGrid(grid) })
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&series, "series", string(wbs.SeriesContract), "Series: contract or cost")
	cmd.Flags().StringVar(&measure, "measure", string(schedule.MeasureAmount), "Measure: amount or quantity")
	cmd.Flags().IntVar(&sourceVersion, "source-version", 0, "Version of the series to spread")
	return cmd
}

func newCompareCmd(app *App) *cobra.Command {
	var rf runFlags
	var series string
	var a, b int

	cmd := &cobra.Command{
		Use:   "compare <project>",
		Short: "Compare two versions of one series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := wbs.ParseSeries(series)
			if err != nil {
				return err
			}
			c, err := app.Engine.Compare(cmd.Context(), rf.request(args[0]), s, a, b)
			if err != nil {
				return err
			}
			return app.print(c, func() string { return FormatComparison(c) })
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&series, "series", string(wbs.SeriesContract), "Series: contract or cost")
	cmd.Flags().IntVar(&a, "a", 0, "Base version")
	cmd.Flags().IntVar(&b, "b", 1, "Compared version")
	return cmd
}

func newQualityCmd(app *App) *cobra.Command {
	var rf runFlags
	var scope string

	cmd := &cobra.Command{
		Use:   "quality <project>",
		Short: "Report row drops, empty versions and broken parent links",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := quality.Scope(strings.ToLower(scope))
			switch sc {
			case quality.ScopeBoth, quality.ScopeContract, quality.ScopeCost:
			default:
				return fmt.Errorf("%w: scope %q", generic.ErrInvalidSeries, scope)
			}
			res, err := app.Engine.Run(cmd.Context(), rf.request(args[0]))
			if err != nil {
				return err
			}
			issues := []quality.Issue{}
			for _, is := range res.Quality {
				if sc == quality.ScopeBoth || is.Series == "" || string(is.Series) == string(sc) {
					issues = append(issues, is)
				}
			}
			return app.print(issues, func() string { return FormatIssues(issues) })
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&scope, "scope", string(quality.ScopeBoth), "Series checked: both, contract or cost")
	return cmd
}
