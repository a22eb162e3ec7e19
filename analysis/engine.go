/*
Package analysis runs one full reconciliation pass for a project.

PURPOSE:
  Wires the loader and the pure wbs/schedule/variance/quality functions into
  the pipeline the dashboard consumes:

    load -> reallocate -> resolve/assemble -> totals, bands, deviations,
    quality, calendar grid

  Every run loads its own records and works on a private, reallocated copy.
  Nothing is cached between runs and no state is shared between concurrent
  requests, so Engine needs no locking.

FAILURE CONTRACT:
  A load error fails the run; no partial Result is returned.

SEE ALSO:
  - request.go: request normalization and coefK resolution
*/
package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/ingest"
	"github.com/warp/cost-engine/quality"
	"github.com/warp/cost-engine/schedule"
	"github.com/warp/cost-engine/variance"
	"github.com/warp/cost-engine/wbs"
	"go.uber.org/zap"
)

type Engine struct {
	Source generic.Source
	Logger *zap.Logger

	// Bands overrides the certainty table; empty uses variance.DefaultBands.
	Bands []variance.Band

	// RankingSize is the length of each deviation list.
	RankingSize int

	// DefaultCoefK is used when the project has no stored coefficient.
	DefaultCoefK float64

	// MonthLabels are the 12 short month names of the calendar grid.
	MonthLabels []string
}

func NewEngine(src generic.Source, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Source:       src,
		Logger:       logger,
		Bands:        variance.DefaultBands(),
		RankingSize:  variance.DefaultRankingSize,
		DefaultCoefK: 1.0,
		MonthLabels:  schedule.SpanishMonthLabels,
	}
}

// LinkSummary is the observable outcome of parent resolution.
type LinkSummary struct {
	Items     int                      `json:"items"`
	Roots     int                      `json:"roots"`
	Unmatched int                      `json:"unmatched"`
	ByKey     map[wbs.MatchKey]int     `json:"by_key"`
	Orphans   map[wbs.OrphanReason]int `json:"orphans"`
}

// Result is the full output of one run. Items are the reallocated working
// set; Forest nodes point into Items.
type Result struct {
	RunID   string  `json:"run_id"`
	Request Request `json:"request"`

	Items  []wbs.WorkItem            `json:"items"`
	Forest []*wbs.TreeNode           `json:"forest"`
	Dates  map[string]generic.Period `json:"-"`
	Links  LinkSummary               `json:"links"`
	Load   ingest.LoadStats          `json:"load"`

	ContractVersions []int `json:"contract_versions"`
	CostVersions     []int `json:"cost_versions"`

	Reallocation wbs.ReallocationReport `json:"reallocation"`
	Totals       variance.Totals        `json:"totals"`
	Certainty    variance.Certainty     `json:"certainty"`
	Deviations   variance.Ranking       `json:"deviations"`
	Quality      []quality.Issue        `json:"quality"`

	Duration time.Duration `json:"duration_ns"`
}

// Run executes a full pass.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	runID := uuid.NewString()
	log := e.logger().With(zap.String("run_id", runID), zap.String("project", req.Project))

	req, err := e.normalize(ctx, req)
	if err != nil {
		log.Warn("rejected request", zap.Error(err))
		return nil, err
	}
	ds, err := ingest.NewLoader(e.Source, log).Load(ctx, req.Project, req.AnalysisVersion)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return nil, err
	}

	res := e.compute(ds, req)
	res.RunID = runID
	res.Duration = time.Since(started)

	log.Info("run complete",
		zap.Int("items", res.Links.Items),
		zap.Int("roots", res.Links.Roots),
		zap.Int("unmatched_parents", res.Links.Unmatched),
		zap.Int("cycles_broken", res.Links.Orphans[wbs.OrphanCycle]),
		zap.Int("reallocated", res.Reallocation.Reallocated),
		zap.Int("reallocation_skipped", res.Reallocation.Skipped),
		zap.Float64("coef_k", req.CoefK),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// compute is the pure part of Run.
func (e *Engine) compute(ds *ingest.Dataset, req Request) *Result {
	items, report := wbs.Reallocate(ds.Items, wbs.ReallocateOptions{
		CoefK:                req.CoefK,
		ReferenceCostVersion: req.CostVersion,
	})
	links := wbs.Resolve(items)
	forest := wbs.Assemble(items, links)

	v := variance.Versions{Contract: req.ContractVersion, Cost: req.CostVersion, CoefK: req.CoefK}
	contractVersions := req.QualityContractVersions
	if len(contractVersions) == 0 {
		contractVersions = ds.ContractVersions
	}
	costVersions := req.QualityCostVersions
	if len(costVersions) == 0 {
		costVersions = ds.CostVersions
	}
	issues := quality.Analyze(items, contractVersions, costVersions, quality.ScopeBoth)
	issues = append(issues, quality.LinkageIssues(links)...)

	return &Result{
		Request: req,
		Items:   items,
		Forest:  forest,
		Dates:   ds.Dates,
		Links: LinkSummary{
			Items:     links.Len(),
			Roots:     len(links.Orphans),
			Unmatched: links.Unmatched(),
			ByKey:     links.Counts,
			Orphans:   links.Reasons,
		},
		Load:             ds.Stats,
		ContractVersions: ds.ContractVersions,
		CostVersions:     ds.CostVersions,
		Reallocation:     report,
		Totals:           variance.ComputeTotals(items, v),
		Certainty:        variance.ComputeCertainty(items, e.Bands, v),
		Deviations:       variance.RankDeviations(items, v, req.OrderBy, e.RankingSize),
		Quality:          issues,
	}
}

// Calendar runs a pass and spreads the selected figure over months. The
// selector's CoefK is taken from the resolved request.
func (e *Engine) Calendar(ctx context.Context, req Request, sel schedule.Selector) (*schedule.Grid, error) {
	res, err := e.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	sel.CoefK = res.Request.CoefK
	if sel.Series == "" {
		sel.Series = wbs.SeriesContract
	}
	if sel.Measure == "" {
		sel.Measure = schedule.MeasureAmount
	}
	grid := schedule.BuildGrid(res.Forest, res.Dates, sel, e.MonthLabels)
	return &grid, nil
}

// Compare runs a pass and compares two revisions of one series.
func (e *Engine) Compare(ctx context.Context, req Request, series wbs.Series, a, b int) (*variance.Comparison, error) {
	if a < 0 || b < 0 {
		return nil, generic.ErrInvalidVersion
	}
	res, err := e.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	c := variance.CompareVersions(res.Items, variance.CompareRequest{
		Series: series, A: a, B: b, CoefK: res.Request.CoefK,
	})
	return &c, nil
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
