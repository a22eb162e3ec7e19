/*
Package ingest turns raw upstream records into the WorkItem set one analysis
pass runs on.

PURPOSE:
  The engine itself never touches storage. The Loader fetches the four raw
  record sets of a project concurrently, folds duplicate series rows, joins
  every contract and cost version onto its WorkItem and resolves schedule
  references into date ranges.

FAILURE CONTRACT:
  Any fetch error cancels the remaining fetches and fails the whole load as
  a *generic.SourceError. There is no partial result and no retry.

  A schedule row with unparseable or inverted dates is skipped; the node it
  belongs to simply has no range.

SEE ALSO:
  - fold.go: max/max/sum folding and join keys
  - generic/store.go: the Source contract
*/
package ingest

import (
	"context"
	"fmt"

	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/wbs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dataset is everything one analysis pass reads. The caller owns it.
type Dataset struct {
	Project         string `json:"project"`
	AnalysisVersion int    `json:"analysis_version"`

	Items []wbs.WorkItem `json:"items"`

	// Dates maps item GUID to its scheduled range.
	Dates map[string]generic.Period `json:"dates"`

	// ContractVersions and CostVersions list the versions present in the
	// series rows, ascending.
	ContractVersions []int `json:"contract_versions"`
	CostVersions     []int `json:"cost_versions"`

	Stats LoadStats `json:"stats"`
}

// LoadStats counts what the load saw and what it discarded.
type LoadStats struct {
	ItemRows     int `json:"item_rows"`
	ContractRows int `json:"contract_rows"`
	CostRows     int `json:"cost_rows"`
	ScheduleRows int `json:"schedule_rows"`

	// DroppedRows had no join key. UnjoinedGroups are folded keys that
	// matched no item.
	DroppedRows    int `json:"dropped_rows"`
	UnjoinedGroups int `json:"unjoined_groups"`

	// BadSchedules had dates that could not be used.
	BadSchedules int `json:"bad_schedules"`
	Scheduled    int `json:"scheduled"`
}

type Loader struct {
	Source generic.Source
	Logger *zap.Logger
}

func NewLoader(src generic.Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Source: src, Logger: logger}
}

// Load fetches and assembles one project analysis version.
func (l *Loader) Load(ctx context.Context, project string, analysisVersion int) (*Dataset, error) {
	if analysisVersion < 0 {
		return nil, fmt.Errorf("%w: analysis version %d", generic.ErrInvalidVersion, analysisVersion)
	}
	log := l.logger().With(zap.String("project", project), zap.Int("analysis_version", analysisVersion))

	var (
		records  []generic.ItemRecord
		contract []generic.SeriesRow
		cost     []generic.SeriesRow
		plan     []generic.ScheduleRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records, err = l.Source.LoadItems(gctx, project, analysisVersion)
		return generic.WrapSource("load items", project, err)
	})
	g.Go(func() (err error) {
		contract, err = l.Source.LoadSeries(gctx, project, generic.DatasetContract)
		return generic.WrapSource("load contract", project, err)
	})
	g.Go(func() (err error) {
		cost, err = l.Source.LoadSeries(gctx, project, generic.DatasetCost)
		return generic.WrapSource("load cost", project, err)
	})
	g.Go(func() (err error) {
		plan, err = l.Source.LoadSchedule(gctx, project)
		return generic.WrapSource("load schedule", project, err)
	})
	if err := g.Wait(); err != nil {
		log.Error("load failed", zap.Error(err))
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s v%d", generic.ErrProjectNotFound, project, analysisVersion)
	}

	ds := &Dataset{
		Project:         project,
		AnalysisVersion: analysisVersion,
		Items:           toWorkItems(records),
		Stats: LoadStats{
			ItemRows:     len(records),
			ContractRows: len(contract),
			CostRows:     len(cost),
			ScheduleRows: len(plan),
		},
	}

	cg, cv, cDropped := foldSeries(contract, wbs.SeriesContract)
	kg, kv, kDropped := foldSeries(cost, wbs.SeriesCost)
	ds.ContractVersions, ds.CostVersions = cv, kv
	ds.Stats.DroppedRows = cDropped + kDropped
	ds.Stats.UnjoinedGroups = attach(ds.Items, wbs.SeriesContract, cg, cv, contractKey) +
		attach(ds.Items, wbs.SeriesCost, kg, kv, costKey)

	ds.Dates, ds.Stats.BadSchedules = scheduleDates(ds.Items, plan)
	ds.Stats.Scheduled = len(ds.Dates)

	log.Debug("dataset loaded",
		zap.Int("items", ds.Stats.ItemRows),
		zap.Ints("contract_versions", cv),
		zap.Ints("cost_versions", kv),
		zap.Int("dropped_rows", ds.Stats.DroppedRows),
		zap.Int("unjoined_groups", ds.Stats.UnjoinedGroups),
		zap.Int("scheduled", ds.Stats.Scheduled),
		zap.Int("bad_schedules", ds.Stats.BadSchedules),
	)
	return ds, nil
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// =============================================================================
// RECORD CONVERSION
// =============================================================================

func toWorkItems(records []generic.ItemRecord) []wbs.WorkItem {
	items := make([]wbs.WorkItem, len(records))
	for i, r := range records {
		items[i] = wbs.WorkItem{
			GUID:         r.GUID,
			Code:         r.Code,
			AltCode:      r.AltCode,
			ParentCode:   r.ParentCode,
			Level:        r.Level,
			Kind:         wbs.ParseKind(r.Kind),
			ScheduleRef:  r.ScheduleRef,
			CompositeKey: r.CompositeKey,
			Unit:         r.Unit,
			Summary:      r.Summary,
			UserText:     r.UserText,
			Index:        r.Index,
		}
		if r.Classification.Valid {
			band := int(r.Classification.Decimal.Round(0).IntPart())
			items[i].Classification = &band
		}
	}
	return items
}

// scheduleDates maps item GUIDs to their planned range. When a reference
// appears more than once the last row wins.
func scheduleDates(items []wbs.WorkItem, rows []generic.ScheduleRow) (map[string]generic.Period, int) {
	byRef := make(map[string]generic.Period, len(rows))
	bad := 0
	for _, r := range rows {
		if r.ScheduleRef == "" {
			bad++
			continue
		}
		start, err := generic.ParseDate(r.Start)
		if err != nil {
			bad++
			continue
		}
		end, err := generic.ParseDate(r.End)
		if err != nil {
			bad++
			continue
		}
		p, err := generic.NewPeriod(start, end)
		if err != nil {
			bad++
			continue
		}
		byRef[r.ScheduleRef] = p
	}

	dates := make(map[string]generic.Period)
	for i := range items {
		if p, ok := byRef[items[i].ScheduleRef]; ok && items[i].ScheduleRef != "" {
			dates[items[i].GUID] = p
		}
	}
	return dates, bad
}
