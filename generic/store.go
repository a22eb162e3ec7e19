/*
store.go - Read interface to the upstream record store

PURPOSE:
  Defines the boundary between the engine and wherever the raw analysis,
  contract, cost and schedule records live. The engine itself performs no
  persistence; the only write is the per-project coefK setting, which
  belongs to the store rather than the engine.

KEY INTERFACES:
  Source:      everything one analysis pass needs to read
  CoefKStore:  reading/writing the cost multiplier per project version
  Writer:      bulk import of a snapshot, used by seeding and the CLI

FAILURE CONTRACT:
  Any error returned here aborts the analysis request. Implementations
  must not retry internally; retries, if any, belong to the caller.

PAGINATION:
  Implementations return fully materialized slices. A store that pages
  internally must drain every page before returning.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (sqlx over mattn/go-sqlite3)
  - generic/store/memory.go: In-memory for tests and demos

SEE ALSO:
  - types.go: record types
  - ingest/loader.go: the only consumer of Source
*/
package generic

import "context"

// =============================================================================
// SOURCE - Upstream records for one project
// =============================================================================

// Source hands out raw records. Every Load* call returns a fresh slice that
// the caller owns.
type Source interface {
	CoefKStore

	// ListProjects returns every (project, analysis version) pair, ordered by
	// project then version.
	ListProjects(ctx context.Context) ([]ProjectVersion, error)

	// Versions returns the distinct versions present in a dataset for a
	// project, newest first.
	Versions(ctx context.Context, project string, dataset Dataset) ([]int, error)

	// LoadItems returns the work-breakdown rows of one analysis version,
	// ordered by their source index.
	LoadItems(ctx context.Context, project string, analysisVersion int) ([]ItemRecord, error)

	// LoadSeries returns all contract or cost rows of a project across
	// every version.
	LoadSeries(ctx context.Context, project string, dataset Dataset) ([]SeriesRow, error)

	// LoadSchedule returns planned date ranges keyed by schedule reference.
	LoadSchedule(ctx context.Context, project string) ([]ScheduleRow, error)
}

// CoefKStore persists the cost multiplier.
type CoefKStore interface {
	// CoefK returns the multiplier for a project version; ok is false when
	// none is stored.
	CoefK(ctx context.Context, project string, version int) (coefK float64, ok bool, err error)

	// SaveCoefK updates the multiplier. Returns ErrProjectNotFound when no
	// row matches.
	SaveCoefK(ctx context.Context, project string, version int, coefK float64) error
}

// =============================================================================
// WRITER - Seeding and import
// =============================================================================

// Snapshot is one project version's worth of upstream rows.
type Snapshot struct {
	Project  string
	Version  int
	CoefK    float64 // 0 leaves the coefficient unset
	Items    []ItemRecord
	Contract []SeriesRow
	Cost     []SeriesRow
	Schedule []ScheduleRow
}

// Writer loads snapshots into a store. The engine never calls it.
type Writer interface {
	Import(ctx context.Context, snap Snapshot) error
	Reset(ctx context.Context) error
}
