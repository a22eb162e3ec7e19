/*
Package sqlite provides a SQLite-backed implementation of generic.Source.

PURPOSE:
  Holds the upstream record tables the analysis engine reads: the
  work-breakdown rows, contract and cost lines, the planning export and the
  per-project settings row carrying coefK. Table and column names follow the
  upstream export so files produced there can be attached directly.

INTERFACES IMPLEMENTED:
  generic.Source:     ListProjects, Versions, LoadItems, LoadSeries, LoadSchedule
  generic.CoefKStore: CoefK, SaveCoefK

KEY TABLES:
  base_datos_sgi:   one row per (project, version, origin); coef_k lives on
                    the 'COSTE' row
  lineas_analisis:  work-breakdown rows of one analysis version
  lineas_contrato:  contract lines, several per key allowed
  lineas_coste:     cost lines, several per key allowed
  lineas_planin:    planned date ranges keyed by plan_guid

NUMERIC COLUMNS:
  Quantities, prices and amounts are stored as TEXT and parsed with
  generic.ParseDecimal, so malformed cells read as zero instead of failing
  the whole load.

WAL MODE:
  Opened with WAL and foreign keys on. Use ":memory:" for tests; the pool is
  pinned to one connection there so every query sees the same database.

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Source interface
  - generic/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/cost-engine/generic"
)

// OriginCost marks the settings row that carries coef_k.
const OriginCost = "COSTE"

// Store implements generic.Source using SQLite.
type Store struct {
	db *sqlx.DB
}

var _ generic.Source = (*Store)(nil)

// New opens (and migrates) the database at dbPath.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS base_datos_sgi (
		cod_obra TEXT NOT NULL,
		version INTEGER NOT NULL,
		origen TEXT NOT NULL,
		coef_k REAL,
		PRIMARY KEY (cod_obra, version, origen)
	);

	CREATE TABLE IF NOT EXISTS lineas_analisis (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		indice INTEGER NOT NULL DEFAULT 0,
		cod_obra TEXT NOT NULL,
		version INTEGER NOT NULL,
		Guid_SGI TEXT NOT NULL DEFAULT '',
		codigo TEXT NOT NULL DEFAULT '',
		codigo2 TEXT NOT NULL DEFAULT '',
		CodSup TEXT NOT NULL DEFAULT '',
		Nivel INTEGER NOT NULL DEFAULT 0,
		nat TEXT NOT NULL DEFAULT '',
		ud TEXT NOT NULL DEFAULT '',
		resumen TEXT NOT NULL DEFAULT '',
		UserText TEXT NOT NULL DEFAULT '',
		UserNumber TEXT,
		clave_compuesta TEXT NOT NULL DEFAULT '',
		plan_guid TEXT NOT NULL DEFAULT ''
	);

	-- Load path: every row of one analysis version, in source order
	CREATE INDEX IF NOT EXISTS idx_analisis_obra_version
		ON lineas_analisis(cod_obra, version, indice);

	CREATE TABLE IF NOT EXISTS lineas_contrato (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cod_obra TEXT NOT NULL,
		version INTEGER NOT NULL,
		sgi_guid TEXT NOT NULL DEFAULT '',
		clave_compuesta TEXT NOT NULL DEFAULT '',
		tipo_informacion TEXT NOT NULL DEFAULT '',
		tipo TEXT NOT NULL DEFAULT '',
		canpres TEXT,
		cantdescomp TEXT,
		pres TEXT,
		imppres TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_contrato_obra
		ON lineas_contrato(cod_obra, version);

	CREATE TABLE IF NOT EXISTS lineas_coste (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cod_obra TEXT NOT NULL,
		version INTEGER NOT NULL,
		sgi_guid TEXT NOT NULL DEFAULT '',
		clave_compuesta TEXT NOT NULL DEFAULT '',
		tipo_informacion TEXT NOT NULL DEFAULT '',
		tipo TEXT NOT NULL DEFAULT '',
		canpres TEXT,
		cantdescomp TEXT,
		pres TEXT,
		imppres TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_coste_obra
		ON lineas_coste(cod_obra, version);

	CREATE TABLE IF NOT EXISTS lineas_planin (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cod_obra TEXT NOT NULL,
		plan_guid TEXT NOT NULL DEFAULT '',
		comienzo TEXT,
		fin TEXT,
		duracion TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_planin_obra
		ON lineas_planin(cod_obra);
	`
	_, err := s.db.Exec(schema)
	return err
}

// seriesTable maps a dataset to its table. The value is never user input.
func seriesTable(ds generic.Dataset) (string, error) {
	switch ds {
	case generic.DatasetContract:
		return "lineas_contrato", nil
	case generic.DatasetCost:
		return "lineas_coste", nil
	}
	return "", fmt.Errorf("%w: %q", generic.ErrInvalidSeries, ds)
}

// unavailable marks a failed read so callers can tell it from bad input.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, generic.ErrSourceUnavailable, err)
}

// =============================================================================
// ROW TYPES
// =============================================================================

type itemRow struct {
	Indice         int            `db:"indice"`
	Project        string         `db:"cod_obra"`
	Version        int            `db:"version"`
	GUID           string         `db:"Guid_SGI"`
	Code           string         `db:"codigo"`
	AltCode        string         `db:"codigo2"`
	ParentCode     string         `db:"CodSup"`
	Level          int            `db:"Nivel"`
	Kind           string         `db:"nat"`
	Unit           string         `db:"ud"`
	Summary        string         `db:"resumen"`
	UserText       string         `db:"UserText"`
	Classification sql.NullString `db:"UserNumber"`
	CompositeKey   string         `db:"clave_compuesta"`
	ScheduleRef    string         `db:"plan_guid"`
}

func (r itemRow) record() generic.ItemRecord {
	return generic.ItemRecord{
		Index:           r.Indice,
		Project:         r.Project,
		AnalysisVersion: r.Version,
		GUID:            r.GUID,
		Code:            r.Code,
		AltCode:         r.AltCode,
		ParentCode:      r.ParentCode,
		Level:           r.Level,
		Kind:            r.Kind,
		Unit:            r.Unit,
		Summary:         r.Summary,
		UserText:        r.UserText,
		Classification:  generic.ParseNullDecimal(r.Classification.String),
		CompositeKey:    r.CompositeKey,
		ScheduleRef:     r.ScheduleRef,
	}
}

type seriesRow struct {
	Project            string         `db:"cod_obra"`
	Version            int            `db:"version"`
	GUID               string         `db:"sgi_guid"`
	CompositeKey       string         `db:"clave_compuesta"`
	Kind               string         `db:"tipo_informacion"`
	LineType           string         `db:"tipo"`
	Quantity           sql.NullString `db:"canpres"`
	QuantityDecomposed sql.NullString `db:"cantdescomp"`
	Price              sql.NullString `db:"pres"`
	Amount             sql.NullString `db:"imppres"`
}

func (r seriesRow) record() generic.SeriesRow {
	return generic.SeriesRow{
		Project:            r.Project,
		Version:            r.Version,
		GUID:               r.GUID,
		CompositeKey:       r.CompositeKey,
		Kind:               r.Kind,
		LineType:           r.LineType,
		Quantity:           generic.ParseDecimal(r.Quantity.String),
		QuantityDecomposed: generic.ParseDecimal(r.QuantityDecomposed.String),
		Price:              generic.ParseDecimal(r.Price.String),
		Amount:             generic.ParseDecimal(r.Amount.String),
	}
}

type scheduleRow struct {
	Project     string         `db:"cod_obra"`
	ScheduleRef string         `db:"plan_guid"`
	Start       sql.NullString `db:"comienzo"`
	End         sql.NullString `db:"fin"`
	Duration    sql.NullString `db:"duracion"`
}

// =============================================================================
// SOURCE IMPLEMENTATION
// =============================================================================

// ListProjects returns every registered (project, version) pair.
func (s *Store) ListProjects(ctx context.Context) ([]generic.ProjectVersion, error) {
	result := []generic.ProjectVersion{}
	err := s.db.SelectContext(ctx, &result, `
		SELECT DISTINCT cod_obra, version FROM base_datos_sgi
		ORDER BY cod_obra, version`)
	if err != nil {
		return nil, unavailable("select projects", err)
	}
	return result, nil
}

// Versions returns the distinct versions of a dataset, newest first.
func (s *Store) Versions(ctx context.Context, project string, ds generic.Dataset) ([]int, error) {
	table := "lineas_analisis"
	if ds != generic.DatasetAnalysis {
		var err error
		if table, err = seriesTable(ds); err != nil {
			return nil, err
		}
	}
	versions := []int{}
	query := `SELECT DISTINCT version FROM ` + table + ` WHERE cod_obra = ? ORDER BY version DESC`
	if err := s.db.SelectContext(ctx, &versions, query, project); err != nil {
		return nil, unavailable("select "+table+" versions", err)
	}
	return versions, nil
}

// LoadItems returns one analysis version ordered by indice.
func (s *Store) LoadItems(ctx context.Context, project string, analysisVersion int) ([]generic.ItemRecord, error) {
	var rows []itemRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT indice, cod_obra, version, Guid_SGI, codigo, codigo2, CodSup, Nivel,
		       nat, ud, resumen, UserText, UserNumber, clave_compuesta, plan_guid
		FROM lineas_analisis
		WHERE cod_obra = ? AND version = ?
		ORDER BY indice, id`, project, analysisVersion)
	if err != nil {
		return nil, unavailable("select items", err)
	}
	result := make([]generic.ItemRecord, len(rows))
	for i, r := range rows {
		result[i] = r.record()
	}
	return result, nil
}

// LoadSeries returns every contract or cost row of a project.
func (s *Store) LoadSeries(ctx context.Context, project string, ds generic.Dataset) ([]generic.SeriesRow, error) {
	table, err := seriesTable(ds)
	if err != nil {
		return nil, err
	}
	var rows []seriesRow
	query := `
		SELECT cod_obra, version, sgi_guid, clave_compuesta, tipo_informacion, tipo,
		       canpres, cantdescomp, pres, imppres
		FROM ` + table + `
		WHERE cod_obra = ?
		ORDER BY id`
	if err := s.db.SelectContext(ctx, &rows, query, project); err != nil {
		return nil, unavailable("select "+table, err)
	}
	result := make([]generic.SeriesRow, len(rows))
	for i, r := range rows {
		result[i] = r.record()
	}
	return result, nil
}

// LoadSchedule returns the planning rows of a project in insertion order.
func (s *Store) LoadSchedule(ctx context.Context, project string) ([]generic.ScheduleRow, error) {
	var rows []scheduleRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT cod_obra, plan_guid, comienzo, fin, duracion
		FROM lineas_planin
		WHERE cod_obra = ?
		ORDER BY id`, project)
	if err != nil {
		return nil, unavailable("select schedule", err)
	}
	result := make([]generic.ScheduleRow, len(rows))
	for i, r := range rows {
		result[i] = generic.ScheduleRow{
			Project:     r.Project,
			ScheduleRef: r.ScheduleRef,
			Start:       strings.TrimSpace(r.Start.String),
			End:         strings.TrimSpace(r.End.String),
			Duration:    generic.ParseDecimal(r.Duration.String),
		}
	}
	return result, nil
}

// =============================================================================
// COEF K
// =============================================================================

// CoefK reads coef_k from the cost settings row.
func (s *Store) CoefK(ctx context.Context, project string, version int) (float64, bool, error) {
	var k sql.NullFloat64
	err := s.db.GetContext(ctx, &k, `
		SELECT coef_k FROM base_datos_sgi
		WHERE cod_obra = ? AND version = ? AND origen = ?`, project, version, OriginCost)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable("select coef_k", err)
	}
	if !k.Valid || k.Float64 <= 0 {
		return 0, false, nil
	}
	return k.Float64, true, nil
}

// SaveCoefK updates coef_k on the cost settings row. It never inserts.
func (s *Store) SaveCoefK(ctx context.Context, project string, version int, coefK float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE base_datos_sgi SET coef_k = ?
		WHERE cod_obra = ? AND version = ? AND origen = ?`, coefK, project, version, OriginCost)
	if err != nil {
		return fmt.Errorf("update coef_k: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update coef_k: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s v%d (origin %s)", generic.ErrProjectNotFound, project, version, OriginCost)
	}
	return nil
}
