/*
Package generic provides the domain-agnostic base of the cost analysis engine.

PURPOSE:
  This package holds the pieces every other package leans on but which know
  nothing about work-breakdown semantics: raw upstream records, the Source
  contract, calendar-day arithmetic and the shared error vocabulary.

KEY CONCEPTS IN THIS FILE (types.go):
  - ItemRecord:     one raw work-breakdown row as stored upstream
  - SeriesRow:      one raw contract or cost row (may be duplicated per key)
  - ScheduleRow:    one raw planning row (date range per schedule reference)
  - ProjectVersion: a project code plus an analysis version
  - Decimal parsing that defaults unparseable input to zero

DESIGN PRINCIPLES:
  1. Raw records stay raw: numeric columns are decimal.Decimal exactly as read,
     normalization happens once, downstream, in the wbs package.
  2. Unparseable numbers are zero, never NaN.

SEE ALSO:
  - store.go: Source interface returning these records
  - ingest/loader.go: turns records into wbs.WorkItem values
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DATASETS
// =============================================================================

// Dataset names one of the upstream record sets.
type Dataset string

const (
	DatasetAnalysis Dataset = "analysis"
	DatasetContract Dataset = "contract"
	DatasetCost     Dataset = "cost"
)

// ParseDataset maps user input to a Dataset.
func ParseDataset(s string) (Dataset, error) {
	switch Dataset(strings.ToLower(strings.TrimSpace(s))) {
	case DatasetAnalysis, "":
		return DatasetAnalysis, nil
	case DatasetContract:
		return DatasetContract, nil
	case DatasetCost:
		return DatasetCost, nil
	}
	return "", ErrInvalidSeries
}

// =============================================================================
// RAW RECORDS
// =============================================================================

// ProjectVersion identifies one analysis snapshot of a project.
type ProjectVersion struct {
	Project string `json:"project" db:"cod_obra"`
	Version int    `json:"version" db:"version"`
}

// ItemRecord is a work-breakdown row as it sits in the analysis table.
type ItemRecord struct {
	Index           int
	Project         string
	AnalysisVersion int
	GUID            string
	Code            string
	AltCode         string
	ParentCode      string
	Level           int
	Kind            string
	Unit            string
	Summary         string
	UserText        string
	Classification  decimal.NullDecimal
	CompositeKey    string
	ScheduleRef     string
}

// SeriesRow is a contract or cost line. Several rows may share a key and
// version; the loader folds them before the engine sees them.
type SeriesRow struct {
	Project            string
	Version            int
	GUID               string
	CompositeKey       string
	Kind               string
	LineType           string
	Quantity           decimal.Decimal
	QuantityDecomposed decimal.Decimal
	Price              decimal.Decimal
	Amount             decimal.Decimal
}

// ScheduleRow is a planned date range exported from the scheduling tool.
type ScheduleRow struct {
	Project     string
	ScheduleRef string
	Start       string
	End         string
	Duration    decimal.Decimal
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// ParseDecimal parses a stored numeric column. Empty or malformed input
// yields zero; thousands separators are not accepted.
func ParseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseNullDecimal is ParseDecimal that keeps "absent" distinguishable.
func ParseNullDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Round2 rounds a float to cents for presentation payloads.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
