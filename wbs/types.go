/*
Package wbs models the work-breakdown structure of a construction project and
implements the reconciliation core that runs over it.

PURPOSE:
  Flat record sets (budget, contract, cost) arrive keyed independently. This
  package links them into a hierarchy, reads every monetary tuple through a
  single normalization rule, and pushes contract value down from line items
  to their cost-breakdown children.

KEY CONCEPTS IN THIS FILE (types.go):
  - WorkItem: one work-breakdown line, identified by GUID
  - Kind:     Chapter, LineItem, Material, Labor, Equipment, Other
  - Series:   Contract (sale) or Cost (internal)
  - Tuple:    quantity/price/amount of one (series, version) pair
  - LineType: Plain or Decomposed, per tuple, independent of Kind

INVARIANTS:
  1. GUID is unique and the only identifier used for map lookups.
  2. Versions are a dynamically sized list; a missing version reads as zero.
  3. Effective values are only ever obtained through ReadSeries.

SEE ALSO:
  - series.go:     ReadSeries, the single normalization point
  - linkage.go:    parent resolution with key fallback
  - tree.go:       forest assembly
  - reallocate.go: contract push-down onto decomposition children
*/
package wbs

import (
	"strings"

	"github.com/warp/cost-engine/generic"
)

// =============================================================================
// KIND - Grouping semantics of a line
// =============================================================================

type Kind string

const (
	KindChapter   Kind = "chapter"
	KindLineItem  Kind = "line_item"
	KindMaterial  Kind = "material"
	KindLabor     Kind = "labor"
	KindEquipment Kind = "equipment"
	KindOther     Kind = "other"
	KindUnknown   Kind = "unknown"
)

// ParseKind accepts both the source vocabulary ("Partida", "Mano de obra", ...)
// and the canonical names above.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "capítulo", "capitulo", "chapter":
		return KindChapter
	case "partida", "line_item", "lineitem":
		return KindLineItem
	case "material":
		return KindMaterial
	case "mano de obra", "labor", "labour":
		return KindLabor
	case "maquinaria", "equipment":
		return KindEquipment
	case "otros", "other":
		return KindOther
	}
	return KindUnknown
}

// IsDecompositionChild reports whether lines of this kind represent a
// cost-breakdown component of a LineItem.
func (k Kind) IsDecompositionChild() bool {
	switch k {
	case KindMaterial, KindLabor, KindEquipment, KindOther:
		return true
	}
	return false
}

// =============================================================================
// SERIES & LINE TYPE
// =============================================================================

type Series string

const (
	SeriesContract Series = "contract"
	SeriesCost     Series = "cost"
)

func ParseSeries(s string) (Series, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contract", "contrato":
		return SeriesContract, nil
	case "cost", "coste":
		return SeriesCost, nil
	}
	return "", generic.ErrInvalidSeries
}

type LineType string

const (
	LinePlain      LineType = "plain"
	LineDecomposed LineType = "decomposed"
)

func ParseLineType(s string) LineType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "descompuesto", "decomposed":
		return LineDecomposed
	}
	return LinePlain
}

// =============================================================================
// TUPLE & WORK ITEM
// =============================================================================

// Tuple is the stored form of one (series, version) pair. Never read its
// fields directly for computations; go through ReadSeries.
type Tuple struct {
	Quantity           float64  `json:"quantity"`
	QuantityDecomposed float64  `json:"quantity_decomposed"`
	Price              float64  `json:"price"`
	Amount             float64  `json:"amount"`
	LineType           LineType `json:"line_type"`
}

type WorkItem struct {
	GUID       string `json:"guid"`
	Code       string `json:"code"`
	AltCode    string `json:"alt_code,omitempty"`
	ParentCode string `json:"parent_code,omitempty"`
	Level      int    `json:"level"`
	Kind       Kind   `json:"kind"`

	// ScheduleRef points into the external schedule dataset.
	ScheduleRef string `json:"schedule_ref,omitempty"`

	// Classification is the 0-5 confidence band; nil reads as 0.
	Classification *int `json:"classification,omitempty"`

	// CompositeKey is the structural key contract v0 rows are joined on.
	CompositeKey string `json:"composite_key,omitempty"`

	Unit     string `json:"unit,omitempty"`
	Summary  string `json:"summary,omitempty"`
	UserText string `json:"user_text,omitempty"`
	Index    int    `json:"index"`

	Contract []Tuple `json:"contract"`
	Cost     []Tuple `json:"cost"`
}

// Tuples returns the stored tuples of a series.
func (w *WorkItem) Tuples(s Series) []Tuple {
	if s == SeriesCost {
		return w.Cost
	}
	return w.Contract
}

// Tuple returns the stored tuple for (s, v), or the zero tuple.
func (w *WorkItem) Tuple(s Series, v int) Tuple {
	ts := w.Tuples(s)
	if v < 0 || v >= len(ts) {
		return Tuple{}
	}
	return ts[v]
}

// SetTuple stores t at (s, v), growing the version list as needed.
func (w *WorkItem) SetTuple(s Series, v int, t Tuple) {
	if v < 0 {
		return
	}
	ts := w.Tuples(s)
	for len(ts) <= v {
		ts = append(ts, Tuple{})
	}
	ts[v] = t
	if s == SeriesCost {
		w.Cost = ts
	} else {
		w.Contract = ts
	}
}

// ClassificationBand maps a nil classification to 0.
func (w *WorkItem) ClassificationBand() int {
	if w.Classification == nil {
		return 0
	}
	return *w.Classification
}

// Clone deep-copies the item so the copy can be mutated freely.
func (w WorkItem) Clone() WorkItem {
	c := w
	c.Contract = append([]Tuple(nil), w.Contract...)
	c.Cost = append([]Tuple(nil), w.Cost...)
	if w.Classification != nil {
		band := *w.Classification
		c.Classification = &band
	}
	return c
}

// CloneAll deep-copies a record set.
func CloneAll(items []WorkItem) []WorkItem {
	out := make([]WorkItem, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}

// LineItems filters a record set down to priced LineItem rows.
func LineItems(items []WorkItem) []*WorkItem {
	var out []*WorkItem
	for i := range items {
		if items[i].Kind == KindLineItem {
			out = append(out, &items[i])
		}
	}
	return out
}

// VersionCount is the number of versions any item carries for a series.
func VersionCount(items []WorkItem, s Series) int {
	n := 0
	for i := range items {
		n = max(n, len(items[i].Tuples(s)))
	}
	return n
}
