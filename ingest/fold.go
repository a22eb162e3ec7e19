package ingest

import (
	"slices"

	"github.com/shopspring/decimal"
	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/wbs"
)

// =============================================================================
// DUPLICATE FOLDING
// =============================================================================
//
// Upstream exports may split one logical line over several rows. Rows that
// share (version, join key) are folded as
//
//   quantity, quantityDecomposed, price: max, starting from 0
//   amount:                              sum
//   lineType:                            Decomposed if any row is
//
// Arithmetic stays in decimal until the folded tuple is handed to wbs.

type foldKey struct {
	Version int
	Key     string
}

type folded struct {
	quantity           decimal.Decimal
	quantityDecomposed decimal.Decimal
	price              decimal.Decimal
	amount             decimal.Decimal
	decomposed         bool
	rows               int
}

func (f *folded) add(r generic.SeriesRow) {
	// The max fields start at zero, so negative quantities and prices fold to 0.
	f.quantity = decimal.Max(f.quantity, r.Quantity)
	f.quantityDecomposed = decimal.Max(f.quantityDecomposed, r.QuantityDecomposed)
	f.price = decimal.Max(f.price, r.Price)
	f.amount = f.amount.Add(r.Amount)
	f.decomposed = f.decomposed || wbs.ParseLineType(r.LineType) == wbs.LineDecomposed
	f.rows++
}

func (f *folded) tuple() wbs.Tuple {
	lt := wbs.LinePlain
	if f.decomposed {
		lt = wbs.LineDecomposed
	}
	return wbs.Tuple{
		Quantity:           f.quantity.InexactFloat64(),
		QuantityDecomposed: f.quantityDecomposed.InexactFloat64(),
		Price:              f.price.InexactFloat64(),
		Amount:             f.amount.InexactFloat64(),
		LineType:           lt,
	}
}

// joinKey is the item field a series row is matched on. Contract version 0
// is keyed structurally; later contract versions and every cost version are
// keyed by GUID.
type joinKey func(version int) func(*wbs.WorkItem) string

func contractKey(version int) func(*wbs.WorkItem) string {
	if version == 0 {
		return func(w *wbs.WorkItem) string { return w.CompositeKey }
	}
	return func(w *wbs.WorkItem) string { return w.GUID }
}

func costKey(int) func(*wbs.WorkItem) string {
	return func(w *wbs.WorkItem) string { return w.GUID }
}

func rowKey(r generic.SeriesRow, s wbs.Series) string {
	if s == wbs.SeriesContract && r.Version == 0 {
		return r.CompositeKey
	}
	return r.GUID
}

// foldSeries groups rows by (version, key). Rows with an empty key or a
// negative version are dropped. versions is ascending.
func foldSeries(rows []generic.SeriesRow, s wbs.Series) (groups map[foldKey]*folded, versions []int, dropped int) {
	groups = make(map[foldKey]*folded)
	seen := make(map[int]bool)
	for _, r := range rows {
		k := rowKey(r, s)
		if k == "" || r.Version < 0 {
			dropped++
			continue
		}
		fk := foldKey{Version: r.Version, Key: k}
		g := groups[fk]
		if g == nil {
			g = &folded{}
			groups[fk] = g
		}
		g.add(r)
		if !seen[r.Version] {
			seen[r.Version] = true
			versions = append(versions, r.Version)
		}
	}
	slices.Sort(versions)
	return groups, versions, dropped
}

// attach copies folded tuples onto items and reports how many groups found
// no item.
func attach(items []wbs.WorkItem, s wbs.Series, groups map[foldKey]*folded, versions []int, key joinKey) (unjoined int) {
	used := make(map[foldKey]bool, len(groups))
	for _, v := range versions {
		keyOf := key(v)
		for i := range items {
			k := keyOf(&items[i])
			if k == "" {
				continue
			}
			fk := foldKey{Version: v, Key: k}
			if g, ok := groups[fk]; ok {
				items[i].SetTuple(s, v, g.tuple())
				used[fk] = true
			}
		}
	}
	return len(groups) - len(used)
}
