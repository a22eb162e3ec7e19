package wbs

// =============================================================================
// DECOMPOSITION REALLOCATOR
// =============================================================================
//
// Contract lines are usually authored at LineItem level while cost is tracked
// on the Material/Labor/Equipment/Other lines underneath. For every LineItem
// parent and every contract version, the parent's contract amount is split
// across its direct children in proportion to each child's reference cost
// (cost amount × coefK):
//
//   proportion_i = w_i / Σw
//   amount_i     = proportion_i × P_v
//   quantity_i   = reference cost quantity of child i
//   price_i      = amount_i / quantity_i   (only when quantity_i > 0)
//
// Σw runs over every child, negative weights included; Σw <= 0 skips the
// pair. Only children with w_i > 0 receive a share, so with negative
// children present the written shares add up to more than P_v.

// ReallocateOptions selects the weighting basis. ReferenceCostVersion is
// fixed for the whole run, whatever contract version is being split.
type ReallocateOptions struct {
	CoefK                float64
	ReferenceCostVersion int
}

type ReallocationOutcome string

const (
	OutcomeReallocated   ReallocationOutcome = "reallocated"
	OutcomeNoAmount      ReallocationOutcome = "skipped_no_amount"
	OutcomeNoWeightBasis ReallocationOutcome = "skipped_no_weight"
)

// ReallocationEntry records what happened to one (parent, version) pair.
type ReallocationEntry struct {
	Parent   string              `json:"parent"`
	Version  int                 `json:"version"`
	Outcome  ReallocationOutcome `json:"outcome"`
	Amount   float64             `json:"amount"`
	Children int                 `json:"children"`
	Weighted int                 `json:"weighted"`
}

type ReallocationReport struct {
	Entries     []ReallocationEntry `json:"entries,omitempty"`
	Reallocated int                 `json:"reallocated"`
	Skipped     int                 `json:"skipped"`
}

// Reallocate returns a reallocated copy of items. The input slice is left
// untouched; every downstream computation of a run must read the returned
// slice.
func Reallocate(items []WorkItem, opts ReallocateOptions) ([]WorkItem, ReallocationReport) {
	out := CloneAll(items)
	links := Resolve(out)
	pos := make(map[string]int, len(out))
	for i := range out {
		if _, ok := pos[out[i].GUID]; !ok {
			pos[out[i].GUID] = i
		}
	}

	var report ReallocationReport
	for i := range out {
		parent := &out[i]
		if parent.Kind != KindLineItem || pos[parent.GUID] != i {
			continue
		}
		childGUIDs := links.Children(parent.GUID)
		if len(childGUIDs) == 0 {
			continue
		}
		children := make([]*WorkItem, len(childGUIDs))
		for j, g := range childGUIDs {
			children[j] = &out[pos[g]]
		}

		for v := range len(parent.Contract) {
			entry := reallocateVersion(parent, children, v, opts)
			if entry.Outcome == OutcomeReallocated {
				report.Reallocated++
			} else {
				report.Skipped++
			}
			report.Entries = append(report.Entries, entry)
		}
	}
	return out, report
}

func reallocateVersion(parent *WorkItem, children []*WorkItem, v int, opts ReallocateOptions) ReallocationEntry {
	entry := ReallocationEntry{Parent: parent.GUID, Version: v, Children: len(children)}

	total := ReadSeries(parent, SeriesContract, v).Amount
	entry.Amount = total
	if total <= 0 {
		entry.Outcome = OutcomeNoAmount
		return entry
	}

	weights := make([]float64, len(children))
	quantities := make([]float64, len(children))
	var sum float64
	for i, c := range children {
		ref := ReadSeries(c, SeriesCost, opts.ReferenceCostVersion)
		weights[i] = finite(ref.Amount * opts.CoefK)
		quantities[i] = ref.Quantity
		sum += weights[i]
	}
	if sum <= 0 {
		entry.Outcome = OutcomeNoWeightBasis
		return entry
	}

	for i, c := range children {
		if weights[i] <= 0 {
			continue
		}
		amount := weights[i] / sum * total
		t := c.Tuple(SeriesContract, v)
		// The split amount is authoritative from here on, so the tuple is
		// stored as a plain line; a decomposed tuple would be re-derived.
		t.LineType = LinePlain
		t.QuantityDecomposed = 0
		t.Amount = amount
		t.Quantity = quantities[i]
		if quantities[i] > 0 {
			t.Price = amount / quantities[i]
		}
		c.SetTuple(SeriesContract, v, t)
		entry.Weighted++
	}
	entry.Outcome = OutcomeReallocated
	return entry
}
