package wbs

// =============================================================================
// LINKAGE RESOLVER - ParentCode -> parent GUID with key fallback
// =============================================================================

// MatchKey records which key a parent link was resolved through.
type MatchKey string

const (
	MatchGUID    MatchKey = "guid"
	MatchCode    MatchKey = "code"
	MatchAltCode MatchKey = "alt_code"
)

// matchOrder is the strict lookup priority. The first hit wins.
var matchOrder = []MatchKey{MatchGUID, MatchCode, MatchAltCode}

// OrphanReason explains why an item became a root.
type OrphanReason string

const (
	OrphanNoParentCode OrphanReason = "no_parent_code"
	OrphanUnmatched    OrphanReason = "unmatched"
	OrphanCycle        OrphanReason = "cycle"
)

// Resolution is the tagged outcome for one item: either Resolved (Parent and
// By set) or Orphan (Reason set).
type Resolution struct {
	Child  string       `json:"child"`
	Parent string       `json:"parent,omitempty"`
	By     MatchKey     `json:"by,omitempty"`
	Reason OrphanReason `json:"reason,omitempty"`
}

func (r Resolution) IsOrphan() bool { return r.Parent == "" }

// Links is the resolver output. It is immutable once returned.
type Links struct {
	byChild  map[string]Resolution
	children map[string][]string
	order    []string

	// Orphans lists root GUIDs in input order.
	Orphans []string

	// Counts tallies resolved links per match key and orphans per reason.
	Counts  map[MatchKey]int
	Reasons map[OrphanReason]int
}

// Resolve links every item to its parent. Lookups try GUID, then Code, then
// AltCode; the first match wins. Items with no parent code, with no match,
// or whose link would close a cycle become roots. The result depends only on
// the input order and content.
func Resolve(items []WorkItem) *Links {
	idx := newKeyIndex(items)
	l := &Links{
		byChild:  make(map[string]Resolution, len(items)),
		children: make(map[string][]string),
		order:    make([]string, 0, len(items)),
		Counts:   make(map[MatchKey]int),
		Reasons:  make(map[OrphanReason]int),
	}

	for i := range items {
		it := &items[i]
		if _, dup := l.byChild[it.GUID]; dup {
			continue
		}
		l.order = append(l.order, it.GUID)
		l.byChild[it.GUID] = idx.lookup(it)
	}

	l.breakCycles(idx)

	for _, guid := range l.order {
		r := l.byChild[guid]
		if r.IsOrphan() {
			l.Orphans = append(l.Orphans, guid)
			l.Reasons[r.Reason]++
			continue
		}
		l.Counts[r.By]++
		l.children[r.Parent] = append(l.children[r.Parent], guid)
	}
	return l
}

// Resolution returns the outcome for a GUID.
func (l *Links) Resolution(guid string) (Resolution, bool) {
	r, ok := l.byChild[guid]
	return r, ok
}

// Parent returns the resolved parent GUID.
func (l *Links) Parent(guid string) (string, bool) {
	r, ok := l.byChild[guid]
	if !ok || r.IsOrphan() {
		return "", false
	}
	return r.Parent, true
}

// Children returns the direct children of a GUID in input order.
func (l *Links) Children(guid string) []string {
	return l.children[guid]
}

// Len is the number of distinct items resolved.
func (l *Links) Len() int { return len(l.order) }

// Unmatched counts items that carried a parent code nothing matched. This is
// the data-quality figure; plain roots are expected.
func (l *Links) Unmatched() int { return l.Reasons[OrphanUnmatched] }

// breakCycles walks every ancestor chain once. When a walk comes back onto
// itself, the cycle member that appears first in input order is cut loose.
func (l *Links) breakCycles(idx *keyIndex) {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(l.order))

	for _, start := range l.order {
		if state[start] != unvisited {
			continue
		}
		var path []string
		cur := start
		for steps := 0; steps <= len(l.order); steps++ {
			if state[cur] == done {
				break
			}
			if state[cur] == onPath {
				l.cut(cycleFrom(path, cur), idx)
				break
			}
			state[cur] = onPath
			path = append(path, cur)
			parent, ok := l.Parent(cur)
			if !ok {
				break
			}
			cur = parent
		}
		for _, g := range path {
			state[g] = done
		}
	}
}

func (l *Links) cut(cycle []string, idx *keyIndex) {
	first := cycle[0]
	for _, g := range cycle[1:] {
		if idx.position[g] < idx.position[first] {
			first = g
		}
	}
	l.byChild[first] = Resolution{Child: first, Reason: OrphanCycle}
}

func cycleFrom(path []string, at string) []string {
	for i, g := range path {
		if g == at {
			return path[i:]
		}
	}
	return path
}

// =============================================================================
// KEY INDEX
// =============================================================================

// keyIndex maps every lookup key to a GUID. When several items share a code,
// the first one in input order owns it.
type keyIndex struct {
	byKey    map[MatchKey]map[string]string
	position map[string]int
}

func newKeyIndex(items []WorkItem) *keyIndex {
	idx := &keyIndex{
		byKey: map[MatchKey]map[string]string{
			MatchGUID:    make(map[string]string, len(items)),
			MatchCode:    make(map[string]string, len(items)),
			MatchAltCode: make(map[string]string),
		},
		position: make(map[string]int, len(items)),
	}
	for i := range items {
		it := &items[i]
		if _, ok := idx.position[it.GUID]; !ok {
			idx.position[it.GUID] = i
		}
		idx.put(MatchGUID, it.GUID, it.GUID)
		idx.put(MatchCode, it.Code, it.GUID)
		idx.put(MatchAltCode, it.AltCode, it.GUID)
	}
	return idx
}

func (k *keyIndex) put(m MatchKey, key, guid string) {
	if key == "" {
		return
	}
	if _, taken := k.byKey[m][key]; !taken {
		k.byKey[m][key] = guid
	}
}

func (k *keyIndex) lookup(it *WorkItem) Resolution {
	if it.ParentCode == "" {
		return Resolution{Child: it.GUID, Reason: OrphanNoParentCode}
	}
	for _, m := range matchOrder {
		if parent, ok := k.byKey[m][it.ParentCode]; ok {
			if parent == it.GUID {
				return Resolution{Child: it.GUID, Reason: OrphanCycle}
			}
			return Resolution{Child: it.GUID, Parent: parent, By: m}
		}
	}
	return Resolution{Child: it.GUID, Reason: OrphanUnmatched}
}
