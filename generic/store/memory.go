// Package store provides Source implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/cost-engine/generic"
)

// =============================================================================
// MEMORY SOURCE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	items    map[key][]generic.ItemRecord
	contract map[string][]generic.SeriesRow
	cost     map[string][]generic.SeriesRow
	schedule map[string][]generic.ScheduleRow
	coefK    map[key]float64

	// Fail, when set, is returned by every read. Tests use it to simulate an
	// unreachable upstream.
	Fail error
}

type key struct {
	Project string
	Version int
}

func NewMemory() *Memory {
	return &Memory{
		items:    make(map[key][]generic.ItemRecord),
		contract: make(map[string][]generic.SeriesRow),
		cost:     make(map[string][]generic.SeriesRow),
		schedule: make(map[string][]generic.ScheduleRow),
		coefK:    make(map[key]float64),
	}
}

// AddItems appends analysis rows for a project version.
func (m *Memory) AddItems(project string, version int, rows ...generic.ItemRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{Project: project, Version: version}
	for _, r := range rows {
		r.Project = project
		r.AnalysisVersion = version
		m.items[k] = append(m.items[k], r)
	}
	if _, ok := m.coefK[k]; !ok {
		m.coefK[k] = 0
	}
}

// AddSeries appends contract or cost rows.
func (m *Memory) AddSeries(project string, dataset generic.Dataset, rows ...generic.SeriesRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		r.Project = project
		switch dataset {
		case generic.DatasetContract:
			m.contract[project] = append(m.contract[project], r)
		case generic.DatasetCost:
			m.cost[project] = append(m.cost[project], r)
		}
	}
}

// AddSchedule appends planning rows.
func (m *Memory) AddSchedule(project string, rows ...generic.ScheduleRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		r.Project = project
		m.schedule[project] = append(m.schedule[project], r)
	}
}

// Import adds a snapshot through the Add* helpers.
func (m *Memory) Import(_ context.Context, snap generic.Snapshot) error {
	m.AddItems(snap.Project, snap.Version, snap.Items...)
	m.AddSeries(snap.Project, generic.DatasetContract, snap.Contract...)
	m.AddSeries(snap.Project, generic.DatasetCost, snap.Cost...)
	m.AddSchedule(snap.Project, snap.Schedule...)
	if snap.CoefK > 0 {
		m.mu.Lock()
		m.coefK[key{Project: snap.Project, Version: snap.Version}] = snap.CoefK
		m.mu.Unlock()
	}
	return nil
}

// Reset drops everything.
func (m *Memory) Reset(_ context.Context) error {
	fresh := NewMemory()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items, m.contract, m.cost = fresh.items, fresh.contract, fresh.cost
	m.schedule, m.coefK = fresh.schedule, fresh.coefK
	return nil
}

func (m *Memory) ListProjects(_ context.Context) ([]generic.ProjectVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}

	result := make([]generic.ProjectVersion, 0, len(m.items))
	for k := range m.items {
		result = append(result, generic.ProjectVersion{Project: k.Project, Version: k.Version})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Project != result[j].Project {
			return result[i].Project < result[j].Project
		}
		return result[i].Version < result[j].Version
	})
	return result, nil
}

func (m *Memory) Versions(_ context.Context, project string, dataset generic.Dataset) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}

	seen := make(map[int]bool)
	switch dataset {
	case generic.DatasetContract:
		for _, r := range m.contract[project] {
			seen[r.Version] = true
		}
	case generic.DatasetCost:
		for _, r := range m.cost[project] {
			seen[r.Version] = true
		}
	default:
		for k := range m.items {
			if k.Project == project {
				seen[k.Version] = true
			}
		}
	}

	versions := make([]int, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

func (m *Memory) LoadItems(_ context.Context, project string, analysisVersion int) ([]generic.ItemRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}

	rows := m.items[key{Project: project, Version: analysisVersion}]
	result := make([]generic.ItemRecord, len(rows))
	copy(result, rows)
	sort.SliceStable(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

func (m *Memory) LoadSeries(_ context.Context, project string, dataset generic.Dataset) ([]generic.SeriesRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}

	var rows []generic.SeriesRow
	switch dataset {
	case generic.DatasetContract:
		rows = m.contract[project]
	case generic.DatasetCost:
		rows = m.cost[project]
	default:
		return nil, generic.ErrInvalidSeries
	}
	result := make([]generic.SeriesRow, len(rows))
	copy(result, rows)
	return result, nil
}

func (m *Memory) LoadSchedule(_ context.Context, project string) ([]generic.ScheduleRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return nil, m.Fail
	}

	result := make([]generic.ScheduleRow, len(m.schedule[project]))
	copy(result, m.schedule[project])
	return result, nil
}

func (m *Memory) CoefK(_ context.Context, project string, version int) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Fail != nil {
		return 0, false, m.Fail
	}

	v, ok := m.coefK[key{Project: project, Version: version}]
	if !ok || v <= 0 {
		return 0, false, nil
	}
	return v, true, nil
}

func (m *Memory) SaveCoefK(_ context.Context, project string, version int, coefK float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}

	k := key{Project: project, Version: version}
	if _, ok := m.coefK[k]; !ok {
		return generic.ErrProjectNotFound
	}
	m.coefK[k] = coefK
	return nil
}
