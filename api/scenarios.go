/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built projects that populate the store with realistic
	upstream rows for demos and integration tests. Each scenario exercises
	one part of the engine on the same small building project.

AVAILABLE SCENARIOS:

	obra-demo:     two chapters, a decomposed LineItem, two revisions per series
	version-drop:  obra-demo plus thin later revisions (quality warnings)
	broken-links:  obra-demo plus an unmatched parent code and a parent cycle

HOW SCENARIOS WORK:
 1. Reset the store (clear all rows)
 2. Import one generic.Snapshot per project version
 3. Remember the loaded scenario for GET /api/scenarios/current

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "obra-demo"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: the analysis endpoints the scenarios feed
  - generic/store.go: Writer interface
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/cost-engine/generic"
	"go.uber.org/zap"
)

// DemoProject is the project code every scenario loads.
const DemoProject = "OBRA-DEMO"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []DemoDTO{
	{
		ID:          "obra-demo",
		Name:        "Demo Project",
		Description: "Two chapters, a decomposed line item and two revisions of contract and cost",
		Category:    "analysis",
	},
	{
		ID:          "version-drop",
		Name:        "Version Drop",
		Description: "Later revisions lose most rows, triggering data-quality warnings",
		Category:    "quality",
	},
	{
		ID:          "broken-links",
		Name:        "Broken Links",
		Description: "Rows with unmatched parent codes and a parent cycle",
		Category:    "linkage",
	},
}

type currentScenario struct {
	mu sync.RWMutex
	id string
}

func (c *currentScenario) get() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

func (c *currentScenario) set(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	id := h.current.get()
	for _, s := range scenarios {
		if s.ID == id {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Writer == nil {
		writeError(w, http.StatusNotImplemented, "Store is read-only", nil)
		return
	}
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := scenarioSnapshots(req.ScenarioID); !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	h.current.set("")
	if err := Seed(r.Context(), h.Writer, req.ScenarioID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	h.current.set(req.ScenarioID)
	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
		"project":  DemoProject,
	})
}

// ResetStore clears every row.
func (h *Handler) ResetStore(w http.ResponseWriter, r *http.Request) {
	if h.Writer == nil {
		writeError(w, http.StatusNotImplemented, "Store is read-only", nil)
		return
	}
	if err := h.Writer.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}
	h.current.set("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// Seed resets the writer and imports a scenario.
func Seed(ctx context.Context, w generic.Writer, scenarioID string) error {
	snaps, ok := scenarioSnapshots(scenarioID)
	if !ok {
		return fmt.Errorf("unknown scenario %q", scenarioID)
	}
	if err := w.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	for _, s := range snaps {
		if err := w.Import(ctx, s); err != nil {
			return fmt.Errorf("import %s v%d: %w", s.Project, s.Version, err)
		}
	}
	return nil
}

func scenarioSnapshots(id string) ([]generic.Snapshot, bool) {
	switch id {
	case "obra-demo":
		return []generic.Snapshot{demoSnapshot()}, true
	case "version-drop":
		return []generic.Snapshot{versionDropSnapshot()}, true
	case "broken-links":
		return []generic.Snapshot{brokenLinksSnapshot()}, true
	}
	return nil, false
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

func num(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func band(n int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(n)) }

func line(version int, guid, key, kind, qty, price string) generic.SeriesRow {
	q, p := num(qty), num(price)
	return generic.SeriesRow{
		Version: version, GUID: guid, CompositeKey: key, Kind: kind,
		Quantity: q, Price: p, Amount: q.Mul(p),
	}
}

// demoSnapshot is a small building project, analysis version 1.
//
// Relleno (01.02) is decomposed: its 2000 contract is spread over zahorra,
// labor and roller by their cost weights 600/1000/400. The roller links to
// its parent by GUID and Acero links to Estructura by the informative code.
func demoSnapshot() generic.Snapshot {
	return generic.Snapshot{
		Project: DemoProject,
		Version: 1,
		CoefK:   1.1,
		Items: []generic.ItemRecord{
			{Index: 1, GUID: "ch01", Code: "01", Level: 1, Kind: "Capítulo", Summary: "Movimiento de tierras"},
			{Index: 2, GUID: "p0101", Code: "01.01", ParentCode: "01", Level: 2, Kind: "Partida", Unit: "m3",
				Summary: "Excavación", Classification: band(5), CompositeKey: "K-01.01", ScheduleRef: "T-01"},
			{Index: 3, GUID: "p0102", Code: "01.02", ParentCode: "01", Level: 2, Kind: "Partida", Unit: "m3",
				Summary: "Relleno compactado", Classification: band(3), CompositeKey: "K-01.02", ScheduleRef: "T-02"},
			{Index: 4, GUID: "m0102", Code: "MT.ZAH", ParentCode: "01.02", Level: 3, Kind: "Material", Unit: "t", Summary: "Zahorra"},
			{Index: 5, GUID: "l0102", Code: "MO.PEON", ParentCode: "01.02", Level: 3, Kind: "Mano de obra", Unit: "h", Summary: "Peón"},
			{Index: 6, GUID: "e0102", Code: "MQ.RODILLO", ParentCode: "p0102", Level: 3, Kind: "Maquinaria", Unit: "h", Summary: "Rodillo"},
			{Index: 7, GUID: "ch02", Code: "02", AltCode: "E-02", Level: 1, Kind: "Capítulo", Summary: "Estructura"},
			{Index: 8, GUID: "p0201", Code: "02.01", ParentCode: "02", Level: 2, Kind: "Partida", Unit: "m3",
				Summary: "Hormigón HA-25", Classification: band(1), CompositeKey: "K-02.01", ScheduleRef: "T-03"},
			{Index: 9, GUID: "p0202", Code: "02.02", ParentCode: "E-02", Level: 2, Kind: "Partida", Unit: "kg",
				Summary: "Acero B500S", Classification: band(0), CompositeKey: "K-02.02"},
		},
		Contract: []generic.SeriesRow{
			line(0, "", "K-01.01", "Partida", "100", "12"),
			line(0, "", "K-01.02", "Partida", "50", "20"),
			line(0, "", "K-01.02", "Partida", "50", "20"),
			line(0, "", "K-02.01", "Partida", "40", "125"),
			line(0, "", "K-02.02", "Partida", "1000", "3"),
			line(1, "p0101", "", "Partida", "110", "12"),
			line(1, "p0102", "", "Partida", "50", "42"),
			line(1, "p0201", "", "Partida", "42", "125"),
			line(1, "p0202", "", "Partida", "1000", "3.1"),
		},
		Cost: []generic.SeriesRow{
			line(0, "p0101", "", "Partida", "100", "10"),
			{Version: 0, GUID: "p0102", Kind: "Partida", LineType: "Descompuesto",
				Quantity: num("50"), QuantityDecomposed: num("50"), Price: num("38"), Amount: num("1900")},
			line(0, "m0102", "", "Material", "20", "30"),
			line(0, "l0102", "", "Mano de obra", "40", "25"),
			line(0, "e0102", "", "Maquinaria", "8", "50"),
			line(0, "p0201", "", "Partida", "40", "140"),
			line(0, "p0202", "", "Partida", "1000", "2.5"),
			line(1, "p0101", "", "Partida", "105", "10.5"),
			line(1, "p0102", "", "Partida", "50", "39"),
			line(1, "p0201", "", "Partida", "40", "145"),
			line(1, "p0202", "", "Partida", "1000", "2.6"),
		},
		Schedule: []generic.ScheduleRow{
			{ScheduleRef: "T-01", Start: "2024-01-08", End: "2024-01-31", Duration: num("18")},
			{ScheduleRef: "T-02", Start: "2024-02-01", End: "2024-03-15", Duration: num("32")},
			{ScheduleRef: "T-03", Start: "2024-03-01", End: "2024-05-31", Duration: num("66")},
		},
	}
}

// versionDropSnapshot adds a contract v2 holding one of four LineItems and a
// cost v2 whose rows are all zero.
func versionDropSnapshot() generic.Snapshot {
	s := demoSnapshot()
	s.Contract = append(s.Contract, line(2, "p0101", "", "Partida", "110", "12"))
	for _, guid := range []string{"p0101", "p0102", "p0201", "p0202"} {
		s.Cost = append(s.Cost, line(2, guid, "", "Partida", "0", "0"))
	}
	return s
}

// brokenLinksSnapshot adds a row whose parent code matches nothing and two
// rows naming each other as parent.
func brokenLinksSnapshot() generic.Snapshot {
	s := demoSnapshot()
	s.Items = append(s.Items,
		generic.ItemRecord{Index: 10, GUID: "x9901", Code: "99.01", ParentCode: "99", Level: 2, Kind: "Partida",
			Summary: "Partida sin capítulo", CompositeKey: "K-99.01"},
		generic.ItemRecord{Index: 11, GUID: "c1", Code: "C1", ParentCode: "C2", Level: 1, Kind: "Capítulo", Summary: "Ciclo A"},
		generic.ItemRecord{Index: 12, GUID: "c2", Code: "C2", ParentCode: "C1", Level: 1, Kind: "Capítulo", Summary: "Ciclo B"},
	)
	s.Contract = append(s.Contract, line(0, "", "K-99.01", "Partida", "1", "500"))
	s.Cost = append(s.Cost, line(0, "x9901", "", "Partida", "1", "450"))
	return s
}
