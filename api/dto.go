/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's result types from the external contract and carry the
  presentation rounding: every monetary figure leaves the API rounded to
  cents with decimal arithmetic (generic.Round2). Quantities and
  percentages are rounded the same way.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - analysis/engine.go: Result types being mapped
*/
package api

import (
	"github.com/warp/cost-engine/analysis"
	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/ingest"
	"github.com/warp/cost-engine/quality"
	"github.com/warp/cost-engine/schedule"
	"github.com/warp/cost-engine/variance"
	"github.com/warp/cost-engine/wbs"
)

// =============================================================================
// CATALOG
// =============================================================================

// ProjectDTO groups the analysis versions of one project.
type ProjectDTO struct {
	Project  string `json:"project"`
	Versions []int  `json:"versions"`
}

// VersionsDTO lists the versions of one dataset, newest first.
type VersionsDTO struct {
	Project  string          `json:"project"`
	Dataset  generic.Dataset `json:"dataset"`
	Versions []int           `json:"versions"`
}

// CoefKDTO is the cost multiplier of a project version.
type CoefKDTO struct {
	Project string  `json:"project"`
	Version int     `json:"version"`
	CoefK   float64 `json:"coef_k"`
}

// SetCoefKRequest is the body of PUT /coefk.
type SetCoefKRequest struct {
	Version int     `json:"version"`
	CoefK   float64 `json:"coef_k"`
}

// ErrorResponse is the error body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// ANALYSIS
// =============================================================================

// ReadingDTO is one rounded series reading.
type ReadingDTO struct {
	Quantity float64      `json:"quantity"`
	Price    float64      `json:"price"`
	Amount   float64      `json:"amount"`
	LineType wbs.LineType `json:"line_type"`
}

func toReading(r wbs.Reading) ReadingDTO {
	return ReadingDTO{
		Quantity: generic.Round2(r.Quantity),
		Price:    generic.Round2(r.Price),
		Amount:   generic.Round2(r.Amount),
		LineType: r.LineType,
	}
}

// NodeDTO is one tree node with the selected contract and cost readings.
type NodeDTO struct {
	GUID           string     `json:"guid"`
	Code           string     `json:"code"`
	AltCode        string     `json:"alt_code,omitempty"`
	Summary        string     `json:"summary,omitempty"`
	Kind           wbs.Kind   `json:"kind"`
	Level          int        `json:"level"`
	Depth          int        `json:"depth"`
	Unit           string     `json:"unit,omitempty"`
	Classification int        `json:"classification"`
	Contract       ReadingDTO `json:"contract"`
	Cost           ReadingDTO `json:"cost"`
	CostK          ReadingDTO `json:"cost_k"`
	Difference     float64    `json:"difference"` // cost×K - contract
	Children       []NodeDTO  `json:"children,omitempty"`
}

func toNodes(forest []*wbs.TreeNode, req analysis.Request) []NodeDTO {
	out := make([]NodeDTO, 0, len(forest))
	for _, n := range forest {
		it := n.Item
		cost := wbs.ReadSeries(it, wbs.SeriesCost, req.CostVersion)
		contract := wbs.ReadSeries(it, wbs.SeriesContract, req.ContractVersion)
		costK := cost.Scaled(req.CoefK)
		out = append(out, NodeDTO{
			GUID:           it.GUID,
			Code:           it.Code,
			AltCode:        it.AltCode,
			Summary:        it.Summary,
			Kind:           it.Kind,
			Level:          it.Level,
			Depth:          n.Depth,
			Unit:           it.Unit,
			Classification: it.ClassificationBand(),
			Contract:       toReading(contract),
			Cost:           toReading(cost),
			CostK:          toReading(costK),
			Difference:     generic.Round2(costK.Amount - contract.Amount),
			Children:       toNodes(n.Children, req),
		})
	}
	return out
}

// TotalsDTO mirrors variance.Totals, rounded.
type TotalsDTO struct {
	LineItems  int     `json:"line_items"`
	Contract   float64 `json:"contract"`
	Cost       float64 `json:"cost"`
	CostK      float64 `json:"cost_k"`
	Difference float64 `json:"difference"`
	Variance   float64 `json:"variance"`
}

func toTotals(t variance.Totals) TotalsDTO {
	return TotalsDTO{
		LineItems:  t.LineItems,
		Contract:   generic.Round2(t.Contract),
		Cost:       generic.Round2(t.Cost),
		CostK:      generic.Round2(t.CostK),
		Difference: generic.Round2(t.Difference),
		Variance:   generic.Round2(t.Variance),
	}
}

// AnalysisDTO is the response of GET /analysis.
type AnalysisDTO struct {
	RunID            string               `json:"run_id"`
	Request          analysis.Request     `json:"request"`
	Totals           TotalsDTO            `json:"totals"`
	Links            analysis.LinkSummary `json:"links"`
	Load             ingest.LoadStats     `json:"load"`
	ContractVersions []int                `json:"contract_versions"`
	CostVersions     []int                `json:"cost_versions"`
	Reallocated      int                  `json:"reallocated"`
	Skipped          int                  `json:"skipped"`
	Issues           int                  `json:"issues"`
	DurationMS       float64              `json:"duration_ms"`
	Tree             []NodeDTO            `json:"tree"`
}

func toAnalysis(res *analysis.Result) AnalysisDTO {
	return AnalysisDTO{
		RunID:            res.RunID,
		Request:          res.Request,
		Totals:           toTotals(res.Totals),
		Links:            res.Links,
		Load:             res.Load,
		ContractVersions: res.ContractVersions,
		CostVersions:     res.CostVersions,
		Reallocated:      res.Reallocation.Reallocated,
		Skipped:          res.Reallocation.Skipped,
		Issues:           len(res.Quality),
		DurationMS:       generic.Round2(float64(res.Duration.Microseconds()) / 1000),
		Tree:             toNodes(res.Forest, res.Request),
	}
}

// =============================================================================
// CERTAINTY
// =============================================================================

type OutcomeDTO struct {
	Planned     float64 `json:"planned"`
	Optimistic  float64 `json:"optimistic"`
	Pessimistic float64 `json:"pessimistic"`
}

func toOutcome(s variance.Scenario) OutcomeDTO {
	return OutcomeDTO{
		Planned:     generic.Round2(s.Planned),
		Optimistic:  generic.Round2(s.Optimistic),
		Pessimistic: generic.Round2(s.Pessimistic),
	}
}

type BandDTO struct {
	Classification int     `json:"classification"`
	Description    string  `json:"description"`
	Percent        float64 `json:"percent"`
	Items          int     `json:"items"`
	OutcomeDTO
}

// CertaintyDTO is the response of GET /certainty.
type CertaintyDTO struct {
	RunID        string      `json:"run_id"`
	CoefK        float64     `json:"coef_k"`
	Bands        []BandDTO   `json:"bands"`
	Unclassified int         `json:"unclassified"`
	Cost         OutcomeDTO `json:"cost"`
	Sale         float64     `json:"sale"`
	Result       OutcomeDTO `json:"result"`
}

func toCertainty(runID string, k float64, c variance.Certainty) CertaintyDTO {
	bands := make([]BandDTO, len(c.Bands))
	for i, b := range c.Bands {
		bands[i] = BandDTO{
			Classification: b.Classification,
			Description:    b.Description,
			Percent:        b.Percent,
			Items:          b.Items,
			OutcomeDTO:    toOutcome(b.Scenario),
		}
	}
	return CertaintyDTO{
		RunID:        runID,
		CoefK:        k,
		Bands:        bands,
		Unclassified: c.Unclassified,
		Cost:         toOutcome(c.Cost),
		Sale:         generic.Round2(c.Sale),
		Result:       toOutcome(c.Result),
	}
}

// =============================================================================
// DEVIATIONS
// =============================================================================

type DeviationDTO struct {
	GUID         string     `json:"guid"`
	Code         string     `json:"code"`
	Summary      string     `json:"summary,omitempty"`
	Unit         string     `json:"unit,omitempty"`
	Contract     ReadingDTO `json:"contract"`
	CostK        ReadingDTO `json:"cost_k"`
	QuantityDiff float64    `json:"quantity_diff"`
	AmountDiff   float64    `json:"amount_diff"`
	Variance     float64    `json:"variance"`
}

type SubtotalDTO struct {
	Items        int     `json:"items"`
	Contract     float64 `json:"contract"`
	CostK        float64 `json:"cost_k"`
	AmountDiff   float64 `json:"amount_diff"`
	QuantityDiff float64 `json:"quantity_diff"`
	Variance     float64 `json:"variance"`
}

// DeviationsDTO is the response of GET /deviations.
type DeviationsDTO struct {
	RunID            string            `json:"run_id"`
	OrderBy          variance.OrderKey `json:"order_by"`
	Negative         []DeviationDTO    `json:"negative"`
	NegativeSubtotal SubtotalDTO       `json:"negative_subtotal"`
	Positive         []DeviationDTO    `json:"positive"`
	PositiveSubtotal SubtotalDTO       `json:"positive_subtotal"`
}

func toDeviations(ds []variance.Deviation) []DeviationDTO {
	out := make([]DeviationDTO, len(ds))
	for i, d := range ds {
		out[i] = DeviationDTO{
			GUID:         d.GUID,
			Code:         d.Code,
			Summary:      d.Summary,
			Unit:         d.Unit,
			Contract:     toReading(d.Contract),
			CostK:        toReading(d.CostK),
			QuantityDiff: generic.Round2(d.QuantityDiff),
			AmountDiff:   generic.Round2(d.AmountDiff),
			Variance:     generic.Round2(d.Variance),
		}
	}
	return out
}

func toSubtotal(s variance.Subtotal) SubtotalDTO {
	return SubtotalDTO{
		Items:        s.Items,
		Contract:     generic.Round2(s.Contract),
		CostK:        generic.Round2(s.CostK),
		AmountDiff:   generic.Round2(s.AmountDiff),
		QuantityDiff: generic.Round2(s.QuantityDiff),
		Variance:     generic.Round2(s.Variance),
	}
}

func toRanking(runID string, r variance.Ranking) DeviationsDTO {
	return DeviationsDTO{
		RunID:            runID,
		OrderBy:          r.OrderBy,
		Negative:         toDeviations(r.Negative),
		NegativeSubtotal: toSubtotal(r.NegativeSubtotal),
		Positive:         toDeviations(r.Positive),
		PositiveSubtotal: toSubtotal(r.PositiveSubtotal),
	}
}

// =============================================================================
// CALENDAR, COMPARE, QUALITY
// =============================================================================

func roundAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = generic.Round2(v)
	}
	return out
}

// toGrid rounds a grid in place; the grid is private to the request.
func toGrid(g *schedule.Grid) *schedule.Grid {
	for i := range g.Rows {
		r := &g.Rows[i]
		r.Value = generic.Round2(r.Value)
		r.DurationMonths = generic.Round2(r.DurationMonths)
		r.DailyRate = generic.Round2(r.DailyRate)
		r.Months = roundAll(r.Months)
	}
	g.Totals.Value = generic.Round2(g.Totals.Value)
	g.Totals.Months = roundAll(g.Totals.Months)
	return g
}

func roundReading(r wbs.Reading) wbs.Reading {
	r.Quantity = generic.Round2(r.Quantity)
	r.Price = generic.Round2(r.Price)
	r.Amount = generic.Round2(r.Amount)
	return r
}

// toComparison rounds a comparison in place.
func toComparison(c *variance.Comparison) *variance.Comparison {
	for i := range c.Items {
		it := &c.Items[i]
		it.A, it.B = roundReading(it.A), roundReading(it.B)
		it.QuantityDiff = generic.Round2(it.QuantityDiff)
		it.AmountDiff = generic.Round2(it.AmountDiff)
		it.Variance = generic.Round2(it.Variance)
	}
	c.TotalA = generic.Round2(c.TotalA)
	c.TotalB = generic.Round2(c.TotalB)
	c.Difference = generic.Round2(c.Difference)
	c.Variance = generic.Round2(c.Variance)
	return c
}

// QualityDTO is the response of GET /quality.
type QualityDTO struct {
	RunID    string                 `json:"run_id"`
	Issues   []quality.Issue        `json:"issues"`
	Contract []quality.VersionStats `json:"contract"`
	Cost     []quality.VersionStats `json:"cost"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// DemoDTO describes a demo scenario.
type DemoDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}
