/*
handlers.go - HTTP API handlers for the cost analysis engine

PURPOSE:
  Exposes the analysis engine via REST API. Handles HTTP request/response,
  query parsing and JSON serialization, and delegates to analysis.Engine.
  Every analysis endpoint runs one full pass on a private working set.

ENDPOINTS:
  Catalog:
    GET    /api/projects                          List projects and versions
    GET    /api/projects/{project}/versions       Versions of one dataset
    GET    /api/projects/{project}/coefk          Stored cost multiplier
    PUT    /api/projects/{project}/coefk          Update cost multiplier

  Analysis:
    GET    /api/projects/{project}/analysis       Totals, tree and link summary
    GET    /api/projects/{project}/certainty      Certainty band table
    GET    /api/projects/{project}/deviations     Deviation ranking
    GET    /api/projects/{project}/calendar       Monthly allocation grid
    GET    /api/projects/{project}/compare        Version-to-version deltas
    GET    /api/projects/{project}/quality        Data-quality issues

COMMON QUERY PARAMETERS:
  version   analysis version (default 0)
  contract  contract version (default 0)
  cost      cost version, also the reallocation weighting basis (default 0)
  coef_k    cost multiplier; absent or <= 0 uses the stored value

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: invalid version, series, measure or coefficient
  - 404: project not found
  - 500: upstream failures; no partial data is returned

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/cost-engine/analysis"
	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/quality"
	"github.com/warp/cost-engine/schedule"
	"github.com/warp/cost-engine/variance"
	"github.com/warp/cost-engine/wbs"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *analysis.Engine

	// Writer receives demo scenarios; nil disables the scenario endpoints.
	Writer generic.Writer
	Logger *zap.Logger

	// Track currently loaded scenario
	current currentScenario
}

// NewHandler creates a handler over an engine and an optional writer.
func NewHandler(engine *analysis.Engine, writer generic.Writer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Engine: engine, Writer: writer, Logger: logger}
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListProjects returns every project with its analysis versions.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	pvs, err := h.Engine.Projects(r.Context())
	if err != nil {
		h.writeEngineError(w, "Failed to list projects", err)
		return
	}

	dtos := []ProjectDTO{}
	for _, pv := range pvs {
		if n := len(dtos); n > 0 && dtos[n-1].Project == pv.Project {
			dtos[n-1].Versions = append(dtos[n-1].Versions, pv.Version)
			continue
		}
		dtos = append(dtos, ProjectDTO{Project: pv.Project, Versions: []int{pv.Version}})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListVersions returns the versions of one dataset.
// GET /api/projects/{project}/versions?dataset=analysis|contract|cost
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	ds, err := generic.ParseDataset(r.URL.Query().Get("dataset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dataset", err)
		return
	}

	vs, err := h.Engine.Versions(r.Context(), project, ds)
	if err != nil {
		h.writeEngineError(w, "Failed to list versions", err)
		return
	}
	writeJSON(w, http.StatusOK, VersionsDTO{Project: project, Dataset: ds, Versions: vs})
}

// GetCoefK returns the effective multiplier of a project version.
func (h *Handler) GetCoefK(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	version, err := queryInt(r, "version", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid version", err)
		return
	}

	k, err := h.Engine.ResolveCoefK(r.Context(), project, version)
	if err != nil {
		h.writeEngineError(w, "Failed to read coefK", err)
		return
	}
	writeJSON(w, http.StatusOK, CoefKDTO{Project: project, Version: version, CoefK: k})
}

// SetCoefK updates the multiplier.
// PUT /api/projects/{project}/coefk {"version":0,"coef_k":1.1}
func (h *Handler) SetCoefK(w http.ResponseWriter, r *http.Request) {
	project := chi.URLParam(r, "project")
	var req SetCoefKRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Engine.SaveCoefK(r.Context(), project, req.Version, req.CoefK); err != nil {
		h.writeEngineError(w, "Failed to save coefK", err)
		return
	}
	writeJSON(w, http.StatusOK, CoefKDTO{Project: project, Version: req.Version, CoefK: req.CoefK})
}

// =============================================================================
// ANALYSIS HANDLERS
// =============================================================================

// GetAnalysis runs a pass and returns totals, the tree and link counts.
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAnalysis(res))
}

// GetCertainty returns the certainty band table.
func (h *Handler) GetCertainty(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toCertainty(res.RunID, res.Request.CoefK, res.Certainty))
}

// GetDeviations returns the deviation ranking, ordered by ?order=amount|quantity.
func (h *Handler) GetDeviations(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRanking(res.RunID, res.Deviations))
}

// GetCalendar returns the monthly allocation grid.
// GET /api/projects/{project}/calendar?series=contract|cost&source_version=&measure=amount|quantity
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	q := r.URL.Query()
	series := wbs.SeriesContract
	if s := q.Get("series"); s != "" {
		if series, err = wbs.ParseSeries(s); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid series", err)
			return
		}
	}
	measure, err := schedule.ParseMeasure(q.Get("measure"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid measure", err)
		return
	}
	version, err := queryInt(r, "source_version", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid source_version", err)
		return
	}

	grid, err := h.Engine.Calendar(r.Context(), req, schedule.Selector{
		Series: series, Version: version, Measure: measure,
	})
	if err != nil {
		h.writeEngineError(w, "Failed to build calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, toGrid(grid))
}

// GetComparison compares two versions of one series.
// GET /api/projects/{project}/compare?series=&a=&b=&coef_k=
func (h *Handler) GetComparison(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	series, err := wbs.ParseSeries(r.URL.Query().Get("series"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid series", err)
		return
	}
	a, err := queryInt(r, "a", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid version a", err)
		return
	}
	b, err := queryInt(r, "b", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid version b", err)
		return
	}

	c, err := h.Engine.Compare(r.Context(), req, series, a, b)
	if err != nil {
		h.writeEngineError(w, "Failed to compare versions", err)
		return
	}
	writeJSON(w, http.StatusOK, toComparison(c))
}

// GetQuality returns data-quality issues and per-version row statistics.
// GET /api/projects/{project}/quality?contract_versions=0,1&cost_versions=0,1&scope=both
func (h *Handler) GetQuality(w http.ResponseWriter, r *http.Request) {
	scope := quality.Scope(strings.ToLower(r.URL.Query().Get("scope")))
	switch scope {
	case "":
		scope = quality.ScopeBoth
	case quality.ScopeBoth, quality.ScopeContract, quality.ScopeCost:
	default:
		writeError(w, http.StatusBadRequest, "Invalid scope", fmt.Errorf("%w: %q", generic.ErrInvalidSeries, scope))
		return
	}

	res, ok := h.run(w, r)
	if !ok {
		return
	}

	cv := res.Request.QualityContractVersions
	if len(cv) == 0 {
		cv = res.ContractVersions
	}
	kv := res.Request.QualityCostVersions
	if len(kv) == 0 {
		kv = res.CostVersions
	}

	dto := QualityDTO{RunID: res.RunID, Issues: []quality.Issue{}}
	for _, is := range res.Quality {
		if scope == quality.ScopeBoth || is.Series == "" || string(is.Series) == string(scope) {
			dto.Issues = append(dto.Issues, is)
		}
	}
	if scope != quality.ScopeCost {
		dto.Contract = quality.Stats(res.Items, wbs.SeriesContract, cv)
	}
	if scope != quality.ScopeContract {
		dto.Cost = quality.Stats(res.Items, wbs.SeriesCost, kv)
	}
	writeJSON(w, http.StatusOK, dto)
}

// run parses the common query, runs one pass and writes the error response
// on failure.
func (h *Handler) run(w http.ResponseWriter, r *http.Request) (*analysis.Result, bool) {
	req, err := parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return nil, false
	}
	res, err := h.Engine.Run(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, "Analysis failed", err)
		return nil, false
	}
	return res, true
}

// =============================================================================
// REQUEST PARSING
// =============================================================================

// parseRequest reads the common analysis parameters.
func parseRequest(r *http.Request) (analysis.Request, error) {
	req := analysis.Request{Project: chi.URLParam(r, "project")}
	var err error
	if req.AnalysisVersion, err = queryInt(r, "version", 0); err != nil {
		return req, err
	}
	if req.ContractVersion, err = queryInt(r, "contract", 0); err != nil {
		return req, err
	}
	if req.CostVersion, err = queryInt(r, "cost", 0); err != nil {
		return req, err
	}

	q := r.URL.Query()
	if s := q.Get("coef_k"); s != "" {
		if req.CoefK, err = strconv.ParseFloat(s, 64); err != nil {
			return req, fmt.Errorf("%w: %q", generic.ErrInvalidCoefficient, s)
		}
	}
	if req.OrderBy, err = variance.ParseOrderKey(q.Get("order")); err != nil {
		return req, err
	}
	if req.QualityContractVersions, err = queryInts(r, "contract_versions"); err != nil {
		return req, err
	}
	if req.QualityCostVersions, err = queryInts(r, "cost_versions"); err != nil {
		return req, err
	}
	return req, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", generic.ErrInvalidVersion, name, s)
	}
	return v, nil
}

// queryInts parses a comma-separated version list, sorted and deduplicated.
func queryInts(r *http.Request, name string) ([]int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: %s=%q", generic.ErrInvalidVersion, name, s)
		}
		out = append(out, v)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors to status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		var se *generic.SourceError
		if errors.As(err, &se) {
			h.Logger.Error("upstream failure", zap.String("op", se.Op), zap.String("project", se.Project), zap.Error(se.Err))
		} else {
			h.Logger.Error(message, zap.Error(err))
		}
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
