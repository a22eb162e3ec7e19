package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/variance"
	"go.uber.org/zap"
)

// Request selects what one run reads.
//
// CostVersion is both the cost revision compared against the contract and
// the reference weighting basis for decomposition reallocation. CoefK <= 0
// means "use the stored coefficient", falling back to Engine.DefaultCoefK.
type Request struct {
	Project         string  `json:"project"`
	AnalysisVersion int     `json:"analysis_version"`
	ContractVersion int     `json:"contract_version"`
	CostVersion     int     `json:"cost_version"`
	CoefK           float64 `json:"coef_k"`

	OrderBy variance.OrderKey `json:"order_by,omitempty"`

	// Quality checks compare these versions; empty means every version
	// present in the data.
	QualityContractVersions []int `json:"quality_contract_versions,omitempty"`
	QualityCostVersions     []int `json:"quality_cost_versions,omitempty"`
}

func (r Request) validate() error {
	if r.Project == "" {
		return fmt.Errorf("%w: empty project", generic.ErrProjectNotFound)
	}
	for _, v := range []int{r.AnalysisVersion, r.ContractVersion, r.CostVersion} {
		if v < 0 {
			return fmt.Errorf("%w: %d", generic.ErrInvalidVersion, v)
		}
	}
	for _, vs := range [][]int{r.QualityContractVersions, r.QualityCostVersions} {
		for _, v := range vs {
			if v < 0 {
				return fmt.Errorf("%w: %d", generic.ErrInvalidVersion, v)
			}
		}
	}
	if math.IsNaN(r.CoefK) || math.IsInf(r.CoefK, 0) {
		return generic.ErrInvalidCoefficient
	}
	return nil
}

// normalize validates the request and resolves coefK.
func (e *Engine) normalize(ctx context.Context, r Request) (Request, error) {
	if err := r.validate(); err != nil {
		return r, err
	}
	if r.OrderBy == "" {
		r.OrderBy = variance.OrderByAmount
	}
	if r.CoefK > 0 {
		return r, nil
	}
	k, err := e.ResolveCoefK(ctx, r.Project, r.AnalysisVersion)
	if err != nil {
		return r, err
	}
	r.CoefK = k
	return r, nil
}

// ResolveCoefK returns the stored coefficient of a project version, or the
// engine default when none is stored.
func (e *Engine) ResolveCoefK(ctx context.Context, project string, version int) (float64, error) {
	k, ok, err := e.Source.CoefK(ctx, project, version)
	if err != nil {
		return 0, generic.WrapSource("load coefK", project, err)
	}
	if ok && k > 0 {
		return k, nil
	}
	if e.DefaultCoefK > 0 {
		return e.DefaultCoefK, nil
	}
	return 1.0, nil
}

// SaveCoefK validates and stores a coefficient.
func (e *Engine) SaveCoefK(ctx context.Context, project string, version int, k float64) error {
	if version < 0 {
		return generic.ErrInvalidVersion
	}
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return fmt.Errorf("%w: %v", generic.ErrInvalidCoefficient, k)
	}
	if err := e.Source.SaveCoefK(ctx, project, version, k); err != nil {
		if generic.IsNotFound(err) {
			return err
		}
		return generic.WrapSource("save coefK", project, err)
	}
	e.logger().Info("coefK updated",
		zap.String("project", project), zap.Int("version", version), zap.Float64("coef_k", k))
	return nil
}

// =============================================================================
// CATALOG
// =============================================================================

// Projects lists every project and analysis version in the source.
func (e *Engine) Projects(ctx context.Context) ([]generic.ProjectVersion, error) {
	ps, err := e.Source.ListProjects(ctx)
	if err != nil {
		return nil, generic.WrapSource("list projects", "", err)
	}
	return ps, nil
}

// Versions lists the versions of one dataset, newest first.
func (e *Engine) Versions(ctx context.Context, project string, ds generic.Dataset) ([]int, error) {
	vs, err := e.Source.Versions(ctx, project, ds)
	if err != nil {
		return nil, generic.WrapSource("list versions", project, err)
	}
	return vs, nil
}
