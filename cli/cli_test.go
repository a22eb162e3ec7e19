package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/cost-engine/analysis"
	"github.com/warp/cost-engine/api"
	"github.com/warp/cost-engine/generic"
	"github.com/warp/cost-engine/quality"
	"github.com/warp/cost-engine/store/sqlite"
	"github.com/warp/cost-engine/variance"
	"go.uber.org/zap/zaptest"
)

func newTestApp(t *testing.T, terminal bool) (*App, *bytes.Buffer) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, api.Seed(context.Background(), st, "obra-demo"))

	var out bytes.Buffer
	return &App{
		Engine:     analysis.NewEngine(st, zaptest.NewLogger(t)),
		Writer:     st,
		Out:        &out,
		IsTerminal: func() bool { return terminal },
	}, &out
}

func execute(t *testing.T, app *App, args ...string) error {
	t.Helper()
	root := NewRootCmd(app)
	root.SetArgs(args)
	return root.Execute()
}

func TestAnalyze_JSONWhenPiped(t *testing.T) {
	// GIVEN: the demo project and a non-terminal stdout
	app, out := newTestApp(t, false)

	// WHEN: analyzing analysis version 1
	require.NoError(t, execute(t, app, "analyze", api.DemoProject, "--version", "1"))

	// THEN: the run result is printed as JSON
	var res analysis.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.InDelta(t, 11200, res.Totals.Contract, 0.001)
	assert.InDelta(t, 11000, res.Totals.Cost, 0.001)
	assert.InDelta(t, 12100, res.Totals.CostK, 0.001)
	assert.Equal(t, 2, res.Reallocation.Reallocated)
}

func TestAnalyze_TableOnTerminal(t *testing.T) {
	// GIVEN: an interactive terminal
	app, out := newTestApp(t, true)

	// WHEN: analyzing
	require.NoError(t, execute(t, app, "analyze", api.DemoProject, "--version", "1"))

	// THEN: totals and the certainty table are rendered as text
	s := out.String()
	assert.Contains(t, s, "OBRA-DEMO v1")
	assert.Contains(t, s, "11200.00")
	assert.Contains(t, s, "RESULT")
	assert.Contains(t, s, "sale 11200.00")
}

func TestOutputFlag_OverridesTerminal(t *testing.T) {
	// GIVEN: a terminal, but --output json
	app, out := newTestApp(t, true)

	// WHEN
	require.NoError(t, execute(t, app, "projects", "-o", "json"))

	// THEN
	var pvs []generic.ProjectVersion
	require.NoError(t, json.Unmarshal(out.Bytes(), &pvs))
	require.Len(t, pvs, 1)
	assert.Equal(t, api.DemoProject, pvs[0].Project)
	assert.Equal(t, 1, pvs[0].Version)
}

func TestOutputFlag_Invalid(t *testing.T) {
	app, _ := newTestApp(t, false)
	err := execute(t, app, "projects", "-o", "xml")
	assert.ErrorContains(t, err, "invalid --output")
}

func TestDeviations_TopLimitsLists(t *testing.T) {
	// GIVEN
	app, out := newTestApp(t, false)

	// WHEN: asking for one entry per list
	require.NoError(t, execute(t, app, "deviations", api.DemoProject, "--version", "1", "--top", "1"))

	// THEN: the most negative and most positive LineItems lead
	var r variance.Ranking
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	require.Len(t, r.Negative, 1)
	require.Len(t, r.Positive, 1)
	assert.Equal(t, "p0201", r.Negative[0].GUID)
	assert.Equal(t, "p0202", r.Positive[0].GUID)
}

func TestDeviations_BadOrder(t *testing.T) {
	app, _ := newTestApp(t, false)
	err := execute(t, app, "deviations", api.DemoProject, "--order", "size")
	assert.Error(t, err)
}

func TestCalendar_Table(t *testing.T) {
	// GIVEN
	app, out := newTestApp(t, true)

	// WHEN
	require.NoError(t, execute(t, app, "calendar", api.DemoProject, "--version", "1"))

	// THEN: month columns carry the localized labels
	s := out.String()
	assert.Contains(t, s, "Ene 2024")
	assert.Contains(t, s, "May 2024")
	assert.Contains(t, s, "TOTAL")
}

func TestCompare_JSON(t *testing.T) {
	app, out := newTestApp(t, false)

	require.NoError(t, execute(t, app, "compare", api.DemoProject, "--version", "1", "--series", "contract"))

	var c variance.Comparison
	require.NoError(t, json.Unmarshal(out.Bytes(), &c))
	assert.InDelta(t, 11200, c.TotalA, 0.001)
	assert.InDelta(t, 11770, c.TotalB, 0.001)
}

func TestQuality_ScopeValidation(t *testing.T) {
	app, _ := newTestApp(t, false)
	err := execute(t, app, "quality", api.DemoProject, "--scope", "sales")
	assert.ErrorIs(t, err, generic.ErrInvalidSeries)
}

func TestQuality_VersionDrop(t *testing.T) {
	// GIVEN: a scenario whose later revisions lose rows
	app, out := newTestApp(t, false)
	require.NoError(t, execute(t, app, "seed", "version-drop"))
	out.Reset()

	// WHEN: checking only the contract series
	require.NoError(t, execute(t, app, "quality", api.DemoProject, "--version", "1", "--scope", "contract"))

	// THEN: every issue is a contract or linkage issue and at least one exists
	var issues []quality.Issue
	require.NoError(t, json.Unmarshal(out.Bytes(), &issues))
	require.NotEmpty(t, issues)
	for _, is := range issues {
		assert.NotEqual(t, "cost", string(is.Series))
	}
}

func TestCoefK_SetThenGet(t *testing.T) {
	// GIVEN
	app, out := newTestApp(t, false)

	// WHEN: storing a new multiplier
	require.NoError(t, execute(t, app, "coefk", "set", api.DemoProject, "1.25", "--version", "1"))
	out.Reset()
	require.NoError(t, execute(t, app, "coefk", "get", api.DemoProject, "--version", "1"))

	// THEN
	var got coefKOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, 1.25, got.CoefK)
}

func TestCoefK_SetRejectsNonPositive(t *testing.T) {
	app, _ := newTestApp(t, false)
	err := execute(t, app, "coefk", "set", api.DemoProject, "0", "--version", "1")
	assert.ErrorIs(t, err, generic.ErrInvalidCoefficient)

	err = execute(t, app, "coefk", "set", api.DemoProject, "abc")
	assert.ErrorIs(t, err, generic.ErrInvalidCoefficient)
}

func TestSeed_ReadOnlyAndUnknown(t *testing.T) {
	app, _ := newTestApp(t, false)
	assert.Error(t, execute(t, app, "seed", "nope"))

	app.Writer = nil
	assert.ErrorContains(t, execute(t, app, "seed", "obra-demo"), "read-only")
}

func TestVersions_Dataset(t *testing.T) {
	app, out := newTestApp(t, true)

	require.NoError(t, execute(t, app, "versions", api.DemoProject, "--dataset", "contract"))

	assert.Equal(t, "OBRA-DEMO contract versions: 1, 0\n", out.String())
}

func TestRenderTable_AlignsNumbersRight(t *testing.T) {
	out := RenderTable([]string{"CODE", "AMOUNT"}, [][]string{{"01.01", "5.00"}, {"01.02", "1200.00"}})
	assert.Contains(t, out, "01.01     5.00")
	assert.Contains(t, out, "01.02  1200.00")
}
