/*
root.go - costctl command tree

PURPOSE:
  Terminal front end for the analysis engine. Every command runs the same
  pass the HTTP API runs and prints either an aligned table (terminal) or
  JSON (pipes and --output json).

COMMANDS:
  projects                       List projects and analysis versions
  versions   <project>           Versions of one dataset
  analyze    <project>           Totals, link summary and certainty bands
  deviations <project>           Most negative and most positive LineItems
  calendar   <project>           Monthly allocation grid
  compare    <project>           Version-to-version deltas
  quality    <project>           Data-quality issues
  coefk      get|set <project>   Read or store the cost multiplier
  seed       <scenario>          Reset the store and load a demo scenario

SEE ALSO:
  - cmd/costctl/main.go: wiring
  - format.go: text renderers
*/
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/cost-engine/analysis"
	"github.com/warp/cost-engine/generic"
)

// Output modes for --output.
const (
	OutputAuto = "auto"
	OutputText = "text"
	OutputJSON = "json"
)

// App holds what the commands need.
type App struct {
	Engine *analysis.Engine

	// Writer is nil when the store is read-only; seed then fails.
	Writer generic.Writer

	Out io.Writer

	// IsTerminal reports whether Out is an interactive terminal.
	IsTerminal func() bool

	output string
}

// NewRootCmd creates the top-level "costctl" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	if app.Out == nil {
		app.Out = os.Stdout
	}

	root := &cobra.Command{
		Use:           "costctl",
		Short:         "Contract and cost reconciliation for construction projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch app.output {
			case OutputAuto, OutputText, OutputJSON:
				return nil
			}
			return fmt.Errorf("invalid --output %q (auto, text or json)", app.output)
		},
	}
	root.SetOut(app.Out)
	root.PersistentFlags().StringVarP(&app.output, "output", "o", OutputAuto, "Output format: auto, text or json")

	root.AddCommand(
		newProjectsCmd(app),
		newVersionsCmd(app),
		newAnalyzeCmd(app),
		newDeviationsCmd(app),
		newCalendarCmd(app),
		newCompareCmd(app),
		newQualityCmd(app),
		newCoefKCmd(app),
		newSeedCmd(app),
	)

	return root
}

// text reports whether output should be rendered as a table.
func (a *App) text() bool {
	switch a.output {
	case OutputText:
		return true
	case OutputJSON:
		return false
	}
	return a.IsTerminal != nil && a.IsTerminal()
}

// print writes v as JSON or via render.
func (a *App) print(v any, render func() string) error {
	if a.text() {
		_, err := fmt.Fprint(a.Out, render())
		return err
	}
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
