package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/warp/cost-engine/api"
	"github.com/warp/cost-engine/generic"
)

func newProjectsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects and their analysis versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pvs, err := app.Engine.Projects(cmd.Context())
			if err != nil {
				return err
			}
			if pvs == nil {
				pvs = []generic.ProjectVersion{}
			}
			return app.print(pvs, func() string { return FormatProjects(pvs) })
		},
	}
}

func newVersionsCmd(app *App) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "versions <project>",
		Short: "List the versions of one dataset, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := generic.ParseDataset(dataset)
			if err != nil {
				return err
			}
			vs, err := app.Engine.Versions(cmd.Context(), args[0], ds)
			if err != nil {
				return err
			}
			if vs == nil {
				vs = []int{}
			}
			out := struct {
				Project  string          `json:"project"`
				Dataset  generic.Dataset `json:"dataset"`
				Versions []int           `json:"versions"`
			}{args[0], ds, vs}
			return app.print(out, func() string { return FormatVersions(args[0], ds, vs) })
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", string(generic.DatasetAnalysis), "Dataset: analysis, contract or cost")
	return cmd
}

func newCoefKCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coefk",
		Short: "Read or store the cost multiplier of a project version",
	}
	cmd.AddCommand(newCoefKGetCmd(app), newCoefKSetCmd(app))
	return cmd
}

type coefKOutput struct {
	Project string  `json:"project"`
	Version int     `json:"version"`
	CoefK   float64 `json:"coef_k"`
}

func newCoefKGetCmd(app *App) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "get <project>",
		Short: "Show the effective cost multiplier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := app.Engine.ResolveCoefK(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			out := coefKOutput{Project: args[0], Version: version, CoefK: k}
			return app.print(out, func() string {
				return fmt.Sprintf("%s v%d coefK %s\n", out.Project, out.Version, strconv.FormatFloat(k, 'f', -1, 64))
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Analysis version")
	return cmd
}

func newCoefKSetCmd(app *App) *cobra.Command {
	var version int

	cmd := &cobra.Command{
		Use:   "set <project> <value>",
		Short: "Store a cost multiplier (must be > 0)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("%w: %q", generic.ErrInvalidCoefficient, args[1])
			}
			if err := app.Engine.SaveCoefK(cmd.Context(), args[0], version, k); err != nil {
				return err
			}
			out := coefKOutput{Project: args[0], Version: version, CoefK: k}
			return app.print(out, func() string {
				return fmt.Sprintf("%s v%d coefK set to %s\n", out.Project, out.Version, args[1])
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Analysis version")
	return cmd
}

func newSeedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <scenario>",
		Short: "Reset the store and load a demo scenario (obra-demo, version-drop, broken-links)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Writer == nil {
				return errors.New("store is read-only")
			}
			if err := api.Seed(cmd.Context(), app.Writer, args[0]); err != nil {
				return err
			}
			out := map[string]string{"status": "loaded", "scenario": args[0], "project": api.DemoProject}
			return app.print(out, func() string {
				return fmt.Sprintf("loaded %s into project %s\n", args[0], api.DemoProject)
			})
		},
	}
}
