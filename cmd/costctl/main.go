package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/warp/cost-engine/analysis"
	"github.com/warp/cost-engine/cli"
	"github.com/warp/cost-engine/config"
	"github.com/warp/cost-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Config file: env var or ./cost-engine.yaml. The database path comes from
	// the file or COST_ENGINE_DB.
	cfgPath := os.Getenv("COST_ENGINE_CONFIG")
	if cfgPath == "" {
		cfgPath = "cost-engine.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Run summaries are noise on a terminal; only warnings unless asked.
	if os.Getenv("COST_ENGINE_LOG_LEVEL") == "" {
		cfg.Logging.Level = "warn"
	}
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	engine := analysis.NewEngine(store, logger)
	engine.DefaultCoefK = cfg.Analysis.DefaultCoefK
	engine.RankingSize = cfg.Analysis.RankingSize
	engine.Bands = cfg.Analysis.Bands
	engine.MonthLabels = cfg.Calendar.MonthLabels

	app := &cli.App{
		Engine: engine,
		Writer: store,
		Out:    os.Stdout,
		IsTerminal: func() bool {
			return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		},
	}

	return cli.NewRootCmd(app).Execute()
}
