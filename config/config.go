// Package config loads the service configuration from YAML, .env files and
// the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/warp/cost-engine/schedule"
	"github.com/warp/cost-engine/variance"
	"gopkg.in/yaml.v3"
)

// Config holds all cost-engine configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Calendar CalendarConfig `yaml:"calendar"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	// Path is the SQLite file; ":memory:" runs without persistence.
	Path string `yaml:"path"`

	// Seed loads the demo project on startup when the database is empty.
	Seed bool `yaml:"seed"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

type AnalysisConfig struct {
	DefaultCoefK float64         `yaml:"default_coef_k"`
	RankingSize  int             `yaml:"ranking_size"`
	Bands        []variance.Band `yaml:"bands"`
}

type CalendarConfig struct {
	MonthLabels []string `yaml:"month_labels"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Database: DatabaseConfig{Path: "cost-engine.db"},
		Logging:  LoggingConfig{Level: "info"},
		Analysis: AnalysisConfig{
			DefaultCoefK: 1.0,
			RankingSize:  variance.DefaultRankingSize,
			Bands:        variance.DefaultBands(),
		},
		Calendar: CalendarConfig{MonthLabels: append([]string(nil), schedule.SpanishMonthLabels...)},
	}
}

// Load reads path over the defaults. A missing file is not an error. A .env
// file in the working directory is loaded first, without overriding
// variables already set, and environment overrides are applied last.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies COST_ENGINE_* variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("COST_ENGINE_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("COST_ENGINE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid COST_ENGINE_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("COST_ENGINE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COST_ENGINE_ALLOWED_ORIGINS"); v != "" {
		c.Server.AllowedOrigins = strings.Split(v, ",")
	}
	return nil
}

// Validate checks ranges that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Analysis.DefaultCoefK <= 0 {
		return fmt.Errorf("analysis.default_coef_k must be positive: %v", c.Analysis.DefaultCoefK)
	}
	if c.Analysis.RankingSize <= 0 {
		return fmt.Errorf("analysis.ranking_size must be positive: %d", c.Analysis.RankingSize)
	}
	seen := make(map[int]bool, len(c.Analysis.Bands))
	for _, b := range c.Analysis.Bands {
		if b.Percent < 0 || b.Percent > 100 {
			return fmt.Errorf("analysis.bands[%d].percent out of range: %v", b.Classification, b.Percent)
		}
		if seen[b.Classification] {
			return fmt.Errorf("analysis.bands: duplicate classification %d", b.Classification)
		}
		seen[b.Classification] = true
	}
	if n := len(c.Calendar.MonthLabels); n != 0 && n != 12 {
		return fmt.Errorf("calendar.month_labels must have 12 entries, got %d", n)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
