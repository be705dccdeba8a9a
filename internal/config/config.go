// Package config loads service configuration from a YAML file with
// environment-variable overrides for deployment secrets.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Guard   GuardConfig   `yaml:"guard"`
	Tuning  TuningConfig  `yaml:"tuning"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

// StorageConfig selects the backing stores. Empty DSNs mean in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

// GuardConfig mirrors the guard's runtime settings.
type GuardConfig struct {
	Enabled          bool    `yaml:"enabled"`
	MinIntervalHours float64 `yaml:"min_interval_hours"`
	RequireTPAboveSL bool    `yaml:"require_tp_above_sl"`
	MaxDeltaPct      float64 `yaml:"max_delta_pct"`
}

// TuningConfig controls candidate generation and evaluation.
type TuningConfig struct {
	StrategyKind   string `yaml:"strategy_kind"`
	Exchange       string `yaml:"exchange"`
	Network        string `yaml:"network"`
	CandidateCount int    `yaml:"candidate_count"`
	MaxCandidates  int    `yaml:"max_candidates"`
	DefaultSeed    int64  `yaml:"default_seed"`
	Workers        int    `yaml:"workers"`
}

// IngestConfig points the candle feed at an exchange websocket.
type IngestConfig struct {
	URL       string `yaml:"url"`
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Guard: GuardConfig{
			Enabled:          true,
			MinIntervalHours: 24,
			RequireTPAboveSL: true,
			MaxDeltaPct:      0.5,
		},
		Tuning: TuningConfig{
			StrategyKind:   "PRICE_CHANGE",
			Exchange:       "binance",
			Network:        "mainnet",
			CandidateCount: 30,
			MaxCandidates:  50,
			DefaultSeed:    1,
			Workers:        4,
		},
		Ingest: IngestConfig{
			Symbol:    "BTCUSDT",
			Timeframe: "1m",
		},
	}
}

// Load reads the YAML file at path on top of defaults, then applies
// environment overrides. An empty path loads defaults and overrides only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets deployment secrets and knobs override the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TUNER_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("TUNER_CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("TUNER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TUNER_GUARD_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Guard.Enabled = b
		}
	}
	if v := os.Getenv("TUNER_INGEST_URL"); v != "" {
		cfg.Ingest.URL = v
	}
}

func (c *Config) validate() error {
	if c.Tuning.StrategyKind == "" {
		return fmt.Errorf("tuning.strategy_kind must be set")
	}
	if c.Tuning.CandidateCount <= 0 {
		return fmt.Errorf("tuning.candidate_count must be positive, got %d", c.Tuning.CandidateCount)
	}
	if c.Tuning.MaxCandidates <= 0 {
		return fmt.Errorf("tuning.max_candidates must be positive, got %d", c.Tuning.MaxCandidates)
	}
	if c.Guard.MaxDeltaPct < 0 {
		return fmt.Errorf("guard.max_delta_pct must not be negative, got %v", c.Guard.MaxDeltaPct)
	}
	return nil
}
