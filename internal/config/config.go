// Package config loads process configuration for the moments pipeline.
//
// Values merge in precedence order: built-in defaults, then an optional
// YAML file, then MOMENTS_-prefixed environment variables (MOMENTS_DB_PATH
// overrides db_path, and so on). League rulebooks are NOT here; they live
// in CUE files under LeagueDir and are loaded by leagueconf.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath locates the SQLite ledger/version database.
	DBPath string `koanf:"db_path"`

	// LeagueDir holds the CUE league rulebooks.
	LeagueDir string `koanf:"league_dir"`

	// Workers sets the orchestrator pool size for concurrent games.
	Workers int `koanf:"workers"`

	// TargetWords is the per-moment narrative length target handed to the
	// renderer and enforced (±15%) by the contract validator.
	TargetWords int `koanf:"target_words"`

	// RenderTimeoutMS bounds one renderer call.
	RenderTimeoutMS int `koanf:"render_timeout_ms"`

	// RenderRetries bounds renderer retries per stage when auto_chain
	// permits retrying.
	RenderRetries int `koanf:"render_retries"`

	// SoftCapPlays / HardCapPlays / MaxExplicitPlays /
	// PreferredExplicitPlays / MinMeaningfulEvents override the stock
	// partitioning budgets when non-zero.
	SoftCapPlays           int `koanf:"soft_cap_plays"`
	HardCapPlays           int `koanf:"hard_cap_plays"`
	MaxExplicitPlays       int `koanf:"max_explicit_plays"`
	PreferredExplicitPlays int `koanf:"preferred_explicit_plays"`
	MinMeaningfulEvents    int `koanf:"min_meaningful_events"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:        "info",
		DBPath:          "moments.db",
		LeagueDir:       "leagues",
		Workers:         4,
		TargetWords:     60,
		RenderTimeoutMS: 20000,
		RenderRetries:   2,
	}
}

// Load builds a Config from defaults, an optional YAML file (empty path
// skips it), and MOMENTS_ environment variables.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	cfg := Default()
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("MOMENTS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "MOMENTS_"))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.Workers <= 0 {
		return Config{}, fmt.Errorf("config: workers must be positive, got %d", cfg.Workers)
	}
	if cfg.RenderRetries < 0 {
		return Config{}, fmt.Errorf("config: render_retries must be non-negative, got %d", cfg.RenderRetries)
	}
	return cfg, nil
}
