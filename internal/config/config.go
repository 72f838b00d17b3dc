// Package config loads the process-level configuration for workgraphd: the
// database path, note-schema path, log settings, and engine tunables that must be known
// before anything else starts.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the process configuration, loaded from a TOML file and
// overridable by WORKGRAPH_-prefixed environment variables.
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Engine     EngineConfig     `toml:"engine"`
	NoteSchema NoteSchemaConfig `toml:"note_schema"`
	Log        LogConfig        `toml:"log"`
}

// DatabaseConfig holds the sqlite connection settings.
type DatabaseConfig struct {
	Path            string        `toml:"path"`
	BusyTimeout     time.Duration `toml:"busy_timeout"`
	RetryMaxElapsed time.Duration `toml:"retry_max_elapsed"`
}

// EngineConfig holds workflow-engine tunables.
type EngineConfig struct {
	MaxCascadeDepth int `toml:"max_cascade_depth"`
	MaxChainDepth   int `toml:"max_chain_depth"`
}

// NoteSchemaConfig points at the note-schema YAML file the engine gates
// against.
type NoteSchemaConfig struct {
	Path string `toml:"path"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// Default returns the configuration workgraphd runs with when no file is
// present.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "workgraph.db",
			BusyTimeout:     5 * time.Second,
			RetryMaxElapsed: 30 * time.Second,
		},
		Engine: EngineConfig{
			MaxCascadeDepth: 16,
			MaxChainDepth:   25,
		},
		NoteSchema: NoteSchemaConfig{
			Path: "note-schema.yaml",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path if it exists, falling back to Default() when it doesn't,
// then applies the workgraph.local.yaml sidecar from the config file's
// directory and finally environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	dir := "."
	if path != "" {
		dir = filepath.Dir(path)
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	LoadLocalOverrides(dir).Apply(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides walks the small, fixed set of WORKGRAPH_-prefixed
// environment variables, overlaying each onto cfg when set. A direct scan
// rather than a struct-tag reflection binder, since the override surface
// here is small and fixed.
func applyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("WORKGRAPH_DATABASE_PATH"); ok {
		cfg.Database.Path = v
	}
	if v, ok := lookupEnvDuration("WORKGRAPH_DATABASE_BUSY_TIMEOUT"); ok {
		cfg.Database.BusyTimeout = v
	}
	if v, ok := lookupEnvDuration("WORKGRAPH_DATABASE_RETRY_MAX_ELAPSED"); ok {
		cfg.Database.RetryMaxElapsed = v
	}
	if v, ok := lookupEnvInt("WORKGRAPH_ENGINE_MAX_CASCADE_DEPTH"); ok {
		cfg.Engine.MaxCascadeDepth = v
	}
	if v, ok := lookupEnvInt("WORKGRAPH_ENGINE_MAX_CHAIN_DEPTH"); ok {
		cfg.Engine.MaxChainDepth = v
	}
	if v, ok := lookupEnv("WORKGRAPH_NOTE_SCHEMA_PATH"); ok {
		cfg.NoteSchema.Path = v
	}
	if v, ok := lookupEnv("WORKGRAPH_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := lookupEnv("WORKGRAPH_LOG_FORMAT"); ok {
		cfg.Log.Format = v
	}
}

func lookupEnv(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func lookupEnvDuration(key string) (time.Duration, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}

func lookupEnvInt(key string) (int, bool) {
	v, ok := lookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}
