package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LocalOverrides is a small YAML sidecar read directly off disk, bypassing
// the TOML config entirely — useful for a CWD-relative database path or log
// level set by a wrapper script before workgraphd's own config file is known.
// A direct, viper-free read for callers that can't assume the main config
// has been loaded yet.
type LocalOverrides struct {
	DatabasePath string `yaml:"database-path"`
	LogLevel     string `yaml:"log-level"`
}

// LoadLocalOverrides reads workgraph.local.yaml from dir. A missing or
// unparseable file yields a zero-value LocalOverrides rather than an error,
// since this is a best-effort convenience layer, not the config of record.
func LoadLocalOverrides(dir string) *LocalOverrides {
	data, err := os.ReadFile(filepath.Join(dir, "workgraph.local.yaml"))
	if err != nil {
		return &LocalOverrides{}
	}
	var o LocalOverrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return &LocalOverrides{}
	}
	return &o
}

// Apply overlays non-empty fields of o onto cfg. Load applies it after the
// TOML file, so the local sidecar takes precedence over Default() and the
// file, but stays subordinate to WORKGRAPH_-prefixed environment variables.
func (o *LocalOverrides) Apply(cfg *Config) {
	if o.DatabasePath != "" {
		cfg.Database.Path = o.DatabasePath
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
}
