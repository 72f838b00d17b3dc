package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileYieldsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Database.Path != want.Database.Path {
		t.Fatalf("Database.Path = %q, want %q", cfg.Database.Path, want.Database.Path)
	}
}

func TestLoadParsesTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workgraph.toml")
	contents := `
[database]
path = "custom.db"
busy_timeout = "10s"

[engine]
max_cascade_depth = 5
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "custom.db" {
		t.Fatalf("Database.Path = %q, want %q", cfg.Database.Path, "custom.db")
	}
	if cfg.Database.BusyTimeout != 10*time.Second {
		t.Fatalf("Database.BusyTimeout = %v, want 10s", cfg.Database.BusyTimeout)
	}
	if cfg.Engine.MaxCascadeDepth != 5 {
		t.Fatalf("Engine.MaxCascadeDepth = %d, want 5", cfg.Engine.MaxCascadeDepth)
	}
}

func TestEnvironmentOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workgraph.toml")
	if err := os.WriteFile(path, []byte(`[database]
path = "file.db"
`), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("WORKGRAPH_DATABASE_PATH", "env.db")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "env.db" {
		t.Fatalf("Database.Path = %q, want %q (env should win)", cfg.Database.Path, "env.db")
	}
}

func TestLocalOverridesApplyBetweenFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "workgraph.toml")
	if err := os.WriteFile(configPath, []byte(`[database]
path = "file.db"
`), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	localPath := filepath.Join(dir, "workgraph.local.yaml")
	if err := os.WriteFile(localPath, []byte("database-path: local.db\n"), 0o644); err != nil {
		t.Fatalf("writing local overrides file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "local.db" {
		t.Fatalf("Database.Path = %q, want %q (local override should beat the TOML file)", cfg.Database.Path, "local.db")
	}
}

func TestLoadLocalOverridesMissingFile(t *testing.T) {
	o := LoadLocalOverrides(t.TempDir())
	if o.DatabasePath != "" || o.LogLevel != "" {
		t.Fatalf("expected zero-value overrides for a missing file, got %+v", o)
	}
}
