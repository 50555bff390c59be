package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
db_dir: /var/lib/voxauth/db
models:
  backend: s3
  s3:
    bucket: voiceprints
    region: eu-west-1
pipeline:
  thresholds:
    accept: 0.9
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBDir != "/var/lib/voxauth/db" {
		t.Errorf("DBDir = %s", cfg.DBDir)
	}
	if cfg.Models.Backend != "s3" || cfg.Models.S3.Bucket != "voiceprints" {
		t.Errorf("Models = %+v", cfg.Models)
	}
	if cfg.Pipeline.Thresholds.Accept != 0.9 {
		t.Errorf("Accept = %v, want 0.9", cfg.Pipeline.Thresholds.Accept)
	}
	// Untouched fields keep their defaults.
	if cfg.Pipeline.Thresholds.IdentifyAccept != 0.75 {
		t.Errorf("IdentifyAccept = %v, want default 0.75", cfg.Pipeline.Thresholds.IdentifyAccept)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Models.Backend != "local" {
		t.Errorf("Backend = %s, want local", cfg.Models.Backend)
	}
	if cfg.DBDir == "" || cfg.Models.Dir == "" {
		t.Errorf("expected default directories, got %+v", cfg)
	}
}
