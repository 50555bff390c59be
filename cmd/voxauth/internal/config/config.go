// Package config loads the voxauth CLI configuration file.
//
// The file lives at ~/.voxauth/config.yaml by default. Every field is
// optional; a missing file yields a fully defaulted configuration with
// a local Badger database and local model artifacts under ~/.voxauth/.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/voxauth/voxauth/pkg/cli"
	"github.com/voxauth/voxauth/pkg/voxauth"
)

// Config is the CLI-level configuration: the pipeline setup plus where
// to keep the enrollment database and trained models.
type Config struct {
	// DBDir is the enrollment database directory.
	DBDir string `yaml:"db_dir"`

	// Models selects the model artifact backend.
	Models ModelStorage `yaml:"models"`

	// Pipeline configures the authentication pipeline itself.
	Pipeline voxauth.Config `yaml:"pipeline"`
}

// ModelStorage selects where trained classifier artifacts live.
type ModelStorage struct {
	// Backend is "local" (default) or "s3".
	Backend string `yaml:"backend"`

	// Dir is the local artifact directory, for the local backend.
	Dir string `yaml:"dir"`

	// S3 configures the s3 backend.
	S3 S3 `yaml:"s3"`
}

// S3 holds object store settings. Endpoint and path-style addressing
// cover S3-compatible stores like MinIO.
type S3 struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

// Load reads the config at path, or the default location when path is
// empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	paths, err := cli.NewPaths()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := &Config{
		DBDir: paths.DBDir(),
		Models: ModelStorage{
			Backend: "local",
			Dir:     paths.ModelDir(),
		},
		Pipeline: voxauth.DefaultConfig(),
	}

	explicit := path != ""
	if !explicit {
		path = paths.ConfigFile()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Models.Backend == "" {
		cfg.Models.Backend = "local"
	}
	return cfg, nil
}
