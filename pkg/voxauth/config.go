package voxauth

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/voxauth/voxauth/pkg/audio/normalize"
	"github.com/voxauth/voxauth/pkg/classify"
	"github.com/voxauth/voxauth/pkg/feature"
	"github.com/voxauth/voxauth/pkg/verify"
)

// Config aggregates the pipeline configuration. Zero fields fall back
// to defaults at construction, so a partial YAML file is valid.
type Config struct {
	// FeatureType selects the primary extraction algorithm. The other
	// algorithm remains available as a fallback.
	FeatureType feature.Type `yaml:"feature_type"`

	Normalize  normalize.Config  `yaml:"normalize"`
	Feature    feature.Config    `yaml:"feature"`
	Thresholds verify.Thresholds `yaml:"thresholds"`
	Classifier classify.Config   `yaml:"classifier"`
}

// DefaultConfig returns the standard pipeline setup: 22050 Hz audio,
// 100-frame mel spectrogram encodings, and the default decision
// thresholds.
func DefaultConfig() Config {
	return Config{
		FeatureType: feature.Spectrogram,
		Normalize:   normalize.DefaultConfig(),
		Feature:     feature.DefaultConfig(),
		Thresholds:  verify.DefaultThresholds(),
		Classifier:  classify.DefaultConfig(),
	}
}

// LoadConfig reads a YAML config file. Fields absent from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("voxauth: read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("voxauth: parse config %s: %w", path, err)
	}
	return cfg, nil
}
