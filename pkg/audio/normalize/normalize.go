// Package normalize prepares raw audio for feature extraction.
//
// A [Normalizer] takes decoded mono audio at any sample rate and produces
// audio at the pipeline's canonical rate with near-silence removed:
//
//  1. Validate the clip is non-empty.
//  2. Resample to the canonical rate (default 22050 Hz).
//  3. Drop samples whose absolute amplitude is below the silence
//     threshold (default 0.01).
//
// If no sample exceeds the threshold the original signal is kept
// unfiltered. Passing pure silence downstream yields a degenerate
// (zero-score) comparison there, which is preferable to failing the
// whole attempt here.
package normalize

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/voxauth/voxauth/pkg/audio/pcm"
	"github.com/voxauth/voxauth/pkg/audio/resampler"
)

// ErrEmptyAudio is returned when the input clip has zero samples.
var ErrEmptyAudio = errors.New("normalize: empty audio")

// Config controls normalization parameters.
type Config struct {
	// SampleRate is the canonical rate all audio is resampled to.
	SampleRate int `yaml:"sample_rate"`

	// SilenceThreshold is the minimum absolute amplitude for a sample
	// to be kept during silence removal.
	SilenceThreshold float64 `yaml:"silence_threshold"`
}

// DefaultConfig returns the standard pipeline configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate:       22050,
		SilenceThreshold: 0.01,
	}
}

// Normalizer resamples audio to the canonical rate and strips silence.
// It is stateless apart from configuration and safe for concurrent use.
type Normalizer struct {
	cfg Config
	log *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the trace logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.log = l
		}
	}
}

// New creates a Normalizer. Zero config fields fall back to defaults.
func New(cfg Config, opts ...Option) *Normalizer {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = def.SilenceThreshold
	}
	n := &Normalizer{cfg: cfg, log: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SampleRate returns the canonical output rate.
func (n *Normalizer) SampleRate() int { return n.cfg.SampleRate }

// Process validates, resamples, and strips silence from a clip.
// The input is not mutated.
func (n *Normalizer) Process(a pcm.Audio) (pcm.Audio, error) {
	if len(a.Samples) == 0 {
		return pcm.Audio{}, ErrEmptyAudio
	}
	if a.SampleRate <= 0 {
		return pcm.Audio{}, fmt.Errorf("normalize: invalid sample rate %d", a.SampleRate)
	}

	samples := a.Samples
	if a.SampleRate != n.cfg.SampleRate {
		resampled, err := resampler.Resample(samples, a.SampleRate, n.cfg.SampleRate)
		if err != nil {
			return pcm.Audio{}, fmt.Errorf("normalize: resample %d -> %d: %w", a.SampleRate, n.cfg.SampleRate, err)
		}
		samples = resampled
	}

	kept := StripSilence(samples, n.cfg.SilenceThreshold)
	n.log.Debug("normalized audio",
		"in_rate", a.SampleRate,
		"in_samples", len(a.Samples),
		"out_samples", len(kept),
		"silence_dropped", len(samples)-len(kept))

	return pcm.Audio{Samples: kept, SampleRate: n.cfg.SampleRate}, nil
}

// StripSilence returns the samples whose absolute amplitude exceeds
// threshold. If none do, the input slice is returned unchanged so a
// near-flat clip still flows through the rest of the pipeline.
func StripSilence(samples []float64, threshold float64) []float64 {
	kept := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s > threshold || s < -threshold {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return samples
	}
	return kept
}
