// Package feature converts normalized audio into fixed-shape
// time-frequency encodings for speaker verification.
//
// Two feature types are supported:
//
//   - Spectrogram: log-scale mel power spectrogram, 128 mel bands,
//     referenced to the clip's own peak power.
//   - MFCC: 13 cepstral coefficients (DCT-II of the log mel energies).
//
// Every encoding is normalized to a canonical number of time frames
// (default 100): longer clips are truncated, shorter ones zero-padded.
// This is lossy for long utterances (tail frames are dropped) but it is
// what makes encodings directly comparable and batchable regardless of
// clip duration.
package feature

import (
	"errors"
	"fmt"
)

// Type selects the extraction algorithm.
type Type string

// Recognized feature types.
const (
	Spectrogram Type = "spectrogram"
	MFCC        Type = "mfcc"
)

// Valid reports whether t is a recognized feature type.
func (t Type) Valid() bool {
	return t == Spectrogram || t == MFCC
}

// Sentinel errors.
var (
	// ErrTooShort is returned when the clip is too short for the
	// configured analysis window.
	ErrTooShort = errors.New("feature: audio too short")

	// ErrExtraction is returned when the spectral step fails.
	ErrExtraction = errors.New("feature: extraction failed")

	// ErrUnknownType is returned for an unrecognized feature type.
	ErrUnknownType = errors.New("feature: unknown feature type")
)

// Config controls feature extraction parameters.
type Config struct {
	SampleRate int `yaml:"sample_rate"` // expected input rate (default 22050)
	NFFT       int `yaml:"n_fft"`       // FFT window size (default 2048)
	HopLength  int `yaml:"hop_length"`  // hop between frames (default 512)
	MelBands   int `yaml:"mel_bands"`   // mel channels for spectrogram (default 128)
	MFCCCoeffs int `yaml:"mfcc_coeffs"` // cepstral coefficients for mfcc (default 13)
	FrameCount int `yaml:"frame_count"` // canonical time dimension (default 100)
}

// DefaultConfig returns the standard extraction configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		NFFT:       2048,
		HopLength:  512,
		MelBands:   128,
		MFCCCoeffs: 13,
		FrameCount: 100,
	}
}

// fill replaces zero fields with defaults.
func (c Config) fill() Config {
	def := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = def.SampleRate
	}
	if c.NFFT <= 0 {
		c.NFFT = def.NFFT
	}
	if c.HopLength <= 0 {
		c.HopLength = def.HopLength
	}
	if c.MelBands <= 0 {
		c.MelBands = def.MelBands
	}
	if c.MFCCCoeffs <= 0 {
		c.MFCCCoeffs = def.MFCCCoeffs
	}
	if c.FrameCount <= 0 {
		c.FrameCount = def.FrameCount
	}
	return c
}

// Bins returns the frequency dimension for the given feature type.
func (c Config) Bins(t Type) (int, error) {
	switch t {
	case Spectrogram:
		return c.MelBands, nil
	case MFCC:
		return c.MFCCCoeffs, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// Encoding is a fixed-shape time-frequency representation of a clip.
// Data is row-major with Frames rows and Bins columns; row i is the
// feature vector for time frame i. Encodings are immutable once
// returned by an Extractor.
type Encoding struct {
	Type   Type      `msgpack:"type"`
	Frames int       `msgpack:"frames"`
	Bins   int       `msgpack:"bins"`
	Data   []float64 `msgpack:"data"`
}

// At returns the value at time frame f, frequency bin b.
func (e *Encoding) At(f, b int) float64 {
	return e.Data[f*e.Bins+b]
}

// Row returns the feature vector for time frame f. The returned slice
// aliases the encoding data and must not be modified.
func (e *Encoding) Row(f int) []float64 {
	return e.Data[f*e.Bins : (f+1)*e.Bins]
}

// Flatten returns the encoding as a 1-D vector. The slice aliases the
// encoding data and must not be modified.
func (e *Encoding) Flatten() []float64 {
	return e.Data
}

// SameShape reports whether two encodings have identical dimensions.
func (e *Encoding) SameShape(other *Encoding) bool {
	return e.Frames == other.Frames && e.Bins == other.Bins
}

// Clone returns a deep copy of the encoding.
func (e *Encoding) Clone() *Encoding {
	cp := make([]float64, len(e.Data))
	copy(cp, e.Data)
	return &Encoding{Type: e.Type, Frames: e.Frames, Bins: e.Bins, Data: cp}
}
