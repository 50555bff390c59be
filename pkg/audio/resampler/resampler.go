// Package resampler converts audio clips between sample rates using a
// pure Go polyphase resampler (no CGO/FFI dependencies).
//
// The verification pipeline normalizes every input clip to a single
// canonical rate before feature extraction, so the primary entry point
// is [Resample]: a one-shot conversion of a complete clip.
package resampler

import (
	"fmt"
	"math"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts mono float64 samples from srcRate to dstRate.
// Samples are expected in [-1, 1]; output is in the same range.
// When srcRate == dstRate the input is returned unchanged.
func Resample(samples []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate <= 0 || dstRate <= 0 {
		return nil, fmt.Errorf("resampler: invalid rates %d -> %d", srcRate, dstRate)
	}
	if srcRate == dstRate || len(samples) == 0 {
		return samples, nil
	}

	config := &resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	}
	rs, err := resampling.New(config)
	if err != nil {
		return nil, fmt.Errorf("resampler: create: %w", err)
	}

	out, err := rs.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("resampler: process: %w", err)
	}

	// The polyphase filter carries latency; push a zero tail through to
	// flush the remaining output, then trim to the expected length.
	expected := int(math.Ceil(float64(len(samples)) * float64(dstRate) / float64(srcRate)))
	if len(out) < expected {
		tail := make([]float64, 1+srcRate/10)
		flushed, err := rs.Process(tail)
		if err != nil {
			return nil, fmt.Errorf("resampler: flush: %w", err)
		}
		out = append(out, flushed...)
	}
	if len(out) > expected {
		out = out[:expected]
	}
	return out, nil
}

// Ratio returns the output/input length ratio for a rate conversion.
func Ratio(srcRate, dstRate int) float64 {
	return float64(dstRate) / float64(srcRate)
}
