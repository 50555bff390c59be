package voxauth

import (
	"math"

	"github.com/voxauth/voxauth/pkg/audio/pcm"
	"github.com/voxauth/voxauth/pkg/feature"
)

// energyProfile is the last resort of the extraction fallback chain.
// It slices each analysis window into equal sub-bands and takes the
// log energy of each, producing a coarse time-energy profile with the
// same shape as a spectrogram encoding. It carries far less speaker
// information than a real spectral transform, which is acceptable: a
// weak encoding scores low and the policy rejects it, rather than the
// attempt failing outright.
func (a *Authenticator) energyProfile(audio pcm.Audio) (*feature.Encoding, error) {
	cfg := a.ext.Config()
	window, hop, bands := cfg.NFFT, cfg.HopLength, cfg.MelBands

	samples := audio.Samples
	if len(samples) < window {
		// One short frame is still a frame.
		padded := make([]float64, window)
		copy(padded, samples)
		samples = padded
	}

	numFrames := 1 + (len(samples)-window)/hop
	if numFrames > cfg.FrameCount {
		numFrames = cfg.FrameCount
	}

	// Peak energy across the clip references the dB scale, matching
	// the spectrogram convention of 0 dB at the loudest point.
	frames := make([][]float64, numFrames)
	peak := 0.0
	chunk := window / bands
	if chunk < 1 {
		chunk = 1
	}
	for f := 0; f < numFrames; f++ {
		start := f * hop
		row := make([]float64, bands)
		for b := 0; b < bands; b++ {
			lo := start + b*chunk
			hi := lo + chunk
			if hi > start+window {
				hi = start + window
			}
			var e float64
			for i := lo; i < hi && i < len(samples); i++ {
				e += samples[i] * samples[i]
			}
			row[b] = e
			if e > peak {
				peak = e
			}
		}
		frames[f] = row
	}
	if peak <= 0 {
		peak = 1
	}

	const floorDB = -80.0
	data := make([]float64, cfg.FrameCount*bands)
	for f := 0; f < numFrames; f++ {
		for b, e := range frames[f] {
			db := floorDB
			if e > 0 {
				db = math.Max(10*math.Log10(e/peak), floorDB)
			}
			data[f*bands+b] = db
		}
	}

	a.log.Info("degraded energy profile encoding",
		"frames", numFrames, "bands", bands)
	return &feature.Encoding{
		Type:   feature.Spectrogram,
		Frames: cfg.FrameCount,
		Bins:   bands,
		Data:   data,
	}, nil
}
