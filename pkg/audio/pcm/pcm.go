// Package pcm provides the in-memory audio sample model used throughout
// the verification pipeline, plus decoding from raw PCM16 bytes and WAV
// containers into normalized float samples.
//
// All downstream stages (normalization, feature extraction) operate on
// [Audio]: mono float64 samples in [-1, 1] with an explicit sample rate.
package pcm

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors.
var (
	// ErrEmpty is returned when decoded audio contains zero samples.
	ErrEmpty = errors.New("pcm: empty audio")

	// ErrDecode is returned when the input bytes cannot be decoded.
	ErrDecode = errors.New("pcm: undecodable audio")
)

// Audio is a mono audio clip: float64 amplitudes in [-1, 1] at a known
// sample rate. The sample slice is owned by the holder; pipeline stages
// that transform audio return a new Audio rather than mutating in place.
type Audio struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length as a time.Duration.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(a.Samples)) / float64(a.SampleRate) * float64(time.Second))
}

// Clone returns a deep copy of the audio.
func (a Audio) Clone() Audio {
	cp := make([]float64, len(a.Samples))
	copy(cp, a.Samples)
	return Audio{Samples: cp, SampleRate: a.SampleRate}
}

// FromInt16 converts PCM16 signed little-endian bytes into Audio at the
// declared sample rate and channel count. Multi-channel input is averaged
// down to mono.
func FromInt16(data []byte, sampleRate, channels int) (Audio, error) {
	if sampleRate <= 0 {
		return Audio{}, fmt.Errorf("pcm: invalid sample rate %d", sampleRate)
	}
	if channels <= 0 {
		return Audio{}, fmt.Errorf("pcm: invalid channel count %d", channels)
	}
	if len(data) == 0 {
		return Audio{}, ErrEmpty
	}
	if len(data)%2 != 0 {
		return Audio{}, fmt.Errorf("%w: odd byte count %d", ErrDecode, len(data))
	}

	nSamples := len(data) / 2
	nFrames := nSamples / channels
	if nFrames == 0 {
		return Audio{}, ErrEmpty
	}

	samples := make([]float64, nFrames)
	for f := 0; f < nFrames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			i := (f*channels + c) * 2
			s := int16(data[i]) | int16(data[i+1])<<8
			sum += float64(s) / 32768.0
		}
		samples[f] = sum / float64(channels)
	}
	return Audio{Samples: samples, SampleRate: sampleRate}, nil
}

// ToInt16 converts Audio back to PCM16 signed little-endian bytes,
// clipping samples outside [-1, 1].
func ToInt16(a Audio) []byte {
	out := make([]byte, len(a.Samples)*2)
	for i, s := range a.Samples {
		v := int16(s * 32767.0)
		if s > 1.0 {
			v = 32767
		} else if s < -1.0 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}
