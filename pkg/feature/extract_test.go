package feature

import (
	"errors"
	"math"
	"testing"

	"github.com/voxauth/voxauth/pkg/audio/pcm"
)

func makeSine(freq float64, seconds float64, rate int) pcm.Audio {
	n := int(seconds * float64(rate))
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return pcm.Audio{Samples: s, SampleRate: rate}
}

func TestExtractSpectrogramShape(t *testing.T) {
	e := NewExtractor(DefaultConfig())

	// Fixed shape must hold across clip durations.
	for _, seconds := range []float64{0.1, 0.5, 1.0, 3.0, 5.0} {
		enc, err := e.Extract(makeSine(440, seconds, 22050), Spectrogram)
		if err != nil {
			t.Fatalf("%.1fs: %v", seconds, err)
		}
		if enc.Frames != 100 || enc.Bins != 128 {
			t.Errorf("%.1fs: shape %d×%d, want 100×128", seconds, enc.Frames, enc.Bins)
		}
		if len(enc.Data) != 100*128 {
			t.Errorf("%.1fs: data length %d, want %d", seconds, len(enc.Data), 100*128)
		}
	}
}

func TestExtractMFCCShape(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	enc, err := e.Extract(makeSine(440, 1.0, 22050), MFCC)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Frames != 100 || enc.Bins != 13 {
		t.Errorf("shape %d×%d, want 100×13", enc.Frames, enc.Bins)
	}
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	audio := makeSine(300, 1.0, 22050)

	a, err := e.Extract(audio, Spectrogram)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Extract(audio, Spectrogram)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("index %d: %v != %v", i, a.Data[i], b.Data[i])
		}
	}
}

func TestExtractTooShort(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	short := pcm.Audio{Samples: make([]float64, 100), SampleRate: 22050}
	_, err := e.Extract(short, Spectrogram)
	if !errors.Is(err, ErrTooShort) {
		t.Errorf("err = %v, want ErrTooShort", err)
	}
}

func TestExtractUnknownType(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	_, err := e.Extract(makeSine(440, 1.0, 22050), Type("chroma"))
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}

func TestExtractWrongSampleRate(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	_, err := e.Extract(makeSine(440, 1.0, 16000), Spectrogram)
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("err = %v, want ErrExtraction", err)
	}
}

func TestSpectrogramPeakReference(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	// 3s fills all 100 frames, so no zero padding muddies the range.
	enc, err := e.Extract(makeSine(440, 3.0, 22050), Spectrogram)
	if err != nil {
		t.Fatal(err)
	}

	// dB values are referenced to the clip peak: max ≈ 0, all ≤ 0,
	// and clamped at -80 below the peak. The exact peak frame may land
	// past the truncation point, so allow a little slack below zero.
	var max, min float64 = -1e9, 1e9
	for _, v := range enc.Data {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	if max > 1e-9 || max < -1.0 {
		t.Errorf("peak dB = %f, want ~0", max)
	}
	if min < -80.0-1e-6 {
		t.Errorf("min dB = %f, below -80 floor", min)
	}
}

func TestSpectrogramFrequencySelectivity(t *testing.T) {
	e := NewExtractor(DefaultConfig())

	low, err := e.Extract(makeSine(200, 1.0, 22050), Spectrogram)
	if err != nil {
		t.Fatal(err)
	}
	high, err := e.Extract(makeSine(4000, 1.0, 22050), Spectrogram)
	if err != nil {
		t.Fatal(err)
	}

	// A 200 Hz tone should put its energy in lower mel bins than a
	// 4 kHz tone. Compare the argmax bin of the first real frame.
	argmax := func(enc *Encoding) int {
		best, bestV := 0, math.Inf(-1)
		for b := 0; b < enc.Bins; b++ {
			if v := enc.At(0, b); v > bestV {
				best, bestV = b, v
			}
		}
		return best
	}
	if lb, hb := argmax(low), argmax(high); lb >= hb {
		t.Errorf("low tone peak bin %d should be below high tone peak bin %d", lb, hb)
	}
}

func TestShortClipZeroPadded(t *testing.T) {
	e := NewExtractor(DefaultConfig())
	// 0.2s → far fewer than 100 raw frames; the tail must be zeros.
	enc, err := e.Extract(makeSine(440, 0.2, 22050), Spectrogram)
	if err != nil {
		t.Fatal(err)
	}
	for b := 0; b < enc.Bins; b++ {
		if v := enc.At(99, b); v != 0 {
			t.Fatalf("frame 99 bin %d = %f, want zero padding", b, v)
		}
	}
}

func TestConfigBins(t *testing.T) {
	cfg := DefaultConfig()
	if n, _ := cfg.Bins(Spectrogram); n != 128 {
		t.Errorf("spectrogram bins = %d, want 128", n)
	}
	if n, _ := cfg.Bins(MFCC); n != 13 {
		t.Errorf("mfcc bins = %d, want 13", n)
	}
	if _, err := cfg.Bins(Type("bogus")); !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v, want ErrUnknownType", err)
	}
}
