package resampler

import (
	"math"
	"testing"
)

func makeSine(freq float64, n, rate int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))
	}
	return s
}

func TestResampleSameRate(t *testing.T) {
	in := makeSine(440, 1000, 22050)
	out, err := Resample(in, 22050, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(in) {
		t.Errorf("len = %d, want %d", len(out), len(in))
	}
}

func TestResampleDownsample(t *testing.T) {
	// 1s of 440 Hz at 44100 → 22050.
	in := makeSine(440, 44100, 44100)
	out, err := Resample(in, 44100, 22050)
	if err != nil {
		t.Fatal(err)
	}
	// Output should be about half the input length.
	if len(out) < 21000 || len(out) > 22051 {
		t.Errorf("output length = %d, want ~22050", len(out))
	}
	// Amplitude should be preserved within filter tolerance.
	var peak float64
	for _, v := range out {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak < 0.4 || peak > 0.6 {
		t.Errorf("peak = %f, want ~0.5", peak)
	}
}

func TestResampleUpsample(t *testing.T) {
	in := makeSine(440, 16000, 16000)
	out, err := Resample(in, 16000, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) < 21000 || len(out) > 22051 {
		t.Errorf("output length = %d, want ~22050", len(out))
	}
}

func TestResampleEmpty(t *testing.T) {
	out, err := Resample(nil, 44100, 22050)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestResampleInvalidRate(t *testing.T) {
	if _, err := Resample([]float64{0}, 0, 22050); err == nil {
		t.Error("expected error for zero source rate")
	}
	if _, err := Resample([]float64{0}, 44100, -1); err == nil {
		t.Error("expected error for negative target rate")
	}
}
