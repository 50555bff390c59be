package pcm

import (
	"errors"
	"math"
	"testing"
)

func TestFromInt16Mono(t *testing.T) {
	// Two samples: max positive, max negative.
	data := []byte{0xFF, 0x7F, 0x00, 0x80}
	a, err := FromInt16(data, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(a.Samples))
	}
	if a.Samples[0] < 0.99 || a.Samples[0] > 1.0 {
		t.Errorf("sample 0 = %f, want ~1.0", a.Samples[0])
	}
	if a.Samples[1] != -1.0 {
		t.Errorf("sample 1 = %f, want -1.0", a.Samples[1])
	}
}

func TestFromInt16StereoMixdown(t *testing.T) {
	// One frame: L = 16384, R = -16384, should average to 0.
	data := []byte{0x00, 0x40, 0x00, 0xC0}
	a, err := FromInt16(data, 44100, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Samples) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(a.Samples))
	}
	if math.Abs(a.Samples[0]) > 1e-9 {
		t.Errorf("mixdown = %f, want 0", a.Samples[0])
	}
}

func TestFromInt16Empty(t *testing.T) {
	_, err := FromInt16(nil, 16000, 1)
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}

func TestFromInt16OddBytes(t *testing.T) {
	_, err := FromInt16([]byte{1, 2, 3}, 16000, 1)
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	orig := Audio{SampleRate: 22050, Samples: make([]float64, 2205)}
	for i := range orig.Samples {
		orig.Samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/22050)
	}

	decoded, err := DecodeWAV(EncodeWAV(orig))
	if err != nil {
		t.Fatal(err)
	}
	if decoded.SampleRate != orig.SampleRate {
		t.Errorf("sample rate = %d, want %d", decoded.SampleRate, orig.SampleRate)
	}
	if len(decoded.Samples) != len(orig.Samples) {
		t.Fatalf("sample count = %d, want %d", len(decoded.Samples), len(orig.Samples))
	}
	// PCM16 quantization limits round-trip precision.
	for i := range orig.Samples {
		if math.Abs(decoded.Samples[i]-orig.Samples[i]) > 1.0/32000 {
			t.Fatalf("sample %d: %f vs %f", i, decoded.Samples[i], orig.Samples[i])
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("short"),
		[]byte("RIFFxxxxJUNK"),
		make([]byte, 64), // zeroed: no RIFF magic
	}
	for i, data := range cases {
		if _, err := DecodeWAV(data); !errors.Is(err, ErrDecode) {
			t.Errorf("case %d: err = %v, want ErrDecode", i, err)
		}
	}
}

func TestDuration(t *testing.T) {
	a := Audio{Samples: make([]float64, 22050), SampleRate: 22050}
	if d := a.Duration().Seconds(); math.Abs(d-1.0) > 1e-9 {
		t.Errorf("duration = %f s, want 1.0", d)
	}
}
