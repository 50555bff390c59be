package feature

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/voxauth/voxauth/pkg/audio/pcm"
)

// amin is the floor applied to power values before taking the log,
// preventing -Inf on silent bins.
const amin = 1e-10

// topDB caps the dynamic range of the log spectrogram below the peak.
const topDB = 80.0

// Extractor computes fixed-shape feature encodings from normalized audio.
//
// The windows and mel filterbank are precomputed at construction; each
// Extract call allocates its own FFT plan and scratch buffers, so an
// Extractor is safe for concurrent use.
type Extractor struct {
	cfg     Config
	window  []float64   // Hann window, NFFT long
	melBank [][]float64 // MelBands × (NFFT/2+1) triangular filters
	dct     [][]float64 // MFCCCoeffs × MelBands orthonormal DCT-II rows
	log     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the trace logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// NewExtractor creates an Extractor. Zero config fields fall back to
// defaults.
func NewExtractor(cfg Config, opts ...Option) *Extractor {
	cfg = cfg.fill()
	e := &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.NFFT),
		melBank: melFilterbank(cfg.MelBands, cfg.NFFT, cfg.SampleRate),
		dct:     dctMatrix(cfg.MFCCCoeffs, cfg.MelBands),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the extractor's effective configuration.
func (e *Extractor) Config() Config { return e.cfg }

// Extract computes a fixed-shape encoding of the given feature type.
// The input must be mono audio at the configured sample rate.
//
// Returns ErrTooShort when the clip cannot fill a single analysis
// window, and ErrUnknownType for an unrecognized feature type. Callers
// are expected to treat extraction failures as retryable with an
// alternate feature type rather than fatal.
func (e *Extractor) Extract(a pcm.Audio, typ Type) (*Encoding, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if a.SampleRate != e.cfg.SampleRate {
		return nil, fmt.Errorf("%w: sample rate %d, extractor configured for %d",
			ErrExtraction, a.SampleRate, e.cfg.SampleRate)
	}
	if len(a.Samples) < e.cfg.NFFT/2 {
		return nil, fmt.Errorf("%w: %d samples, need at least %d",
			ErrTooShort, len(a.Samples), e.cfg.NFFT/2)
	}

	power := e.powerSpectrogram(a.Samples)
	if len(power) == 0 {
		return nil, fmt.Errorf("%w: no frames produced", ErrExtraction)
	}

	melPower := e.applyMelBank(power)

	var frames [][]float64
	switch typ {
	case Spectrogram:
		frames = powerToDB(melPower)
	case MFCC:
		frames = e.cepstral(melPower)
	}

	enc := e.fixLength(frames, typ)
	e.log.Debug("extracted features",
		"type", string(typ),
		"raw_frames", len(frames),
		"frames", enc.Frames,
		"bins", enc.Bins)
	return enc, nil
}

// powerSpectrogram computes |STFT|² frames. The signal is padded by
// NFFT/2 reflected samples on both ends so frames are centered on the
// original samples, giving 1 + len/hop frames.
func (e *Extractor) powerSpectrogram(samples []float64) [][]float64 {
	nfft := e.cfg.NFFT
	hop := e.cfg.HopLength
	half := nfft/2 + 1

	padded := reflectPad(samples, nfft/2)
	if len(padded) < nfft {
		return nil
	}
	numFrames := (len(padded)-nfft)/hop + 1

	fft := fourier.NewFFT(nfft)
	frame := make([]float64, nfft)
	coeffs := make([]complex128, half)

	power := make([][]float64, numFrames)
	for f := 0; f < numFrames; f++ {
		offset := f * hop
		for i := 0; i < nfft; i++ {
			frame[i] = padded[offset+i] * e.window[i]
		}
		coeffs = fft.Coefficients(coeffs, frame)

		row := make([]float64, half)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			row[k] = re*re + im*im
		}
		power[f] = row
	}
	return power
}

// applyMelBank projects power spectra onto the mel filterbank.
func (e *Extractor) applyMelBank(power [][]float64) [][]float64 {
	out := make([][]float64, len(power))
	for f, spec := range power {
		row := make([]float64, len(e.melBank))
		for m, filter := range e.melBank {
			var energy float64
			for k, w := range filter {
				if w != 0 {
					energy += w * spec[k]
				}
			}
			row[m] = energy
		}
		out[f] = row
	}
	return out
}

// powerToDB converts mel power frames to a decibel scale referenced to
// the clip's own peak power, clamped to a -topDB floor below the peak.
func powerToDB(frames [][]float64) [][]float64 {
	peak := amin
	for _, row := range frames {
		for _, v := range row {
			if v > peak {
				peak = v
			}
		}
	}
	refDB := 10 * math.Log10(peak)

	out := make([][]float64, len(frames))
	for f, row := range frames {
		dst := make([]float64, len(row))
		for i, v := range row {
			if v < amin {
				v = amin
			}
			db := 10*math.Log10(v) - refDB
			if db < -topDB {
				db = -topDB
			}
			dst[i] = db
		}
		out[f] = dst
	}
	return out
}

// cepstral computes MFCC frames: the first MFCCCoeffs coefficients of
// an orthonormal DCT-II over the log mel energies.
func (e *Extractor) cepstral(melPower [][]float64) [][]float64 {
	out := make([][]float64, len(melPower))
	logMel := make([]float64, e.cfg.MelBands)
	for f, row := range melPower {
		for i, v := range row {
			if v < amin {
				v = amin
			}
			logMel[i] = 10 * math.Log10(v)
		}
		coefs := make([]float64, e.cfg.MFCCCoeffs)
		for c, basis := range e.dct {
			var sum float64
			for i, b := range basis {
				sum += b * logMel[i]
			}
			coefs[c] = sum
		}
		out[f] = coefs
	}
	return out
}

// fixLength truncates or zero-pads frames to the canonical count and
// flattens them into an Encoding.
func (e *Extractor) fixLength(frames [][]float64, typ Type) *Encoding {
	bins := len(frames[0])
	target := e.cfg.FrameCount

	data := make([]float64, target*bins)
	n := len(frames)
	if n > target {
		n = target
	}
	for f := 0; f < n; f++ {
		copy(data[f*bins:(f+1)*bins], frames[f])
	}
	// Remaining rows stay zero (padding for short clips).

	return &Encoding{Type: typ, Frames: target, Bins: bins, Data: data}
}

// reflectPad pads the signal with pad mirrored samples on each side,
// so analysis frames are centered on the original samples.
func reflectPad(samples []float64, pad int) []float64 {
	n := len(samples)
	out := make([]float64, n+2*pad)
	copy(out[pad:], samples)
	for i := 1; i <= pad; i++ {
		out[pad-i] = samples[reflectIndex(i, n)]
		out[pad+n-1+i] = samples[reflectIndex(n-1+i, n)]
	}
	return out
}

// reflectIndex maps an out-of-range index into [0, n) by mirroring
// about the signal edges (excluding the edge sample itself).
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}

// hannWindow computes a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// hzToMel converts frequency in Hz to mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// melToHz converts mel scale to frequency in Hz.
func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterbank computes triangular mel filterbank weights spanning
// 0 Hz to Nyquist. Returns [numMels][nfft/2+1] weights.
func melFilterbank(numMels, nfft, sampleRate int) [][]float64 {
	half := nfft/2 + 1

	melLow := hzToMel(0)
	melHigh := hzToMel(float64(sampleRate) / 2)

	melPoints := make([]float64, numMels+2)
	for i := range melPoints {
		melPoints[i] = melLow + float64(i)*(melHigh-melLow)/float64(numMels+1)
	}

	binIndices := make([]int, numMels+2)
	for i := range melPoints {
		hz := melToHz(melPoints[i])
		binIndices[i] = int(math.Floor(hz * float64(nfft) / float64(sampleRate)))
		if binIndices[i] >= half {
			binIndices[i] = half - 1
		}
	}

	fb := make([][]float64, numMels)
	for m := 0; m < numMels; m++ {
		fb[m] = make([]float64, half)
		left := binIndices[m]
		center := binIndices[m+1]
		right := binIndices[m+2]

		for k := left; k <= center; k++ {
			if center > left {
				fb[m][k] = float64(k-left) / float64(center-left)
			}
		}
		for k := center; k <= right; k++ {
			if right > center {
				fb[m][k] = float64(right-k) / float64(right-center)
			}
		}
	}
	return fb
}

// dctMatrix returns the first numCoeffs rows of the orthonormal DCT-II
// basis over numMels inputs.
func dctMatrix(numCoeffs, numMels int) [][]float64 {
	m := make([][]float64, numCoeffs)
	scale0 := math.Sqrt(1.0 / float64(numMels))
	scale := math.Sqrt(2.0 / float64(numMels))
	for c := range m {
		row := make([]float64, numMels)
		s := scale
		if c == 0 {
			s = scale0
		}
		for i := range row {
			row[i] = s * math.Cos(math.Pi*float64(c)*(float64(i)+0.5)/float64(numMels))
		}
		m[c] = row
	}
	return m
}
