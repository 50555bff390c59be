// Package audio is an umbrella for the audio processing sub-packages:
//
//   - pcm: sample model, PCM16 conversion, and WAV decode/encode
//   - resampler: sample rate conversion
//   - normalize: canonical-rate normalization and silence removal
//
// The pipeline consumes audio exclusively through these packages; the
// rest of the system only ever sees mono float samples at the
// canonical rate.
package audio
