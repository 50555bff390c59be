// Package similarity scores pairs of feature encodings for speaker
// verification.
//
// The core measure is cosine similarity over flattened encodings,
// clamped to [0, 1]. Degenerate inputs never match: mismatched shapes
// and zero-norm vectors both score exactly 0 rather than raising, so a
// failed comparison flows through the same rejection path as a genuine
// non-match while remaining distinguishable in trace logs.
//
// An identity enrolled with several samples is represented by its best
// single sample: [Engine.BestMatch] takes the maximum score across the
// stored encodings, never an average. Enrollment samples vary in
// quality, and one excellent match is stronger evidence than several
// mediocre ones.
package similarity

import (
	"log/slog"
	"math"
	"sort"

	"github.com/voxauth/voxauth/pkg/feature"
)

// Ranked pairs an identity with its best-match score against a probe.
type Ranked struct {
	Identity string
	Score    float64
}

// Engine computes similarity scores and emits structured trace events
// to the injected logger. It is stateless and safe for concurrent use.
type Engine struct {
	log *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the trace logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates a similarity Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compare returns the cosine similarity of two encodings in [0, 1].
// Mismatched shapes and zero-norm inputs score 0.
func (e *Engine) Compare(a, b *feature.Encoding) float64 {
	if a == nil || b == nil {
		return 0
	}
	if !a.SameShape(b) {
		e.log.Debug("similarity shape mismatch",
			"a_frames", a.Frames, "a_bins", a.Bins,
			"b_frames", b.Frames, "b_bins", b.Bins)
		return 0
	}
	score := Cosine(a.Flatten(), b.Flatten())
	e.log.Debug("similarity compared", "score", score)
	return score
}

// BestMatch scores the probe against every enrolled encoding and
// returns the maximum. An empty sample set scores 0.
func (e *Engine) BestMatch(probe *feature.Encoding, samples []*feature.Encoding) float64 {
	var best float64
	for _, s := range samples {
		if score := e.Compare(probe, s); score > best {
			best = score
		}
	}
	return best
}

// RankAll scores the probe against every candidate identity and returns
// the identities ordered by descending best-match score. Ties break by
// identity for a deterministic order.
func (e *Engine) RankAll(probe *feature.Encoding, candidates map[string][]*feature.Encoding) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for id, samples := range candidates {
		ranked = append(ranked, Ranked{Identity: id, Score: e.BestMatch(probe, samples)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Identity < ranked[j].Identity
	})
	e.log.Debug("ranked candidates", "count", len(ranked))
	return ranked
}

// Cosine computes cosine similarity between two vectors, clamped to
// [0, 1]. Length mismatch or a zero-norm input returns exactly 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp floating point drift and negative correlation.
	if sim > 1 {
		sim = 1
	}
	if sim < 0 {
		sim = 0
	}
	return sim
}
