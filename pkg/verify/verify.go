// Package verify applies threshold policy to similarity scores and
// produces accept/reject decisions.
//
// Two operating modes exist:
//
//   - Closed-set verification: a caller claims an identity and the
//     probe is scored only against that identity's template. A single
//     accept threshold applies (default 0.8).
//
//   - Open-set identification: no identity is claimed; the probe is
//     ranked against every enrolled identity. Two thresholds split the
//     outcome into three tiers: Accept (default ≥ 0.75), PossibleMatch
//     (default ≥ 0.5, reported but never granted access), and Reject.
//     The middle band surfaces near-misses for audit without acting on
//     them.
package verify

import (
	"fmt"
	"log/slog"

	"github.com/voxauth/voxauth/pkg/similarity"
)

// UnknownIdentity is the sentinel used when an attempt matches nobody.
// Unmatched attempts are reported under this identity rather than
// silently dropped.
const UnknownIdentity = "unknown"

// Decision is the outcome tier of a verification attempt.
type Decision int

const (
	// Reject means the probe did not match any identity well enough.
	Reject Decision = iota

	// PossibleMatch means the top score fell in the audit band: the
	// tentative identity is reported but access is not granted.
	PossibleMatch

	// Accept means the probe matched with sufficient confidence.
	Accept
)

func (d Decision) String() string {
	switch d {
	case Reject:
		return "reject"
	case PossibleMatch:
		return "possible_match"
	case Accept:
		return "accept"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Result is the outcome of one verification attempt. It is produced
// fresh per attempt and never persisted by this package.
type Result struct {
	Decision Decision
	Identity string // matched or tentative identity; UnknownIdentity on reject
	Score    float64
}

// Granted reports whether the result grants access.
func (r Result) Granted() bool { return r.Decision == Accept }

// Thresholds holds the decision cutoffs.
type Thresholds struct {
	// Accept is the closed-set accept threshold.
	Accept float64 `yaml:"accept_threshold"`

	// IdentifyAccept is the open-set accept threshold.
	IdentifyAccept float64 `yaml:"identify_accept_threshold"`

	// IdentifyPossible is the open-set lower bound of the
	// possible-match audit band.
	IdentifyPossible float64 `yaml:"identify_possible_threshold"`
}

// DefaultThresholds returns the standard decision cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Accept:           0.8,
		IdentifyAccept:   0.75,
		IdentifyPossible: 0.5,
	}
}

// fill replaces zero fields with defaults.
func (t Thresholds) fill() Thresholds {
	def := DefaultThresholds()
	if t.Accept <= 0 {
		t.Accept = def.Accept
	}
	if t.IdentifyAccept <= 0 {
		t.IdentifyAccept = def.IdentifyAccept
	}
	if t.IdentifyPossible <= 0 {
		t.IdentifyPossible = def.IdentifyPossible
	}
	return t
}

// Policy converts similarity scores into decisions. It is stateless
// and safe for concurrent use.
type Policy struct {
	t   Thresholds
	log *slog.Logger
}

// Option configures a Policy.
type Option func(*Policy)

// WithLogger sets the trace logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Policy) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPolicy creates a Policy. Zero thresholds fall back to defaults.
func NewPolicy(t Thresholds, opts ...Option) *Policy {
	p := &Policy{t: t.fill(), log: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Thresholds returns the effective cutoffs.
func (p *Policy) Thresholds() Thresholds { return p.t }

// Verify applies the closed-set policy: the claimed identity is
// accepted iff its best-match score meets the accept threshold.
func (p *Policy) Verify(identity string, score float64) Result {
	r := Result{Identity: identity, Score: score}
	if score >= p.t.Accept {
		r.Decision = Accept
	} else {
		r.Decision = Reject
	}
	p.log.Info("closed-set verification",
		"identity", identity, "score", score, "decision", r.Decision.String())
	return r
}

// Identify applies the open-set policy to a descending ranking of
// candidates. An empty ranking always rejects under UnknownIdentity.
func (p *Policy) Identify(ranked []similarity.Ranked) Result {
	if len(ranked) == 0 {
		p.log.Info("open-set identification", "decision", Reject.String(), "reason", "no enrolled identities")
		return Result{Decision: Reject, Identity: UnknownIdentity}
	}

	top := ranked[0]
	r := Result{Identity: top.Identity, Score: top.Score}
	switch {
	case top.Score >= p.t.IdentifyAccept:
		r.Decision = Accept
	case top.Score >= p.t.IdentifyPossible:
		r.Decision = PossibleMatch
	default:
		r.Decision = Reject
		r.Identity = UnknownIdentity
	}
	p.log.Info("open-set identification",
		"identity", r.Identity, "score", r.Score, "decision", r.Decision.String())
	return r
}
