package verify

import (
	"testing"

	"github.com/voxauth/voxauth/pkg/similarity"
)

func TestVerifyClosedSet(t *testing.T) {
	p := NewPolicy(DefaultThresholds())

	tests := []struct {
		score float64
		want  Decision
	}{
		{0.95, Accept},
		{0.8, Accept}, // boundary is inclusive
		{0.79, Reject},
		{0.0, Reject},
	}
	for _, tt := range tests {
		r := p.Verify("alice", tt.score)
		if r.Decision != tt.want {
			t.Errorf("score %.2f: decision = %v, want %v", tt.score, r.Decision, tt.want)
		}
		if r.Identity != "alice" {
			t.Errorf("score %.2f: identity = %q, want alice", tt.score, r.Identity)
		}
	}
}

func TestIdentifyTiers(t *testing.T) {
	p := NewPolicy(DefaultThresholds())

	tests := []struct {
		score    float64
		want     Decision
		identity string
	}{
		{0.9, Accept, "s1"},
		{0.75, Accept, "s1"}, // boundary inclusive
		{0.6, PossibleMatch, "s1"},
		{0.5, PossibleMatch, "s1"},
		{0.3, Reject, UnknownIdentity},
		{0.0, Reject, UnknownIdentity},
	}
	for _, tt := range tests {
		r := p.Identify([]similarity.Ranked{{Identity: "s1", Score: tt.score}})
		if r.Decision != tt.want {
			t.Errorf("score %.2f: decision = %v, want %v", tt.score, r.Decision, tt.want)
		}
		if r.Identity != tt.identity {
			t.Errorf("score %.2f: identity = %q, want %q", tt.score, r.Identity, tt.identity)
		}
	}
}

func TestIdentifyEmptySet(t *testing.T) {
	p := NewPolicy(DefaultThresholds())
	r := p.Identify(nil)
	if r.Decision != Reject {
		t.Errorf("decision = %v, want Reject", r.Decision)
	}
	if r.Identity != UnknownIdentity {
		t.Errorf("identity = %q, want %q", r.Identity, UnknownIdentity)
	}
}

func TestIdentifyUsesTopCandidate(t *testing.T) {
	p := NewPolicy(DefaultThresholds())
	r := p.Identify([]similarity.Ranked{
		{Identity: "best", Score: 0.85},
		{Identity: "second", Score: 0.8},
	})
	if r.Identity != "best" || r.Decision != Accept {
		t.Errorf("got %+v, want Accept for 'best'", r)
	}
}

func TestPossibleMatchDoesNotGrant(t *testing.T) {
	p := NewPolicy(DefaultThresholds())
	r := p.Identify([]similarity.Ranked{{Identity: "s1", Score: 0.6}})
	if r.Granted() {
		t.Error("PossibleMatch must not grant access")
	}
	// The tentative identity is still reported for audit.
	if r.Identity != "s1" {
		t.Errorf("identity = %q, want s1", r.Identity)
	}
}

func TestThresholdDefaultsFill(t *testing.T) {
	p := NewPolicy(Thresholds{})
	got := p.Thresholds()
	if got.Accept != 0.8 || got.IdentifyAccept != 0.75 || got.IdentifyPossible != 0.5 {
		t.Errorf("defaults = %+v", got)
	}
}

func TestCustomThresholds(t *testing.T) {
	p := NewPolicy(Thresholds{Accept: 0.9, IdentifyAccept: 0.85, IdentifyPossible: 0.7})
	if r := p.Verify("x", 0.85); r.Decision != Reject {
		t.Errorf("0.85 under 0.9 threshold: decision = %v, want Reject", r.Decision)
	}
	if r := p.Identify([]similarity.Ranked{{Identity: "x", Score: 0.75}}); r.Decision != PossibleMatch {
		t.Errorf("0.75 in [0.7,0.85): decision = %v, want PossibleMatch", r.Decision)
	}
}

func TestDecisionString(t *testing.T) {
	if Accept.String() != "accept" || Reject.String() != "reject" || PossibleMatch.String() != "possible_match" {
		t.Error("unexpected Decision string values")
	}
}
