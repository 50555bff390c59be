// Package enroll stores identities, their voice templates, and the
// login-attempt audit log.
//
// An identity's template is its collection of feature encodings
// captured at registration time. An identity is eligible for
// verification once it has at least one stored encoding.
//
// Every verification attempt is recorded, matched or not: unmatched
// attempts are stored under the caller-provided sentinel identity
// rather than being dropped.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/voxauth/voxauth/pkg/feature"
	"github.com/voxauth/voxauth/pkg/kv"
)

// Sentinel errors.
var (
	// ErrIdentityExists is returned when registering a duplicate ID.
	ErrIdentityExists = errors.New("enroll: identity already exists")

	// ErrIdentityNotFound is returned for operations on an unknown ID.
	ErrIdentityNotFound = errors.New("enroll: identity not found")

	// ErrNoSamples is returned when a template has no stored encodings.
	ErrNoSamples = errors.New("enroll: identity has no enrolled samples")
)

// Identity is a registered person.
type Identity struct {
	ID        string    `msgpack:"id"`
	Name      string    `msgpack:"name"`
	Email     string    `msgpack:"email,omitempty"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// Sample is one enrolled voice encoding with its capture metadata.
type Sample struct {
	ID         string            `msgpack:"id"`
	Encoding   *feature.Encoding `msgpack:"encoding"`
	Confidence float64           `msgpack:"confidence,omitempty"`
	CreatedAt  time.Time         `msgpack:"created_at"`
}

// Template is an identity's full set of enrolled samples.
type Template struct {
	Identity string
	Samples  []Sample
}

// Encodings returns the template's encodings in stored order.
func (t *Template) Encodings() []*feature.Encoding {
	encs := make([]*feature.Encoding, len(t.Samples))
	for i := range t.Samples {
		encs[i] = t.Samples[i].Encoding
	}
	return encs
}

// Attempt is one verification attempt, recorded for audit whether it
// succeeded or not.
type Attempt struct {
	Identity string    `msgpack:"identity"`
	Success  bool      `msgpack:"success"`
	Score    float64   `msgpack:"score"`
	At       time.Time `msgpack:"at"`
}

// Store persists identities, templates, and attempts on a kv.Store.
//
// Key layout:
//
//	identity:{id}                 → msgpack Identity
//	template:{id}:{sample-id}     → msgpack Sample
//	attempt:{YYYYMMDD}:{ts_ns}    → msgpack Attempt
//
// The attempt date partition keeps keys in chronological order under
// lexicographic iteration.
type Store struct {
	kv  kv.Store
	log *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the trace logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates a Store on the given backend.
func NewStore(backend kv.Store, opts ...Option) *Store {
	s := &Store{kv: backend, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func identityKey(id string) kv.Key  { return kv.Key{"identity", id} }
func templateKey(id string) kv.Key  { return kv.Key{"template", id} }
func sampleKey(id, sid string) kv.Key {
	return kv.Key{"template", id, sid}
}

func attemptKey(at time.Time) kv.Key {
	t := at.UTC()
	return kv.Key{"attempt", t.Format("20060102"), fmt.Sprintf("%019d", t.UnixNano())}
}

// RegisterIdentity creates a new identity record.
func (s *Store) RegisterIdentity(ctx context.Context, id, name, email string) error {
	if id == "" {
		return errors.New("enroll: empty identity ID")
	}
	if _, err := s.kv.Get(ctx, identityKey(id)); err == nil {
		return fmt.Errorf("%w: %s", ErrIdentityExists, id)
	} else if !errors.Is(err, kv.ErrNotFound) {
		return err
	}

	ident := Identity{ID: id, Name: name, Email: email, CreatedAt: time.Now().UTC()}
	data, err := msgpack.Marshal(&ident)
	if err != nil {
		return fmt.Errorf("enroll: encode identity: %w", err)
	}
	if err := s.kv.Set(ctx, identityKey(id), data); err != nil {
		return err
	}
	s.log.Info("registered identity", "identity", id, "name", name)
	return nil
}

// Identity fetches one identity record.
func (s *Store) Identity(ctx context.Context, id string) (Identity, error) {
	data, err := s.kv.Get(ctx, identityKey(id))
	if errors.Is(err, kv.ErrNotFound) {
		return Identity{}, fmt.Errorf("%w: %s", ErrIdentityNotFound, id)
	}
	if err != nil {
		return Identity{}, err
	}
	var ident Identity
	if err := msgpack.Unmarshal(data, &ident); err != nil {
		return Identity{}, fmt.Errorf("enroll: decode identity: %w", err)
	}
	return ident, nil
}

// Identities lists all registered identities.
func (s *Store) Identities(ctx context.Context) ([]Identity, error) {
	var out []Identity
	for e, err := range s.kv.List(ctx, kv.Key{"identity"}) {
		if err != nil {
			return nil, err
		}
		var ident Identity
		if err := msgpack.Unmarshal(e.Value, &ident); err != nil {
			return nil, fmt.Errorf("enroll: decode identity %s: %w", e.Key, err)
		}
		out = append(out, ident)
	}
	return out, nil
}

// RemoveIdentity deletes an identity and all of its enrolled samples.
// The attempt log is untouched; audit history outlives enrollment.
func (s *Store) RemoveIdentity(ctx context.Context, id string) error {
	if _, err := s.Identity(ctx, id); err != nil {
		return err
	}
	var keys []kv.Key
	for e, err := range s.kv.List(ctx, templateKey(id)) {
		if err != nil {
			return err
		}
		keys = append(keys, e.Key)
	}
	keys = append(keys, identityKey(id))
	if err := s.kv.BatchDelete(ctx, keys); err != nil {
		return err
	}
	s.log.Info("removed identity", "identity", id, "samples_deleted", len(keys)-1)
	return nil
}

// AddSample stores one enrolled encoding for an identity.
func (s *Store) AddSample(ctx context.Context, id string, enc *feature.Encoding, confidence float64) (Sample, error) {
	if _, err := s.Identity(ctx, id); err != nil {
		return Sample{}, err
	}
	sample := Sample{
		ID:         uuid.NewString(),
		Encoding:   enc.Clone(),
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}
	data, err := msgpack.Marshal(&sample)
	if err != nil {
		return Sample{}, fmt.Errorf("enroll: encode sample: %w", err)
	}
	if err := s.kv.Set(ctx, sampleKey(id, sample.ID), data); err != nil {
		return Sample{}, err
	}
	s.log.Info("enrolled sample", "identity", id, "sample", sample.ID,
		"frames", enc.Frames, "bins", enc.Bins)
	return sample, nil
}

// Template loads an identity's full template. Returns ErrNoSamples if
// the identity exists but has no enrolled encodings.
func (s *Store) Template(ctx context.Context, id string) (*Template, error) {
	if _, err := s.Identity(ctx, id); err != nil {
		return nil, err
	}
	tpl := &Template{Identity: id}
	for e, err := range s.kv.List(ctx, templateKey(id)) {
		if err != nil {
			return nil, err
		}
		var sample Sample
		if err := msgpack.Unmarshal(e.Value, &sample); err != nil {
			return nil, fmt.Errorf("enroll: decode sample %s: %w", e.Key, err)
		}
		tpl.Samples = append(tpl.Samples, sample)
	}
	if len(tpl.Samples) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSamples, id)
	}
	return tpl, nil
}

// Templates returns the encodings of every verification-eligible
// identity (those with at least one sample), keyed by identity ID.
func (s *Store) Templates(ctx context.Context) (map[string][]*feature.Encoding, error) {
	out := make(map[string][]*feature.Encoding)
	for e, err := range s.kv.List(ctx, kv.Key{"template"}) {
		if err != nil {
			return nil, err
		}
		if len(e.Key) != 3 {
			continue
		}
		var sample Sample
		if err := msgpack.Unmarshal(e.Value, &sample); err != nil {
			return nil, fmt.Errorf("enroll: decode sample %s: %w", e.Key, err)
		}
		id := e.Key[1]
		out[id] = append(out[id], sample.Encoding)
	}
	return out, nil
}

// RecordAttempt appends one verification attempt to the audit log.
func (s *Store) RecordAttempt(ctx context.Context, a Attempt) error {
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	data, err := msgpack.Marshal(&a)
	if err != nil {
		return fmt.Errorf("enroll: encode attempt: %w", err)
	}
	if err := s.kv.Set(ctx, attemptKey(a.At), data); err != nil {
		return err
	}
	s.log.Info("recorded attempt",
		"identity", a.Identity, "success", a.Success, "score", a.Score)
	return nil
}

// Attempts lists recorded attempts in chronological order.
func (s *Store) Attempts(ctx context.Context) ([]Attempt, error) {
	var out []Attempt
	for e, err := range s.kv.List(ctx, kv.Key{"attempt"}) {
		if err != nil {
			return nil, err
		}
		var a Attempt
		if err := msgpack.Unmarshal(e.Value, &a); err != nil {
			return nil, fmt.Errorf("enroll: decode attempt %s: %w", e.Key, err)
		}
		out = append(out, a)
	}
	return out, nil
}
