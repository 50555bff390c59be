// Package voxauth wires the full voice authentication pipeline.
//
// An [Authenticator] owns the stage objects and runs raw audio through
// normalization, feature extraction, and either closed-set
// verification against a claimed identity or open-set identification
// across all enrolled identities. Every attempt is recorded for audit.
//
// The similarity engine is the system of record for decisions. A
// trained classifier, when present, runs as an advisory second signal
// only: its prediction is logged next to the similarity outcome but
// never overrides it.
package voxauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voxauth/voxauth/pkg/audio/normalize"
	"github.com/voxauth/voxauth/pkg/audio/pcm"
	"github.com/voxauth/voxauth/pkg/classify"
	"github.com/voxauth/voxauth/pkg/enroll"
	"github.com/voxauth/voxauth/pkg/feature"
	"github.com/voxauth/voxauth/pkg/similarity"
	"github.com/voxauth/voxauth/pkg/storage"
	"github.com/voxauth/voxauth/pkg/verify"
)

// ErrTrainingInProgress is returned when a training run is already
// active. Training is sequenced one run at a time because it reads a
// template snapshot and later publishes a replacement model.
var ErrTrainingInProgress = errors.New("voxauth: training already in progress")

// Authenticator runs the end-to-end pipeline. It is safe for
// concurrent use; retraining publishes a fresh model instead of
// mutating the one in-flight inference may hold.
type Authenticator struct {
	cfg    Config
	norm   *normalize.Normalizer
	ext    *feature.Extractor
	sim    *similarity.Engine
	policy *verify.Policy
	store  *enroll.Store
	models *storage.ModelStore
	model  atomic.Pointer[classify.Model]

	trainMu sync.Mutex
	log     *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the trace logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.log = l
		}
	}
}

// WithModelStore enables classifier artifact persistence. Trained
// models are published to the store, and LoadPublishedModel can
// restore the current one at startup.
func WithModelStore(ms *storage.ModelStore) Option {
	return func(a *Authenticator) { a.models = ms }
}

// New builds an Authenticator over an enrollment store.
func New(cfg Config, store *enroll.Store, opts ...Option) *Authenticator {
	a := &Authenticator{cfg: cfg, store: store, log: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	if a.cfg.FeatureType == "" {
		a.cfg.FeatureType = feature.Spectrogram
	}
	a.norm = normalize.New(cfg.Normalize, normalize.WithLogger(a.log))
	a.ext = feature.NewExtractor(cfg.Feature, feature.WithLogger(a.log))
	a.sim = similarity.NewEngine(similarity.WithLogger(a.log))
	a.policy = verify.NewPolicy(cfg.Thresholds, verify.WithLogger(a.log))
	return a
}

// Encode normalizes raw audio and extracts its feature encoding.
//
// Extraction runs a fallback chain: the configured feature type first,
// then the alternate type, then a coarse time-domain energy profile
// that matches the spectrogram shape. The chain exists so an unusual
// but non-empty clip still yields a comparable encoding; each
// downgrade is logged.
func (a *Authenticator) Encode(audio pcm.Audio) (*feature.Encoding, error) {
	clean, err := a.norm.Process(audio)
	if err != nil {
		return nil, err
	}

	primary := a.cfg.FeatureType
	enc, err := a.ext.Extract(clean, primary)
	if err == nil {
		return enc, nil
	}
	if !recoverable(err) {
		return nil, err
	}
	a.log.Warn("primary extraction failed, trying alternate type",
		"type", string(primary), "error", err)

	alternate := feature.MFCC
	if primary == feature.MFCC {
		alternate = feature.Spectrogram
	}
	enc, err = a.ext.Extract(clean, alternate)
	if err == nil {
		return enc, nil
	}
	if !recoverable(err) {
		return nil, err
	}
	a.log.Warn("alternate extraction failed, using degraded energy profile",
		"type", string(alternate), "error", err)

	return a.energyProfile(clean)
}

func recoverable(err error) bool {
	return errors.Is(err, feature.ErrTooShort) || errors.Is(err, feature.ErrExtraction)
}

// Enroll encodes a voice sample and stores it under the identity. The
// identity must already be registered.
func (a *Authenticator) Enroll(ctx context.Context, identity string, audio pcm.Audio) (enroll.Sample, error) {
	enc, err := a.Encode(audio)
	if err != nil {
		return enroll.Sample{}, err
	}
	return a.store.AddSample(ctx, identity, enc, 0)
}

// Verify runs closed-set verification of a claimed identity. The
// attempt is recorded whether or not access is granted.
func (a *Authenticator) Verify(ctx context.Context, identity string, audio pcm.Audio) (verify.Result, error) {
	probe, err := a.Encode(audio)
	if err != nil {
		return verify.Result{}, err
	}

	tpl, err := a.store.Template(ctx, identity)
	if err != nil {
		return verify.Result{}, err
	}

	score := a.sim.BestMatch(probe, tpl.Encodings())
	result := a.policy.Verify(identity, score)

	if err := a.recordAttempt(ctx, result); err != nil {
		return verify.Result{}, err
	}
	return result, nil
}

// Identify runs open-set identification across all enrolled
// identities. With no identities enrolled the result is a Reject under
// the unknown identity. The attempt is recorded either way.
func (a *Authenticator) Identify(ctx context.Context, audio pcm.Audio) (verify.Result, error) {
	probe, err := a.Encode(audio)
	if err != nil {
		return verify.Result{}, err
	}

	templates, err := a.store.Templates(ctx)
	if err != nil {
		return verify.Result{}, err
	}

	ranked := a.sim.RankAll(probe, templates)
	result := a.policy.Identify(ranked)

	a.adviseClassifier(probe, result)

	if err := a.recordAttempt(ctx, result); err != nil {
		return verify.Result{}, err
	}
	return result, nil
}

// adviseClassifier runs the published model, if any, as a second
// opinion and logs whether it agrees with the similarity decision.
func (a *Authenticator) adviseClassifier(probe *feature.Encoding, result verify.Result) {
	model := a.model.Load()
	if model == nil {
		return
	}
	pred, err := model.Predict(probe)
	if err != nil {
		a.log.Warn("classifier advisory skipped", "version", model.Version(), "error", err)
		return
	}
	a.log.Info("classifier advisory",
		"version", model.Version(),
		"identity", pred.Identity,
		"confidence", pred.Confidence,
		"confident", pred.Confident,
		"agrees", pred.Identity == result.Identity)
}

func (a *Authenticator) recordAttempt(ctx context.Context, r verify.Result) error {
	err := a.store.RecordAttempt(ctx, enroll.Attempt{
		Identity: r.Identity,
		Success:  r.Granted(),
		Score:    r.Score,
		At:       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("voxauth: record attempt: %w", err)
	}
	return nil
}

// Train fits a new classifier on a snapshot of the current templates
// and publishes it. Only one run may be active at a time; a second
// caller gets ErrTrainingInProgress instead of blocking.
//
// Publication happens only after training fully succeeds: first to the
// model store when one is configured, then to in-process inference via
// an atomic swap. A failed run leaves the previous model untouched.
func (a *Authenticator) Train(ctx context.Context, opts ...classify.TrainOption) (*classify.Model, *classify.Report, error) {
	if !a.trainMu.TryLock() {
		return nil, nil, ErrTrainingInProgress
	}
	defer a.trainMu.Unlock()

	templates, err := a.store.Templates(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts = append(opts, classify.WithLogger(a.log))
	model, report, err := classify.Train(templates, a.cfg.Classifier, opts...)
	if err != nil {
		return nil, nil, err
	}

	if a.models != nil {
		if err := a.models.Publish(ctx, model); err != nil {
			return nil, nil, err
		}
	}
	a.model.Store(model)
	return model, report, nil
}

// Model returns the currently published classifier, or nil when none
// has been trained or loaded.
func (a *Authenticator) Model() *classify.Model {
	return a.model.Load()
}

// LoadPublishedModel restores the current model from the model store,
// typically at startup. Without a configured store, or with nothing
// published yet, the classifier simply stays disabled.
func (a *Authenticator) LoadPublishedModel(ctx context.Context) error {
	if a.models == nil {
		return nil
	}
	model, err := a.models.LoadCurrent(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoModel) {
			return nil
		}
		return err
	}
	a.model.Store(model)
	a.log.Info("classifier restored", "version", model.Version(), "identities", model.NumClasses())
	return nil
}

// Store exposes the underlying enrollment store for registry and audit
// queries.
func (a *Authenticator) Store() *enroll.Store { return a.store }
