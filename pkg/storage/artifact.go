package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/voxauth/voxauth/pkg/classify"
)

// ErrNoModel is returned when no model has been published yet.
var ErrNoModel = errors.New("storage: no published model")

const (
	modelDir      = "models"
	currentMarker = "models/CURRENT"
)

// ModelStore manages versioned classifier artifacts on a FileStore.
//
// Each trained model is written under models/<version>.model, then a
// small CURRENT marker is rewritten to point at it. The marker update
// is the publication step: concurrent readers resolve either the old
// version or the new one, never a partial artifact. Old versions stay
// on the store until pruned.
type ModelStore struct {
	fs  FileStore
	log *slog.Logger
}

// ModelStoreOption configures a ModelStore.
type ModelStoreOption func(*ModelStore)

// WithLogger sets the trace logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ModelStoreOption {
	return func(s *ModelStore) {
		if l != nil {
			s.log = l
		}
	}
}

// NewModelStore wraps fs with the versioned model layout.
func NewModelStore(fs FileStore, opts ...ModelStoreOption) *ModelStore {
	s := &ModelStore{fs: fs, log: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func modelPath(version string) string {
	return modelDir + "/" + version + ".model"
}

// Publish writes the model artifact and repoints the CURRENT marker at
// it. The model becomes the one LoadCurrent resolves only after both
// writes succeed.
func (s *ModelStore) Publish(ctx context.Context, m *classify.Model) error {
	path := modelPath(m.Version())

	w, err := s.fs.Write(ctx, path)
	if err != nil {
		return fmt.Errorf("storage: publish %s: %w", m.Version(), err)
	}
	if err := m.Save(w); err != nil {
		w.Close()
		return fmt.Errorf("storage: publish %s: %w", m.Version(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: publish %s: %w", m.Version(), err)
	}

	mw, err := s.fs.Write(ctx, currentMarker)
	if err != nil {
		return fmt.Errorf("storage: publish %s: %w", m.Version(), err)
	}
	if _, err := io.WriteString(mw, m.Version()); err != nil {
		mw.Close()
		return fmt.Errorf("storage: publish %s: %w", m.Version(), err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("storage: publish %s: %w", m.Version(), err)
	}

	s.log.Info("model published", "version", m.Version(), "path", path)
	return nil
}

// CurrentVersion resolves the CURRENT marker. Returns ErrNoModel if
// nothing has been published.
func (s *ModelStore) CurrentVersion(ctx context.Context) (string, error) {
	r, err := s.fs.Read(ctx, currentMarker)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoModel
		}
		return "", err
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("storage: read current marker: %w", err)
	}
	version := strings.TrimSpace(string(raw))
	if version == "" {
		return "", ErrNoModel
	}
	return version, nil
}

// LoadCurrent loads the currently published model.
func (s *ModelStore) LoadCurrent(ctx context.Context) (*classify.Model, error) {
	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	return s.LoadVersion(ctx, version)
}

// LoadVersion loads a specific model version, published or not.
func (s *ModelStore) LoadVersion(ctx context.Context, version string) (*classify.Model, error) {
	r, err := s.fs.Read(ctx, modelPath(version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: version %s", ErrNoModel, version)
		}
		return nil, err
	}
	defer r.Close()

	m, err := classify.Load(r)
	if err != nil {
		return nil, fmt.Errorf("storage: load %s: %w", version, err)
	}
	return m, nil
}

// Remove deletes a stored model version. Removing the published
// version does not clear the CURRENT marker; publish a replacement
// first.
func (s *ModelStore) Remove(ctx context.Context, version string) error {
	return s.fs.Delete(ctx, modelPath(version))
}
