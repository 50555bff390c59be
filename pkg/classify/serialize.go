package classify

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrBadArtifact reports a model artifact that cannot be decoded.
var ErrBadArtifact = errors.New("classify: bad model artifact")

const artifactFormat = 1

// modelDoc is the on-disk layout. The identity list travels with the
// weights so class indices always resolve against the roster the model
// was trained on, not the current enrollment state.
type modelDoc struct {
	Format     int         `msgpack:"format"`
	Version    string      `msgpack:"version"`
	Identities []string    `msgpack:"identities"`
	InputH     int         `msgpack:"input_h"`
	InputW     int         `msgpack:"input_w"`
	Threshold  float64     `msgpack:"threshold"`
	Config     Config      `msgpack:"config"`
	Params     [][]float64 `msgpack:"params"`
}

// Save writes the model, its configuration, and its identity mapping
// to w.
func (m *Model) Save(w io.Writer) error {
	doc := modelDoc{
		Format:     artifactFormat,
		Version:    m.version,
		Identities: m.identities,
		InputH:     m.inputH,
		InputW:     m.inputW,
		Threshold:  m.threshold,
		Config:     m.cfg,
		Params:     m.net.snapshotParams(),
	}
	if err := msgpack.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("classify: encode model: %w", err)
	}
	return nil
}

// Load reads a model previously written by Save.
func Load(r io.Reader) (*Model, error) {
	var doc modelDoc
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	if doc.Format != artifactFormat {
		return nil, fmt.Errorf("%w: unsupported format %d", ErrBadArtifact, doc.Format)
	}
	if doc.Version == "" || len(doc.Identities) < 2 || doc.InputH <= 0 || doc.InputW <= 0 {
		return nil, fmt.Errorf("%w: incomplete document", ErrBadArtifact)
	}

	cfg := doc.Config.fill()
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	net, err := buildNetwork(doc.InputH, doc.InputW, len(doc.Identities), cfg, rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	if len(doc.Params) != len(net.snapshotParams()) {
		return nil, fmt.Errorf("%w: parameter count mismatch", ErrBadArtifact)
	}
	net.restoreParams(doc.Params)

	return &Model{
		version:    doc.Version,
		identities: doc.Identities,
		inputH:     doc.InputH,
		inputW:     doc.InputW,
		threshold:  doc.Threshold,
		net:        net,
		cfg:        cfg,
	}, nil
}
