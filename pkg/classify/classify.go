// Package classify implements the supervised speaker classifier used as
// a secondary identification signal alongside similarity matching.
//
// The classifier is a small convolutional network over feature
// encodings treated as single-channel images (time × frequency × 1):
// stacked conv + batch-norm + max-pool blocks of increasing width,
// a global average pool, two dense blocks with dropout, and a softmax
// over the identity set captured at training time.
//
// A trained [Model] is immutable: retraining always produces a new
// Model, and the identity list established at training time travels
// with the weights. Class indices are positional, so the model must be
// retrained whenever the identity set changes; callers are expected to
// publish new models atomically and keep similarity matching as the
// system of record.
package classify

import (
	"errors"
	"fmt"

	"github.com/voxauth/voxauth/pkg/feature"
)

// Sentinel errors.
var (
	// ErrInsufficientTrainingData is returned when fewer than two
	// identities (each with at least one sample) are available.
	ErrInsufficientTrainingData = errors.New("classify: need at least two enrolled identities to train")

	// ErrShapeMismatch is returned when an encoding does not match the
	// shape the model was trained on.
	ErrShapeMismatch = errors.New("classify: encoding shape does not match trained input shape")
)

// Config controls the network architecture and training loop.
type Config struct {
	// ConvChannels lists the output width of each conv block.
	ConvChannels []int `yaml:"conv_channels"`

	// DenseUnits lists the width of each dense block.
	DenseUnits []int `yaml:"dense_units"`

	// Epochs is the maximum number of training epochs.
	Epochs int `yaml:"epochs"`

	// BatchSize is the minibatch size.
	BatchSize int `yaml:"batch_size"`

	// LearningRate is the initial Adam learning rate.
	LearningRate float64 `yaml:"learning_rate"`

	// ValidationSplit is the fraction of samples held out for
	// validation when no explicit validation set is given.
	ValidationSplit float64 `yaml:"validation_split"`

	// EarlyStopPatience is the number of epochs without validation
	// loss improvement before training stops.
	EarlyStopPatience int `yaml:"early_stop_patience"`

	// PlateauPatience is the number of epochs without validation loss
	// improvement before the learning rate is halved.
	PlateauPatience int `yaml:"plateau_patience"`

	// MinLearningRate floors the plateau decay.
	MinLearningRate float64 `yaml:"min_learning_rate"`

	// ConfidenceThreshold is the softmax maximum required for a
	// prediction to count as confident.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// Seed fixes weight initialization, shuffling, and dropout for
	// reproducible training runs.
	Seed uint64 `yaml:"seed"`
}

// DefaultConfig returns the standard architecture and training setup.
func DefaultConfig() Config {
	return Config{
		ConvChannels:        []int{32, 64, 128, 256},
		DenseUnits:          []int{512, 256},
		Epochs:              50,
		BatchSize:           32,
		LearningRate:        0.001,
		ValidationSplit:     0.2,
		EarlyStopPatience:   10,
		PlateauPatience:     5,
		MinLearningRate:     1e-7,
		ConfidenceThreshold: 0.7,
		Seed:                1,
	}
}

// fill replaces zero fields with defaults.
func (c Config) fill() Config {
	def := DefaultConfig()
	if len(c.ConvChannels) == 0 {
		c.ConvChannels = def.ConvChannels
	}
	if len(c.DenseUnits) == 0 {
		c.DenseUnits = def.DenseUnits
	}
	if c.Epochs <= 0 {
		c.Epochs = def.Epochs
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.LearningRate <= 0 {
		c.LearningRate = def.LearningRate
	}
	if c.ValidationSplit <= 0 || c.ValidationSplit >= 1 {
		c.ValidationSplit = def.ValidationSplit
	}
	if c.EarlyStopPatience <= 0 {
		c.EarlyStopPatience = def.EarlyStopPatience
	}
	if c.PlateauPatience <= 0 {
		c.PlateauPatience = def.PlateauPatience
	}
	if c.MinLearningRate <= 0 {
		c.MinLearningRate = def.MinLearningRate
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if c.Seed == 0 {
		c.Seed = def.Seed
	}
	return c
}

// Prediction is the result of running one encoding through a Model.
type Prediction struct {
	// ClassIndex is the positional class in the trained identity list.
	ClassIndex int

	// Identity is the identity the class index maps to.
	Identity string

	// Confidence is the softmax maximum. It is not a calibrated
	// probability of identity correctness.
	Confidence float64

	// Confident reports whether Confidence met the configured
	// threshold.
	Confident bool
}

// Model is an immutable trained classifier. All fields are fixed after
// training; concurrent Predict calls are safe.
type Model struct {
	version    string
	identities []string
	inputH     int
	inputW     int
	threshold  float64
	net        *network
	cfg        Config
}

// Version identifies this trained model instance.
func (m *Model) Version() string { return m.version }

// Identities returns the identity list in class-index order. The
// returned slice is a copy.
func (m *Model) Identities() []string {
	out := make([]string, len(m.identities))
	copy(out, m.identities)
	return out
}

// NumClasses returns the size of the identity set at training time.
func (m *Model) NumClasses() int { return len(m.identities) }

// InputShape returns the (frames, bins) shape the model accepts.
func (m *Model) InputShape() (int, int) { return m.inputH, m.inputW }

// Predict classifies one encoding.
func (m *Model) Predict(enc *feature.Encoding) (Prediction, error) {
	if enc == nil || enc.Frames != m.inputH || enc.Bins != m.inputW {
		return Prediction{}, fmt.Errorf("%w: got %dx%d, want %dx%d",
			ErrShapeMismatch, encFrames(enc), encBins(enc), m.inputH, m.inputW)
	}

	in := tensorFromEncoding(enc)
	probs := m.net.infer(in)

	best, bestP := 0, probs[0]
	for i, p := range probs {
		if p > bestP {
			best, bestP = i, p
		}
	}
	return Prediction{
		ClassIndex: best,
		Identity:   m.identities[best],
		Confidence: bestP,
		Confident:  bestP >= m.threshold,
	}, nil
}

func encFrames(e *feature.Encoding) int {
	if e == nil {
		return 0
	}
	return e.Frames
}

func encBins(e *feature.Encoding) int {
	if e == nil {
		return 0
	}
	return e.Bins
}
