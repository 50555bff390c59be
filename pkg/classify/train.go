package classify

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"

	"github.com/voxauth/voxauth/pkg/feature"
)

// Report summarizes a completed training run.
type Report struct {
	Epochs       int     // epochs actually run
	TrainSamples int     // training set size
	ValSamples   int     // validation set size
	BestValLoss  float64 // lowest validation loss observed
	BestValAcc   float64 // highest validation accuracy observed
	FinalLR      float64 // learning rate after plateau decay
}

// ProgressFunc receives per-epoch training metrics.
type ProgressFunc func(epoch, totalEpochs int, trainLoss, valLoss, valAcc float64)

// TrainOption configures a training run.
type TrainOption func(*trainer)

// WithProgress registers a per-epoch metrics callback.
func WithProgress(fn ProgressFunc) TrainOption {
	return func(t *trainer) { t.progress = fn }
}

// WithLogger sets the trace logger. Default: slog.Default().
func WithLogger(l *slog.Logger) TrainOption {
	return func(t *trainer) {
		if l != nil {
			t.log = l
		}
	}
}

type trainer struct {
	cfg      Config
	progress ProgressFunc
	log      *slog.Logger
}

// Train fits a new classifier on a snapshot of enrollment templates.
// The identity list is captured in sorted order; class index i in the
// returned Model always refers to Model.Identities()[i].
//
// Training never mutates a previously returned Model. Callers are
// responsible for sequencing: run one training at a time and publish
// the result atomically.
func Train(templates map[string][]*feature.Encoding, cfg Config, opts ...TrainOption) (*Model, *Report, error) {
	t := &trainer{cfg: cfg.fill(), log: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t.run(templates)
}

func (t *trainer) run(templates map[string][]*feature.Encoding) (*Model, *Report, error) {
	identities, xs, ys, err := buildDataset(templates)
	if err != nil {
		return nil, nil, err
	}

	h, w := xs[0].h, xs[0].w
	rng := rand.New(rand.NewPCG(t.cfg.Seed, t.cfg.Seed^0x9e3779b97f4a7c15))

	net, err := buildNetwork(h, w, len(identities), t.cfg, rng)
	if err != nil {
		return nil, nil, err
	}

	// Shuffle, then hold out the validation tail. With very small
	// datasets the tail may be empty; validate on the training set
	// then, which keeps the loop structure intact at the cost of an
	// optimistic validation signal.
	perm := rng.Perm(len(xs))
	shufX := make([]*tensor, len(xs))
	shufY := make([]int, len(ys))
	for i, p := range perm {
		shufX[i] = xs[p]
		shufY[i] = ys[p]
	}
	nVal := int(float64(len(xs)) * t.cfg.ValidationSplit)
	trainX, trainY := shufX[:len(xs)-nVal], shufY[:len(xs)-nVal]
	valX, valY := shufX[len(xs)-nVal:], shufY[len(xs)-nVal:]
	if len(valX) == 0 {
		valX, valY = trainX, trainY
	}

	opt := newAdam(net.params(), t.cfg.LearningRate)

	report := &Report{
		TrainSamples: len(trainX),
		ValSamples:   len(valX),
		BestValLoss:  math.Inf(1),
	}

	var bestSnap [][]float64
	sinceImprove := 0 // epochs since val loss improved
	sincePlateau := 0 // epochs since last LR cut consideration

	t.log.Info("training classifier",
		"identities", len(identities),
		"train_samples", len(trainX),
		"val_samples", len(valX),
		"input", fmt.Sprintf("%dx%d", h, w))

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		trainLoss := t.runEpoch(net, opt, trainX, trainY, rng)
		valLoss, valAcc := evaluate(net, valX, valY)

		report.Epochs = epoch + 1
		if t.progress != nil {
			t.progress(epoch+1, t.cfg.Epochs, trainLoss, valLoss, valAcc)
		}
		t.log.Debug("epoch complete",
			"epoch", epoch+1, "train_loss", trainLoss,
			"val_loss", valLoss, "val_acc", valAcc, "lr", opt.lr)

		if valLoss < report.BestValLoss {
			report.BestValLoss = valLoss
			sinceImprove = 0
			sincePlateau = 0
		} else {
			sinceImprove++
			sincePlateau++
		}

		// Checkpoint the best validation accuracy weights; ties keep
		// the earlier snapshot.
		if valAcc > report.BestValAcc || bestSnap == nil {
			report.BestValAcc = valAcc
			bestSnap = net.snapshotParams()
		}

		if sinceImprove >= t.cfg.EarlyStopPatience {
			t.log.Info("early stopping", "epoch", epoch+1, "best_val_loss", report.BestValLoss)
			break
		}
		if sincePlateau >= t.cfg.PlateauPatience {
			opt.lr = math.Max(opt.lr*0.5, t.cfg.MinLearningRate)
			sincePlateau = 0
			t.log.Info("learning rate reduced on plateau", "lr", opt.lr)
		}
	}
	report.FinalLR = opt.lr

	net.restoreParams(bestSnap)

	model := &Model{
		version:    uuid.NewString(),
		identities: identities,
		inputH:     h,
		inputW:     w,
		threshold:  t.cfg.ConfidenceThreshold,
		net:        net,
		cfg:        t.cfg,
	}
	t.log.Info("training complete",
		"version", model.version,
		"epochs", report.Epochs,
		"best_val_acc", report.BestValAcc)
	return model, report, nil
}

// runEpoch performs one pass of minibatch SGD and returns the mean
// training loss.
func (t *trainer) runEpoch(net *network, opt *adam, xs []*tensor, ys []int, rng *rand.Rand) float64 {
	perm := rng.Perm(len(xs))

	var totalLoss float64
	for start := 0; start < len(perm); start += t.cfg.BatchSize {
		end := start + t.cfg.BatchSize
		if end > len(perm) {
			end = len(perm)
		}
		batch := make([]*tensor, end-start)
		labels := make([]int, end-start)
		for i, p := range perm[start:end] {
			batch[i] = xs[p]
			labels[i] = ys[p]
		}

		net.zeroGrads()
		logits := net.forward(batch, true)

		// Softmax cross-entropy; gradient (p - onehot) / batch.
		grads := make([]*tensor, len(logits))
		invBatch := 1.0 / float64(len(logits))
		for i, lg := range logits {
			probs := softmax(lg.data)
			p := probs[labels[i]]
			if p < 1e-12 {
				p = 1e-12
			}
			totalLoss += -math.Log(p)

			g := newTensor(1, 1, len(probs))
			for j, pv := range probs {
				g.data[j] = pv * invBatch
			}
			g.data[labels[i]] -= invBatch
			grads[i] = g
		}

		net.backward(grads)
		opt.step(net.params())
	}
	return totalLoss / float64(len(xs))
}

// evaluate computes loss and accuracy on a labeled set in inference
// mode.
func evaluate(net *network, xs []*tensor, ys []int) (loss, acc float64) {
	var correct int
	for i, x := range xs {
		probs := net.infer(x)
		p := probs[ys[i]]
		if p < 1e-12 {
			p = 1e-12
		}
		loss += -math.Log(p)

		best := 0
		for j, pv := range probs {
			if pv > probs[best] {
				best = j
			}
		}
		if best == ys[i] {
			correct++
		}
	}
	return loss / float64(len(xs)), float64(correct) / float64(len(xs))
}

// buildDataset flattens a template snapshot into tensors and class
// labels, with identities in sorted order defining the class indices.
func buildDataset(templates map[string][]*feature.Encoding) ([]string, []*tensor, []int, error) {
	var identities []string
	for id, encs := range templates {
		if len(encs) > 0 {
			identities = append(identities, id)
		}
	}
	if len(identities) < 2 {
		return nil, nil, nil, fmt.Errorf("%w: have %d", ErrInsufficientTrainingData, len(identities))
	}
	sort.Strings(identities)

	var xs []*tensor
	var ys []int
	var h, w int
	for classIdx, id := range identities {
		for _, enc := range templates[id] {
			if enc == nil {
				continue
			}
			if h == 0 {
				h, w = enc.Frames, enc.Bins
			} else if enc.Frames != h || enc.Bins != w {
				return nil, nil, nil, fmt.Errorf("%w: identity %s has %dx%d, expected %dx%d",
					ErrShapeMismatch, id, enc.Frames, enc.Bins, h, w)
			}
			xs = append(xs, tensorFromEncoding(enc))
			ys = append(ys, classIdx)
		}
	}
	return identities, xs, ys, nil
}

// adam is the Adam optimizer over a fixed parameter list.
type adam struct {
	lr      float64
	beta1   float64
	beta2   float64
	eps     float64
	t       int
	moments []adamMoment
}

type adamMoment struct {
	m, v []float64
}

func newAdam(params []*param, lr float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
	a.moments = make([]adamMoment, len(params))
	for i, p := range params {
		a.moments[i] = adamMoment{
			m: make([]float64, len(p.val)),
			v: make([]float64, len(p.val)),
		}
	}
	return a
}

func (a *adam) step(params []*param) {
	a.t++
	bc1 := 1 - math.Pow(a.beta1, float64(a.t))
	bc2 := 1 - math.Pow(a.beta2, float64(a.t))
	for i, p := range params {
		mom := a.moments[i]
		for j, g := range p.grad {
			mom.m[j] = a.beta1*mom.m[j] + (1-a.beta1)*g
			mom.v[j] = a.beta2*mom.v[j] + (1-a.beta2)*g*g
			mHat := mom.m[j] / bc1
			vHat := mom.v[j] / bc2
			p.val[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
