package classify

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// network is the assembled layer stack. The final layer produces
// logits; softmax is applied by the loss during training and by infer.
type network struct {
	layers []layer
}

// buildNetwork assembles the architecture for the given input shape
// and class count: conv blocks of increasing width (the last pooled
// globally), dense blocks with dropout, and a logits layer.
func buildNetwork(h, w, numClasses int, cfg Config, rng *rand.Rand) (*network, error) {
	var layers []layer

	inC := 1
	for i, ch := range cfg.ConvChannels {
		if h < kernel || w < kernel {
			return nil, fmt.Errorf("classify: input collapsed to %dx%d before conv block %d; shape too small for this architecture", h, w, i+1)
		}
		layers = append(layers, newConv2d(inC, ch, rng), &relu{}, newBatchNorm(ch))
		h, w = h-kernel+1, w-kernel+1

		last := i == len(cfg.ConvChannels)-1
		if last {
			layers = append(layers, &globalAvgPool{}, &dropout{rate: 0.5, rng: rng})
			h, w = 1, 1
		} else {
			layers = append(layers, &maxPool2{}, &dropout{rate: 0.25, rng: rng})
			h, w = poolDim(h), poolDim(w)
		}
		inC = ch
	}

	layers = append(layers, &flatten{})
	units := h * w * inC

	dropRates := []float64{0.5, 0.3}
	for i, du := range cfg.DenseUnits {
		rate := 0.3
		if i < len(dropRates) {
			rate = dropRates[i]
		}
		layers = append(layers,
			newDense(units, du, rng), &relu{}, newBatchNorm(du),
			&dropout{rate: rate, rng: rng})
		units = du
	}

	layers = append(layers, newDense(units, numClasses, rng))
	return &network{layers: layers}, nil
}

// forward runs a training pass and returns per-sample logits.
func (n *network) forward(batch []*tensor, training bool) []*tensor {
	out := batch
	for _, l := range n.layers {
		out = l.forward(out, training)
	}
	return out
}

// backward propagates per-sample logit gradients through the stack.
func (n *network) backward(grad []*tensor) {
	for i := len(n.layers) - 1; i >= 0; i-- {
		grad = n.layers[i].backward(grad)
	}
}

// infer runs one sample through the network in inference mode and
// returns softmax probabilities. Safe for concurrent use.
func (n *network) infer(in *tensor) []float64 {
	out := in
	for _, l := range n.layers {
		out = l.infer(out)
	}
	return softmax(out.data)
}

// params returns every trainable parameter in the network.
func (n *network) params() []*param {
	var ps []*param
	for _, l := range n.layers {
		ps = append(ps, l.params()...)
	}
	return ps
}

// zeroGrads clears all gradient accumulators.
func (n *network) zeroGrads() {
	for _, p := range n.params() {
		for i := range p.grad {
			p.grad[i] = 0
		}
	}
}

// snapshotParams deep-copies all parameter values and batch-norm
// running statistics, for checkpointing the best weights.
func (n *network) snapshotParams() [][]float64 {
	var out [][]float64
	for _, p := range n.params() {
		cp := make([]float64, len(p.val))
		copy(cp, p.val)
		out = append(out, cp)
	}
	for _, l := range n.layers {
		if bn, ok := l.(*batchNorm); ok {
			m := make([]float64, len(bn.runMean))
			copy(m, bn.runMean)
			v := make([]float64, len(bn.runVar))
			copy(v, bn.runVar)
			out = append(out, m, v)
		}
	}
	return out
}

// restoreParams loads a snapshot produced by snapshotParams.
func (n *network) restoreParams(snap [][]float64) {
	i := 0
	for _, p := range n.params() {
		copy(p.val, snap[i])
		i++
	}
	for _, l := range n.layers {
		if bn, ok := l.(*batchNorm); ok {
			copy(bn.runMean, snap[i])
			copy(bn.runVar, snap[i+1])
			i += 2
		}
	}
}

// softmax converts logits to probabilities, max-shifted for stability.
func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
