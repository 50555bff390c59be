package classify

import (
	"math"
	"math/rand/v2"
)

// param is one trainable parameter slice with its gradient accumulator.
type param struct {
	val  []float64
	grad []float64
}

func newParam(n int) *param {
	return &param{val: make([]float64, n), grad: make([]float64, n)}
}

// layer is one network stage. forward/backward run batched during
// training and may keep state between the two calls; infer is a pure
// single-sample pass safe for concurrent use.
type layer interface {
	forward(in []*tensor, training bool) []*tensor
	backward(grad []*tensor) []*tensor
	infer(in *tensor) *tensor
	params() []*param
}

// conv2d is a 3×3 valid-padding convolution.
type conv2d struct {
	inC, outC int
	w, b      *param

	saved []*tensor // inputs kept for backward
}

const kernel = 3

func newConv2d(inC, outC int, rng *rand.Rand) *conv2d {
	c := &conv2d{
		inC:  inC,
		outC: outC,
		w:    newParam(kernel * kernel * inC * outC),
		b:    newParam(outC),
	}
	// He initialization for ReLU activations.
	std := math.Sqrt(2.0 / float64(kernel*kernel*inC))
	for i := range c.w.val {
		c.w.val[i] = rng.NormFloat64() * std
	}
	return c
}

func (c *conv2d) wAt(ky, kx, ic, oc int) float64 {
	return c.w.val[((ky*kernel+kx)*c.inC+ic)*c.outC+oc]
}

func (c *conv2d) wGradAdd(ky, kx, ic, oc int, v float64) {
	c.w.grad[((ky*kernel+kx)*c.inC+ic)*c.outC+oc] += v
}

func (c *conv2d) apply(in *tensor) *tensor {
	out := newTensor(in.h-kernel+1, in.w-kernel+1, c.outC)
	for y := 0; y < out.h; y++ {
		for x := 0; x < out.w; x++ {
			for oc := 0; oc < c.outC; oc++ {
				sum := c.b.val[oc]
				for ky := 0; ky < kernel; ky++ {
					for kx := 0; kx < kernel; kx++ {
						for ic := 0; ic < c.inC; ic++ {
							sum += in.at(y+ky, x+kx, ic) * c.wAt(ky, kx, ic, oc)
						}
					}
				}
				out.set(y, x, oc, sum)
			}
		}
	}
	return out
}

func (c *conv2d) forward(in []*tensor, training bool) []*tensor {
	if training {
		c.saved = in
	}
	out := make([]*tensor, len(in))
	for i, t := range in {
		out[i] = c.apply(t)
	}
	return out
}

func (c *conv2d) backward(grad []*tensor) []*tensor {
	din := make([]*tensor, len(grad))
	for i, g := range grad {
		in := c.saved[i]
		di := newTensor(in.h, in.w, in.c)
		for y := 0; y < g.h; y++ {
			for x := 0; x < g.w; x++ {
				for oc := 0; oc < c.outC; oc++ {
					gv := g.at(y, x, oc)
					if gv == 0 {
						continue
					}
					c.b.grad[oc] += gv
					for ky := 0; ky < kernel; ky++ {
						for kx := 0; kx < kernel; kx++ {
							for ic := 0; ic < c.inC; ic++ {
								c.wGradAdd(ky, kx, ic, oc, gv*in.at(y+ky, x+kx, ic))
								di.add(y+ky, x+kx, ic, gv*c.wAt(ky, kx, ic, oc))
							}
						}
					}
				}
			}
		}
		din[i] = di
	}
	return din
}

func (c *conv2d) infer(in *tensor) *tensor { return c.apply(in) }

func (c *conv2d) params() []*param { return []*param{c.w, c.b} }

// relu is an elementwise max(0, x).
type relu struct {
	saved []*tensor // outputs: positive where the unit was active
}

func (r *relu) apply(in *tensor) *tensor {
	out := in.clone()
	for i, v := range out.data {
		if v < 0 {
			out.data[i] = 0
		}
	}
	return out
}

func (r *relu) forward(in []*tensor, training bool) []*tensor {
	out := make([]*tensor, len(in))
	for i, t := range in {
		out[i] = r.apply(t)
	}
	if training {
		r.saved = out
	}
	return out
}

func (r *relu) backward(grad []*tensor) []*tensor {
	din := make([]*tensor, len(grad))
	for i, g := range grad {
		d := g.clone()
		for j := range d.data {
			if r.saved[i].data[j] <= 0 {
				d.data[j] = 0
			}
		}
		din[i] = d
	}
	return din
}

func (r *relu) infer(in *tensor) *tensor { return r.apply(in) }

func (r *relu) params() []*param { return nil }

// batchNorm normalizes each channel over the batch and spatial
// dimensions, with learned scale and shift. Running statistics are
// accumulated during training and used verbatim at inference.
type batchNorm struct {
	c           int
	gamma, beta *param
	runMean     []float64
	runVar      []float64

	// training pass state
	xhat   []*tensor
	invStd []float64
}

const (
	bnEps      = 1e-3
	bnMomentum = 0.99
)

func newBatchNorm(c int) *batchNorm {
	bn := &batchNorm{
		c:       c,
		gamma:   newParam(c),
		beta:    newParam(c),
		runMean: make([]float64, c),
		runVar:  make([]float64, c),
	}
	for i := range bn.gamma.val {
		bn.gamma.val[i] = 1
		bn.runVar[i] = 1
	}
	return bn
}

func (bn *batchNorm) forward(in []*tensor, training bool) []*tensor {
	if !training {
		out := make([]*tensor, len(in))
		for i, t := range in {
			out[i] = bn.infer(t)
		}
		return out
	}

	spatial := in[0].h * in[0].w
	n := float64(len(in) * spatial)

	mean := make([]float64, bn.c)
	variance := make([]float64, bn.c)
	for _, t := range in {
		for i, v := range t.data {
			mean[i%bn.c] += v
		}
	}
	for ch := range mean {
		mean[ch] /= n
	}
	for _, t := range in {
		for i, v := range t.data {
			d := v - mean[i%bn.c]
			variance[i%bn.c] += d * d
		}
	}
	for ch := range variance {
		variance[ch] /= n
	}

	bn.invStd = make([]float64, bn.c)
	for ch := range bn.invStd {
		bn.invStd[ch] = 1 / math.Sqrt(variance[ch]+bnEps)
	}

	bn.xhat = make([]*tensor, len(in))
	out := make([]*tensor, len(in))
	for i, t := range in {
		xh := newTensor(t.h, t.w, t.c)
		o := newTensor(t.h, t.w, t.c)
		for j, v := range t.data {
			ch := j % bn.c
			x := (v - mean[ch]) * bn.invStd[ch]
			xh.data[j] = x
			o.data[j] = bn.gamma.val[ch]*x + bn.beta.val[ch]
		}
		bn.xhat[i] = xh
		out[i] = o
	}

	for ch := range mean {
		bn.runMean[ch] = bnMomentum*bn.runMean[ch] + (1-bnMomentum)*mean[ch]
		bn.runVar[ch] = bnMomentum*bn.runVar[ch] + (1-bnMomentum)*variance[ch]
	}
	return out
}

func (bn *batchNorm) backward(grad []*tensor) []*tensor {
	spatial := grad[0].h * grad[0].w
	n := float64(len(grad) * spatial)

	sumDy := make([]float64, bn.c)
	sumDyXhat := make([]float64, bn.c)
	for i, g := range grad {
		for j, dy := range g.data {
			ch := j % bn.c
			sumDy[ch] += dy
			sumDyXhat[ch] += dy * bn.xhat[i].data[j]
		}
	}
	for ch := range sumDy {
		bn.beta.grad[ch] += sumDy[ch]
		bn.gamma.grad[ch] += sumDyXhat[ch]
	}

	din := make([]*tensor, len(grad))
	for i, g := range grad {
		d := newTensor(g.h, g.w, g.c)
		for j, dy := range g.data {
			ch := j % bn.c
			d.data[j] = bn.gamma.val[ch] * bn.invStd[ch] / n *
				(n*dy - sumDy[ch] - bn.xhat[i].data[j]*sumDyXhat[ch])
		}
		din[i] = d
	}
	return din
}

func (bn *batchNorm) infer(in *tensor) *tensor {
	out := newTensor(in.h, in.w, in.c)
	for j, v := range in.data {
		ch := j % bn.c
		x := (v - bn.runMean[ch]) / math.Sqrt(bn.runVar[ch]+bnEps)
		out.data[j] = bn.gamma.val[ch]*x + bn.beta.val[ch]
	}
	return out
}

func (bn *batchNorm) params() []*param { return []*param{bn.gamma, bn.beta} }

// maxPool2 is a 2×2 max pool with stride 2. Odd trailing rows/columns
// are dropped; a dimension already at 1 passes through.
type maxPool2 struct {
	argmax [][]int // per sample: output index → input data index
	inDims []*tensor
}

func poolDim(n int) int {
	if n < 2 {
		return n
	}
	return n / 2
}

func (p *maxPool2) apply(in *tensor, record bool) (*tensor, []int) {
	oh, ow := poolDim(in.h), poolDim(in.w)
	out := newTensor(oh, ow, in.c)
	var arg []int
	if record {
		arg = make([]int, len(out.data))
	}
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			for ch := 0; ch < in.c; ch++ {
				bestIdx := (y*2*in.w + x*2) * in.c + ch
				best := in.data[bestIdx]
				for dy := 0; dy < 2 && y*2+dy < in.h; dy++ {
					for dx := 0; dx < 2 && x*2+dx < in.w; dx++ {
						idx := ((y*2+dy)*in.w + (x*2 + dx)) * in.c + ch
						if in.data[idx] > best {
							best, bestIdx = in.data[idx], idx
						}
					}
				}
				out.set(y, x, ch, best)
				if record {
					arg[(y*ow+x)*in.c+ch] = bestIdx
				}
			}
		}
	}
	return out, arg
}

func (p *maxPool2) forward(in []*tensor, training bool) []*tensor {
	out := make([]*tensor, len(in))
	if training {
		p.argmax = make([][]int, len(in))
		p.inDims = in
	}
	for i, t := range in {
		o, arg := p.apply(t, training)
		out[i] = o
		if training {
			p.argmax[i] = arg
		}
	}
	return out
}

func (p *maxPool2) backward(grad []*tensor) []*tensor {
	din := make([]*tensor, len(grad))
	for i, g := range grad {
		in := p.inDims[i]
		d := newTensor(in.h, in.w, in.c)
		for j, gv := range g.data {
			d.data[p.argmax[i][j]] += gv
		}
		din[i] = d
	}
	return din
}

func (p *maxPool2) infer(in *tensor) *tensor {
	out, _ := p.apply(in, false)
	return out
}

func (p *maxPool2) params() []*param { return nil }

// globalAvgPool collapses each channel's spatial extent to its mean.
type globalAvgPool struct {
	inDims []*tensor
}

func (p *globalAvgPool) apply(in *tensor) *tensor {
	out := newTensor(1, 1, in.c)
	scale := 1.0 / float64(in.h*in.w)
	for j, v := range in.data {
		out.data[j%in.c] += v * scale
	}
	return out
}

func (p *globalAvgPool) forward(in []*tensor, training bool) []*tensor {
	if training {
		p.inDims = in
	}
	out := make([]*tensor, len(in))
	for i, t := range in {
		out[i] = p.apply(t)
	}
	return out
}

func (p *globalAvgPool) backward(grad []*tensor) []*tensor {
	din := make([]*tensor, len(grad))
	for i, g := range grad {
		in := p.inDims[i]
		d := newTensor(in.h, in.w, in.c)
		scale := 1.0 / float64(in.h*in.w)
		for j := range d.data {
			d.data[j] = g.data[j%in.c] * scale
		}
		din[i] = d
	}
	return din
}

func (p *globalAvgPool) infer(in *tensor) *tensor { return p.apply(in) }

func (p *globalAvgPool) params() []*param { return nil }

// dense is a fully connected layer over flattened input.
type dense struct {
	in, out int
	w, b    *param

	saved []*tensor
}

func newDense(in, out int, rng *rand.Rand) *dense {
	d := &dense{in: in, out: out, w: newParam(in * out), b: newParam(out)}
	std := math.Sqrt(2.0 / float64(in))
	for i := range d.w.val {
		d.w.val[i] = rng.NormFloat64() * std
	}
	return d
}

func (d *dense) apply(in *tensor) *tensor {
	out := newTensor(1, 1, d.out)
	for o := 0; o < d.out; o++ {
		sum := d.b.val[o]
		for i, v := range in.data {
			sum += v * d.w.val[i*d.out+o]
		}
		out.data[o] = sum
	}
	return out
}

func (d *dense) forward(in []*tensor, training bool) []*tensor {
	if training {
		d.saved = in
	}
	out := make([]*tensor, len(in))
	for i, t := range in {
		out[i] = d.apply(t)
	}
	return out
}

func (d *dense) backward(grad []*tensor) []*tensor {
	din := make([]*tensor, len(grad))
	for i, g := range grad {
		in := d.saved[i]
		di := newTensor(in.h, in.w, in.c)
		for o := 0; o < d.out; o++ {
			gv := g.data[o]
			d.b.grad[o] += gv
			for j, v := range in.data {
				d.w.grad[j*d.out+o] += gv * v
				di.data[j] += gv * d.w.val[j*d.out+o]
			}
		}
		din[i] = di
	}
	return din
}

func (d *dense) infer(in *tensor) *tensor { return d.apply(in) }

func (d *dense) params() []*param { return []*param{d.w, d.b} }

// flatten reshapes H×W×C tensors into 1×1×(H·W·C) vectors.
type flatten struct {
	inDims []*tensor
}

func (f *flatten) forward(in []*tensor, training bool) []*tensor {
	if training {
		f.inDims = in
	}
	out := make([]*tensor, len(in))
	for i, t := range in {
		out[i] = vec(t.data)
	}
	return out
}

func (f *flatten) backward(grad []*tensor) []*tensor {
	din := make([]*tensor, len(grad))
	for i, g := range grad {
		in := f.inDims[i]
		din[i] = &tensor{h: in.h, w: in.w, c: in.c, data: g.data}
	}
	return din
}

func (f *flatten) infer(in *tensor) *tensor { return vec(in.data) }

func (f *flatten) params() []*param { return nil }

// dropout zeroes units during training with the configured rate,
// scaling survivors so inference needs no adjustment.
type dropout struct {
	rate float64
	rng  *rand.Rand

	masks [][]float64
}

func (d *dropout) forward(in []*tensor, training bool) []*tensor {
	if !training || d.rate <= 0 {
		return in
	}
	scale := 1 / (1 - d.rate)
	d.masks = make([][]float64, len(in))
	out := make([]*tensor, len(in))
	for i, t := range in {
		mask := make([]float64, len(t.data))
		o := newTensor(t.h, t.w, t.c)
		for j, v := range t.data {
			if d.rng.Float64() >= d.rate {
				mask[j] = scale
				o.data[j] = v * scale
			}
		}
		d.masks[i] = mask
		out[i] = o
	}
	return out
}

func (d *dropout) backward(grad []*tensor) []*tensor {
	if d.masks == nil {
		return grad
	}
	din := make([]*tensor, len(grad))
	for i, g := range grad {
		dg := g.clone()
		for j := range dg.data {
			dg.data[j] *= d.masks[i][j]
		}
		din[i] = dg
	}
	return din
}

func (d *dropout) infer(in *tensor) *tensor { return in }

func (d *dropout) params() []*param { return nil }
