package classify

import "github.com/voxauth/voxauth/pkg/feature"

// tensor is a dense H×W×C array in channel-last layout.
type tensor struct {
	h, w, c int
	data    []float64
}

func newTensor(h, w, c int) *tensor {
	return &tensor{h: h, w: w, c: c, data: make([]float64, h*w*c)}
}

func (t *tensor) at(y, x, ch int) float64 {
	return t.data[(y*t.w+x)*t.c+ch]
}

func (t *tensor) set(y, x, ch int, v float64) {
	t.data[(y*t.w+x)*t.c+ch] = v
}

func (t *tensor) add(y, x, ch int, v float64) {
	t.data[(y*t.w+x)*t.c+ch] += v
}

func (t *tensor) clone() *tensor {
	cp := newTensor(t.h, t.w, t.c)
	copy(cp.data, t.data)
	return cp
}

// tensorFromEncoding views an encoding as a single-channel image.
func tensorFromEncoding(e *feature.Encoding) *tensor {
	t := newTensor(e.Frames, e.Bins, 1)
	copy(t.data, e.Data)
	return t
}

// vec wraps a flat vector as a 1×1×n tensor for the dense layers.
func vec(data []float64) *tensor {
	return &tensor{h: 1, w: 1, c: len(data), data: data}
}
