// Package norm provides the normalization units applied to gate
// pre-activations inside the recurrent cell. A unit is built for a fixed
// vector width and transforms every row of a [batch, width] tensor.
package norm

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// Recognized kinds.
const (
	LN = "LN" // layer normalization
	ID = "ID" // identity. Mostly useful for exact-value tests
)

// Normalizer transforms each width-sized row of a tensor.
type Normalizer interface {
	// Apply normalizes every row of t. t's last dimension must equal
	// Width(). The returned tensor may alias t when the unit is a no-op.
	Apply(t *tensor.Dense) (*tensor.Dense, error)

	// Width is the row width the unit was built for.
	Width() int

	// Learnables returns the unit's trainable tensors, if any.
	Learnables() []*tensor.Dense
}

// Known reports whether kind names a recognized normalization.
func Known(kind string) bool {
	switch kind {
	case LN, ID:
		return true
	}
	return false
}

// Build constructs a normalization unit of the given kind operating on
// vectors of the given width.
func Build(kind string, width int) (Normalizer, error) {
	if width < 1 {
		return nil, errors.Errorf("norm width must be positive, got %d", width)
	}
	switch kind {
	case LN:
		return newLayerNorm(width), nil
	case ID:
		return identity{width: width}, nil
	default:
		return nil, errors.Errorf("unknown normalization kind %q", kind)
	}
}

// LayerNorm rescales every row to zero mean and unit variance, then
// applies a learned elementwise gain and shift.
type LayerNorm struct {
	Gain *tensor.Dense // [width], starts at 1
	Bias *tensor.Dense // [width], starts at 0

	eps float32
}

func newLayerNorm(width int) *LayerNorm {
	gain := make([]float32, width)
	for i := range gain {
		gain[i] = 1
	}
	return &LayerNorm{
		Gain: tensor.New(tensor.WithShape(width), tensor.WithBacking(gain)),
		Bias: tensor.New(tensor.WithShape(width), tensor.WithBacking(make([]float32, width))),
		eps:  1e-5,
	}
}

func (l *LayerNorm) Width() int { return l.Gain.Shape()[0] }

func (l *LayerNorm) Learnables() []*tensor.Dense { return []*tensor.Dense{l.Gain, l.Bias} }

func (l *LayerNorm) Apply(t *tensor.Dense) (*tensor.Dense, error) {
	width := l.Width()
	shp := t.Shape()
	if shp[len(shp)-1] != width {
		return nil, errors.Errorf("cannot normalize %v rows with a width-%d unit", shp, width)
	}
	in := t.Data().([]float32)
	out := make([]float32, len(in))
	gain := l.Gain.Data().([]float32)
	bias := l.Bias.Data().([]float32)
	for r := 0; r < len(in); r += width {
		row := in[r : r+width]
		var mean float32
		for _, v := range row {
			mean += v
		}
		mean /= float32(width)
		var sqdev float32
		for _, v := range row {
			d := v - mean
			sqdev += d * d
		}
		sd := math32.Sqrt(sqdev/float32(width) + l.eps)

		o := out[r : r+width]
		for i, v := range row {
			o[i] = (v - mean) / sd
		}
		vecf32.Mul(o, gain)
		vecf32.Add(o, bias)
	}
	return tensor.New(tensor.WithShape(shp.Clone()...), tensor.WithBacking(out)), nil
}

type identity struct{ width int }

func (id identity) Width() int { return id.width }

func (id identity) Learnables() []*tensor.Dense { return nil }

func (id identity) Apply(t *tensor.Dense) (*tensor.Dense, error) {
	shp := t.Shape()
	if shp[len(shp)-1] != id.width {
		return nil, errors.Errorf("cannot normalize %v rows with a width-%d unit", shp, id.width)
	}
	return t, nil
}
