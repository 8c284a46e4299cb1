package rnn

import (
	"time"

	rng "github.com/leesper/go_rng"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// dropout zeroes a random fraction p of its input during training and
// rescales the survivors by 1/(1-p). With p == 0, or in testing mode,
// it is the identity.
type dropout struct {
	p       float32
	uniform *rng.UniformGenerator
	testing bool
}

func newDropout(p float64) *dropout {
	return &dropout{
		p:       float32(p),
		uniform: rng.NewUniformGenerator(time.Now().UnixNano()),
	}
}

func (d *dropout) SetTraining() { d.testing = false }
func (d *dropout) SetTesting()  { d.testing = true }

// apply never modifies t; a regularized copy is returned instead.
func (d *dropout) apply(t *tensor.Dense) *tensor.Dense {
	if d.p == 0 || d.testing {
		return t
	}
	data := t.Data().([]float32)
	mask := make([]float32, len(data))
	scale := 1 / (1 - d.p)
	for i := range mask {
		if d.uniform.Float32() >= d.p {
			mask[i] = scale
		}
	}
	vecf32.Mul(mask, data)
	return tensor.New(tensor.WithShape(t.Shape().Clone()...), tensor.WithBacking(mask))
}
