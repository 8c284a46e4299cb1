package rnn

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/gorgonia/rnn/norm"
)

// maebe carries the first error of a chain of tensor ops so the gate
// computation reads straight through.
type maebe struct {
	err error
}

func (m *maebe) matmul(a, b *tensor.Dense) (retVal *tensor.Dense) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = a.MatMul(b); m.err != nil {
		m.err = errors.Wrapf(ErrShape, "matmul %v × %v: %v", a.Shape(), b.Shape(), m.err)
	}
	return
}

func (m *maebe) norm(n norm.Normalizer, t *tensor.Dense) (retVal *tensor.Dense) {
	if m.err != nil {
		return nil
	}
	if retVal, m.err = n.Apply(t); m.err != nil {
		m.err = errors.WithStack(m.err)
	}
	return
}
