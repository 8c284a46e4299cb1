package rnn

import (
	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// gates computes the squashed gate activations for one layer at one
// time step:
//
//	norm(x·Wx) + norm(h·Wh) + bias
//
// split into four hidden-wide segments in input, forget, output,
// candidate order, with the first three squashed by the logistic
// function and the candidate by tanh. The segment order matches the
// column layout of Wx, Wh and bias; changing either breaks weight
// compatibility.
//
// x is [batch, inDim(layer)], h is [batch, hidden]; the result is
// [batch, 4*hidden].
func (l *LSTM) gates(layer int, x, h *tensor.Dense) (*tensor.Dense, error) {
	var m maebe
	xw := m.matmul(x, l.wx[layer])
	hw := m.matmul(h, l.wh[layer])
	ga := m.norm(l.norms[2*layer], xw)
	gb := m.norm(l.norms[2*layer+1], hw)
	if m.err != nil {
		return nil, m.err
	}

	hidden := l.conf.HiddenSize
	gd := ga.Data().([]float32)
	vecf32.Add(gd, gb.Data().([]float32))

	biasRow := l.bias.Data().([]float32)[layer*4*hidden : (layer+1)*4*hidden]
	batch := x.Shape()[0]
	for r := 0; r < batch; r++ {
		row := gd[r*4*hidden : (r+1)*4*hidden]
		vecf32.Add(row, biasRow)
		for k := 0; k < 3*hidden; k++ {
			row[k] = sigmoid(row[k])
		}
		for k := 3 * hidden; k < 4*hidden; k++ {
			row[k] = math32.Tanh(row[k])
		}
	}
	return ga, nil
}

// cellStep applies one cell update in place. gate holds squashed gates
// laid out [batch, 4*hidden] in i, f, o, z order; h and c hold the
// previous hidden and cell state laid out [batch, hidden] and are
// overwritten with the new state:
//
//	c = f⊙c + i⊙z
//	h = o⊙tanh(c)
//
// gate is consumed as scratch space.
func cellStep(gate, h, c []float32, hidden int) {
	batch := len(h) / hidden
	for b := 0; b < batch; b++ {
		row := gate[b*4*hidden : (b+1)*4*hidden]
		i := row[:hidden]
		f := row[hidden : 2*hidden]
		o := row[2*hidden : 3*hidden]
		z := row[3*hidden:]
		cr := c[b*hidden : (b+1)*hidden]
		hr := h[b*hidden : (b+1)*hidden]

		vecf32.Mul(cr, f)
		vecf32.Mul(i, z)
		vecf32.Add(cr, i)
		for k, v := range cr {
			hr[k] = math32.Tanh(v)
		}
		vecf32.Mul(hr, o)
	}
}

func sigmoid(x float32) float32 { return 1 / (1 + math32.Exp(-x)) }
