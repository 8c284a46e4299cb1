// Package rnn implements a multi-layer LSTM cell whose gate
// pre-activations are normalized before squashing.
//
// The cell is a building block for larger sequence models and is driven
// one call at a time: each Step consumes a [seqLen, batch, inputSize]
// tensor together with one State record per batch sample, and returns
// the last layer's outputs plus fresh records the caller holds until the
// next call. Keeping the state per sample lets samples enter and leave a
// batch between calls.
//
// The companion package pack reshapes variable-length sequences into the
// fixed-length batches this cell consumes.
package rnn

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/gorgonia/rnn/norm"
)

// LSTM is a stack of LSTM layers with normalized gate pre-activations.
//
// Its parameters are owned by the cell and shared, read-only, across
// forward calls; an external solver may update them between calls via
// Model, but must not do so while a Step is in flight.
//
// The zero value is not usable. Use New.
type LSTM struct {
	conf Config

	wx   []*tensor.Dense // per layer: [inDim(layer), 4*hidden]
	wh   []*tensor.Dense // per layer: [hidden, 4*hidden]
	bias *tensor.Dense   // [layers, 4*hidden]

	// norms[2*l] normalizes layer l's input projection,
	// norms[2*l+1] its recurrent projection.
	norms []norm.Normalizer

	drop *dropout
}

// New returns an initialized LSTM. Weights and biases are drawn from
// U(-g, g) with g = √(1/hidden).
func New(conf Config) (*LSTM, error) {
	if err := conf.valid(); err != nil {
		return nil, err
	}
	l := &LSTM{
		conf: conf,
		drop: newDropout(conf.Dropout),
	}
	if err := l.initParams(); err != nil {
		return nil, err
	}
	return l, nil
}

// Conf returns the configuration the cell was built with.
func (l *LSTM) Conf() Config { return l.conf }

// SetTraining enables inter-layer dropout.
func (l *LSTM) SetTraining() { l.drop.SetTraining() }

// SetTesting disables inter-layer dropout, making Step deterministic.
func (l *LSTM) SetTesting() { l.drop.SetTesting() }

// Step advances every layer of the cell over the given input. inputs
// must be shaped [seqLen, batch, inputSize]; seqLen may be 1 for
// streaming use. prev is either nil, marking the start of a sequence,
// or one State per batch sample as returned by an earlier Step.
//
// It returns the last layer's outputs, shaped [seqLen, batch, hidden],
// and the next state, one record per sample in batch order. Neither
// inputs nor prev is modified; on error all previously held state
// remains valid.
func (l *LSTM) Step(inputs *tensor.Dense, prev []State) (*tensor.Dense, []State, error) {
	conf := l.conf
	shp := inputs.Shape()
	if len(shp) != 3 {
		return nil, nil, errors.Wrapf(ErrShape, "inputs must be [seq, batch, features], got %v", shp)
	}
	seqLen, batch := shp[0], shp[1]
	if seqLen < 1 || batch < 1 {
		return nil, nil, errors.Wrapf(ErrShape, "empty input %v", shp)
	}
	if shp[2] != conf.InputSize {
		return nil, nil, errors.Wrapf(ErrShape, "input feature width %d, configured %d", shp[2], conf.InputSize)
	}

	H, C, err := l.merge(prev, batch)
	if err != nil {
		return nil, nil, err
	}
	hData := H.Data().([]float32)
	cData := C.Data().([]float32)

	hidden := conf.HiddenSize
	x := inputs.Materialize().(*tensor.Dense)
	for layer := 0; layer < conf.Layers; layer++ {
		// working copies of this layer's state: [batch, hidden]
		lh := make([]float32, batch*hidden)
		lc := make([]float32, batch*hidden)
		copy(lh, hData[layer*batch*hidden:(layer+1)*batch*hidden])
		copy(lc, cData[layer*batch*hidden:(layer+1)*batch*hidden])
		h := tensor.New(tensor.WithShape(batch, hidden), tensor.WithBacking(lh))

		in := l.inDim(layer)
		xData := x.Data().([]float32)
		outBack := make([]float32, seqLen*batch*hidden)
		for s := 0; s < seqLen; s++ {
			xs := tensor.New(tensor.WithShape(batch, in),
				tensor.WithBacking(xData[s*batch*in:(s+1)*batch*in]))
			gate, err := l.gates(layer, xs, h)
			if err != nil {
				return nil, nil, err
			}
			cellStep(gate.Data().([]float32), lh, lc, hidden)
			copy(outBack[s*batch*hidden:(s+1)*batch*hidden], lh)
		}

		// the layer's final state joins the new batched state, its
		// output sequence feeds the next layer
		copy(hData[layer*batch*hidden:], lh)
		copy(cData[layer*batch*hidden:], lc)
		x = tensor.New(tensor.WithShape(seqLen, batch, hidden), tensor.WithBacking(outBack))
		if layer != conf.Layers-1 {
			x = l.drop.apply(x)
		}
	}

	return x, l.split(H, C), nil
}
