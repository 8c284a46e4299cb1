package rnn

import (
	"bytes"
	"encoding/gob"
	"math"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gorgonia/rnn/norm"
)

// inDim returns the input width of a layer: the configured input size
// for layer 0, the hidden size above it.
func (l *LSTM) inDim(layer int) int {
	if layer == 0 {
		return l.conf.InputSize
	}
	return l.conf.HiddenSize
}

func (l *LSTM) initParams() error {
	conf := l.conf
	gain := math.Sqrt(1 / float64(conf.HiddenSize))
	init := G.Uniform(-gain, gain)

	l.wx = make([]*tensor.Dense, conf.Layers)
	l.wh = make([]*tensor.Dense, conf.Layers)
	for layer := 0; layer < conf.Layers; layer++ {
		in := l.inDim(layer)
		l.wx[layer] = tensor.New(
			tensor.WithShape(in, 4*conf.HiddenSize),
			tensor.WithBacking(init(tensor.Float32, in, 4*conf.HiddenSize)))
		l.wh[layer] = tensor.New(
			tensor.WithShape(conf.HiddenSize, 4*conf.HiddenSize),
			tensor.WithBacking(init(tensor.Float32, conf.HiddenSize, 4*conf.HiddenSize)))
	}
	l.bias = tensor.New(
		tensor.WithShape(conf.Layers, 4*conf.HiddenSize),
		tensor.WithBacking(init(tensor.Float32, conf.Layers, 4*conf.HiddenSize)))

	l.norms = make([]norm.Normalizer, 2*conf.Layers)
	for i := range l.norms {
		n, err := norm.Build(conf.NormKind, 4*conf.HiddenSize)
		if err != nil {
			return errors.Wrap(ErrInvalidConfig, err.Error())
		}
		l.norms[i] = n
	}
	return nil
}

// Model returns every learnable tensor of the cell: the per-layer input
// and recurrent projections, the bias, and the normalization units'
// gains and shifts. External solvers update parameters through this
// list; it must not be used while a Step is in flight.
func (l *LSTM) Model() []*tensor.Dense {
	retVal := make([]*tensor.Dense, 0, 2*len(l.wx)+1+2*len(l.norms))
	for i := range l.wx {
		retVal = append(retVal, l.wx[i], l.wh[i])
	}
	retVal = append(retVal, l.bias)
	for _, n := range l.norms {
		retVal = append(retVal, n.Learnables()...)
	}
	return retVal
}

func (l *LSTM) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(l.conf); err != nil {
		return nil, err
	}
	for _, t := range l.Model() {
		if err := enc.Encode(t); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (l *LSTM) GobDecode(p []byte) error {
	buf := bytes.NewBuffer(p)
	dec := gob.NewDecoder(buf)
	var conf Config
	if err := dec.Decode(&conf); err != nil {
		return err
	}
	l2, err := New(conf)
	if err != nil {
		return err
	}
	*l = *l2
	for _, t := range l.Model() {
		var v tensor.Dense
		if err := dec.Decode(&v); err != nil {
			return err
		}
		copy(t.Data().([]float32), v.Data().([]float32))
	}
	return nil
}
