package rnn

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// State holds the recurrent state of every layer for one batch sample.
// H and C are each shaped [layers, 1, hidden]. Records are never
// mutated by the cell; each Step returns fresh ones.
type State struct {
	H *tensor.Dense
	C *tensor.Dense
}

// merge assembles the batched hidden and cell tensors, each
// [layers, batch, hidden], from per-sample records, preserving record
// order along the batch axis. A nil prev marks the start of a sequence
// and yields zero state. The result shares no memory with prev.
func (l *LSTM) merge(prev []State, batch int) (H, C *tensor.Dense, err error) {
	layers, hidden := l.conf.Layers, l.conf.HiddenSize
	hData := make([]float32, layers*batch*hidden)
	cData := make([]float32, layers*batch*hidden)
	H = tensor.New(tensor.WithShape(layers, batch, hidden), tensor.WithBacking(hData))
	C = tensor.New(tensor.WithShape(layers, batch, hidden), tensor.WithBacking(cData))
	if prev == nil {
		return H, C, nil
	}
	if len(prev) != batch {
		return nil, nil, errors.Wrapf(ErrStateShape, "%d records for a batch of %d", len(prev), batch)
	}

	want := tensor.Shape{layers, 1, hidden}
	for b, st := range prev {
		if st.H == nil || st.C == nil || !st.H.Shape().Eq(want) || !st.C.Shape().Eq(want) {
			return nil, nil, errors.Wrapf(ErrShape, "record %d must hold %v tensors", b, want)
		}
		hs := st.H.Data().([]float32)
		cs := st.C.Data().([]float32)
		for layer := 0; layer < layers; layer++ {
			off := (layer*batch + b) * hidden
			copy(hData[off:off+hidden], hs[layer*hidden:(layer+1)*hidden])
			copy(cData[off:off+hidden], cs[layer*hidden:(layer+1)*hidden])
		}
	}
	return H, C, nil
}

// split is the structural inverse of merge: it cuts batched
// [layers, batch, hidden] state into one record per sample, in batch
// order. Every record gets its own backing, so holding a record does
// not pin the batch.
func (l *LSTM) split(H, C *tensor.Dense) []State {
	layers, hidden := l.conf.Layers, l.conf.HiddenSize
	batch := H.Shape()[1]
	hData := H.Data().([]float32)
	cData := C.Data().([]float32)

	states := make([]State, batch)
	for b := range states {
		hs := make([]float32, layers*hidden)
		cs := make([]float32, layers*hidden)
		for layer := 0; layer < layers; layer++ {
			off := (layer*batch + b) * hidden
			copy(hs[layer*hidden:], hData[off:off+hidden])
			copy(cs[layer*hidden:], cData[off:off+hidden])
		}
		states[b] = State{
			H: tensor.New(tensor.WithShape(layers, 1, hidden), tensor.WithBacking(hs)),
			C: tensor.New(tensor.WithShape(layers, 1, hidden), tensor.WithBacking(cs)),
		}
	}
	return states
}
