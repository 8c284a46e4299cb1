package rnn

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gorgonia/rnn/pack"
)

func randomInput(seqLen, batch, features int) *tensor.Dense {
	return tensor.New(
		tensor.WithShape(seqLen, batch, features),
		tensor.WithBacking(G.Uniform(-1, 1)(tensor.Float32, seqLen, batch, features)))
}

func TestStepShapes(t *testing.T) {
	assert := assert.New(t)
	conf := Config{InputSize: 4, HiddenSize: 8, Layers: 3, NormKind: "LN"}
	cell, err := New(conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	out, next, err := cell.Step(randomInput(5, 2, 4), nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.True(out.Shape().Eq(tensor.Shape{5, 2, 8}), "output shape %v", out.Shape())
	assert.Equal(2, len(next))
	for b, st := range next {
		assert.True(st.H.Shape().Eq(tensor.Shape{3, 1, 8}), "record %d hidden %v", b, st.H.Shape())
		assert.True(st.C.Shape().Eq(tensor.Shape{3, 1, 8}), "record %d cell %v", b, st.C.Shape())
	}

	// a single-layer, single-step call is the minimal valid invocation
	single, err := New(Config{InputSize: 4, HiddenSize: 8, Layers: 1, NormKind: "LN"})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	out, next, err = single.Step(randomInput(1, 1, 4), nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.True(out.Shape().Eq(tensor.Shape{1, 1, 8}))
	assert.Equal(1, len(next))

	// threading the returned state back in
	if _, _, err = cell.Step(randomInput(5, 2, 4), mustStep(t, cell, 5, 2)); err != nil {
		t.Fatalf("%+v", err)
	}
}

// mustStep runs one throwaway step and returns its next state.
func mustStep(t *testing.T, cell *LSTM, seqLen, batch int) []State {
	t.Helper()
	_, next, err := cell.Step(randomInput(seqLen, batch, cell.conf.InputSize), nil)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return next
}

func TestStepDeterminism(t *testing.T) {
	assert := assert.New(t)
	conf := Config{InputSize: 6, HiddenSize: 5, Layers: 2, NormKind: "LN", Dropout: 0.5}
	cell, err := New(conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	cell.SetTesting()

	inputs := randomInput(3, 4, 6)
	prev := mustStep(t, cell, 3, 4)

	out1, next1, err := cell.Step(inputs, prev)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	out2, next2, err := cell.Step(inputs, prev)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	assert.Equal(out1.Data(), out2.Data())
	for b := range next1 {
		assert.Equal(next1[b].H.Data(), next2[b].H.Data(), "record %d hidden", b)
		assert.Equal(next1[b].C.Data(), next2[b].C.Data(), "record %d cell", b)
	}
}

func TestStepErrors(t *testing.T) {
	cell, err := New(Config{InputSize: 4, HiddenSize: 8, Layers: 2, NormKind: "LN"})
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// state count disagrees with the batch
	prev := mustStep(t, cell, 1, 3)
	if _, _, err := cell.Step(randomInput(1, 2, 4), prev); errors.Cause(err) != ErrStateShape {
		t.Errorf("expected ErrStateShape, got %v", err)
	}

	// wrong feature width
	if _, _, err := cell.Step(randomInput(1, 2, 7), nil); errors.Cause(err) != ErrShape {
		t.Errorf("expected ErrShape, got %v", err)
	}

	// not a [seq, batch, features] tensor
	flat := tensor.New(tensor.WithShape(2, 4), tensor.WithBacking(make([]float32, 8)))
	if _, _, err := cell.Step(flat, nil); errors.Cause(err) != ErrShape {
		t.Errorf("expected ErrShape, got %v", err)
	}

	// a failed call must leave the caller's state untouched
	for _, st := range prev {
		if st.H == nil || !st.H.Shape().Eq(tensor.Shape{2, 1, 8}) {
			t.Fatal("previous state was damaged by a failed call")
		}
	}
}

// Five variable-length sequences are packed into nine trajectories and
// streamed through a two-layer cell one time step at a time.
func TestPackedStreaming(t *testing.T) {
	assert := assert.New(t)
	const (
		features = 10
		trajLen  = 32
		hidden   = 32
	)
	lengths := []int{32, 49, 24, 78, 45}

	seqs := make([]*tensor.Dense, len(lengths))
	for i, length := range lengths {
		seqs[i] = tensor.New(
			tensor.WithShape(length, features),
			tensor.WithBacking(G.Uniform(0, 1)(tensor.Float32, length, features)))
	}
	data, mask, err := pack.Trajectories(seqs, trajLen)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.True(data.Shape().Eq(tensor.Shape{trajLen, 9, features}), "data shape %v", data.Shape())
	assert.True(mask.Shape().Eq(tensor.Shape{trajLen, 9}), "mask shape %v", mask.Shape())

	conf := DefaultConf(features, hidden)
	conf.Layers = 2
	conf.Dropout = 0.1
	cell, err := New(conf)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	var (
		out   *tensor.Dense
		state []State
	)
	for s := 0; s < trajLen; s++ {
		in, err := pack.At(data, s)
		if err != nil {
			t.Fatalf("step %d: %+v", s, err)
		}
		if out, state, err = cell.Step(in, state); err != nil {
			t.Fatalf("step %d: %+v", s, err)
		}
	}

	assert.True(out.Shape().Eq(tensor.Shape{1, 9, hidden}), "final output %v", out.Shape())
	assert.Equal(9, len(state))
	for b, st := range state {
		assert.True(st.H.Shape().Eq(tensor.Shape{2, 1, hidden}), "record %d %v", b, st.H.Shape())
	}
}
