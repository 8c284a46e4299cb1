// Command trajdemo packs a handful of variable-length sequences into
// fixed-length trajectories and streams them through a two-layer
// normalized LSTM one time step at a time.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/gorgonia/rnn"
	"github.com/gorgonia/rnn/pack"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

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
		logger.Fatal().Err(err).Msg("packing failed")
	}
	logger.Info().
		Ints("lengths", lengths).
		Str("data", fmt.Sprintf("%v", data.Shape())).
		Str("mask", fmt.Sprintf("%v", mask.Shape())).
		Msg("packed")

	conf := rnn.DefaultConf(features, hidden)
	conf.Layers = 2
	conf.Dropout = 0.1
	cell, err := rnn.New(conf)
	if err != nil {
		logger.Fatal().Err(err).Msg("building cell failed")
	}

	var (
		out   *tensor.Dense
		state []rnn.State
	)
	for s := 0; s < trajLen; s++ {
		in, err := pack.At(data, s)
		if err != nil {
			logger.Fatal().Err(err).Int("step", s).Msg("slicing step failed")
		}
		if out, state, err = cell.Step(in, state); err != nil {
			logger.Fatal().Err(err).Int("step", s).Msg("step failed")
		}
	}
	logger.Info().
		Str("output", fmt.Sprintf("%v", out.Shape())).
		Int("states", len(state)).
		Str("record", fmt.Sprintf("%v", state[0].H.Shape())).
		Msg("done")
}
