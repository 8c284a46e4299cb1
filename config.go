package rnn

import (
	"github.com/pkg/errors"

	"github.com/gorgonia/rnn/norm"
)

// Failure causes. Every error returned by this package wraps one of
// these, so callers can switch on errors.Cause.
var (
	// ErrInvalidConfig is the cause of construction failures.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStateShape is the cause when the number of supplied state
	// records disagrees with the batch size of the input.
	ErrStateShape = errors.New("state count does not match batch size")

	// ErrShape is the cause when a tensor dimension disagrees with the
	// configured sizes.
	ErrShape = errors.New("shape mismatch")
)

// Config configures the recurrent cell.
type Config struct {
	InputSize  int     // feature width of a time-step input
	HiddenSize int     // width of the hidden and cell state, per layer
	Layers     int     // depth of the stack
	NormKind   string  // normalization applied to gate pre-activations
	Dropout    float64 // inter-layer dropout probability in [0, 1). 0 disables it
}

// DefaultConf returns a single-layer, layer-normalized configuration.
func DefaultConf(inputSize, hiddenSize int) Config {
	return Config{
		InputSize:  inputSize,
		HiddenSize: hiddenSize,
		Layers:     1,
		NormKind:   norm.LN,
	}
}

func (conf Config) IsValid() bool { return conf.valid() == nil }

func (conf Config) valid() error {
	switch {
	case conf.InputSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "input size %d", conf.InputSize)
	case conf.HiddenSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "hidden size %d", conf.HiddenSize)
	case conf.Layers < 1:
		return errors.Wrapf(ErrInvalidConfig, "layer count %d", conf.Layers)
	case conf.Dropout < 0 || conf.Dropout >= 1:
		return errors.Wrapf(ErrInvalidConfig, "dropout %v outside [0, 1)", conf.Dropout)
	case !norm.Known(conf.NormKind):
		return errors.Wrapf(ErrInvalidConfig, "unknown normalization kind %q", conf.NormKind)
	}
	return nil
}
