// Package pack converts variable-length sequences into fixed-length,
// batched trajectories with validity masks, the input form expected by
// step-driven recurrent models.
package pack

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ErrShape is the cause of every error returned by this package.
var ErrShape = errors.New("shape mismatch")

// Trajectories cuts every sequence into trajectories of exactly trajLen
// steps and stacks them, in encounter order, along the batch axis.
// Sequences must all be [length, features] with the same feature width.
//
// A sequence shorter than trajLen becomes a single trajectory,
// zero-padded at the tail, with the padding marked 0 in its mask. A
// longer sequence is walked in non-overlapping trajLen windows; when the
// length is not an exact multiple, the remainder is replaced by the
// sequence's final trajLen window, which repeats frames from the
// previous window and carries an all-ones mask.
//
// It returns the trajectories as [trajLen, total, features] and the
// masks as [trajLen, total].
func Trajectories(seqs []*tensor.Dense, trajLen int) (data, mask *tensor.Dense, err error) {
	if trajLen < 1 {
		return nil, nil, errors.Wrapf(ErrShape, "trajectory length %d", trajLen)
	}
	if len(seqs) == 0 {
		return nil, nil, errors.Wrap(ErrShape, "no sequences")
	}

	var features, total int
	for i, s := range seqs {
		shp := s.Shape()
		if len(shp) != 2 {
			return nil, nil, errors.Wrapf(ErrShape, "sequence %d must be [length, features], got %v", i, shp)
		}
		if i == 0 {
			features = shp[1]
		} else if shp[1] != features {
			return nil, nil, errors.Wrapf(ErrShape, "sequence %d has feature width %d, want %d", i, shp[1], features)
		}
		total += count(shp[0], trajLen)
	}

	dataBack := make([]float32, trajLen*total*features)
	maskBack := make([]float32, trajLen*total)
	var b int
	for _, s := range seqs {
		length := s.Shape()[0]
		raw := s.Data().([]float32)
		if length < trajLen {
			blit(dataBack, maskBack, raw, b, total, features, length)
			b++
			continue
		}
		for i := 0; i+trajLen <= length; i += trajLen {
			blit(dataBack, maskBack, raw[i*features:(i+trajLen)*features], b, total, features, trajLen)
			b++
		}
		if length%trajLen != 0 {
			// the leftover window is too short; take the sequence's
			// tail instead, re-emitting frames from the window before
			blit(dataBack, maskBack, raw[(length-trajLen)*features:], b, total, features, trajLen)
			b++
		}
	}

	data = tensor.New(tensor.WithShape(trajLen, total, features), tensor.WithBacking(dataBack))
	mask = tensor.New(tensor.WithShape(trajLen, total), tensor.WithBacking(maskBack))
	return data, mask, nil
}

// At copies time step s out of a packed [steps, batch, features] tensor
// as a fresh [1, batch, features] tensor, ready to feed a streaming
// cell.
func At(data *tensor.Dense, s int) (*tensor.Dense, error) {
	shp := data.Shape()
	if len(shp) != 3 {
		return nil, errors.Wrapf(ErrShape, "packed data must be [steps, batch, features], got %v", shp)
	}
	if s < 0 || s >= shp[0] {
		return nil, errors.Wrapf(ErrShape, "step %d of %d", s, shp[0])
	}
	n := shp[1] * shp[2]
	step := make([]float32, n)
	copy(step, data.Data().([]float32)[s*n:])
	return tensor.New(tensor.WithShape(1, shp[1], shp[2]), tensor.WithBacking(step)), nil
}

// count returns how many trajectories a sequence of the given length
// contributes.
func count(length, trajLen int) int {
	if length < trajLen {
		return 1
	}
	n := length / trajLen
	if length%trajLen != 0 {
		n++
	}
	return n
}

// blit writes one trajectory into batch column b of the
// [trajLen, total, features] backing. src holds steps real rows; the
// remaining rows stay zero with a zero mask.
func blit(dataBack, maskBack, src []float32, b, total, features, steps int) {
	for t := 0; t < steps; t++ {
		off := (t*total + b) * features
		copy(dataBack[off:off+features], src[t*features:(t+1)*features])
		maskBack[t*total+b] = 1
	}
}
