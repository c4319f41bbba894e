// Package actioncodec maps per-component discrete action vectors to a single
// joint action id and back.
//
// The encoding is fixed-radix: id = sum(a[i] * maxValue^i). The radix is the
// same for every component even when a component's legal subset is smaller,
// so a constrained component simply never contributes some digits.
package actioncodec

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidCodec  = errors.New("invalid action codec")
	ErrOutOfRange    = errors.New("action out of range")
	ErrLengthInvalid = errors.New("action vector length mismatch")
)

type Codec struct {
	maxValue   int
	components int
	size       int
	weights    []int
}

func New(maxValue, components int) (*Codec, error) {
	if maxValue < 1 {
		return nil, fmt.Errorf("%w: max value must be positive, got %d", ErrInvalidCodec, maxValue)
	}
	if components < 1 {
		return nil, fmt.Errorf("%w: component count must be positive, got %d", ErrInvalidCodec, components)
	}
	weights := make([]int, components)
	size := 1
	for i := 0; i < components; i++ {
		weights[i] = size
		if size > math.MaxInt/maxValue {
			return nil, fmt.Errorf("%w: %d^%d overflows int", ErrInvalidCodec, maxValue, components)
		}
		size *= maxValue
	}
	return &Codec{
		maxValue:   maxValue,
		components: components,
		size:       size,
		weights:    weights,
	}, nil
}

func (c *Codec) MaxValue() int {
	return c.maxValue
}

func (c *Codec) Components() int {
	return c.components
}

// Size is the number of representable joint ids, maxValue^components.
func (c *Codec) Size() int {
	return c.size
}

func (c *Codec) Encode(vec []int) (int, error) {
	if len(vec) != c.components {
		return 0, fmt.Errorf("%w: want %d, got %d", ErrLengthInvalid, c.components, len(vec))
	}
	id := 0
	for i, a := range vec {
		if a < 0 || a >= c.maxValue {
			return 0, fmt.Errorf("%w: component %d value %d not in [0, %d)", ErrOutOfRange, i, a, c.maxValue)
		}
		id += a * c.weights[i]
	}
	return id, nil
}

func (c *Codec) Decode(id int) ([]int, error) {
	vec := make([]int, c.components)
	if err := c.DecodeInto(id, vec); err != nil {
		return nil, err
	}
	return vec, nil
}

// DecodeInto writes the digits of id into dst, which must have Components entries.
func (c *Codec) DecodeInto(id int, dst []int) error {
	if id < 0 || id >= c.size {
		return fmt.Errorf("%w: id %d not in [0, %d)", ErrOutOfRange, id, c.size)
	}
	if len(dst) != c.components {
		return fmt.Errorf("%w: want %d, got %d", ErrLengthInvalid, c.components, len(dst))
	}
	for i := range dst {
		dst[i] = id % c.maxValue
		id /= c.maxValue
	}
	return nil
}

// EnumerateJoint returns the encoded Cartesian product of the per-component
// legal sets, with the first component varying fastest. Duplicate entries
// within a set are rejected so the output has exactly prod(len(legal[i]))
// distinct ids.
func (c *Codec) EnumerateJoint(legal [][]int) ([]int, error) {
	if len(legal) != c.components {
		return nil, fmt.Errorf("%w: want %d legal sets, got %d", ErrLengthInvalid, c.components, len(legal))
	}
	total := 1
	for i, set := range legal {
		if len(set) == 0 {
			return nil, fmt.Errorf("%w: component %d has no legal actions", ErrOutOfRange, i)
		}
		seen := make(map[int]bool, len(set))
		for _, a := range set {
			if a < 0 || a >= c.maxValue {
				return nil, fmt.Errorf("%w: component %d value %d not in [0, %d)", ErrOutOfRange, i, a, c.maxValue)
			}
			if seen[a] {
				return nil, fmt.Errorf("%w: component %d lists %d twice", ErrOutOfRange, i, a)
			}
			seen[a] = true
		}
		total *= len(set)
	}

	ids := make([]int, 0, total)
	cursor := make([]int, c.components)
	id := 0
	for i, set := range legal {
		id += set[0] * c.weights[i]
	}
	for {
		ids = append(ids, id)

		// Odometer increment with the first component as the fastest digit.
		i := 0
		for ; i < c.components; i++ {
			set := legal[i]
			id -= set[cursor[i]] * c.weights[i]
			cursor[i]++
			if cursor[i] < len(set) {
				id += set[cursor[i]] * c.weights[i]
				break
			}
			cursor[i] = 0
			id += set[0] * c.weights[i]
		}
		if i == c.components {
			return ids, nil
		}
	}
}
