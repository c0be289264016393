package share

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/privml/triad/field"
	"github.com/privml/triad/sampling"
)

// Splitter splits plaintext field vectors into additive shares, one per
// holder, such that the shares sum to the plaintext mod M. All shares but
// the last are sampled uniformly at random from a cryptographic source.
type Splitter struct {
	params  field.Parameters
	sampler *field.UniformSampler
}

// NewSplitter instantiates a new [Splitter] drawing randomness from source.
func NewSplitter(params field.Parameters, source *sampling.Source) *Splitter {
	return &Splitter{
		params:  params,
		sampler: field.NewUniformSampler(source, params.Modulus()),
	}
}

// Split splits the encoded values into one share [Tensor] per holder, all
// tagged with a fresh share group id. Requires at least two holders and
// len(values) matching the shape.
func (s *Splitter) Split(values []uint64, shape []int, scaleLog int, holders []PartyID) ([]*Tensor, error) {
	return s.SplitGroup(uuid.New(), values, shape, scaleLog, holders)
}

// SplitGroup is [Splitter.Split] with a caller-chosen share group id.
// It is used to re-share a value under an id agreed upon by all parties.
func (s *Splitter) SplitGroup(group uuid.UUID, values []uint64, shape []int, scaleLog int, holders []PartyID) ([]*Tensor, error) {

	if len(holders) < 2 {
		return nil, fmt.Errorf("share: need at least 2 holders, got %d", len(holders))
	}

	if len(values) != Size(shape) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(values), shape)
	}

	q := s.params.Modulus()

	shares := make([]*Tensor, len(holders))
	last := NewTensor(holders[len(holders)-1], group, q, scaleLog, shape)
	copy(last.Values, values)

	for i, holder := range holders[:len(holders)-1] {
		t := NewTensor(holder, group, q, scaleLog, shape)
		s.sampler.ReadVec(t.Values)
		field.SubVec(last.Values, t.Values, last.Values, q)
		shares[i] = t
	}

	shares[len(holders)-1] = last

	return shares, nil
}

// Combine reconstructs the plaintext field vector from the shares of a
// group held by n holders. It returns [ErrIncompleteReveal] if fewer than
// n shares are supplied and validates that all shares belong to the same
// group with identical metadata.
func Combine(n int, shares ...*Tensor) ([]uint64, error) {

	if len(shares) < n {
		return nil, fmt.Errorf("%w: got %d of %d", ErrIncompleteReveal, len(shares), n)
	}

	ref := shares[0]

	out := append([]uint64(nil), ref.Values...)

	for _, t := range shares[1:] {
		if t.Group != ref.Group {
			return nil, fmt.Errorf("share: share group %v does not match %v", t.Group, ref.Group)
		}
		if err := ref.CompatibleWith(t); err != nil {
			return nil, err
		}
		field.AddVec(out, t.Values, out, ref.Modulus)
	}

	return out, nil
}
