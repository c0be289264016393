package field

import (
	"math/bits"

	"github.com/privml/triad/sampling"
)

// UniformSampler wraps a [sampling.Source] and represents the state of a
// sampler of uniform field elements, using rejection sampling under a
// power-of-two mask.
type UniformSampler struct {
	Modulus uint64
	*sampling.Source
	mask uint64
}

// NewUniformSampler creates a new instance of [UniformSampler] from a
// [sampling.Source] and a modulus.
func NewUniformSampler(source *sampling.Source, modulus uint64) *UniformSampler {
	return &UniformSampler{
		Modulus: modulus,
		Source:  source,
		mask:    (1 << uint64(bits.Len64(modulus-1))) - 1,
	}
}

// WithSource returns an instance of the underlying sampler with a new
// [sampling.Source]. It can be used concurrently with the original sampler.
func (u *UniformSampler) WithSource(source *sampling.Source) *UniformSampler {
	return &UniformSampler{
		Modulus: u.Modulus,
		Source:  source,
		mask:    u.mask,
	}
}

// Uint64 returns a field element sampled uniformly in [0, Modulus).
func (u *UniformSampler) Uint64() (c uint64) {
	c = u.Source.Uint64() & u.mask
	for c >= u.Modulus {
		c = u.Source.Uint64() & u.mask
	}
	return
}

// NonZeroUint64 returns a field element sampled uniformly in [1, Modulus).
func (u *UniformSampler) NonZeroUint64() (c uint64) {
	for c == 0 {
		c = u.Uint64()
	}
	return
}

// ReadVec fills out with field elements sampled uniformly in [0, Modulus).
func (u *UniformSampler) ReadVec(out []uint64) {
	for i := range out {
		out[i] = u.Uint64()
	}
}

// ReadNewVec samples a new vector of n uniform field elements.
func (u *UniformSampler) ReadNewVec(n int) (out []uint64) {
	out = make([]uint64, n)
	u.ReadVec(out)
	return
}
