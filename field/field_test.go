package field

import (
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/jbarham/primegen"
	"github.com/stretchr/testify/require"

	"github.com/privml/triad/sampling"
)

// testModuli holds the default Mersenne field and a small prime field, the
// latter drawn from a prime sieve above 2^20.
func testModuli(t *testing.T) []ParametersLiteral {
	sieve := primegen.New()
	p := sieve.Next()
	for p < 1<<20 {
		p = sieve.Next()
	}
	return []ParametersLiteral{
		{},
		{Modulus: p, LogScale: 8},
	}
}

func testString(opname string, p Parameters) string {
	return fmt.Sprintf("%s/M=%d/LogScale=%d", opname, p.Modulus(), p.LogScale())
}

func TestParameters(t *testing.T) {

	t.Run("Defaults", func(t *testing.T) {
		p, err := NewParametersFromLiteral(ParametersLiteral{})
		require.NoError(t, err)
		require.Equal(t, DefaultModulus, p.Modulus())
		require.Equal(t, DefaultLogScale, p.LogScale())
		require.Equal(t, (DefaultModulus-1)>>1, p.Half())
		require.True(t, p.Equal(p))
		require.Equal(t, ParametersLiteral{Modulus: DefaultModulus, LogScale: DefaultLogScale}, p.Literal())
	})

	t.Run("CompositeModulus", func(t *testing.T) {
		_, err := NewParametersFromLiteral(ParametersLiteral{Modulus: 1 << 20})
		require.Error(t, err)
	})

	t.Run("ModulusTooLarge", func(t *testing.T) {
		// 2^63 - 25 is prime but exceeds the bit-size bound.
		_, err := NewParametersFromLiteral(ParametersLiteral{Modulus: (1 << 63) - 25})
		require.Error(t, err)
	})

	t.Run("LogScaleTooLarge", func(t *testing.T) {
		_, err := NewParametersFromLiteral(ParametersLiteral{Modulus: 65537, LogScale: 16})
		require.Error(t, err)
	})
}

func TestScalarOps(t *testing.T) {

	for _, lit := range testModuli(t) {

		p, err := NewParametersFromLiteral(lit)
		require.NoError(t, err)

		q := p.Modulus()
		source := sampling.NewSource([32]byte{})
		sampler := NewUniformSampler(source, q)

		t.Run(testString("MulMod", p), func(t *testing.T) {
			bigQ := new(big.Int).SetUint64(q)
			for i := 0; i < 128; i++ {
				a, b := sampler.Uint64(), sampler.Uint64()
				want := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
				want.Mod(want, bigQ)
				require.Equal(t, want.Uint64(), MulMod(a, b, q))
			}
		})

		t.Run(testString("NegMod", p), func(t *testing.T) {
			require.Equal(t, uint64(0), NegMod(0, q))
			a := sampler.NonZeroUint64()
			require.Equal(t, uint64(0), CRed(a+NegMod(a, q), q))
		})

		t.Run(testString("InvMod", p), func(t *testing.T) {
			for i := 0; i < 16; i++ {
				a := sampler.NonZeroUint64()
				require.Equal(t, uint64(1), MulMod(a, InvMod(a, q), q))
			}
		})

		t.Run(testString("ModExp", p), func(t *testing.T) {
			a := sampler.NonZeroUint64()
			require.Equal(t, uint64(1), ModExp(a, 0, q))
			require.Equal(t, a, ModExp(a, 1, q))
			require.Equal(t, MulMod(a, a, q), ModExp(a, 2, q))
			// Fermat: a^(q-1) = 1 mod q for prime q.
			require.Equal(t, uint64(1), ModExp(a, q-1, q))
		})
	}
}

func TestEncoder(t *testing.T) {

	for _, lit := range testModuli(t) {

		p, err := NewParametersFromLiteral(lit)
		require.NoError(t, err)

		ecd := NewEncoder(p)
		eps := math.Ldexp(1, -p.LogScale())

		t.Run(testString("RoundTrip", p), func(t *testing.T) {
			for _, v := range []float64{0, 1, -1, 3.5, -2.25, 0.0001, -123.456} {
				c, err := ecd.Encode(v)
				require.NoError(t, err)
				require.Less(t, c, p.Modulus())
				require.InDelta(t, v, ecd.Decode(c), eps)
			}
		})

		t.Run(testString("Overflow", p), func(t *testing.T) {
			bound := math.Ldexp(float64(p.Half()), -p.LogScale())
			_, err := ecd.Encode(2 * bound)
			require.ErrorIs(t, err, ErrEncodingOverflow)
			_, err = ecd.Encode(-2 * bound)
			require.ErrorIs(t, err, ErrEncodingOverflow)
			_, err = ecd.Encode(math.NaN())
			require.ErrorIs(t, err, ErrEncodingOverflow)
		})

		t.Run(testString("EncodeInt", p), func(t *testing.T) {
			require.Equal(t, uint64(7), ecd.EncodeInt(7))
			require.Equal(t, p.Modulus()-7, ecd.EncodeInt(-7))
			require.Equal(t, float64(-7), ecd.DecodeAtScale(ecd.EncodeInt(-7), 0))
		})

		t.Run(testString("Slices", p), func(t *testing.T) {
			values := []float64{1.5, -0.5, 42}
			encoded, err := ecd.EncodeSlice(values)
			require.NoError(t, err)
			decoded := ecd.DecodeSlice(encoded)
			for i := range values {
				require.InDelta(t, values[i], decoded[i], eps)
			}
		})
	}
}

func TestVecOps(t *testing.T) {

	p, err := NewParametersFromLiteral(ParametersLiteral{})
	require.NoError(t, err)

	q := p.Modulus()
	sampler := NewUniformSampler(sampling.NewSource([32]byte{}), q)

	n := 64
	p1 := sampler.ReadNewVec(n)
	p2 := sampler.ReadNewVec(n)

	t.Run(testString("AddSub", p), func(t *testing.T) {
		sum := make([]uint64, n)
		diff := make([]uint64, n)
		AddVec(p1, p2, sum, q)
		SubVec(sum, p2, diff, q)
		require.Equal(t, p1, diff)
	})

	t.Run(testString("Neg", p), func(t *testing.T) {
		neg := make([]uint64, n)
		zero := make([]uint64, n)
		NegVec(p1, neg, q)
		AddVec(p1, neg, neg, q)
		require.Equal(t, zero, neg)
	})

	t.Run(testString("Mul", p), func(t *testing.T) {
		prod := make([]uint64, n)
		MulVec(p1, p2, prod, q)
		for i := range prod {
			require.Equal(t, MulMod(p1[i], p2[i], q), prod[i])
		}
	})

	t.Run(testString("MulScalar", p), func(t *testing.T) {
		out := make([]uint64, n)
		MulScalarVec(p1, 3, out, q)
		for i := range out {
			require.Equal(t, MulMod(p1[i], 3, q), out[i])
		}
	})

	t.Run(testString("MatMul", p), func(t *testing.T) {
		// (2x3) x (3x2) against a hand-computed product.
		a := []uint64{1, 2, 3, 4, 5, 6}
		b := []uint64{7, 8, 9, 10, 11, 12}
		out := make([]uint64, 4)
		MatMulMod(a, b, out, 2, 3, 2, q)
		require.Equal(t, []uint64{58, 64, 139, 154}, out)
	})

	t.Run(testString("LengthPanic", p), func(t *testing.T) {
		require.Panics(t, func() {
			AddVec(p1, p2[:n-1], make([]uint64, n), q)
		})
	})
}

func TestUniformSampler(t *testing.T) {

	for _, lit := range testModuli(t) {

		p, err := NewParametersFromLiteral(lit)
		require.NoError(t, err)

		q := p.Modulus()

		t.Run(testString("Range", p), func(t *testing.T) {
			sampler := NewUniformSampler(sampling.NewSource(sampling.NewSeed()), q)
			for _, c := range sampler.ReadNewVec(1024) {
				require.Less(t, c, q)
			}
			for i := 0; i < 128; i++ {
				require.NotZero(t, sampler.NonZeroUint64())
			}
		})

		t.Run(testString("Deterministic", p), func(t *testing.T) {
			seed := [32]byte{1, 2, 3}
			s1 := NewUniformSampler(sampling.NewSource(seed), q)
			s2 := NewUniformSampler(sampling.NewSource(seed), q)
			require.Equal(t, s1.ReadNewVec(256), s2.ReadNewVec(256))
		})
	}
}
