// Package field implements fixed-point arithmetic over a prime field Z_M.
// All protocol values are integers in [0, M) and real numbers are mapped
// to field elements through a power-of-two scaling factor.
package field

import (
	"fmt"
	"math/big"
	"math/bits"
)

// DefaultModulus is the Mersenne prime 2^61 - 1.
const DefaultModulus uint64 = (1 << 61) - 1

// DefaultLogScale is the default base 2 logarithm of the fixed-point scaling factor.
const DefaultLogScale = 16

// MaxModulusBits is the maximum bit-size of the modulus.
// The bound ensures that a full 128-bit product of two field
// elements can be reduced with a single 128/64 division.
const MaxModulusBits = 62

// ParametersLiteral is a literal representation of field parameters. It has public
// fields and is used to express unchecked user-defined parameters literally into
// Go programs. The NewParametersFromLiteral function is used to generate the actual
// checked parameters from the literal representation.
//
// Users may leave fields unset, in which case default values are substituted
// at parameter creation (see [NewParametersFromLiteral]).
type ParametersLiteral struct {
	Modulus  uint64 `json:",omitempty"`
	LogScale int    `json:",omitempty"`
}

// Parameters stores the checked, immutable parameters of a fixed-point prime field:
// the modulus M and the scaling factor 2^LogScale. All parties of a computation must
// share identical parameters, otherwise operations fail with a field mismatch.
type Parameters struct {
	modulus  uint64
	logScale int
	half     uint64
}

// NewParametersFromLiteral instantiates a set of [Parameters] from a [ParametersLiteral],
// substituting defaults for unset fields and validating the result.
//
// The modulus must be an odd prime smaller than 2^62 and the scaling factor must
// be strictly smaller than half of the modulus.
func NewParametersFromLiteral(lit ParametersLiteral) (p Parameters, err error) {

	if lit.Modulus == 0 {
		lit.Modulus = DefaultModulus
	}

	if lit.LogScale == 0 {
		lit.LogScale = DefaultLogScale
	}

	if bits.Len64(lit.Modulus) > MaxModulusBits {
		return Parameters{}, fmt.Errorf("invalid Modulus: bit-size %d > %d", bits.Len64(lit.Modulus), MaxModulusBits)
	}

	if lit.Modulus&1 == 0 || !new(big.Int).SetUint64(lit.Modulus).ProbablyPrime(20) {
		return Parameters{}, fmt.Errorf("invalid Modulus: %d is not an odd prime", lit.Modulus)
	}

	if lit.LogScale < 1 || bits.Len64(lit.Modulus)-2 < lit.LogScale {
		return Parameters{}, fmt.Errorf("invalid LogScale: must be in [1, %d]", bits.Len64(lit.Modulus)-2)
	}

	return Parameters{
		modulus:  lit.Modulus,
		logScale: lit.LogScale,
		half:     (lit.Modulus - 1) >> 1,
	}, nil
}

// Modulus returns the prime modulus M.
func (p Parameters) Modulus() uint64 {
	return p.modulus
}

// LogScale returns the base 2 logarithm of the fixed-point scaling factor.
func (p Parameters) LogScale() int {
	return p.logScale
}

// Half returns (M-1)/2, the largest magnitude representable after
// centered reduction.
func (p Parameters) Half() uint64 {
	return p.half
}

// Equal returns whether the receiver and the operand define the same field.
func (p Parameters) Equal(other Parameters) bool {
	return p.modulus == other.modulus && p.logScale == other.logScale
}

// Literal returns the [ParametersLiteral] of the receiver.
func (p Parameters) Literal() ParametersLiteral {
	return ParametersLiteral{
		Modulus:  p.modulus,
		LogScale: p.logScale,
	}
}

// CRed returns a mod q, assuming a < 2q.
func CRed(a, q uint64) uint64 {
	if a >= q {
		return a - q
	}
	return a
}

// NegMod returns -a mod q, assuming a < q.
func NegMod(a, q uint64) uint64 {
	if a == 0 {
		return 0
	}
	return q - a
}

// MulMod returns a*b mod q with 128-bit intermediate precision,
// assuming a, b < q < 2^64.
func MulMod(a, b, q uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, r := bits.Div64(hi, lo, q)
	return r
}

// ModExp returns a^e mod q, assuming a < q.
func ModExp(a, e, q uint64) (r uint64) {
	r = 1 % q
	for ; e > 0; e >>= 1 {
		if e&1 == 1 {
			r = MulMod(r, a, q)
		}
		a = MulMod(a, a, q)
	}
	return
}

// InvMod returns a^-1 mod q for prime q, assuming 0 < a < q.
func InvMod(a, q uint64) uint64 {
	return ModExp(a, q-2, q)
}
