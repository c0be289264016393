package nonlin

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ALTree/bigfloat"

	"github.com/privml/triad/mpc"
	"github.com/privml/triad/share"
)

// PolyOracle evaluates a public low-degree polynomial element-wise over a
// shared tensor: powers of x are built with secret multiplications, each
// rescaled back to the input scale, and the public coefficients enter as
// scalar multiplications. Degree d costs d-1 secret multiplications.
type PolyOracle struct {
	// Coeffs holds the polynomial coefficients in ascending degree order.
	Coeffs []float64
}

// NewSquareOracle returns the exact x^2 activation, the cheapest
// multiplication-friendly nonlinearity.
func NewSquareOracle() *PolyOracle {
	return &PolyOracle{Coeffs: []float64{0, 0, 1}}
}

// NewSigmoidOracle returns a degree-3 polynomial approximation of the
// sigmoid on the interval [-halfRange, halfRange], interpolating
// 1/(1+exp(-x)) at 0, +-halfRange/2 and +-halfRange. The odd symmetry of
// the sigmoid around 1/2 leaves only the constant, linear and cubic terms.
// Coefficients are solved at the given big.Float precision.
func NewSigmoidOracle(prec uint, halfRange float64) (*PolyOracle, error) {

	if halfRange <= 0 {
		return nil, fmt.Errorf("nonlin: halfRange must be positive, got %g", halfRange)
	}

	a := new(big.Float).SetPrec(prec).SetFloat64(halfRange)
	half := new(big.Float).SetPrec(prec).SetFloat64(0.5)

	sigmoid := func(x *big.Float) *big.Float {
		e := bigfloat.Exp(new(big.Float).SetPrec(prec).Neg(x))
		den := new(big.Float).SetPrec(prec).Add(e, big.NewFloat(1).SetPrec(prec))
		return new(big.Float).SetPrec(prec).Quo(big.NewFloat(1).SetPrec(prec), den)
	}

	// g1 = sigmoid(a) - 1/2, g2 = sigmoid(a/2) - 1/2.
	g1 := new(big.Float).SetPrec(prec).Sub(sigmoid(a), half)
	aHalf := new(big.Float).SetPrec(prec).Quo(a, big.NewFloat(2).SetPrec(prec))
	g2 := new(big.Float).SetPrec(prec).Sub(sigmoid(aHalf), half)

	// Solve c1*a + c3*a^3 = g1 and c1*a/2 + c3*a^3/8 = g2:
	// c3 = 4*(g1 - 2*g2) / (3*a^3), c1 = (g1 - c3*a^3) / a.
	a3 := bigfloat.Pow(a, big.NewFloat(3).SetPrec(prec))

	num := new(big.Float).SetPrec(prec).Sub(g1, new(big.Float).SetPrec(prec).Mul(big.NewFloat(2).SetPrec(prec), g2))
	num.Mul(num, big.NewFloat(4).SetPrec(prec))
	den := new(big.Float).SetPrec(prec).Mul(big.NewFloat(3).SetPrec(prec), a3)
	c3 := new(big.Float).SetPrec(prec).Quo(num, den)

	c1 := new(big.Float).SetPrec(prec).Sub(g1, new(big.Float).SetPrec(prec).Mul(c3, a3))
	c1.Quo(c1, a)

	c1f, _ := c1.Float64()
	c3f, _ := c3.Float64()

	return &PolyOracle{Coeffs: []float64{0.5, c1f, 0, c3f}}, nil
}

// EvalFloat64 evaluates the polynomial on a plaintext value. It is the
// reference the shared evaluation must be functionally transparent to.
func (o *PolyOracle) EvalFloat64(x float64) (y float64) {
	for d := len(o.Coeffs) - 1; d >= 0; d-- {
		y = y*x + o.Coeffs[d]
	}
	return
}

// Activate implements [Oracle].
func (o *PolyOracle) Activate(ctx context.Context, e *mpc.Engine, x *share.Tensor) (*share.Tensor, error) {

	if len(o.Coeffs) == 0 {
		return nil, fmt.Errorf("nonlin: empty polynomial")
	}

	ecd := e.Encoder()
	logScale := e.Parameters().LogScale()

	if x.ScaleLog != logScale {
		return nil, fmt.Errorf("%w: input at scale 2^%d, want 2^%d", share.ErrFieldMismatch, x.ScaleLog, logScale)
	}

	constant, err := ecd.Encode(o.Coeffs[0])
	if err != nil {
		return nil, fmt.Errorf("nonlin: coefficient 0: %w", err)
	}

	constVec := make([]uint64, x.Size())
	for i := range constVec {
		constVec[i] = constant
	}

	acc := e.PublicTensor(constVec, x.Shape, x.ScaleLog)

	// pow holds x^d at the input scale, rebuilt degree by degree.
	pow := x

	for d := 1; d < len(o.Coeffs); d++ {

		if d > 1 {
			raw, err := e.SecretMul(ctx, pow, x)
			if err != nil {
				return nil, fmt.Errorf("nonlin: degree %d: %w", d, err)
			}
			if pow, err = e.Rescale(raw); err != nil {
				return nil, fmt.Errorf("nonlin: degree %d: %w", d, err)
			}
		}

		if o.Coeffs[d] == 0 {
			continue
		}

		k, err := ecd.Encode(o.Coeffs[d])
		if err != nil {
			return nil, fmt.Errorf("nonlin: coefficient %d: %w", d, err)
		}

		term, err := e.Rescale(e.ScalarMul(pow, k, logScale))
		if err != nil {
			return nil, fmt.Errorf("nonlin: degree %d: %w", d, err)
		}

		if acc, err = e.Add(acc, term); err != nil {
			return nil, fmt.Errorf("nonlin: degree %d: %w", d, err)
		}
	}

	return acc, nil
}
