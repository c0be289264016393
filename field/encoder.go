package field

import (
	"errors"
	"fmt"
	"math"
)

// ErrEncodingOverflow is returned when a real value falls outside of the
// representable range (-(M-1)/2S, (M-1)/2S) of the field.
var ErrEncodingOverflow = errors.New("field: value outside of representable range")

// Encoder maps real values to fixed-point field elements and back.
// Encoding computes round(v * 2^LogScale) mod M; decoding applies the
// centered modular reduction before dividing by the scaling factor.
//
// A single set of [Parameters] must be used across a whole computation,
// otherwise the fixed-point representations desynchronize.
type Encoder struct {
	p Parameters
}

// NewEncoder instantiates a new [Encoder] for the given parameters.
func NewEncoder(p Parameters) *Encoder {
	return &Encoder{p: p}
}

// Parameters returns the field parameters of the encoder.
func (ecd *Encoder) Parameters() Parameters {
	return ecd.p
}

// Encode maps v to round(v * 2^LogScale) mod M.
// Returns [ErrEncodingOverflow] if |v * 2^LogScale| > (M-1)/2.
func (ecd *Encoder) Encode(v float64) (uint64, error) {

	scaled := math.Round(math.Ldexp(v, ecd.p.logScale))

	if math.IsNaN(scaled) || math.Abs(scaled) > float64(ecd.p.half) {
		return 0, fmt.Errorf("%w: %g at scale 2^%d", ErrEncodingOverflow, v, ecd.p.logScale)
	}

	if scaled < 0 {
		return ecd.p.modulus - uint64(-scaled), nil
	}

	return uint64(scaled), nil
}

// EncodeInt maps the signed integer v to v mod M without scaling.
func (ecd *Encoder) EncodeInt(v int64) uint64 {
	if v < 0 {
		return ecd.p.modulus - uint64(-v)%ecd.p.modulus
	}
	return uint64(v) % ecd.p.modulus
}

// Decode maps a field element back to a real value at the default scale.
func (ecd *Encoder) Decode(c uint64) float64 {
	return ecd.DecodeAtScale(c, ecd.p.logScale)
}

// DecodeAtScale maps a field element back to a real value, interpreting it
// as a fixed-point integer at scale 2^logScale. Elements above (M-1)/2 are
// reduced to their negative centered representative.
func (ecd *Encoder) DecodeAtScale(c uint64, logScale int) float64 {
	if c > ecd.p.half {
		return -math.Ldexp(float64(ecd.p.modulus-c), -logScale)
	}
	return math.Ldexp(float64(c), -logScale)
}

// EncodeSlice encodes each element of values.
// Returns [ErrEncodingOverflow] if any element overflows.
func (ecd *Encoder) EncodeSlice(values []float64) ([]uint64, error) {
	out := make([]uint64, len(values))
	for i, v := range values {
		c, err := ecd.Encode(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

// DecodeSlice decodes each element of values at the default scale.
func (ecd *Encoder) DecodeSlice(values []uint64) []float64 {
	return ecd.DecodeSliceAtScale(values, ecd.p.logScale)
}

// DecodeSliceAtScale decodes each element of values at scale 2^logScale.
func (ecd *Encoder) DecodeSliceAtScale(values []uint64, logScale int) []float64 {
	out := make([]float64, len(values))
	for i, c := range values {
		out[i] = ecd.DecodeAtScale(c, logScale)
	}
	return out
}
