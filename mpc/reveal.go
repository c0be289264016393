package mpc

import (
	"context"
	"fmt"

	"github.com/privml/triad/share"
	"github.com/privml/triad/transport"
)

const tagReveal = "reveal"

// Reveal gathers the counterpart's share of a and reconstructs the
// plaintext field vector.
//
// Revealing voids the confidentiality of the revealed value: it must be
// invoked on final outputs only (e.g. a prediction-correctness indicator),
// never on intermediate activations. This is a usage contract on the
// caller; the engine cannot enforce it.
func (e *Engine) Reveal(ctx context.Context, a *share.Tensor) ([]uint64, error) {

	if err := e.ch.Send(ctx, e.other, transport.TensorMessage(tagReveal, a)); err != nil {
		return nil, fmt.Errorf("reveal: %w", err)
	}

	msg, err := e.ch.Recv(ctx, e.other, a.Group, tagReveal)
	if err != nil {
		return nil, fmt.Errorf("reveal: %w", err)
	}

	out, err := share.Combine(2, a, msg.Tensor(a.Modulus))
	if err != nil {
		return nil, fmt.Errorf("reveal: %w", err)
	}

	return out, nil
}

// RevealFloat64 reveals a and decodes it at its fixed-point scale.
func (e *Engine) RevealFloat64(ctx context.Context, a *share.Tensor) ([]float64, error) {
	vals, err := e.Reveal(ctx, a)
	if err != nil {
		return nil, err
	}
	return e.ecd.DecodeSliceAtScale(vals, a.ScaleLog), nil
}

// EqualZero reveals, element-wise, whether the secret in a is zero, and
// nothing else: the holders reveal r * a for a uniform nonzero mask r
// dealt by the helper, which is zero iff the secret is zero and uniformly
// random otherwise.
func (e *Engine) EqualZero(ctx context.Context, a *share.Tensor) ([]bool, error) {

	op := deriveGroup("eq", e.nextSeq(), a.Group)

	parts, err := e.requestDeal(ctx, op, dealMask, a.Shape, tagDealR)
	if err != nil {
		return nil, fmt.Errorf("equal zero: %w", err)
	}

	mask := &share.Tensor{
		Holder:   e.id,
		Group:    deriveGroup("mask", 0, op),
		Modulus:  a.Modulus,
		ScaleLog: 0,
		Shape:    a.Shape,
		Values:   parts[0],
	}

	masked, err := e.SecretMul(ctx, a, mask)
	if err != nil {
		return nil, fmt.Errorf("equal zero: %w", err)
	}

	vals, err := e.Reveal(ctx, masked)
	if err != nil {
		return nil, fmt.Errorf("equal zero: %w", err)
	}

	out := make([]bool, len(vals))
	for i, v := range vals {
		out[i] = v == 0
	}

	return out, nil
}
