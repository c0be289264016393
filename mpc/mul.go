package mpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/privml/triad/field"
	"github.com/privml/triad/share"
	"github.com/privml/triad/transport"
	"github.com/privml/triad/utils/concurrency"
)

const (
	tagMulD    = "mul/d"
	tagMatMulD = "matmul/d"
)

// SecretMul evaluates the share of the element-wise product a * b.
//
// The holders obtain shares of a fresh Beaver triple (u, v, w = u*v) from
// the helper, exchange the masked differences d_a = a - u and d_b = b - v
// between themselves (never with the helper) and locally recombine
//
//	z = w + d_a*v + u*d_b (+ d_a*d_b on holder-A only).
//
// One communication round between holders. The result carries the sum of
// the operand scales; apply [Engine.Rescale] to collapse it.
func (e *Engine) SecretMul(ctx context.Context, a, b *share.Tensor) (*share.Tensor, error) {

	if err := e.checkOperands(a, b); err != nil {
		return nil, fmt.Errorf("secret multiply: %w", err)
	}

	op := deriveGroup("mul", e.nextSeq(), a.Group, b.Group)

	parts, err := e.requestDeal(ctx, op, dealHadamard, a.Shape, tagDealU, tagDealV, tagDealW)
	if err != nil {
		return nil, fmt.Errorf("secret multiply: %w", err)
	}
	u, v, w := parts[0], parts[1], parts[2]

	q := a.Modulus
	n := len(a.Values)

	// Masked differences of both operands, batched in one message.
	d := make([]uint64, 2*n)
	field.SubVec(a.Values, u, d[:n], q)
	field.SubVec(b.Values, v, d[n:], q)

	dOther, err := e.exchange(ctx, op, tagMulD, a.Shape, d)
	if err != nil {
		return nil, fmt.Errorf("secret multiply: %w", err)
	}

	da := make([]uint64, n)
	db := make([]uint64, n)
	field.AddVec(d[:n], dOther[:n], da, q)
	field.AddVec(d[n:], dOther[n:], db, q)

	out := share.NewTensor(e.id, op, q, a.ScaleLog+b.ScaleLog, a.Shape)

	z := out.Values
	field.MulVec(da, v, z, q)
	tmp := make([]uint64, n)
	field.MulVec(u, db, tmp, q)
	field.AddVec(z, tmp, z, q)
	field.AddVec(z, w, z, q)

	// The public cross term d_a*d_b enters exactly once.
	if e.id == share.HolderA {
		field.MulVec(da, db, tmp, q)
		field.AddVec(z, tmp, z, q)
	}

	return out, nil
}

// MatMul evaluates the share of the matrix product a x b using a matrix
// Beaver triple (u, v, w = u x v) of matching dimensions: a single
// masked-difference exchange covers the whole product. Local matrix
// products are spread over [Engine.Workers] goroutines row by row.
func (e *Engine) MatMul(ctx context.Context, a, b *share.Tensor) (*share.Tensor, error) {

	if a.Modulus != b.Modulus || a.Modulus != e.params.Modulus() {
		return nil, fmt.Errorf("matmul: %w: moduli %d, %d over field %d", share.ErrFieldMismatch, a.Modulus, b.Modulus, e.params.Modulus())
	}

	rows, inner := a.Dims()
	innerB, cols := b.Dims()
	if inner != innerB {
		return nil, fmt.Errorf("matmul: %w: (%d, %d) x (%d, %d)", share.ErrShapeMismatch, rows, inner, innerB, cols)
	}

	op := deriveGroup("matmul", e.nextSeq(), a.Group, b.Group)

	parts, err := e.requestDeal(ctx, op, dealMatMul, []int{rows, inner, cols}, tagDealU, tagDealV, tagDealW)
	if err != nil {
		return nil, fmt.Errorf("matmul: %w", err)
	}
	u, v, w := parts[0], parts[1], parts[2]

	q := a.Modulus
	na, nb := rows*inner, inner*cols

	d := make([]uint64, na+nb)
	field.SubVec(a.Values, u, d[:na], q)
	field.SubVec(b.Values, v, d[na:], q)

	dOther, err := e.exchange(ctx, op, tagMatMulD, []int{rows, inner, cols}, d)
	if err != nil {
		return nil, fmt.Errorf("matmul: %w", err)
	}

	da := make([]uint64, na)
	db := make([]uint64, nb)
	field.AddVec(d[:na], dOther[:na], da, q)
	field.AddVec(d[na:], dOther[na:], db, q)

	out := share.NewTensor(e.id, op, q, a.ScaleLog+b.ScaleLog, []int{rows, cols})
	z := out.Values

	crossTerm := e.id == share.HolderA

	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	pool := concurrency.NewPool(make([]rowScratch, workers))
	for i := 0; i < rows; i++ {
		i := i
		pool.Run(func(s rowScratch) error {
			s.row(z, da, db, u, v, w, i, inner, cols, q, crossTerm)
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, fmt.Errorf("matmul: %w", err)
	}

	return out, nil
}

type rowScratch struct{}

// row evaluates row i of z = w + da x v + u x db (+ da x db).
func (rowScratch) row(z, da, db, u, v, w []uint64, i, inner, cols int, q uint64, crossTerm bool) {
	for j := 0; j < cols; j++ {
		acc := w[i*cols+j]
		for k := 0; k < inner; k++ {
			acc = field.CRed(acc+field.MulMod(da[i*inner+k], v[k*cols+j], q), q)
			acc = field.CRed(acc+field.MulMod(u[i*inner+k], db[k*cols+j], q), q)
			if crossTerm {
				acc = field.CRed(acc+field.MulMod(da[i*inner+k], db[k*cols+j], q), q)
			}
		}
		z[i*cols+j] = acc
	}
}

// exchange sends this holder's masked differences to the counterpart and
// returns the counterpart's, enforcing matching sizes.
func (e *Engine) exchange(ctx context.Context, op uuid.UUID, tag string, shape []int, d []uint64) ([]uint64, error) {

	msg := &transport.Message{
		Group:  op,
		Tag:    tag,
		Shape:  shape,
		Values: d,
	}

	if err := e.ch.Send(ctx, e.other, msg); err != nil {
		return nil, err
	}

	reply, err := e.ch.Recv(ctx, e.other, op, tag)
	if err != nil {
		return nil, err
	}

	if len(reply.Values) != len(d) {
		return nil, fmt.Errorf("%w: counterpart sent %d masked values, want %d", share.ErrShapeMismatch, len(reply.Values), len(d))
	}

	return reply.Values, nil
}
