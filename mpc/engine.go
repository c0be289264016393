// Package mpc implements the three-party arithmetic engine over additive
// shares: local linear operations, Beaver-triple secret multiplication with
// a semi-honest helper dealing correlated randomness, fixed-point rescaling
// and reconstruction of revealed outputs.
//
// The two holders run one [Engine] each and must drive them through the
// same sequence of operations; derived share-group ids and rendezvous
// addresses are computed deterministically from that sequence. The helper
// runs a [Dealer].
package mpc

import (
	"encoding/binary"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	"github.com/privml/triad/field"
	"github.com/privml/triad/share"
	"github.com/privml/triad/transport"
)

var groupNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("github.com/privml/triad"))

// deriveGroup deterministically derives the share-group id of an operation
// result from the operation name, the engine sequence number and the operand
// groups. Both holders derive identical ids as long as they execute the same
// operation sequence.
func deriveGroup(op string, seq uint64, groups ...uuid.UUID) uuid.UUID {
	data := make([]byte, 0, len(op)+8+16*len(groups))
	data = append(data, op...)
	data = binary.BigEndian.AppendUint64(data, seq)
	for _, g := range groups {
		data = append(data, g[:]...)
	}
	return uuid.NewSHA1(groupNamespace, data)
}

// Engine is the per-holder arithmetic engine. Linear operations (addition,
// negation, multiplication by a public scalar) are local; secret
// multiplications run the Beaver online phase against the counterpart
// holder with correlated randomness from the helper.
type Engine struct {
	params field.Parameters
	ecd    *field.Encoder

	id     share.PartyID
	other  share.PartyID
	helper share.PartyID

	ch transport.Channel

	// Workers bounds the number of goroutines used for the local matrix
	// products of the Beaver online phase.
	Workers int

	seq uint64
}

// NewEngine instantiates the engine of holder id over the given channel.
// id must be one of the two holders.
func NewEngine(params field.Parameters, id share.PartyID, ch transport.Channel) *Engine {

	if id != share.HolderA && id != share.HolderB {
		panic(fmt.Errorf("mpc: %s is not a holder", id))
	}

	other := share.HolderB
	if id == share.HolderB {
		other = share.HolderA
	}

	return &Engine{
		params:  params,
		ecd:     field.NewEncoder(params),
		id:      id,
		other:   other,
		helper:  share.Helper,
		ch:      ch,
		Workers: runtime.GOMAXPROCS(0),
	}
}

// Parameters returns the field parameters of the engine.
func (e *Engine) Parameters() field.Parameters {
	return e.params
}

// PartyID returns the holder identity of the engine.
func (e *Engine) PartyID() share.PartyID {
	return e.id
}

// Encoder returns the fixed-point encoder of the engine.
func (e *Engine) Encoder() *field.Encoder {
	return e.ecd
}

func (e *Engine) nextSeq() uint64 {
	e.seq++
	return e.seq
}

func (e *Engine) checkOperands(a, b *share.Tensor) error {
	if a.Modulus != b.Modulus || a.Modulus != e.params.Modulus() {
		return fmt.Errorf("%w: moduli %d, %d over field %d", share.ErrFieldMismatch, a.Modulus, b.Modulus, e.params.Modulus())
	}
	if !a.SameShape(b) {
		return fmt.Errorf("%w: %v != %v", share.ErrShapeMismatch, a.Shape, b.Shape)
	}
	return nil
}

// Add evaluates the share of a + b. Local, correct by linearity.
func (e *Engine) Add(a, b *share.Tensor) (*share.Tensor, error) {

	if err := a.CompatibleWith(b); err != nil {
		return nil, fmt.Errorf("add: %w", err)
	}

	out := share.NewTensor(e.id, deriveGroup("add", e.nextSeq(), a.Group, b.Group), a.Modulus, a.ScaleLog, a.Shape)
	field.AddVec(a.Values, b.Values, out.Values, a.Modulus)
	return out, nil
}

// Sub evaluates the share of a - b. Local.
func (e *Engine) Sub(a, b *share.Tensor) (*share.Tensor, error) {

	if err := a.CompatibleWith(b); err != nil {
		return nil, fmt.Errorf("sub: %w", err)
	}

	out := share.NewTensor(e.id, deriveGroup("sub", e.nextSeq(), a.Group, b.Group), a.Modulus, a.ScaleLog, a.Shape)
	field.SubVec(a.Values, b.Values, out.Values, a.Modulus)
	return out, nil
}

// Neg evaluates the share of -a. Local.
func (e *Engine) Neg(a *share.Tensor) *share.Tensor {
	out := share.NewTensor(e.id, deriveGroup("neg", e.nextSeq(), a.Group), a.Modulus, a.ScaleLog, a.Shape)
	field.NegVec(a.Values, out.Values, a.Modulus)
	return out
}

// ScalarMul evaluates the share of a * k for a public field scalar k at
// scale 2^scaleLogK. Local; the result scale is the sum of both scales.
func (e *Engine) ScalarMul(a *share.Tensor, k uint64, scaleLogK int) *share.Tensor {
	out := share.NewTensor(e.id, deriveGroup("smul", e.nextSeq(), a.Group), a.Modulus, a.ScaleLog+scaleLogK, a.Shape)
	field.MulScalarVec(a.Values, k, out.Values, a.Modulus)
	return out
}

// PublicTensor returns the trivial sharing of a public vector: holder-A
// holds the values and holder-B holds zeros. Both holders must call it in
// the same operation slot with identical arguments.
func (e *Engine) PublicTensor(values []uint64, shape []int, scaleLog int) *share.Tensor {
	out := share.NewTensor(e.id, deriveGroup("public", e.nextSeq()), e.params.Modulus(), scaleLog, shape)
	if e.id == share.HolderA {
		copy(out.Values, values)
	}
	return out
}

// Rescale divides the fixed-point scale of a by 2^LogScale through local
// truncation of each holder's share. The truncation error is at most one
// unit in the last place of the reduced scale, provided the secret
// magnitude is small with respect to the modulus.
func (e *Engine) Rescale(a *share.Tensor) (*share.Tensor, error) {

	shift := uint(e.params.LogScale())

	if a.ScaleLog < 2*e.params.LogScale() {
		return nil, fmt.Errorf("rescale: scale 2^%d below 2^%d", a.ScaleLog, 2*e.params.LogScale())
	}

	q := a.Modulus
	out := share.NewTensor(e.id, deriveGroup("rescale", e.nextSeq(), a.Group), q, a.ScaleLog-e.params.LogScale(), a.Shape)

	if e.id == share.HolderA {
		for i, v := range a.Values {
			out.Values[i] = v >> shift
		}
	} else {
		for i, v := range a.Values {
			out.Values[i] = field.CRed(q-((q-v)>>shift), q)
		}
	}

	return out, nil
}
