package mpc

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/privml/triad/field"
	"github.com/privml/triad/sampling"
	"github.com/privml/triad/share"
	"github.com/privml/triad/transport"
)

const (
	tagDealRequest = "deal/request"
	tagDealU       = "deal/u"
	tagDealV       = "deal/v"
	tagDealW       = "deal/w"
	tagDealR       = "deal/r"
)

// Correlated randomness kinds served by the dealer.
const (
	dealHadamard uint64 = iota + 1
	dealMatMul
	dealMask
)

// Dealer is the helper party's actor. It serves correlated randomness to
// the two holders: Beaver triples (u, v, w = u*v) for secret
// multiplications and uniform nonzero masks for equality tests.
//
// The dealer only ever observes its own random draws, which are independent
// of the secret operands; it never receives masked differences. Triples are
// generated fresh per request and never reused.
type Dealer struct {
	params  field.Parameters
	ch      transport.Channel
	sampler *field.UniformSampler
}

// NewDealer instantiates the helper's dealer over the given channel,
// drawing randomness from source.
func NewDealer(params field.Parameters, ch transport.Channel, source *sampling.Source) *Dealer {
	return &Dealer{
		params:  params,
		ch:      ch,
		sampler: field.NewUniformSampler(source, params.Modulus()),
	}
}

// Serve answers deal requests until ctx is cancelled. A request mismatch
// between the two holders or a transport failure is returned as an error;
// cancellation returns nil.
func (d *Dealer) Serve(ctx context.Context) error {
	for {
		if err := d.ServeOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

type dealRequest struct {
	kind uint64
	op   uuid.UUID
	dims []int
}

func parseDealRequest(msg *transport.Message) (req dealRequest, err error) {
	if msg.Tag != tagDealRequest || len(msg.Values) != 3 {
		return req, fmt.Errorf("dealer: malformed deal request from %s", msg.From)
	}
	req.kind = msg.Values[0]
	binary.BigEndian.PutUint64(req.op[0:8], msg.Values[1])
	binary.BigEndian.PutUint64(req.op[8:16], msg.Values[2])
	req.dims = msg.Shape
	return req, nil
}

func (req dealRequest) matches(other dealRequest) bool {
	if req.kind != other.kind || req.op != other.op || len(req.dims) != len(other.dims) {
		return false
	}
	for i := range req.dims {
		if req.dims[i] != other.dims[i] {
			return false
		}
	}
	return true
}

// ServeOne waits for the next pair of matching deal requests and answers it.
func (d *Dealer) ServeOne(ctx context.Context) error {

	msgA, err := d.ch.Recv(ctx, share.HolderA, uuid.Nil, tagDealRequest)
	if err != nil {
		return err
	}

	reqA, err := parseDealRequest(msgA)
	if err != nil {
		return err
	}

	msgB, err := d.ch.Recv(ctx, share.HolderB, uuid.Nil, tagDealRequest)
	if err != nil {
		return err
	}

	reqB, err := parseDealRequest(msgB)
	if err != nil {
		return err
	}

	if !reqA.matches(reqB) {
		return fmt.Errorf("dealer: holders disagree on request %v: %+v != %+v", reqA.op, reqA, reqB)
	}

	switch reqA.kind {
	case dealHadamard:
		return d.dealHadamardTriple(ctx, reqA)
	case dealMatMul:
		return d.dealMatMulTriple(ctx, reqA)
	case dealMask:
		return d.dealMask(ctx, reqA)
	default:
		return fmt.Errorf("dealer: unknown request kind %d", reqA.kind)
	}
}

// sendSplit splits values additively in two and sends one share per holder.
func (d *Dealer) sendSplit(ctx context.Context, op uuid.UUID, tag string, shape []int, values []uint64) error {

	q := d.params.Modulus()

	first := d.sampler.ReadNewVec(len(values))
	second := make([]uint64, len(values))
	field.SubVec(values, first, second, q)

	for i, vals := range [][]uint64{first, second} {
		msg := &transport.Message{
			Group:  op,
			Tag:    tag,
			Shape:  shape,
			Values: vals,
		}
		if err := d.ch.Send(ctx, []share.PartyID{share.HolderA, share.HolderB}[i], msg); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dealer) dealHadamardTriple(ctx context.Context, req dealRequest) error {

	size := share.Size(req.dims)
	q := d.params.Modulus()

	u := d.sampler.ReadNewVec(size)
	v := d.sampler.ReadNewVec(size)
	w := make([]uint64, size)
	field.MulVec(u, v, w, q)

	for _, part := range []struct {
		tag    string
		values []uint64
	}{{tagDealU, u}, {tagDealV, v}, {tagDealW, w}} {
		if err := d.sendSplit(ctx, req.op, part.tag, req.dims, part.values); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dealer) dealMatMulTriple(ctx context.Context, req dealRequest) error {

	if len(req.dims) != 3 {
		return fmt.Errorf("dealer: matmul request needs dims (rows, inner, cols), got %v", req.dims)
	}

	rows, inner, cols := req.dims[0], req.dims[1], req.dims[2]
	q := d.params.Modulus()

	u := d.sampler.ReadNewVec(rows * inner)
	v := d.sampler.ReadNewVec(inner * cols)
	w := make([]uint64, rows*cols)
	field.MatMulMod(u, v, w, rows, inner, cols, q)

	for _, part := range []struct {
		tag    string
		shape  []int
		values []uint64
	}{
		{tagDealU, []int{rows, inner}, u},
		{tagDealV, []int{inner, cols}, v},
		{tagDealW, []int{rows, cols}, w},
	} {
		if err := d.sendSplit(ctx, req.op, part.tag, part.shape, part.values); err != nil {
			return err
		}
	}

	return nil
}

func (d *Dealer) dealMask(ctx context.Context, req dealRequest) error {

	size := share.Size(req.dims)

	r := make([]uint64, size)
	for i := range r {
		r[i] = d.sampler.NonZeroUint64()
	}

	return d.sendSplit(ctx, req.op, tagDealR, req.dims, r)
}

// requestDeal sends a deal request for op to the helper and collects the
// answer messages for each of the given tags.
func (e *Engine) requestDeal(ctx context.Context, op uuid.UUID, kind uint64, dims []int, tags ...string) ([][]uint64, error) {

	req := &transport.Message{
		Group: uuid.Nil,
		Tag:   tagDealRequest,
		Shape: dims,
		Values: []uint64{
			kind,
			binary.BigEndian.Uint64(op[0:8]),
			binary.BigEndian.Uint64(op[8:16]),
		},
	}

	if err := e.ch.Send(ctx, e.helper, req); err != nil {
		return nil, fmt.Errorf("deal request: %w", err)
	}

	parts := make([][]uint64, len(tags))
	for i, tag := range tags {
		msg, err := e.ch.Recv(ctx, e.helper, op, tag)
		if err != nil {
			return nil, fmt.Errorf("missing %q from helper: %w", tag, err)
		}
		parts[i] = msg.Values
	}

	return parts, nil
}
