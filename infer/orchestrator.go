package infer

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/privml/triad/field"
	"github.com/privml/triad/mpc"
	"github.com/privml/triad/nonlin"
	"github.com/privml/triad/sampling"
	"github.com/privml/triad/share"
	"github.com/privml/triad/transport"
)

var inputNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("github.com/privml/triad/infer"))

// inputGroup derives the share-group id of a distributed input tensor from
// its tag, so that owner and holders agree on the rendezvous address
// without prior communication.
func inputGroup(tag string) uuid.UUID {
	return uuid.NewSHA1(inputNamespace, []byte(tag))
}

const (
	tagBatchX = "batch/x"
	tagLabels = "batch/labels"
	tagW1     = "model/w1"
	tagB1     = "model/b1"
	tagW2     = "model/w2"
	tagB2     = "model/b2"
	tagResult = "result"
)

// Orchestrator drives one inference batch end to end across the three
// protocol parties plus the data owner. Field parameters, party bindings
// and the nonlinearity oracles are fixed at construction.
type Orchestrator struct {
	params     field.Parameters
	reg        *PartyRegistry
	activation nonlin.Oracle
	argmax     nonlin.ArgmaxOracle
	source     *sampling.Source
}

// NewOrchestrator instantiates an orchestrator over the given registry,
// which must bind the two holders, the helper and the owner.
func NewOrchestrator(params field.Parameters, reg *PartyRegistry, activation nonlin.Oracle, argmax nonlin.ArgmaxOracle, source *sampling.Source) (*Orchestrator, error) {
	for _, id := range []share.PartyID{share.HolderA, share.HolderB, share.Helper, share.Owner} {
		if _, err := reg.Channel(id); err != nil {
			return nil, err
		}
	}
	return &Orchestrator{
		params:     params,
		reg:        reg,
		activation: activation,
		argmax:     argmax,
		source:     source,
	}, nil
}

// RunBatch encodes and splits the model and the batch, distributes the
// shares to the holders, evaluates the shared two-layer network and
// returns the revealed correctness count. Any protocol error is terminal
// for the batch; nothing is retried.
func (o *Orchestrator) RunBatch(ctx context.Context, model *Model, batch Batch) (BatchResult, error) {

	if err := model.Validate(); err != nil {
		return BatchResult{}, err
	}
	if err := batch.Validate(model); err != nil {
		return BatchResult{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ownerCh, _ := o.reg.Channel(share.Owner)
	helperCh, _ := o.reg.Channel(share.Helper)

	errs := make(chan error, 3)

	dealer := mpc.NewDealer(o.params, helperCh, o.source.NewSource())
	go func() { errs <- dealer.Serve(ctx) }()

	for _, id := range []share.PartyID{share.HolderA, share.HolderB} {
		ch, _ := o.reg.Channel(id)
		engine := mpc.NewEngine(o.params, id, ch)
		go func() { errs <- o.runHolder(ctx, engine, ch, len(batch.Inputs)) }()
	}

	result, ownerErr := o.runOwner(ctx, ownerCh, model, batch)

	cancel()

	// Cancellation errors are the unwinding of another party's failure,
	// not the failure itself; report the root cause.
	var partyErr error
	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil && partyErr == nil && !errors.Is(err, context.Canceled) {
			partyErr = err
		}
	}

	if partyErr != nil {
		return BatchResult{}, partyErr
	}
	if ownerErr != nil {
		return BatchResult{}, ownerErr
	}

	return result, nil
}

// runOwner splits and distributes the plaintext tensors, then waits for
// the revealed correctness count from both holders.
func (o *Orchestrator) runOwner(ctx context.Context, ch transport.Channel, model *Model, batch Batch) (BatchResult, error) {

	ecd := field.NewEncoder(o.params)
	splitter := share.NewSplitter(o.params, o.source.NewSource())

	rows := len(batch.Inputs)
	in, hidden, classes := model.Dims()
	logScale := o.params.LogScale()

	labels := make([]uint64, rows)
	for i, l := range batch.Labels {
		labels[i] = ecd.EncodeInt(int64(l))
	}

	inputs := []struct {
		tag      string
		values   []float64
		shape    []int
		scaleLog int
	}{
		{tagBatchX, flatten(batch.Inputs), []int{rows, in}, logScale},
		{tagW1, flatten(model.W1), []int{in, hidden}, logScale},
		{tagB1, tile(model.B1, rows), []int{rows, hidden}, logScale},
		{tagW2, flatten(model.W2), []int{hidden, classes}, logScale},
		{tagB2, tile(model.B2, rows), []int{rows, classes}, logScale},
	}

	for _, input := range inputs {
		encoded, err := ecd.EncodeSlice(input.values)
		if err != nil {
			return BatchResult{}, fmt.Errorf("encode %q: %w", input.tag, err)
		}
		if err := distribute(ctx, ch, splitter, input.tag, encoded, input.shape, input.scaleLog); err != nil {
			return BatchResult{}, err
		}
	}

	if err := distribute(ctx, ch, splitter, tagLabels, labels, []int{rows}, 0); err != nil {
		return BatchResult{}, err
	}

	// Both holders report the count; they must agree.
	var result BatchResult
	for i, id := range []share.PartyID{share.HolderA, share.HolderB} {
		msg, err := ch.Recv(ctx, id, inputGroup(tagResult), tagResult)
		if err != nil {
			return BatchResult{}, fmt.Errorf("result from %s: %w", id, err)
		}
		if len(msg.Values) != 2 {
			return BatchResult{}, fmt.Errorf("result from %s: malformed payload", id)
		}
		r := BatchResult{Correct: int(msg.Values[0]), Total: int(msg.Values[1])}
		if i > 0 && r != result {
			return BatchResult{}, fmt.Errorf("holders disagree on the result: %+v != %+v", result, r)
		}
		result = r
	}

	return result, nil
}

// distribute splits encoded values under the tag's share group and sends
// one share tensor to each holder.
func distribute(ctx context.Context, ch transport.Channel, splitter *share.Splitter, tag string, values []uint64, shape []int, scaleLog int) error {

	shares, err := splitter.SplitGroup(inputGroup(tag), values, shape, scaleLog, []share.PartyID{share.HolderA, share.HolderB})
	if err != nil {
		return fmt.Errorf("split %q: %w", tag, err)
	}

	for _, t := range shares {
		if err := ch.Send(ctx, t.Holder, transport.TensorMessage(tag, t)); err != nil {
			return fmt.Errorf("distribute %q: %w", tag, err)
		}
	}

	return nil
}

// runHolder is the per-holder program: receive the input shares, evaluate
// the two linear layers and the nonlinearity, classify, compare against
// the shared labels with a secret equality test and report the count.
func (o *Orchestrator) runHolder(ctx context.Context, e *mpc.Engine, ch transport.Channel, rows int) error {

	q := o.params.Modulus()

	recv := func(tag string) (*share.Tensor, error) {
		msg, err := ch.Recv(ctx, share.Owner, inputGroup(tag), tag)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", tag, err)
		}
		t := msg.Tensor(q)
		t.Holder = e.PartyID()
		return t, nil
	}

	x, err := recv(tagBatchX)
	if err != nil {
		return err
	}
	w1, err := recv(tagW1)
	if err != nil {
		return err
	}
	b1, err := recv(tagB1)
	if err != nil {
		return err
	}
	w2, err := recv(tagW2)
	if err != nil {
		return err
	}
	b2, err := recv(tagB2)
	if err != nil {
		return err
	}
	labels, err := recv(tagLabels)
	if err != nil {
		return err
	}

	scores, err := o.evalNetwork(ctx, e, x, w1, b1, w2, b2)
	if err != nil {
		return err
	}

	preds, err := o.argmax.Predict(ctx, e, scores)
	if err != nil {
		return err
	}

	predVals := make([]uint64, rows)
	for i, p := range preds {
		predVals[i] = e.Encoder().EncodeInt(int64(p))
	}

	diff, err := e.Sub(e.PublicTensor(predVals, []int{rows}, 0), labels)
	if err != nil {
		return err
	}

	equal, err := e.EqualZero(ctx, diff)
	if err != nil {
		return err
	}

	var correct uint64
	for _, ok := range equal {
		if ok {
			correct++
		}
	}

	return ch.Send(ctx, share.Owner, &transport.Message{
		Group:  inputGroup(tagResult),
		Tag:    tagResult,
		Values: []uint64{correct, uint64(rows)},
	})
}

// evalNetwork evaluates x*W1 + b1, the nonlinearity, then h*W2 + b2 over
// shares. Each matrix product is rescaled back to the working scale before
// the bias addition; the rescale is the synchronization barrier between
// layers.
func (o *Orchestrator) evalNetwork(ctx context.Context, e *mpc.Engine, x, w1, b1, w2, b2 *share.Tensor) (*share.Tensor, error) {

	l1, err := e.MatMul(ctx, x, w1)
	if err != nil {
		return nil, err
	}
	if l1, err = e.Rescale(l1); err != nil {
		return nil, err
	}
	if l1, err = e.Add(l1, b1); err != nil {
		return nil, err
	}

	h, err := o.activation.Activate(ctx, e, l1)
	if err != nil {
		return nil, err
	}

	l2, err := e.MatMul(ctx, h, w2)
	if err != nil {
		return nil, err
	}
	if l2, err = e.Rescale(l2); err != nil {
		return nil, err
	}

	return e.Add(l2, b2)
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, row := range rows {
		out = append(out, row...)
	}
	return out
}

func tile(row []float64, n int) []float64 {
	out := make([]float64, 0, n*len(row))
	for i := 0; i < n; i++ {
		out = append(out, row...)
	}
	return out
}
