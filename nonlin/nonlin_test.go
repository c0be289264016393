package nonlin

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/privml/triad/field"
	"github.com/privml/triad/mpc"
	"github.com/privml/triad/sampling"
	"github.com/privml/triad/share"
	"github.com/privml/triad/transport"
)

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func TestSquareOracle(t *testing.T) {
	o := NewSquareOracle()
	require.Equal(t, 9.0, o.EvalFloat64(3))
	require.Equal(t, 6.25, o.EvalFloat64(-2.5))
	require.Equal(t, 0.0, o.EvalFloat64(0))
}

func TestSigmoidOracle(t *testing.T) {

	t.Run("InvalidRange", func(t *testing.T) {
		_, err := NewSigmoidOracle(128, 0)
		require.Error(t, err)
		_, err = NewSigmoidOracle(128, -1)
		require.Error(t, err)
	})

	t.Run("Coefficients", func(t *testing.T) {
		o, err := NewSigmoidOracle(128, 8)
		require.NoError(t, err)
		require.Len(t, o.Coeffs, 4)
		// Odd symmetry around 1/2: no quadratic term.
		require.Equal(t, 0.5, o.Coeffs[0])
		require.Greater(t, o.Coeffs[1], 0.0)
		require.Zero(t, o.Coeffs[2])
		require.Less(t, o.Coeffs[3], 0.0)
	})

	t.Run("Interpolation", func(t *testing.T) {
		halfRange := 8.0
		o, err := NewSigmoidOracle(128, halfRange)
		require.NoError(t, err)

		// Exact at the interpolation nodes.
		for _, x := range []float64{0, halfRange / 2, halfRange, -halfRange / 2, -halfRange} {
			require.InDelta(t, sigmoid(x), o.EvalFloat64(x), 1e-9)
		}

		// Usable in between.
		for x := -halfRange; x <= halfRange; x += 0.25 {
			require.InDelta(t, sigmoid(x), o.EvalFloat64(x), 0.2)
		}

		// Monotone on the bulk of the interval, like the sigmoid itself.
		for x := -halfRange * 0.75; x < halfRange*0.75; x += 0.25 {
			require.Less(t, o.EvalFloat64(x), o.EvalFloat64(x+0.25))
		}
	})
}

// runOracle evaluates the oracle over a two-holder sharing of values and
// returns the revealed result.
func runOracle(t *testing.T, o Oracle, values []float64, shape []int) []float64 {

	params, err := field.NewParametersFromLiteral(field.ParametersLiteral{})
	require.NoError(t, err)

	ecd := field.NewEncoder(params)
	splitter := share.NewSplitter(params, sampling.NewSource([32]byte{}))
	net := transport.NewNetwork(time.Second)

	encoded, err := ecd.EncodeSlice(values)
	require.NoError(t, err)
	shares, err := splitter.SplitGroup(uuid.New(), encoded, shape, params.LogScale(), []share.PartyID{share.HolderA, share.HolderB})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dealer := mpc.NewDealer(params, net.Party(share.Helper), sampling.NewSource(sampling.NewSeed()))
	dealerErr := make(chan error, 1)
	go func() { dealerErr <- dealer.Serve(ctx) }()

	type out struct {
		vals []float64
		err  error
	}

	outs := make(chan out, 2)
	for i, id := range []share.PartyID{share.HolderA, share.HolderB} {
		e := mpc.NewEngine(params, id, net.Party(id))
		x := shares[i]
		go func() {
			y, err := o.Activate(ctx, e, x)
			if err != nil {
				outs <- out{err: err}
				return
			}
			vals, err := e.RevealFloat64(ctx, y)
			outs <- out{vals: vals, err: err}
		}()
	}

	var revealed []float64
	for i := 0; i < 2; i++ {
		r := <-outs
		require.NoError(t, r.err)
		revealed = r.vals
	}

	cancel()
	require.NoError(t, <-dealerErr)

	return revealed
}

func TestActivate(t *testing.T) {

	t.Run("Square", func(t *testing.T) {
		values := []float64{0, 1.5, -2, 7.25}
		got := runOracle(t, NewSquareOracle(), values, []int{4})
		for i, v := range values {
			require.InDelta(t, v*v, got[i], 0.001)
		}
	})

	t.Run("Sigmoid", func(t *testing.T) {
		o, err := NewSigmoidOracle(128, 8)
		require.NoError(t, err)

		values := []float64{-4, -1, 0, 0.5, 3}
		got := runOracle(t, o, values, []int{5})
		for i, v := range values {
			// The shared evaluation tracks the plaintext polynomial, not
			// the sigmoid itself.
			require.InDelta(t, o.EvalFloat64(v), got[i], 0.001)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		params, err := field.NewParametersFromLiteral(field.ParametersLiteral{})
		require.NoError(t, err)
		net := transport.NewNetwork(time.Second)
		e := mpc.NewEngine(params, share.HolderA, net.Party(share.HolderA))
		x := share.NewTensor(share.HolderA, uuid.New(), params.Modulus(), params.LogScale(), []int{1})
		_, err = (&PolyOracle{}).Activate(context.Background(), e, x)
		require.Error(t, err)
	})
}

func TestRevealedArgmax(t *testing.T) {

	params, err := field.NewParametersFromLiteral(field.ParametersLiteral{})
	require.NoError(t, err)

	ecd := field.NewEncoder(params)
	splitter := share.NewSplitter(params, sampling.NewSource([32]byte{}))
	net := transport.NewNetwork(time.Second)

	scores := []float64{
		0.1, 0.9, 0.3,
		-1, -2, -0.5,
		2, 2, 5,
	}
	encoded, err := ecd.EncodeSlice(scores)
	require.NoError(t, err)
	shares, err := splitter.SplitGroup(uuid.New(), encoded, []int{3, 3}, params.LogScale(), []share.PartyID{share.HolderA, share.HolderB})
	require.NoError(t, err)

	outs := make(chan []int, 2)
	for i, id := range []share.PartyID{share.HolderA, share.HolderB} {
		e := mpc.NewEngine(params, id, net.Party(id))
		x := shares[i]
		go func() {
			preds, err := RevealedArgmax{}.Predict(context.Background(), e, x)
			require.NoError(t, err)
			outs <- preds
		}()
	}

	for i := 0; i < 2; i++ {
		require.Equal(t, []int{1, 2, 2}, <-outs)
	}
}
