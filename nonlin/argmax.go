package nonlin

import (
	"context"
	"fmt"

	"github.com/privml/triad/mpc"
	"github.com/privml/triad/share"
)

// RevealedArgmax predicts the class of each row by revealing the shared
// final-layer scores to both holders and taking the plaintext argmax.
//
// The reveal usage contract applies: this oracle may only wrap the
// network's final output, never an intermediate activation. A secure
// comparison protocol can be substituted behind [ArgmaxOracle] without
// touching the orchestrator.
type RevealedArgmax struct{}

// Predict implements [ArgmaxOracle].
func (RevealedArgmax) Predict(ctx context.Context, e *mpc.Engine, scores *share.Tensor) ([]int, error) {

	rows, cols := scores.Dims()
	if cols == 0 {
		return nil, fmt.Errorf("%w: no score columns", share.ErrShapeMismatch)
	}

	vals, err := e.RevealFloat64(ctx, scores)
	if err != nil {
		return nil, fmt.Errorf("argmax: %w", err)
	}

	out := make([]int, rows)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if vals[i*cols+j] > vals[i*cols+best] {
				best = j
			}
		}
		out[i] = best
	}

	return out, nil
}
