// Package nonlin implements the nonlinearity oracle evaluated between the
// linear layers of a shared network. The exact protocol behind the
// nonlinearity is swappable: the engine only requires that an oracle maps a
// shared tensor to a shared tensor at the same fixed-point scale.
package nonlin

import (
	"context"

	"github.com/privml/triad/mpc"
	"github.com/privml/triad/share"
)

// Oracle is the black-box nonlinearity of a shared network.
type Oracle interface {
	// Activate applies the nonlinearity element-wise to x. The result must
	// carry the same fixed-point scale as x.
	Activate(ctx context.Context, e *mpc.Engine, x *share.Tensor) (*share.Tensor, error)
}

// ArgmaxOracle maps the shared final-layer scores of a batch to the
// predicted class index of each row.
type ArgmaxOracle interface {
	Predict(ctx context.Context, e *mpc.Engine, scores *share.Tensor) ([]int, error)
}
