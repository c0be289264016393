// Package infer drives one private inference batch end to end: encode,
// split, distribute over party channels, evaluate the shared two-layer
// network with the three-party engine and reveal only the correctness
// count.
package infer

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/privml/triad/share"
	"github.com/privml/triad/transport"
)

// PartyRegistry binds each party identity to its transport channel. It is
// an explicit value handed to the [Orchestrator] at construction; there is
// no ambient global registry.
type PartyRegistry struct {
	channels map[share.PartyID]transport.Channel
}

// NewPartyRegistry instantiates an empty registry.
func NewPartyRegistry() *PartyRegistry {
	return &PartyRegistry{channels: map[share.PartyID]transport.Channel{}}
}

// Register binds a party to its channel, replacing any previous binding.
func (r *PartyRegistry) Register(id share.PartyID, ch transport.Channel) {
	r.channels[id] = ch
}

// Channel returns the channel of the given party.
func (r *PartyRegistry) Channel(id share.PartyID) (transport.Channel, error) {
	ch, ok := r.channels[id]
	if !ok {
		return nil, fmt.Errorf("infer: party %s is not registered", id)
	}
	return ch, nil
}

// Parties returns the registered party identities in ascending order.
func (r *PartyRegistry) Parties() []share.PartyID {
	ids := maps.Keys(r.channels)
	slices.Sort(ids)
	return ids
}
