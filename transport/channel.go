package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privml/triad/share"
)

// ErrPartyUnreachable is returned when the counterpart of a send or receive
// does not show up before the channel timeout expires. The caller must treat
// the current batch as failed; the channel never retries.
var ErrPartyUnreachable = errors.New("transport: party unreachable")

// Channel is the abstract point-to-point transport of one party.
//
// For a single (group, tag) address, a Recv only returns after the
// corresponding Send has completed; the channel is a rendezvous point and
// performs no reordering.
type Channel interface {
	// Send delivers msg to the mailbox of the destination party.
	Send(ctx context.Context, to share.PartyID, msg *Message) error
	// Recv blocks until the message addressed by (from, group, tag) arrives.
	Recv(ctx context.Context, from share.PartyID, group uuid.UUID, tag string) (*Message, error)
}

type mailbox struct {
	to, from share.PartyID
	group    uuid.UUID
	tag      string
}

// Network is an in-memory transport connecting the parties of a single
// process. It is the deployment used by tests and by the in-process
// three-party orchestrator; each party obtains its own [Channel] view
// through [Network.Party].
type Network struct {
	mu      sync.Mutex
	boxes   map[mailbox]chan *Message
	timeout time.Duration
}

// NewNetwork instantiates a new in-memory [Network]. Every send and receive
// gives up with [ErrPartyUnreachable] after the given timeout.
func NewNetwork(timeout time.Duration) *Network {
	return &Network{
		boxes:   map[mailbox]chan *Message{},
		timeout: timeout,
	}
}

// Party returns the [Channel] view of the network for the given party.
func (n *Network) Party(id share.PartyID) Channel {
	return &localChannel{net: n, id: id}
}

func (n *Network) box(k mailbox) chan *Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	b, ok := n.boxes[k]
	if !ok {
		b = make(chan *Message, 1)
		n.boxes[k] = b
	}
	return b
}

type localChannel struct {
	net *Network
	id  share.PartyID
}

func (c *localChannel) Send(ctx context.Context, to share.PartyID, msg *Message) error {

	msg.From = c.id
	box := c.net.box(mailbox{to: to, from: c.id, group: msg.Group, tag: msg.Tag})

	timer := time.NewTimer(c.net.timeout)
	defer timer.Stop()

	select {
	case box <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: send %q to %s: %w", ErrPartyUnreachable, msg.Tag, to, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w: send %q to %s timed out after %s", ErrPartyUnreachable, msg.Tag, to, c.net.timeout)
	}
}

func (c *localChannel) Recv(ctx context.Context, from share.PartyID, group uuid.UUID, tag string) (*Message, error) {

	box := c.net.box(mailbox{to: c.id, from: from, group: group, tag: tag})

	timer := time.NewTimer(c.net.timeout)
	defer timer.Stop()

	select {
	case msg := <-box:
		return msg, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: recv %q from %s: %w", ErrPartyUnreachable, tag, from, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: recv %q from %s timed out after %s", ErrPartyUnreachable, tag, from, c.net.timeout)
	}
}
