package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privml/triad/share"
)

type address struct {
	from  share.PartyID
	group uuid.UUID
	tag   string
}

// TCPChannel is the [Channel] of one party deployed over TCP connections to
// its counterparts. A background reader per connection demultiplexes inbound
// messages into per-address mailboxes with the same rendezvous semantics as
// the in-memory [Network].
type TCPChannel struct {
	id      share.PartyID
	timeout time.Duration

	mu    sync.Mutex
	peers map[share.PartyID]*peerConn
	boxes map[address]chan *Message
}

type peerConn struct {
	mu   sync.Mutex
	conn net.Conn
	w    *bufio.Writer
}

// NewTCPChannel instantiates the TCP channel of the given party.
// Connections to counterparts are registered with [TCPChannel.Connect].
func NewTCPChannel(id share.PartyID, timeout time.Duration) *TCPChannel {
	return &TCPChannel{
		id:      id,
		timeout: timeout,
		peers:   map[share.PartyID]*peerConn{},
		boxes:   map[address]chan *Message{},
	}
}

// Connect registers the connection to a counterpart and starts its reader.
// The caller decides who dials and who listens; the channel only assumes a
// full-duplex stream per counterpart.
func (c *TCPChannel) Connect(peer share.PartyID, conn net.Conn) {
	pc := &peerConn{conn: conn, w: bufio.NewWriter(conn)}
	c.mu.Lock()
	c.peers[peer] = pc
	c.mu.Unlock()
	go c.readLoop(peer, conn)
}

// Close closes all registered connections.
func (c *TCPChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var first error
	for _, pc := range c.peers {
		if err := pc.conn.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *TCPChannel) readLoop(peer share.PartyID, conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		msg := new(Message)
		if _, err := msg.ReadFrom(r); err != nil {
			return
		}
		msg.From = peer
		c.box(address{from: peer, group: msg.Group, tag: msg.Tag}) <- msg
	}
}

func (c *TCPChannel) box(k address) chan *Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.boxes[k]
	if !ok {
		b = make(chan *Message, 1)
		c.boxes[k] = b
	}
	return b
}

// Send implements [Channel]. It fails with [ErrPartyUnreachable] if the
// counterpart is not registered or the write does not complete in time.
func (c *TCPChannel) Send(ctx context.Context, to share.PartyID, msg *Message) error {

	c.mu.Lock()
	pc, ok := c.peers[to]
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: no connection to %s", ErrPartyUnreachable, to)
	}

	msg.From = c.id

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if err := pc.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrPartyUnreachable, err)
	}

	if _, err := msg.WriteTo(pc.w); err != nil {
		return fmt.Errorf("%w: send %q to %s: %v", ErrPartyUnreachable, msg.Tag, to, err)
	}

	if err := pc.w.Flush(); err != nil {
		return fmt.Errorf("%w: send %q to %s: %v", ErrPartyUnreachable, msg.Tag, to, err)
	}

	return nil
}

// Recv implements [Channel].
func (c *TCPChannel) Recv(ctx context.Context, from share.PartyID, group uuid.UUID, tag string) (*Message, error) {

	box := c.box(address{from: from, group: group, tag: tag})

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case msg := <-box:
		return msg, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: recv %q from %s: %w", ErrPartyUnreachable, tag, from, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: recv %q from %s timed out after %s", ErrPartyUnreachable, tag, from, c.timeout)
	}
}
