// Package transport implements the point-to-point channel delivering share
// payloads between named parties. A channel is a rendezvous point addressed
// by party id, share group id and a protocol step tag; it is not a queue.
package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/privml/triad/share"
)

// Message is the only payload exchanged between parties: a flat vector of
// field elements together with the metadata required to interpret it.
type Message struct {
	Group    uuid.UUID
	From     share.PartyID
	Tag      string
	ScaleLog int
	Shape    []int
	Values   []uint64
}

// TensorMessage wraps a share tensor into a [Message] for the given protocol step.
func TensorMessage(tag string, t *share.Tensor) *Message {
	return &Message{
		Group:    t.Group,
		From:     t.Holder,
		Tag:      tag,
		ScaleLog: t.ScaleLog,
		Shape:    t.Shape,
		Values:   t.Values,
	}
}

// Tensor converts the message back into a share tensor over the field of
// modulus q, owned by the sending party.
func (m *Message) Tensor(q uint64) *share.Tensor {
	return &share.Tensor{
		Holder:   m.From,
		Group:    m.Group,
		Modulus:  q,
		ScaleLog: m.ScaleLog,
		Shape:    append([]int(nil), m.Shape...),
		Values:   m.Values,
	}
}

const maxTagLen = 255

// WriteTo writes the message on w in its wire format. It implements the
// io.WriterTo interface.
func (m *Message) WriteTo(w io.Writer) (n int64, err error) {

	if len(m.Tag) > maxTagLen {
		return 0, fmt.Errorf("transport: tag longer than %d bytes", maxTagLen)
	}

	header := make([]byte, 0, 32+len(m.Tag))
	header = append(header, m.Group[:]...)
	header = append(header, byte(m.From), byte(len(m.Tag)))
	header = append(header, m.Tag...)
	header = binary.BigEndian.AppendUint32(header, uint32(m.ScaleLog))
	header = binary.BigEndian.AppendUint32(header, uint32(len(m.Shape)))
	for _, d := range m.Shape {
		header = binary.BigEndian.AppendUint32(header, uint32(d))
	}
	header = binary.BigEndian.AppendUint64(header, uint64(len(m.Values)))

	written, err := w.Write(header)
	n = int64(written)
	if err != nil {
		return n, err
	}

	body := make([]byte, 8*len(m.Values))
	for i, v := range m.Values {
		binary.BigEndian.PutUint64(body[8*i:], v)
	}

	written, err = w.Write(body)
	return n + int64(written), err
}

// ReadFrom reads a message in its wire format from r. It implements the
// io.ReaderFrom interface.
func (m *Message) ReadFrom(r io.Reader) (n int64, err error) {

	fixed := make([]byte, 18)
	read, err := io.ReadFull(r, fixed)
	n = int64(read)
	if err != nil {
		return n, err
	}

	copy(m.Group[:], fixed[:16])
	m.From = share.PartyID(fixed[16])

	tag := make([]byte, fixed[17])
	read, err = io.ReadFull(r, tag)
	n += int64(read)
	if err != nil {
		return n, err
	}
	m.Tag = string(tag)

	meta := make([]byte, 8)
	read, err = io.ReadFull(r, meta)
	n += int64(read)
	if err != nil {
		return n, err
	}
	m.ScaleLog = int(int32(binary.BigEndian.Uint32(meta[:4])))

	rank := int(binary.BigEndian.Uint32(meta[4:]))
	shape := make([]byte, 4*rank)
	read, err = io.ReadFull(r, shape)
	n += int64(read)
	if err != nil {
		return n, err
	}
	m.Shape = make([]int, rank)
	for i := range m.Shape {
		m.Shape[i] = int(binary.BigEndian.Uint32(shape[4*i:]))
	}

	var count [8]byte
	read, err = io.ReadFull(r, count[:])
	n += int64(read)
	if err != nil {
		return n, err
	}

	body := make([]byte, 8*binary.BigEndian.Uint64(count[:]))
	read, err = io.ReadFull(r, body)
	n += int64(read)
	if err != nil {
		return n, err
	}

	m.Values = make([]uint64, len(body)/8)
	for i := range m.Values {
		m.Values[i] = binary.BigEndian.Uint64(body[8*i:])
	}

	return n, nil
}
