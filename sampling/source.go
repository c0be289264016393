// Package sampling implements a deterministic cryptographically secure
// randomness source expanded from a 256-bit seed with the BLAKE2b XOF.
package sampling

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/blake2b"
)

const bufferSize = 512

// Source is a deterministic stream of pseudo-random bytes expanded from a
// 256-bit seed. Two sources instantiated with the same seed produce the same
// stream, which lets parties derive correlated randomness without exchanging it.
//
// A Source is not safe for concurrent use; derive one source per goroutine
// with [Source.NewSource].
type Source struct {
	seed [32]byte
	xof  blake2b.XOF
	buf  [bufferSize]byte
	ptr  int
}

// NewSeed returns a fresh seed from crypto/rand.
// A weak seed voids the confidentiality of every share derived from it.
func NewSeed() (seed [32]byte) {
	if _, err := rand.Read(seed[:]); err != nil {
		panic(err)
	}
	return
}

// NewSource instantiates a new [Source] from a 256-bit seed.
func NewSource(seed [32]byte) (s *Source) {
	s = &Source{seed: seed, ptr: bufferSize}
	var err error
	if s.xof, err = blake2b.NewXOF(blake2b.OutputLengthUnknown, nil); err != nil {
		panic(err)
	}
	if _, err = s.xof.Write(seed[:]); err != nil {
		panic(err)
	}
	return
}

// Seed returns the seed of the receiver.
func (s *Source) Seed() [32]byte {
	return s.seed
}

// NewSource returns a new [Source] whose seed is derived from the stream of
// the receiver. The child source can be used concurrently with the receiver.
func (s *Source) NewSource() *Source {
	var seed [32]byte
	s.Read(seed[:])
	return NewSource(seed)
}

// Read fills p with pseudo-random bytes. It never returns an error.
func (s *Source) Read(p []byte) (n int, err error) {
	n = len(p)
	for len(p) > 0 {
		if s.ptr == bufferSize {
			if _, err = io.ReadFull(s.xof, s.buf[:]); err != nil {
				panic(err)
			}
			s.ptr = 0
		}
		m := copy(p, s.buf[s.ptr:])
		s.ptr += m
		p = p[m:]
	}
	return
}

// Uint64 returns the next 8 bytes of the stream as an unsigned integer.
func (s *Source) Uint64() uint64 {
	var b [8]byte
	s.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}
