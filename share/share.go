// Package share implements the data model of additive secret sharing:
// party identities, tensors of shares and the splitting and recombination
// of plaintext field vectors.
package share

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PartyID identifies a logical party of the protocol.
type PartyID uint8

const (
	// HolderA is the first share holder.
	HolderA PartyID = iota
	// HolderB is the second share holder.
	HolderB
	// Helper is the semi-honest party providing correlated randomness.
	// It never observes secret operands or masked differences.
	Helper
	// Owner is the data owner: the only party holding plaintext tensors,
	// before splitting and after the final reconstruction.
	Owner
)

func (id PartyID) String() string {
	switch id {
	case HolderA:
		return "holder-A"
	case HolderB:
		return "holder-B"
	case Helper:
		return "helper"
	case Owner:
		return "owner"
	default:
		return fmt.Sprintf("party-%d", uint8(id))
	}
}

// ErrShapeMismatch is returned when operand tensors have incompatible shapes.
var ErrShapeMismatch = errors.New("share: mismatched tensor shapes")

// ErrFieldMismatch is returned when operand tensors carry different
// field parameters (modulus or fixed-point scale).
var ErrFieldMismatch = errors.New("share: mismatched field parameters")

// ErrIncompleteReveal is returned when fewer shares than holders are
// available to reconstruct a secret.
var ErrIncompleteReveal = errors.New("share: fewer shares than holders")

// Size returns the number of elements of a tensor of the given shape.
func Size(shape []int) (size int) {
	size = 1
	for _, d := range shape {
		size *= d
	}
	return
}

// Tensor is a single holder's additive share of a secret tensor.
//
// The secret is the element-wise sum mod Modulus of the Values of all
// holders' tensors belonging to the same share group. Values are flat,
// row-major and live in [0, Modulus). ScaleLog tracks the fixed-point
// scale 2^ScaleLog of the underlying plaintext; it doubles after a
// secret multiplication until rescaled.
type Tensor struct {
	Holder   PartyID
	Group    uuid.UUID
	Modulus  uint64
	ScaleLog int
	Shape    []int
	Values   []uint64
}

// NewTensor allocates a zero share tensor of the given shape.
func NewTensor(holder PartyID, group uuid.UUID, modulus uint64, scaleLog int, shape []int) *Tensor {
	return &Tensor{
		Holder:   holder,
		Group:    group,
		Modulus:  modulus,
		ScaleLog: scaleLog,
		Shape:    append([]int(nil), shape...),
		Values:   make([]uint64, Size(shape)),
	}
}

// Size returns the number of elements of the tensor.
func (t *Tensor) Size() int {
	return Size(t.Shape)
}

// Dims returns the tensor as a (rows, cols) matrix. Vectors are
// interpreted as a single row.
func (t *Tensor) Dims() (rows, cols int) {
	switch len(t.Shape) {
	case 1:
		return 1, t.Shape[0]
	case 2:
		return t.Shape[0], t.Shape[1]
	default:
		panic(fmt.Errorf("share: tensor of rank %d has no matrix dimensions", len(t.Shape)))
	}
}

// Clone returns a deep copy of the tensor.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Holder:   t.Holder,
		Group:    t.Group,
		Modulus:  t.Modulus,
		ScaleLog: t.ScaleLog,
		Shape:    append([]int(nil), t.Shape...),
		Values:   append([]uint64(nil), t.Values...),
	}
}

// SameShape returns whether the receiver and the operand have identical shapes.
func (t *Tensor) SameShape(other *Tensor) bool {
	if len(t.Shape) != len(other.Shape) {
		return false
	}
	for i := range t.Shape {
		if t.Shape[i] != other.Shape[i] {
			return false
		}
	}
	return true
}

// CompatibleWith returns an error if the receiver and the operand cannot be
// combined element-wise: [ErrFieldMismatch] if their moduli or scales differ,
// [ErrShapeMismatch] if their shapes differ.
func (t *Tensor) CompatibleWith(other *Tensor) error {
	if t.Modulus != other.Modulus {
		return fmt.Errorf("%w: moduli %d != %d", ErrFieldMismatch, t.Modulus, other.Modulus)
	}
	if t.ScaleLog != other.ScaleLog {
		return fmt.Errorf("%w: scales 2^%d != 2^%d", ErrFieldMismatch, t.ScaleLog, other.ScaleLog)
	}
	if !t.SameShape(other) {
		return fmt.Errorf("%w: %v != %v", ErrShapeMismatch, t.Shape, other.Shape)
	}
	return nil
}
