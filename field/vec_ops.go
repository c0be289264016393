package field

import (
	"fmt"
)

// AddVec evaluates p3 = p1 + p2 (mod modulus).
// p1, p2, p3 must be of the same size.
func AddVec(p1, p2, p3 []uint64, modulus uint64) {

	N := len(p1)

	if len(p2) != N || len(p3) != N {
		panic(fmt.Errorf("len(p1)=%d len(p2)=%d len(p3)=%d", N, len(p2), len(p3)))
	}

	for i := 0; i < N; i++ {
		p3[i] = CRed(p1[i]+p2[i], modulus)
	}
}

// SubVec evaluates p3 = p1 - p2 (mod modulus).
// p1, p2, p3 must be of the same size.
func SubVec(p1, p2, p3 []uint64, modulus uint64) {

	N := len(p1)

	if len(p2) != N || len(p3) != N {
		panic(fmt.Errorf("len(p1)=%d len(p2)=%d len(p3)=%d", N, len(p2), len(p3)))
	}

	for i := 0; i < N; i++ {
		p3[i] = CRed((p1[i]+modulus)-p2[i], modulus)
	}
}

// NegVec evaluates p2 = -p1 (mod modulus).
// p1, p2 must be of the same size.
func NegVec(p1, p2 []uint64, modulus uint64) {

	N := len(p1)

	if len(p2) != N {
		panic(fmt.Errorf("len(p1)=%d len(p2)=%d", N, len(p2)))
	}

	for i := 0; i < N; i++ {
		p2[i] = NegMod(p1[i], modulus)
	}
}

// MulVec evaluates p3 = p1 * p2 (mod modulus) coefficient-wise.
// p1, p2, p3 must be of the same size.
func MulVec(p1, p2, p3 []uint64, modulus uint64) {

	N := len(p1)

	if len(p2) != N || len(p3) != N {
		panic(fmt.Errorf("len(p1)=%d len(p2)=%d len(p3)=%d", N, len(p2), len(p3)))
	}

	for i := 0; i < N; i++ {
		p3[i] = MulMod(p1[i], p2[i], modulus)
	}
}

// MulScalarVec evaluates p2 = p1 * scalar (mod modulus).
// p1, p2 must be of the same size and scalar < modulus.
func MulScalarVec(p1 []uint64, scalar uint64, p2 []uint64, modulus uint64) {

	N := len(p1)

	if len(p2) != N {
		panic(fmt.Errorf("len(p1)=%d len(p2)=%d", N, len(p2)))
	}

	for i := 0; i < N; i++ {
		p2[i] = MulMod(p1[i], scalar, modulus)
	}
}

// MatMulMod evaluates the (rows x inner) x (inner x cols) matrix product of the
// flat row-major operands p1 and p2 (mod modulus) and writes the flat row-major
// (rows x cols) result on p3.
func MatMulMod(p1, p2, p3 []uint64, rows, inner, cols int, modulus uint64) {

	if len(p1) != rows*inner || len(p2) != inner*cols || len(p3) != rows*cols {
		panic(fmt.Errorf("len(p1)=%d len(p2)=%d len(p3)=%d for dims (%d, %d, %d)", len(p1), len(p2), len(p3), rows, inner, cols))
	}

	for i := 0; i < rows; i++ {
		MatMulModRow(p1, p2, p3, i, inner, cols, modulus)
	}
}

// MatMulModRow evaluates row i of the matrix product computed by [MatMulMod].
// Rows are independent, so distinct rows can be evaluated concurrently.
func MatMulModRow(p1, p2, p3 []uint64, i, inner, cols int, modulus uint64) {
	for j := 0; j < cols; j++ {
		var acc uint64
		for k := 0; k < inner; k++ {
			acc = CRed(acc+MulMod(p1[i*inner+k], p2[k*cols+j], modulus), modulus)
		}
		p3[i*cols+j] = acc
	}
}
