package share

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/privml/triad/field"
	"github.com/privml/triad/sampling"
)

func testParams(t *testing.T) field.Parameters {
	p, err := field.NewParametersFromLiteral(field.ParametersLiteral{})
	require.NoError(t, err)
	return p
}

func TestTensor(t *testing.T) {

	p := testParams(t)
	group := uuid.New()

	t.Run("New", func(t *testing.T) {
		a := NewTensor(HolderA, group, p.Modulus(), p.LogScale(), []int{2, 3})
		require.Equal(t, 6, a.Size())
		rows, cols := a.Dims()
		require.Equal(t, 2, rows)
		require.Equal(t, 3, cols)
		require.Len(t, a.Values, 6)
	})

	t.Run("VectorDims", func(t *testing.T) {
		a := NewTensor(HolderA, group, p.Modulus(), p.LogScale(), []int{5})
		rows, cols := a.Dims()
		require.Equal(t, 1, rows)
		require.Equal(t, 5, cols)
	})

	t.Run("Clone", func(t *testing.T) {
		a := NewTensor(HolderA, group, p.Modulus(), p.LogScale(), []int{4})
		a.Values[0] = 7
		b := a.Clone()
		require.Empty(t, cmp.Diff(a, b))
		b.Values[0] = 8
		require.Equal(t, uint64(7), a.Values[0])
	})

	t.Run("Compatible", func(t *testing.T) {
		a := NewTensor(HolderA, group, p.Modulus(), p.LogScale(), []int{4})
		b := NewTensor(HolderB, group, p.Modulus(), p.LogScale(), []int{4})
		require.NoError(t, a.CompatibleWith(b))

		b.Modulus++
		require.ErrorIs(t, a.CompatibleWith(b), ErrFieldMismatch)
		b.Modulus--

		b.ScaleLog++
		require.ErrorIs(t, a.CompatibleWith(b), ErrFieldMismatch)
		b.ScaleLog--

		c := NewTensor(HolderB, group, p.Modulus(), p.LogScale(), []int{2, 2})
		require.ErrorIs(t, a.CompatibleWith(c), ErrShapeMismatch)
	})

	t.Run("PartyNames", func(t *testing.T) {
		require.Equal(t, "holder-A", HolderA.String())
		require.Equal(t, "holder-B", HolderB.String())
		require.Equal(t, "helper", Helper.String())
		require.Equal(t, "owner", Owner.String())
	})
}

func TestSplitter(t *testing.T) {

	p := testParams(t)
	splitter := NewSplitter(p, sampling.NewSource([32]byte{}))
	ecd := field.NewEncoder(p)

	values, err := ecd.EncodeSlice([]float64{1.5, -2.25, 0, 1000})
	require.NoError(t, err)

	t.Run("SumInvariant", func(t *testing.T) {
		for _, holders := range [][]PartyID{
			{HolderA, HolderB},
			{HolderA, HolderB, Helper},
		} {
			shares, err := splitter.Split(values, []int{4}, p.LogScale(), holders)
			require.NoError(t, err)
			require.Len(t, shares, len(holders))
			for i, s := range shares {
				require.Equal(t, holders[i], s.Holder)
				require.Equal(t, shares[0].Group, s.Group)
			}

			plain, err := Combine(len(holders), shares...)
			require.NoError(t, err)
			require.Equal(t, values, plain)
		}
	})

	t.Run("SharesLookRandom", func(t *testing.T) {
		shares, err := splitter.Split(values, []int{4}, p.LogScale(), []PartyID{HolderA, HolderB})
		require.NoError(t, err)
		// A single share must not equal the plaintext; the odds of a
		// uniform draw hitting all zeros are negligible.
		require.NotEqual(t, values, shares[0].Values)
		require.NotEqual(t, values, shares[1].Values)
	})

	t.Run("FreshGroups", func(t *testing.T) {
		s1, err := splitter.Split(values, []int{4}, p.LogScale(), []PartyID{HolderA, HolderB})
		require.NoError(t, err)
		s2, err := splitter.Split(values, []int{4}, p.LogScale(), []PartyID{HolderA, HolderB})
		require.NoError(t, err)
		require.NotEqual(t, s1[0].Group, s2[0].Group)
	})

	t.Run("SingleHolder", func(t *testing.T) {
		_, err := splitter.Split(values, []int{4}, p.LogScale(), []PartyID{HolderA})
		require.Error(t, err)
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		_, err := splitter.Split(values, []int{5}, p.LogScale(), []PartyID{HolderA, HolderB})
		require.ErrorIs(t, err, ErrShapeMismatch)
	})
}

func TestCombine(t *testing.T) {

	p := testParams(t)
	splitter := NewSplitter(p, sampling.NewSource([32]byte{}))

	values := []uint64{1, 2, 3}
	shares, err := splitter.Split(values, []int{3}, p.LogScale(), []PartyID{HolderA, HolderB})
	require.NoError(t, err)

	t.Run("WithheldShare", func(t *testing.T) {
		_, err := Combine(2, shares[0])
		require.ErrorIs(t, err, ErrIncompleteReveal)
	})

	t.Run("ForeignGroup", func(t *testing.T) {
		foreign := shares[1].Clone()
		foreign.Group = uuid.New()
		_, err := Combine(2, shares[0], foreign)
		require.Error(t, err)
	})

	t.Run("MetadataMismatch", func(t *testing.T) {
		skewed := shares[1].Clone()
		skewed.ScaleLog++
		_, err := Combine(2, shares[0], skewed)
		require.ErrorIs(t, err, ErrFieldMismatch)
	})
}
