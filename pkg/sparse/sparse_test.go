package sparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func mustBuild(t *testing.T, rows, cols int, triplets []Triplet) *Matrix {
	t.Helper()
	m, err := FromTriplets(rows, cols, triplets)
	require.NoError(t, err)
	return m
}

func TestFromTriplets(t *testing.T) {
	m := mustBuild(t, 3, 4, []Triplet{
		{Row: 2, Col: 1, Value: 5},
		{Row: 0, Col: 3, Value: 1},
		{Row: 0, Col: 0, Value: 2},
		{Row: 2, Col: 1, Value: 0.5}, // duplicate, summed
	})

	r, c := m.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, 3, m.NonZeros())
	assert.Equal(t, 5.5, m.At(2, 1))
	assert.Equal(t, 2.0, m.At(0, 0))
	assert.Equal(t, 1.0, m.At(0, 3))
	assert.Zero(t, m.At(1, 1))
	assert.Equal(t, 8.5, m.Sum())
	assert.Equal(t, 3.0, m.RowSum(0))

	assert.Equal(t, []Triplet{
		{Row: 0, Col: 0, Value: 2},
		{Row: 0, Col: 3, Value: 1},
		{Row: 2, Col: 1, Value: 5.5},
	}, m.Triplets())

	want := mat.NewDense(3, 4, []float64{
		2, 0, 0, 1,
		0, 0, 0, 0,
		0, 5.5, 0, 0,
	})
	assert.True(t, mat.Equal(want, m.ToDense()))
	assert.True(t, mat.Equal(want.T(), m.T()))
}

func TestFromTripletsOutOfRange(t *testing.T) {
	_, err := FromTriplets(2, 2, []Triplet{{Row: 2, Col: 0, Value: 1}})
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	b := NewBuilder(2, 2)
	assert.Panics(t, func() { b.Add(0, 5, 1) })
}

func TestMulVec(t *testing.T) {
	m := mustBuild(t, 2, 3, []Triplet{
		{Row: 0, Col: 0, Value: 1},
		{Row: 0, Col: 2, Value: 2},
		{Row: 1, Col: 1, Value: 3},
	})

	y, err := m.MulVec(mat.NewVecDense(3, []float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 6}, y.RawVector().Data)

	z, err := m.MulVecTrans(mat.NewVecDense(2, []float64{1, 1}))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2}, z.RawVector().Data)

	_, err = m.MulVec(mat.NewVecDense(2, nil))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestStackVertical(t *testing.T) {
	a := mustBuild(t, 2, 3, []Triplet{{Row: 0, Col: 0, Value: 1}, {Row: 1, Col: 2, Value: 2}})
	b := mustBuild(t, 4, 3, []Triplet{{Row: 0, Col: 0, Value: 3}, {Row: 3, Col: 1, Value: 4}, {Row: 2, Col: 2, Value: 5}})

	s, err := VStack(a, b)
	require.NoError(t, err)

	r, c := s.Dims()
	assert.Equal(t, 6, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, a.NonZeros()+b.NonZeros(), s.NonZeros())
	assert.Equal(t, 1.0, s.At(0, 0))
	assert.Equal(t, 3.0, s.At(2, 0))
	assert.Equal(t, 4.0, s.At(5, 1))
	assert.Equal(t, a.Sum()+b.Sum(), s.Sum())
}

func TestStackHorizontal(t *testing.T) {
	a := mustBuild(t, 2, 3, []Triplet{{Row: 0, Col: 0, Value: 1}, {Row: 1, Col: 2, Value: 2}})
	b := mustBuild(t, 2, 1, []Triplet{{Row: 1, Col: 0, Value: 7}})

	s, err := Stack([]*Matrix{a, b}, Horizontal)
	require.NoError(t, err)

	r, c := s.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, 3, s.NonZeros())
	assert.Equal(t, 7.0, s.At(1, 3))
}

func TestStackMismatch(t *testing.T) {
	a := mustBuild(t, 2, 3, nil)
	b := mustBuild(t, 2, 4, nil)

	_, err := VStack(a, b)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	_, err = HStack(a, mustBuild(t, 3, 3, nil))
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestStackEmpty(t *testing.T) {
	s, err := Stack(nil, Vertical)
	require.NoError(t, err)
	r, c := s.Dims()
	assert.Zero(t, r)
	assert.Zero(t, c)
	assert.Zero(t, s.NonZeros())
}

func TestStackUnknownAxis(t *testing.T) {
	a := mustBuild(t, 2, 3, []Triplet{{Row: 1, Col: 2, Value: 1}})
	b := mustBuild(t, 2, 3, []Triplet{{Row: 1, Col: 2, Value: 2}})

	assert.NotPanics(t, func() {
		_, err := Stack([]*Matrix{a, b}, Axis(7))
		assert.ErrorContains(t, err, "unknown axis")
	})
}

func TestBuilderSumsDuplicates(t *testing.T) {
	b := NewBuilder(2, 2)
	b.Add(1, 0, 0.25)
	b.Add(1, 0, 0.5)
	b.Add(0, 1, 1)
	assert.Equal(t, 3, b.Len())

	m := b.Build()
	assert.Equal(t, 2, m.NonZeros())
	assert.Equal(t, 0.75, m.At(1, 0))
	assert.Equal(t, 0.75, m.RowSum(1))
	assert.Equal(t, 1.75, m.Sum())
	assert.Panics(t, func() { m.At(2, 0) })
}

func TestParseAxis(t *testing.T) {
	a, err := ParseAxis("horizontal")
	require.NoError(t, err)
	assert.Equal(t, Horizontal, a)

	_, err = ParseAxis("diagonal")
	assert.Error(t, err)
}
