// Package sparse provides the compressed sparse matrices produced by overlap
// assembly. Matrices are built once from a list of triplets and are
// immutable afterwards. Storage and arithmetic come from
// github.com/james-bowman/sparse; the types satisfy gonum's mat.Matrix, so
// they can be handed to any gonum-based solver.
package sparse

import (
	"errors"
	"fmt"
	"sort"

	jsparse "github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when matrix or vector shapes disagree.
var ErrDimensionMismatch = errors.New("sparse: dimension mismatch")

// Triplet is a single (row, column, value) entry.
type Triplet struct {
	Row, Col int
	Value    float64
}

// Matrix is a compressed sparse row matrix.
type Matrix struct {
	rows, cols int
	csr        *jsparse.CSR
}

var (
	_ mat.Matrix      = (*Matrix)(nil)
	_ mat.NonZeroDoer = (*Matrix)(nil)
)

// Builder collects entries in a dictionary of keys and compresses them once
// in Build.
type Builder struct {
	rows, cols int
	added      int
	dok        *jsparse.DOK
}

// NewBuilder returns a builder for a rows×cols matrix.
func NewBuilder(rows, cols int) *Builder {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("sparse: negative dimension %d×%d", rows, cols))
	}
	return &Builder{rows: rows, cols: cols, dok: jsparse.NewDOK(rows, cols)}
}

// Add records value at (row, col); values at the same position are summed.
// Add panics if the position lies outside the matrix.
func (b *Builder) Add(row, col int, value float64) {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		panic(fmt.Sprintf("sparse: index (%d, %d) out of range for %d×%d", row, col, b.rows, b.cols))
	}
	b.dok.Set(row, col, b.dok.At(row, col)+value)
	b.added++
}

// Len returns the number of recorded entries, duplicates included.
func (b *Builder) Len() int {
	return b.added
}

// Build compresses the collected entries.
func (b *Builder) Build() *Matrix {
	return &Matrix{rows: b.rows, cols: b.cols, csr: b.dok.ToCSR()}
}

// FromTriplets builds a rows×cols matrix, summing duplicate positions.
func FromTriplets(rows, cols int, triplets []Triplet) (*Matrix, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: negative shape %d×%d", ErrDimensionMismatch, rows, cols)
	}
	b := NewBuilder(rows, cols)
	for _, t := range triplets {
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			return nil, fmt.Errorf("%w: entry (%d, %d) outside %d×%d", ErrDimensionMismatch, t.Row, t.Col, rows, cols)
		}
		b.Add(t.Row, t.Col, t.Value)
	}
	return b.Build(), nil
}

// Dims returns the number of rows and columns.
func (m *Matrix) Dims() (r, c int) {
	return m.rows, m.cols
}

// At returns the value at (i, j), zero when nothing is stored there.
func (m *Matrix) At(i, j int) float64 {
	if i < 0 || i >= m.rows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= m.cols {
		panic(mat.ErrColAccess)
	}
	return m.csr.At(i, j)
}

// T returns the transpose, sharing storage with m.
func (m *Matrix) T() mat.Matrix {
	return m.csr.T()
}

// CSR exposes the underlying compressed matrix.
func (m *Matrix) CSR() *jsparse.CSR {
	return m.csr
}

// NonZeros returns the number of stored entries.
func (m *Matrix) NonZeros() int {
	return m.csr.NNZ()
}

// DoNonZero calls fn for every stored entry, row by row.
func (m *Matrix) DoNonZero(fn func(i, j int, v float64)) {
	m.csr.DoNonZero(fn)
}

// Triplets returns the stored entries sorted by row, then column.
func (m *Matrix) Triplets() []Triplet {
	out := make([]Triplet, 0, m.NonZeros())
	m.csr.DoNonZero(func(i, j int, v float64) {
		out = append(out, Triplet{Row: i, Col: j, Value: v})
	})
	sort.Slice(out, func(a, b int) bool {
		if out[a].Row != out[b].Row {
			return out[a].Row < out[b].Row
		}
		return out[a].Col < out[b].Col
	})
	return out
}

// Sum returns the sum of all stored values.
func (m *Matrix) Sum() float64 {
	sum := 0.0
	m.csr.DoNonZero(func(_, _ int, v float64) {
		sum += v
	})
	return sum
}

// RowSum returns the sum of row i.
func (m *Matrix) RowSum(i int) float64 {
	sum := 0.0
	m.csr.DoRowNonZero(i, func(_, _ int, v float64) {
		sum += v
	})
	return sum
}

// MulVec returns m·x.
func (m *Matrix) MulVec(x mat.Vector) (*mat.VecDense, error) {
	if x.Len() != m.cols {
		return nil, fmt.Errorf("%w: %d×%d matrix times vector of length %d", ErrDimensionMismatch, m.rows, m.cols, x.Len())
	}
	return m.mulVec(m.rows, false, x), nil
}

// MulVecTrans returns mᵀ·x.
func (m *Matrix) MulVecTrans(x mat.Vector) (*mat.VecDense, error) {
	if x.Len() != m.rows {
		return nil, fmt.Errorf("%w: transpose of %d×%d matrix times vector of length %d", ErrDimensionMismatch, m.rows, m.cols, x.Len())
	}
	return m.mulVec(m.cols, true, x), nil
}

func (m *Matrix) mulVec(n int, trans bool, x mat.Vector) *mat.VecDense {
	if n == 0 {
		return &mat.VecDense{}
	}
	dst := mat.NewVecDense(n, nil)
	if m.rows > 0 && m.cols > 0 {
		m.csr.MulVecTo(dst.RawVector().Data, trans, mat.Col(nil, 0, x))
	}
	return dst
}

// ToDense expands the matrix. Intended for small matrices and tests.
func (m *Matrix) ToDense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	return m.csr.ToDense()
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%d×%d sparse matrix with %d non-zero entries", m.rows, m.cols, m.NonZeros())
}
