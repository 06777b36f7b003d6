package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxCondition above which the LU factors are treated as singular.
const maxCondition = 1e15

// DenseMatrix is a LinearSystem solved with gonum's LU decomposition. It
// suits small networks and serves as a reference for the sparse solver.
type DenseMatrix struct {
	size int
	a    *mat.Dense
	rhs  *mat.VecDense
	lu   mat.LU
	err  error
}

func NewDense(size int) *DenseMatrix {
	m := &DenseMatrix{size: size}
	if size > 0 {
		m.a = mat.NewDense(size, size, nil)
		m.rhs = mat.NewVecDense(size, nil)
	}
	return m
}

func (m *DenseMatrix) Size() int { return m.size }

func (m *DenseMatrix) inBounds(i, j int) bool {
	if i < 0 || j < 0 || i >= m.size || j >= m.size {
		m.err = fmt.Errorf("%w: (i=%d, j=%d, size=%d)", ErrOutOfBounds, i, j, m.size)
		return false
	}
	return true
}

func (m *DenseMatrix) AddElement(i, j int, value float64) {
	if !m.inBounds(i, j) {
		return
	}
	m.a.Set(i, j, m.a.At(i, j)+value)
}

func (m *DenseMatrix) AddRHS(i int, value float64) {
	if !m.inBounds(i, i) {
		return
	}
	m.rhs.SetVec(i, m.rhs.AtVec(i)+value)
}

func (m *DenseMatrix) Clear() {
	m.err = nil
	if m.size == 0 {
		return
	}
	m.a.Zero()
	m.rhs.Zero()
}

func (m *DenseMatrix) Solve() ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.size == 0 {
		return []float64{}, nil
	}

	m.lu.Factorize(m.a)
	if cond := m.lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > maxCondition {
		return nil, fmt.Errorf("%w: condition number %g", ErrSingular, cond)
	}

	x := mat.NewVecDense(m.size, nil)
	if err := m.lu.SolveVecTo(x, false, m.rhs); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
		return nil, fmt.Errorf("matrix solve failed: %w", err)
	}
	return x.RawVector().Data, nil
}

func (m *DenseMatrix) Summary() Summary {
	b := newSummaryBuilder(m.size)
	for i := range m.size {
		for j := range m.size {
			b.add(i, j, m.a.At(i, j))
		}
	}
	return b.summary()
}

func (m *DenseMatrix) Destroy() {}
