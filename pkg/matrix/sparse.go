package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"
)

// SparseMatrix is a real LinearSystem backed by github.com/edp1096/sparse.
// The library is 1-based; this type shifts indices so callers stay 0-based.
type SparseMatrix struct {
	size     int
	matrix   *sparse.Matrix
	rhs      []float64
	solution []float64
	config   *sparse.Configuration
	elements map[[2]int]*sparse.Element
	err      error
}

func NewSparse(size int) (*SparseMatrix, error) {
	m := &SparseMatrix{
		size:     size,
		rhs:      make([]float64, size+1), // 1-based indexing
		solution: make([]float64, size),
		elements: make(map[[2]int]*sparse.Element),
	}
	if size == 0 {
		return m, nil
	}

	m.config = &sparse.Configuration{
		Real:                    true,
		Complex:                 false,
		SeparatedComplexVectors: false,
		Expandable:              true,
		Translate:               false,
		ModifiedNodal:           false,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), m.config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}
	m.matrix = mat
	return m, nil
}

// Reserve creates the (i, j) element ahead of the first load so the
// structure is known before the first factorization.
func (m *SparseMatrix) Reserve(i, j int) {
	if !m.inBounds(i, j) {
		return
	}
	m.element(i, j)
}

func (m *SparseMatrix) element(i, j int) *sparse.Element {
	key := [2]int{i, j}
	if e, ok := m.elements[key]; ok {
		return e
	}
	e := m.matrix.GetElement(int64(i+1), int64(j+1))
	m.elements[key] = e
	return e
}

func (m *SparseMatrix) Size() int { return m.size }

func (m *SparseMatrix) inBounds(i, j int) bool {
	if i < 0 || j < 0 || i >= m.size || j >= m.size {
		m.err = fmt.Errorf("%w: (i=%d, j=%d, size=%d)", ErrOutOfBounds, i, j, m.size)
		return false
	}
	return true
}

func (m *SparseMatrix) AddElement(i, j int, value float64) {
	if !m.inBounds(i, j) {
		return
	}
	m.element(i, j).Real += value
}

func (m *SparseMatrix) AddRHS(i int, value float64) {
	if !m.inBounds(i, i) {
		return
	}
	m.rhs[i+1] += value
}

func (m *SparseMatrix) Clear() {
	if m.matrix != nil {
		m.matrix.Clear()
	}
	for i := range m.rhs {
		m.rhs[i] = 0
	}
	m.err = nil
}

func (m *SparseMatrix) Solve() ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.size == 0 {
		return m.solution, nil
	}

	if err := m.matrix.Factor(); err != nil {
		return nil, fmt.Errorf("%w: factorization failed: %v", ErrSingular, err)
	}

	solution, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return nil, fmt.Errorf("matrix solve failed: %w", err)
	}
	copy(m.solution, solution[1:m.size+1])
	return m.solution, nil
}

// Summary reads the loaded values back; call it before Solve since the
// factorization overwrites them.
func (m *SparseMatrix) Summary() Summary {
	b := newSummaryBuilder(m.size)
	for key, e := range m.elements {
		b.add(key[0], key[1], e.Real)
	}
	return b.summary()
}

func (m *SparseMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}
