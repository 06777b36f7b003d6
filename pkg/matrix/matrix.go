package matrix

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrSingular    = errors.New("singular matrix")
	ErrOutOfBounds = errors.New("matrix index out of bounds")
)

// Accumulator receives Jacobian entries and right hand side values of one
// Newton-Raphson iteration. Indices are 0-based.
type Accumulator interface {
	AddElement(i, j int, value float64)
	AddRHS(i int, value float64)
}

// LinearSystem is an Accumulator that can solve J·x = rhs. One instance
// belongs to one solve session.
type LinearSystem interface {
	Accumulator
	Size() int
	Clear()
	Solve() ([]float64, error)
	Summary() Summary
	Destroy()
}

type Kind string

const (
	KindSparse Kind = "sparse"
	KindDense  Kind = "dense"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindSparse:
		return KindSparse, nil
	case KindDense:
		return KindDense, nil
	default:
		return "", fmt.Errorf("unknown linear solver %q", s)
	}
}

// UnmarshalYAML accepts the same spellings as ParseKind.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*k = parsed
	return nil
}

func New(kind Kind, size int) (LinearSystem, error) {
	switch kind {
	case KindDense:
		return NewDense(size), nil
	case KindSparse, "":
		return NewSparse(size)
	default:
		return nil, fmt.Errorf("unknown linear solver %q", kind)
	}
}

// Summary describes the loaded matrix before factorization.
type Summary struct {
	Size         int
	NonZeros     int
	LargestAbs   float64
	SmallestAbs  float64
	SmallestDiag float64
	Density      float64
}

type summaryBuilder struct {
	s Summary
}

func newSummaryBuilder(size int) *summaryBuilder {
	return &summaryBuilder{s: Summary{Size: size, SmallestAbs: math.MaxFloat64, SmallestDiag: math.MaxFloat64}}
}

func (b *summaryBuilder) add(i, j int, value float64) {
	if value == 0 {
		if i == j {
			b.s.SmallestDiag = 0
		}
		return
	}
	a := math.Abs(value)
	b.s.NonZeros++
	b.s.LargestAbs = math.Max(b.s.LargestAbs, a)
	b.s.SmallestAbs = math.Min(b.s.SmallestAbs, a)
	if i == j {
		b.s.SmallestDiag = math.Min(b.s.SmallestDiag, a)
	}
}

func (b *summaryBuilder) summary() Summary {
	s := b.s
	if s.NonZeros == 0 {
		s.SmallestAbs = 0
	}
	if s.SmallestDiag == math.MaxFloat64 {
		s.SmallestDiag = 0
	}
	if s.Size > 0 {
		s.Density = float64(s.NonZeros) * 100 / float64(s.Size*s.Size)
	}
	return s
}
