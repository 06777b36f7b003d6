package equations

import (
	"fmt"

	"github.com/edp1096/toy-loadflow/pkg/lferrors"
)

type EquationType int

const (
	EqBusP EquationType = iota // Active power injection balance
	EqBusQ                     // Reactive power injection balance
	EqBusV                     // Voltage magnitude setpoint
)

func (t EquationType) String() string {
	switch t {
	case EqBusP:
		return "BUS_P"
	case EqBusQ:
		return "BUS_Q"
	case EqBusV:
		return "BUS_V"
	default:
		return "UNKNOWN"
	}
}

type EquationKey struct {
	Bus  int
	Type EquationType
}

// Term is one contribution to an equation. Implementations must not keep
// state derived from x, so a term can be evaluated concurrently against
// different state vectors.
type Term interface {
	Eval(x []float64) float64
	// Der returns the partial derivative with respect to v. It fails with
	// lferrors.ErrUnknownVariable when v is not one of Variables().
	Der(v *Variable, x []float64) (float64, error)
	Variables() []*Variable
}

// Equation is one row of the nonlinear system: Target − Σ terms = 0.
type Equation struct {
	key    EquationKey
	row    int
	Target float64
	terms  []Term
	ctx    *Context
}

func (e *Equation) Key() EquationKey { return e.key }
func (e *Equation) Bus() int { return e.key.Bus }
func (e *Equation) Type() EquationType { return e.key.Type }

// Row is the residual/Jacobian row, -1 before the context is indexed.
func (e *Equation) Row() int { return e.row }

func (e *Equation) Terms() []Term { return e.terms }

// AddTerm appends t. Registering the same term twice is a caller error.
func (e *Equation) AddTerm(t Term) error {
	if e.ctx != nil && e.ctx.indexed {
		return lferrors.Config("add term", e.String(), lferrors.ErrFrozenContext)
	}
	for _, existing := range e.terms {
		if existing == t {
			return lferrors.Config("add term", e.String(), lferrors.ErrDuplicateTerm)
		}
	}
	e.terms = append(e.terms, t)
	return nil
}

// Eval sums the terms in registration order.
func (e *Equation) Eval(x []float64) float64 {
	value := 0.0
	for _, t := range e.terms {
		value += t.Eval(x)
	}
	return value
}

// Residual is Target − Eval(x).
func (e *Equation) Residual(x []float64) float64 {
	return e.Target - e.Eval(x)
}

// Der sums the derivatives of the terms depending on v, 0 when none does.
func (e *Equation) Der(v *Variable, x []float64) (float64, error) {
	value := 0.0
	for _, t := range e.terms {
		if !DependsOn(t, v) {
			continue
		}
		d, err := t.Der(v, x)
		if err != nil {
			return 0, fmt.Errorf("equation %s: %w", e, err)
		}
		value += d
	}
	return value, nil
}

func (e *Equation) String() string {
	return fmt.Sprintf("Equation(bus=%d, type=%s, row=%d)", e.key.Bus, e.key.Type, e.row)
}

func DependsOn(t Term, v *Variable) bool {
	for _, tv := range t.Variables() {
		if tv == v {
			return true
		}
	}
	return false
}

// UnknownVariable is the error terms return from Der for a variable they do
// not read.
func UnknownVariable(v *Variable) error {
	return lferrors.Config("der", v.String(), lferrors.ErrUnknownVariable)
}
