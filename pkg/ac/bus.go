package ac

import (
	"github.com/edp1096/toy-loadflow/pkg/equations"
)

// BusShuntTerm is the flow into a bus shunt admittance g + jb:
// p = g·v², q = −b·v².
type BusShuntTerm struct {
	v        *equations.Variable
	g, b     float64
	quantity Quantity
	vars     []*equations.Variable
}

func NewBusShuntTerm(v *equations.Variable, g, b float64, q Quantity) *BusShuntTerm {
	return &BusShuntTerm{v: v, g: g, b: b, quantity: q, vars: []*equations.Variable{v}}
}

func (t *BusShuntTerm) Variables() []*equations.Variable { return t.vars }

func (t *BusShuntTerm) Eval(x []float64) float64 {
	v := x[t.v.Column()]
	if t.quantity == ActivePower {
		return t.g * v * v
	}
	return -t.b * v * v
}

func (t *BusShuntTerm) Der(v *equations.Variable, x []float64) (float64, error) {
	if v != t.v {
		return 0, equations.UnknownVariable(v)
	}
	if t.quantity == ActivePower {
		return 2 * t.g * x[t.v.Column()], nil
	}
	return -2 * t.b * x[t.v.Column()], nil
}

// BusVoltageTerm evaluates to the bus voltage magnitude itself.
type BusVoltageTerm struct {
	v    *equations.Variable
	vars []*equations.Variable
}

func NewBusVoltageTerm(v *equations.Variable) *BusVoltageTerm {
	return &BusVoltageTerm{v: v, vars: []*equations.Variable{v}}
}

func (t *BusVoltageTerm) Variables() []*equations.Variable { return t.vars }

func (t *BusVoltageTerm) Eval(x []float64) float64 {
	return x[t.v.Column()]
}

func (t *BusVoltageTerm) Der(v *equations.Variable, x []float64) (float64, error) {
	if v != t.v {
		return 0, equations.UnknownVariable(v)
	}
	return 1, nil
}
