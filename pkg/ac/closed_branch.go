package ac

import (
	"math"
	"math/cmplx"

	"github.com/edp1096/toy-loadflow/pkg/equations"
	"github.com/edp1096/toy-loadflow/pkg/network"
)

// ClosedBranch binds a branch connected on both sides to the voltage
// variables of its two buses. The ratio and phase shift sit on side 1:
// V1' = r1·e^(j·a1)·V1, V2' = r2·e^(j·a2)·V2, and the pi-model lies
// between V1' and V2'.
type ClosedBranch struct {
	bc      *network.BranchCharacteristics
	v1, ph1 *equations.Variable
	v2, ph2 *equations.Variable
	vars    []*equations.Variable
}

func NewClosedBranch(bc *network.BranchCharacteristics, v1, ph1, v2, ph2 *equations.Variable) *ClosedBranch {
	return &ClosedBranch{
		bc:   bc,
		v1:   v1,
		ph1:  ph1,
		v2:   v2,
		ph2:  ph2,
		vars: []*equations.Variable{v1, ph1, v2, ph2},
	}
}

func (b *ClosedBranch) state(x []float64) (v1, ph1, v2, ph2 float64) {
	return x[b.v1.Column()], x[b.ph1.Column()], x[b.v2.Column()], x[b.ph2.Column()]
}

func (b *ClosedBranch) theta1(ph1, ph2 float64) float64 {
	return b.bc.Ksi() - b.bc.A1() + b.bc.A2() - ph1 + ph2
}

func (b *ClosedBranch) theta2(ph1, ph2 float64) float64 {
	return b.bc.Ksi() + b.bc.A1() - b.bc.A2() + ph1 - ph2
}

func (b *ClosedBranch) P1(x []float64) float64 {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	r1, r2, y := bc.R1(), bc.R2(), bc.Y()
	return r1 * v1 * (bc.G1()*r1*v1 + y*r1*v1*math.Sin(bc.Ksi()) - y*r2*v2*math.Sin(b.theta1(ph1, ph2)))
}

func (b *ClosedBranch) Q1(x []float64) float64 {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	r1, r2, y := bc.R1(), bc.R2(), bc.Y()
	return r1 * v1 * (-bc.B1()*r1*v1 + y*r1*v1*math.Cos(bc.Ksi()) - y*r2*v2*math.Cos(b.theta1(ph1, ph2)))
}

func (b *ClosedBranch) P2(x []float64) float64 {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	r1, r2, y := bc.R1(), bc.R2(), bc.Y()
	return r2 * v2 * (bc.G2()*r2*v2 - y*r1*v1*math.Sin(b.theta2(ph1, ph2)) + y*r2*v2*math.Sin(bc.Ksi()))
}

func (b *ClosedBranch) Q2(x []float64) float64 {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	r1, r2, y := bc.R1(), bc.R2(), bc.Y()
	return r2 * v2 * (-bc.B2()*r2*v2 - y*r1*v1*math.Cos(b.theta2(ph1, ph2)) + y*r2*v2*math.Cos(bc.Ksi()))
}

func (b *ClosedBranch) dP1(v *equations.Variable, x []float64) (float64, error) {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	r1, r2, y := bc.R1(), bc.R2(), bc.Y()
	theta := b.theta1(ph1, ph2)
	switch v {
	case b.v1:
		return r1 * (2*bc.G1()*r1*v1 + 2*y*r1*v1*math.Sin(bc.Ksi()) - y*r2*v2*math.Sin(theta)), nil
	case b.v2:
		return -y * r1 * r2 * v1 * math.Sin(theta), nil
	case b.ph1:
		return y * r1 * r2 * v1 * v2 * math.Cos(theta), nil
	case b.ph2:
		return -y * r1 * r2 * v1 * v2 * math.Cos(theta), nil
	}
	return 0, equations.UnknownVariable(v)
}

func (b *ClosedBranch) dQ1(v *equations.Variable, x []float64) (float64, error) {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	r1, r2, y := bc.R1(), bc.R2(), bc.Y()
	theta := b.theta1(ph1, ph2)
	switch v {
	case b.v1:
		return r1 * (-2*bc.B1()*r1*v1 + 2*y*r1*v1*math.Cos(bc.Ksi()) - y*r2*v2*math.Cos(theta)), nil
	case b.v2:
		return -y * r1 * r2 * v1 * math.Cos(theta), nil
	case b.ph1:
		return -y * r1 * r2 * v1 * v2 * math.Sin(theta), nil
	case b.ph2:
		return y * r1 * r2 * v1 * v2 * math.Sin(theta), nil
	}
	return 0, equations.UnknownVariable(v)
}

func (b *ClosedBranch) dP2(v *equations.Variable, x []float64) (float64, error) {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	r1, r2, y := bc.R1(), bc.R2(), bc.Y()
	theta := b.theta2(ph1, ph2)
	switch v {
	case b.v1:
		return -y * r1 * r2 * v2 * math.Sin(theta), nil
	case b.v2:
		return r2 * (2*bc.G2()*r2*v2 - y*r1*v1*math.Sin(theta) + 2*y*r2*v2*math.Sin(bc.Ksi())), nil
	case b.ph1:
		return -y * r1 * r2 * v1 * v2 * math.Cos(theta), nil
	case b.ph2:
		return y * r1 * r2 * v1 * v2 * math.Cos(theta), nil
	}
	return 0, equations.UnknownVariable(v)
}

func (b *ClosedBranch) dQ2(v *equations.Variable, x []float64) (float64, error) {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	r1, r2, y := bc.R1(), bc.R2(), bc.Y()
	theta := b.theta2(ph1, ph2)
	switch v {
	case b.v1:
		return -y * r1 * r2 * v2 * math.Cos(theta), nil
	case b.v2:
		return r2 * (-2*bc.B2()*r2*v2 - y*r1*v1*math.Cos(theta) + 2*y*r2*v2*math.Cos(bc.Ksi())), nil
	case b.ph1:
		return y * r1 * r2 * v1 * v2 * math.Sin(theta), nil
	case b.ph2:
		return -y * r1 * r2 * v1 * v2 * math.Sin(theta), nil
	}
	return 0, equations.UnknownVariable(v)
}

// current returns w with I = r·|w| at the given side, and dw/dv for each
// bus variable.
func (b *ClosedBranch) current(side Side, x []float64) (w complex128, dw map[*equations.Variable]complex128) {
	bc := b.bc
	v1, ph1, v2, ph2 := b.state(x)
	ys := bc.SeriesAdmittance()
	e1 := cmplx.Rect(bc.R1(), ph1+bc.A1())
	e2 := cmplx.Rect(bc.R2(), ph2+bc.A2())

	near, far := ys+bc.Shunt1(), ys
	vn, vf := v1, v2
	en, ef := e1, e2
	nv, nph, fv, fph := b.v1, b.ph1, b.v2, b.ph2
	if side == Side2 {
		near = ys + bc.Shunt2()
		vn, vf = v2, v1
		en, ef = e2, e1
		nv, nph, fv, fph = b.v2, b.ph2, b.v1, b.ph1
	}

	w = near*en*complex(vn, 0) - far*ef*complex(vf, 0)
	dw = map[*equations.Variable]complex128{
		nv:  near * en,
		nph: 1i * near * en * complex(vn, 0),
		fv:  -far * ef,
		fph: -1i * far * ef * complex(vf, 0),
	}
	return w, dw
}

func (b *ClosedBranch) ratio(side Side) float64 {
	if side == Side1 {
		return b.bc.R1()
	}
	return b.bc.R2()
}

func (b *ClosedBranch) I(side Side, x []float64) float64 {
	w, _ := b.current(side, x)
	return b.ratio(side) * cmplx.Abs(w)
}

func (b *ClosedBranch) dI(side Side, v *equations.Variable, x []float64) (float64, error) {
	w, dw := b.current(side, x)
	d, ok := dw[v]
	if !ok {
		return 0, equations.UnknownVariable(v)
	}
	mod := cmplx.Abs(w)
	if mod == 0 {
		return 0, nil
	}
	return b.ratio(side) * real(cmplx.Conj(w)*d) / mod, nil
}

// ClosedBranchTerm is the flow of one quantity at one side of a closed
// branch.
type ClosedBranchTerm struct {
	branch   *ClosedBranch
	quantity Quantity
	side     Side
}

func NewClosedBranchTerm(branch *ClosedBranch, q Quantity, side Side) *ClosedBranchTerm {
	return &ClosedBranchTerm{branch: branch, quantity: q, side: side}
}

func (t *ClosedBranchTerm) Quantity() Quantity { return t.quantity }

func (t *ClosedBranchTerm) Side() Side { return t.side }

func (t *ClosedBranchTerm) Variables() []*equations.Variable { return t.branch.vars }

func (t *ClosedBranchTerm) Eval(x []float64) float64 {
	b := t.branch
	switch {
	case t.quantity == ActivePower && t.side == Side1:
		return b.P1(x)
	case t.quantity == ReactivePower && t.side == Side1:
		return b.Q1(x)
	case t.quantity == ActivePower && t.side == Side2:
		return b.P2(x)
	case t.quantity == ReactivePower && t.side == Side2:
		return b.Q2(x)
	default:
		return b.I(t.side, x)
	}
}

func (t *ClosedBranchTerm) Der(v *equations.Variable, x []float64) (float64, error) {
	b := t.branch
	switch {
	case t.quantity == ActivePower && t.side == Side1:
		return b.dP1(v, x)
	case t.quantity == ReactivePower && t.side == Side1:
		return b.dQ1(v, x)
	case t.quantity == ActivePower && t.side == Side2:
		return b.dP2(v, x)
	case t.quantity == ReactivePower && t.side == Side2:
		return b.dQ2(v, x)
	default:
		return b.dI(t.side, v, x)
	}
}

func (t *ClosedBranchTerm) String() string {
	return termName("ClosedBranch", t.quantity, t.side)
}
