package ac

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-loadflow/pkg/equations"
	"github.com/edp1096/toy-loadflow/pkg/lferrors"
	"github.com/edp1096/toy-loadflow/pkg/network"
)

// OpenBranchContext reduces a branch with one open terminal to the shunt
// admittance seen from the energized terminal: the near shunt in parallel
// with the series element, itself in series with the far shunt.
//
//	Yeq = Ynear + Y·Yfar / (Y + Yfar)
//	shunt = |Y + Yfar|² = (gfar + y·sin ksi)² + (−bfar + y·cos ksi)²
//
// Flows at the energized side only depend on its voltage magnitude.
type OpenBranchContext struct {
	open  Side
	v     *equations.Variable
	shunt float64
	g, b  float64 // Re and Im of Yeq
	ratio float64
	vars  []*equations.Variable
}

// OpenBranchSide1Context is a branch open on side 1, energized from bus 2.
type OpenBranchSide1Context = OpenBranchContext

// OpenBranchSide2Context is a branch open on side 2, energized from bus 1.
type OpenBranchSide2Context = OpenBranchContext

func NewOpenBranchSide1Context(bc *network.BranchCharacteristics, v2 *equations.Variable) (*OpenBranchSide1Context, error) {
	return newOpenBranchContext(bc, Side1, v2)
}

func NewOpenBranchSide2Context(bc *network.BranchCharacteristics, v1 *equations.Variable) (*OpenBranchSide2Context, error) {
	return newOpenBranchContext(bc, Side2, v1)
}

func newOpenBranchContext(bc *network.BranchCharacteristics, open Side, v *equations.Variable) (*OpenBranchContext, error) {
	y, ksi := bc.Y(), bc.Ksi()
	gNear, bNear, gFar, bFar, ratio := bc.G1(), bc.B1(), bc.G2(), bc.B2(), bc.R1()
	if open == Side1 {
		gNear, bNear, gFar, bFar, ratio = bc.G2(), bc.B2(), bc.G1(), bc.B1(), bc.R2()
	}

	shunt := (gFar+y*math.Sin(ksi))*(gFar+y*math.Sin(ksi)) + (-bFar+y*math.Cos(ksi))*(-bFar+y*math.Cos(ksi))
	if shunt == 0 {
		return nil, lferrors.Config("open branch", fmt.Sprintf("side %d", open),
			fmt.Errorf("%w: far shunt cancels series admittance", lferrors.ErrDegenerateBranch))
	}

	return &OpenBranchContext{
		open:  open,
		v:     v,
		shunt: shunt,
		g:     gNear + y*y*gFar/shunt + (bFar*bFar+gFar*gFar)*y*math.Sin(ksi)/shunt,
		b:     bNear + y*y*bFar/shunt - (bFar*bFar+gFar*gFar)*y*math.Cos(ksi)/shunt,
		ratio: ratio,
		vars:  []*equations.Variable{v},
	}, nil
}

// OpenSide is the disconnected terminal.
func (c *OpenBranchContext) OpenSide() Side { return c.open }

// EnergizedSide is the terminal whose bus carries the flows.
func (c *OpenBranchContext) EnergizedSide() Side { return c.open.Other() }

// Shunt is |Y + Yfar|², the denominator of the reduction.
func (c *OpenBranchContext) Shunt() float64 { return c.shunt }

// V is the magnitude variable of the energized bus.
func (c *OpenBranchContext) V() *equations.Variable { return c.v }

// P = r²·v²·Re(Yeq)
func (c *OpenBranchContext) P(x []float64) float64 {
	v := x[c.v.Column()]
	return c.ratio * c.ratio * v * v * c.g
}

// Q = −r²·v²·Im(Yeq)
func (c *OpenBranchContext) Q(x []float64) float64 {
	v := x[c.v.Column()]
	return -c.ratio * c.ratio * v * v * c.b
}

// I = r²·v·|Yeq|
func (c *OpenBranchContext) I(x []float64) float64 {
	v := x[c.v.Column()]
	return c.ratio * c.ratio * v * math.Hypot(c.g, c.b)
}

func (c *OpenBranchContext) dP(x []float64) float64 {
	return 2 * x[c.v.Column()] * c.ratio * c.ratio * c.g
}

// dQ is −2·v·r²·(bnear + y²·bfar/shunt − (bfar²+gfar²)·y·cos ksi/shunt).
func (c *OpenBranchContext) dQ(x []float64) float64 {
	return -2 * x[c.v.Column()] * c.ratio * c.ratio * c.b
}

func (c *OpenBranchContext) dI() float64 {
	return c.ratio * c.ratio * math.Hypot(c.g, c.b)
}

// OpenBranchTerm is the flow of one quantity at the energized side of an
// open branch.
type OpenBranchTerm struct {
	branch   *OpenBranchContext
	quantity Quantity
}

func NewOpenBranchTerm(branch *OpenBranchContext, q Quantity) *OpenBranchTerm {
	return &OpenBranchTerm{branch: branch, quantity: q}
}

func (t *OpenBranchTerm) Quantity() Quantity { return t.quantity }

func (t *OpenBranchTerm) Side() Side { return t.branch.EnergizedSide() }

func (t *OpenBranchTerm) Variables() []*equations.Variable { return t.branch.vars }

func (t *OpenBranchTerm) Eval(x []float64) float64 {
	switch t.quantity {
	case ActivePower:
		return t.branch.P(x)
	case ReactivePower:
		return t.branch.Q(x)
	default:
		return t.branch.I(x)
	}
}

func (t *OpenBranchTerm) Der(v *equations.Variable, x []float64) (float64, error) {
	if v != t.branch.v {
		return 0, equations.UnknownVariable(v)
	}
	switch t.quantity {
	case ActivePower:
		return t.branch.dP(x), nil
	case ReactivePower:
		return t.branch.dQ(x), nil
	default:
		return t.branch.dI(), nil
	}
}

func (t *OpenBranchTerm) String() string {
	return termName(fmt.Sprintf("OpenBranchSide%d", t.branch.open), t.quantity, t.Side())
}
