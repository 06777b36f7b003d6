package ac

import (
	"github.com/edp1096/toy-loadflow/pkg/equations"
	"github.com/edp1096/toy-loadflow/pkg/network"
)

// branchVars is an indexed context with the four voltage variables of a
// two-bus branch in columns 0..3 (v1, ph1, v2, ph2).
type branchVars struct {
	ctx              *equations.Context
	v1, ph1, v2, ph2 *equations.Variable
}

func newBranchVars() *branchVars {
	c := equations.NewContext()
	bv := &branchVars{ctx: c}
	bv.v1, _ = c.Variable(0, equations.VarBusV)
	bv.ph1, _ = c.Variable(0, equations.VarBusPhi)
	bv.v2, _ = c.Variable(1, equations.VarBusV)
	bv.ph2, _ = c.Variable(1, equations.VarBusPhi)
	for bus := range 2 {
		_, _ = c.Equation(bus, equations.EqBusP)
		_, _ = c.Equation(bus, equations.EqBusQ)
	}
	if err := c.Index(); err != nil {
		panic(err)
	}
	return bv
}

func (bv *branchVars) all() []*equations.Variable {
	return []*equations.Variable{bv.v1, bv.ph1, bv.v2, bv.ph2}
}

func mustCharacteristics(p network.BranchParameters) *network.BranchCharacteristics {
	bc, err := network.NewBranchCharacteristics(p)
	if err != nil {
		panic(err)
	}
	return bc
}
