package ac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-loadflow/pkg/equations"
	"github.com/edp1096/toy-loadflow/pkg/lferrors"
	"github.com/edp1096/toy-loadflow/pkg/network"
)

func buildNetwork(t *testing.T, buses []*network.Bus, branches []*network.Branch) *network.Network {
	t.Helper()
	n := network.New(t.Name())
	for _, b := range buses {
		require.NoError(t, n.AddBus(b))
	}
	for _, br := range branches {
		require.NoError(t, n.AddBranch(br))
	}
	return n
}

func TestBuildSystemPQ(t *testing.T) {
	net := buildNetwork(t,
		[]*network.Bus{
			{ID: "s", NominalV: 400, Type: network.Slack, TargetV: 1},
			{ID: "l", NominalV: 400, Type: network.PQ, LoadP: 0.5, LoadQ: 0.1, ShuntB: 0.05},
		},
		[]*network.Branch{{ID: "b", Bus1: "s", Bus2: "l", Params: network.BranchParameters{R: 0.01, X: 0.1}}},
	)

	sys, err := BuildSystem(net)
	require.NoError(t, err)

	c := sys.Context
	assert.Equal(t, 2, c.NumEquations())
	assert.Equal(t, 2, c.NumUnknowns())
	assert.Equal(t, 4, c.NumVariables())

	p, ok := c.LookupEquation(1, equations.EqBusP)
	require.True(t, ok)
	assert.Equal(t, -0.5, p.Target)
	assert.Len(t, p.Terms(), 1)

	q, ok := c.LookupEquation(1, equations.EqBusQ)
	require.True(t, ok)
	assert.Equal(t, -0.1, q.Target)
	assert.Len(t, q.Terms(), 2, "branch flow and shunt")

	_, ok = c.LookupEquation(0, equations.EqBusP)
	assert.False(t, ok, "slack bus has no equation")

	v, ph, ok := sys.BusVariables(0)
	require.True(t, ok)
	assert.True(t, v.Fixed())
	assert.True(t, ph.Fixed())

	require.Len(t, sys.Flows, 1)
	assert.NotNil(t, sys.Flows[0].Closed)
	assert.NotNil(t, sys.Flows[0].I2)
}

func TestBuildSystemPV(t *testing.T) {
	net := buildNetwork(t,
		[]*network.Bus{
			{ID: "s", NominalV: 20, Type: network.Slack, TargetV: 1.02},
			{ID: "g", NominalV: 20, Type: network.PV, TargetV: 1.01, GenP: 0.3},
		},
		[]*network.Branch{{ID: "b", Bus1: "s", Bus2: "g", Params: network.BranchParameters{X: 0.2}}},
	)

	sys, err := BuildSystem(net)
	require.NoError(t, err)

	eq, ok := sys.Context.LookupEquation(1, equations.EqBusV)
	require.True(t, ok)
	assert.Equal(t, 1.01, eq.Target)
	_, ok = sys.Context.LookupEquation(1, equations.EqBusQ)
	assert.False(t, ok)
}

func TestBuildSystemOpenBranch(t *testing.T) {
	net := buildNetwork(t,
		[]*network.Bus{
			{ID: "s", NominalV: 400, Type: network.Slack, TargetV: 1},
			{ID: "a", NominalV: 400, Type: network.PQ, LoadP: 0.2},
			{ID: "far", NominalV: 400, Type: network.PQ},
		},
		[]*network.Branch{
			{ID: "sa", Bus1: "s", Bus2: "a", Params: network.BranchParameters{R: 0.01, X: 0.1}},
			{ID: "afar", Bus1: "a", Bus2: "far", Open2: true, Params: network.BranchParameters{R: 0.01, X: 0.1, B1: 0.1, B2: 0.1}},
			{ID: "farS", Bus1: "far", Bus2: "s", Open1: true, Params: network.BranchParameters{X: 0.1, B1: 0.02, B2: 0.02}},
		},
	)

	sys, err := BuildSystem(net)
	require.NoError(t, err)

	assert.True(t, sys.InService(1))
	assert.False(t, sys.InService(2), "only reachable through open branches")
	_, _, ok := sys.BusVariables(2)
	assert.False(t, ok)
	assert.Equal(t, 2, sys.Context.NumEquations())

	require.Len(t, sys.Flows, 3)
	closed := sys.Flows[0]
	require.NotNil(t, closed.Closed)
	for _, tt := range []struct {
		term equations.Term
		q    Quantity
		side Side
	}{
		{closed.P1, ActivePower, Side1},
		{closed.Q2, ReactivePower, Side2},
		{closed.I2, CurrentMagnitude, Side2},
	} {
		ct, ok := tt.term.(*ClosedBranchTerm)
		require.True(t, ok)
		assert.Equal(t, tt.q, ct.Quantity())
		assert.Equal(t, tt.side, ct.Side())
	}

	side2 := sys.Flows[1]
	require.NotNil(t, side2.Open)
	assert.Equal(t, Side2, side2.Open.OpenSide())
	assert.NotNil(t, side2.P1)
	assert.Nil(t, side2.P2)
	ot, ok := side2.Q1.(*OpenBranchTerm)
	require.True(t, ok)
	assert.Equal(t, ReactivePower, ot.Quantity())
	assert.Equal(t, Side1, ot.Side())

	side1 := sys.Flows[2]
	require.NotNil(t, side1.Open)
	assert.Equal(t, Side1, side1.Open.OpenSide())
	assert.NotNil(t, side1.Q2)
	assert.Nil(t, side1.Q1)

	q, ok := sys.Context.LookupEquation(1, equations.EqBusQ)
	require.True(t, ok)
	assert.Len(t, q.Terms(), 2, "closed flow plus open branch flow")
}

func TestBuildSystemDegenerateBranch(t *testing.T) {
	net := buildNetwork(t,
		[]*network.Bus{
			{ID: "s", NominalV: 400, Type: network.Slack, TargetV: 1},
			{ID: "l", NominalV: 400, Type: network.PQ},
		},
		[]*network.Branch{{ID: "zero", Bus1: "s", Bus2: "l"}},
	)

	_, err := BuildSystem(net)
	require.Error(t, err)
	assert.True(t, errors.Is(err, lferrors.ErrDegenerateBranch))
	assert.Contains(t, err.Error(), "zero")
}

func TestBuildSystemSlackOnly(t *testing.T) {
	net := buildNetwork(t, []*network.Bus{{ID: "s", NominalV: 400, Type: network.Slack, TargetV: 1}}, nil)

	sys, err := BuildSystem(net)
	require.NoError(t, err)
	assert.Zero(t, sys.Context.NumUnknowns())
	assert.Equal(t, 2, sys.Context.NumVariables())
}

func TestBusTerms(t *testing.T) {
	bv := newBranchVars()
	x := []float64{1.1, 0, 1, 0}

	p := NewBusShuntTerm(bv.v1, 0.02, 0.3, ActivePower)
	q := NewBusShuntTerm(bv.v1, 0.02, 0.3, ReactivePower)
	assert.InDelta(t, 0.02*1.21, p.Eval(x), 1e-12)
	assert.InDelta(t, -0.3*1.21, q.Eval(x), 1e-12)

	d, err := q.Der(bv.v1, x)
	require.NoError(t, err)
	assert.InDelta(t, -2*0.3*1.1, d, 1e-12)

	_, err = p.Der(bv.v2, x)
	assert.True(t, errors.Is(err, lferrors.ErrUnknownVariable))

	vt := NewBusVoltageTerm(bv.v1)
	assert.Equal(t, 1.1, vt.Eval(x))
	d, err = vt.Der(bv.v1, x)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
	_, err = vt.Der(bv.ph1, x)
	assert.True(t, errors.Is(err, lferrors.ErrUnknownVariable))
}
