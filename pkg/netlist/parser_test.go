package netlist

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-loadflow/pkg/analysis"
	"github.com/edp1096/toy-loadflow/pkg/lferrors"
	"github.com/edp1096/toy-loadflow/pkg/matrix"
	"github.com/edp1096/toy-loadflow/pkg/network"
)

func TestParseFile(t *testing.T) {
	c, err := ParseFile("testdata/ring.yaml")
	require.NoError(t, err)

	assert.Equal(t, "ring", c.Network.Name)
	assert.Equal(t, 20, c.Solver.MaxIterations)
	assert.Equal(t, 1e-8, c.Solver.Tolerance)
	assert.Equal(t, matrix.KindDense, c.Solver.LinearSolver)
	assert.Equal(t, 5*time.Second, c.Solver.Timeout)
	assert.True(t, c.Solver.FlatStart, "default kept")

	require.Len(t, c.Network.Buses(), 4)
	g, ok := c.Network.Bus("g")
	require.True(t, ok)
	assert.Equal(t, network.PV, g.Type)
	assert.Equal(t, 1.02, g.TargetV)
	assert.Equal(t, 0.4, g.GenP)

	l2, _ := c.Network.Bus("l2")
	assert.Equal(t, network.PQ, l2.Type, "type defaults to PQ")
	assert.Equal(t, 0.05, l2.ShuntB)

	require.Len(t, c.Network.Branches(), 5)
	tr := c.Network.Branches()[2]
	assert.Equal(t, 1.02, tr.Params.Ratio)
	assert.InDelta(t, 2*math.Pi/180, tr.Params.PhaseShift, 1e-15)
	assert.True(t, c.Network.Branches()[4].Open2)

	assert.NoError(t, c.Network.Validate())
}

func TestParseDefaultsSolver(t *testing.T) {
	c, err := Parse([]byte(`
buses:
  - {id: a, nominal_v: 20, type: slack, v: 1, angle: 0.1rad}
`))
	require.NoError(t, err)
	assert.Equal(t, analysis.DefaultConfig(), c.Solver)
	assert.Equal(t, "case", c.Network.Name)

	a, _ := c.Network.Bus("a")
	assert.Equal(t, 0.1, a.TargetPhi)
}

func TestParseSolverKindSpelling(t *testing.T) {
	c, err := Parse([]byte(`
buses:
  - {id: a, nominal_v: 20, type: slack, v: 1}
solver:
  linear_solver: Sparse
`))
	require.NoError(t, err)
	assert.Equal(t, matrix.KindSparse, c.Solver.LinearSolver)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		is    error
	}{
		{"empty", "", nil},
		{"unknown key", "buses:\n  - {id: a, nominal_v: 20, volts: 1}\n", nil},
		{"bad bus type", "buses:\n  - {id: a, nominal_v: 20, type: dc}\n", nil},
		{"bad angle", "buses:\n  - {id: a, nominal_v: 20, angle: north}\n", nil},
		{"bad solver", "solver:\n  max_iterations: 0\n", nil},
		{"bad linear solver", "solver:\n  linear_solver: klu\n", nil},
		{"duplicate bus", "buses:\n  - {id: a, nominal_v: 20}\n  - {id: a, nominal_v: 20}\n", lferrors.ErrDuplicateBus},
		{"unknown bus", "buses:\n  - {id: a, nominal_v: 20}\nbranches:\n  - {id: b, bus1: a, bus2: z, x: 0.1}\n", lferrors.ErrUnknownBus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			if tt.is != nil {
				assert.True(t, errors.Is(err, tt.is), err.Error())
			}
		})
	}
}

func TestParseAngle(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"0", 0},
		{"180", math.Pi},
		{"-90deg", -math.Pi / 2},
		{"0.5rad", 0.5},
		{"1e1 deg", 10 * math.Pi / 180},
	}
	for _, tt := range tests {
		got, err := ParseAngle(tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, float64(got), 1e-15, tt.in)
	}

	_, err := ParseAngle("5 grad")
	assert.Error(t, err)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile("testdata/missing.yaml")
	assert.Error(t, err)
}
