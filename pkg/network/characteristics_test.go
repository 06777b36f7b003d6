package network

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/toy-loadflow/pkg/lferrors"
)

func TestNewBranchCharacteristics(t *testing.T) {
	bc, err := NewBranchCharacteristics(BranchParameters{R: 0.01, X: 0.1, B1: 0.02, B2: 0.03})
	require.NoError(t, err)

	assert.Equal(t, 0.01, bc.R())
	assert.Equal(t, 0.1, bc.X())
	assert.InDelta(t, 1/math.Hypot(0.01, 0.1), bc.Y(), 1e-12)
	assert.InDelta(t, math.Atan2(0.01, 0.1), bc.Ksi(), 1e-12)
	assert.Equal(t, 0.02, bc.B1())
	assert.Equal(t, 0.03, bc.B2())
	assert.Equal(t, 1.0, bc.R1())
	assert.Equal(t, 1.0, bc.R2())
	assert.Zero(t, bc.A1())
	assert.Zero(t, bc.A2())

	// y·(sin ksi − j cos ksi) is 1/(r + jx)
	assert.InDelta(t, real(1/complex(0.01, 0.1)), real(bc.SeriesAdmittance()), 1e-9)
	assert.InDelta(t, imag(1/complex(0.01, 0.1)), imag(bc.SeriesAdmittance()), 1e-9)
}

func TestBranchCharacteristicsRatio(t *testing.T) {
	tests := []struct {
		name   string
		params BranchParameters
		wantR1 float64
	}{
		{"plain line", BranchParameters{X: 0.1}, 1},
		{"tap ratio", BranchParameters{X: 0.1, Ratio: 1.05}, 1.05},
		{"rated voltages", BranchParameters{X: 0.1, RatedU1: 1.1, RatedU2: 1.0}, 1.0 / 1.1},
		{"both", BranchParameters{X: 0.1, Ratio: 0.95, RatedU1: 1.0, RatedU2: 1.02}, 0.95 * 1.02},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc, err := NewBranchCharacteristics(tt.params)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantR1, bc.R1(), 1e-12)
			assert.Equal(t, 1.0, bc.R2())
		})
	}
}

func TestBranchCharacteristicsPhaseShift(t *testing.T) {
	bc, err := NewBranchCharacteristics(BranchParameters{X: 0.1, PhaseShift: 0.1})
	require.NoError(t, err)
	assert.Equal(t, 0.1, bc.A1())
	assert.Zero(t, bc.A2())
}

func TestBranchCharacteristicsDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		params BranchParameters
	}{
		{"zero impedance", BranchParameters{}},
		{"zero impedance with shunts", BranchParameters{B1: 0.1, B2: 0.1}},
		{"NaN resistance", BranchParameters{R: math.NaN(), X: 0.1}},
		{"infinite reactance", BranchParameters{X: math.Inf(1)}},
		{"NaN ratio", BranchParameters{X: 0.1, Ratio: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc, err := NewBranchCharacteristics(tt.params)
			assert.Nil(t, bc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, lferrors.ErrDegenerateBranch))
			assert.True(t, lferrors.IsConfiguration(err))
		})
	}
}

func TestPureResistanceBranch(t *testing.T) {
	bc, err := NewBranchCharacteristics(BranchParameters{R: 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, bc.Y(), 1e-12)
	assert.InDelta(t, math.Pi/2, bc.Ksi(), 1e-12)
}
