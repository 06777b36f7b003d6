package network

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-loadflow/pkg/lferrors"
)

// BranchParameters is the raw per-unit electrical data of a branch.
// RatedU1/RatedU2 are winding rated voltages relative to the bus nominal
// voltage of each side; zero means 1 (plain line). Ratio is the off-nominal
// tap ratio on side 1, zero meaning 1. PhaseShift is in radians.
type BranchParameters struct {
	R          float64 `yaml:"r"`
	X          float64 `yaml:"x"`
	G1         float64 `yaml:"g1"`
	B1         float64 `yaml:"b1"`
	G2         float64 `yaml:"g2"`
	B2         float64 `yaml:"b2"`
	RatedU1    float64 `yaml:"rated_u1" validate:"gte=0"`
	RatedU2    float64 `yaml:"rated_u2" validate:"gte=0"`
	Ratio      float64 `yaml:"ratio" validate:"gte=0"`
	PhaseShift float64 `yaml:"phase_shift"`
}

// BranchCharacteristics holds the pi-model quantities derived once per
// branch. It is immutable and shared by every term of the branch.
type BranchCharacteristics struct {
	r, x   float64
	y, ksi float64
	g1, b1 float64
	g2, b2 float64
	r1, r2 float64
	a1, a2 float64
}

func NewBranchCharacteristics(p BranchParameters) (*BranchCharacteristics, error) {
	values := []struct {
		name string
		v    float64
	}{
		{"r", p.R}, {"x", p.X}, {"g1", p.G1}, {"b1", p.B1}, {"g2", p.G2}, {"b2", p.B2},
		{"rated_u1", p.RatedU1}, {"rated_u2", p.RatedU2}, {"ratio", p.Ratio}, {"phase_shift", p.PhaseShift},
	}
	for _, f := range values {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return nil, lferrors.Config("branch characteristics", f.name,
				fmt.Errorf("%w: non-finite value %v", lferrors.ErrDegenerateBranch, f.v))
		}
	}

	z := math.Hypot(p.R, p.X)
	if z == 0 {
		return nil, lferrors.Config("branch characteristics", "impedance",
			fmt.Errorf("%w: zero impedance (r=%g, x=%g)", lferrors.ErrDegenerateBranch, p.R, p.X))
	}

	return &BranchCharacteristics{
		r:   p.R,
		x:   p.X,
		y:   1 / z,
		ksi: math.Atan2(p.R, p.X),
		g1:  p.G1,
		b1:  p.B1,
		g2:  p.G2,
		b2:  p.B2,
		r1:  orOne(p.Ratio) * orOne(p.RatedU2) / orOne(p.RatedU1),
		r2:  1,
		a1:  p.PhaseShift,
		a2:  0,
	}, nil
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func (bc *BranchCharacteristics) R() float64 { return bc.r }
func (bc *BranchCharacteristics) X() float64 { return bc.x }
func (bc *BranchCharacteristics) Y() float64 { return bc.y }
func (bc *BranchCharacteristics) Ksi() float64 { return bc.ksi }
func (bc *BranchCharacteristics) G1() float64 { return bc.g1 }
func (bc *BranchCharacteristics) B1() float64 { return bc.b1 }
func (bc *BranchCharacteristics) G2() float64 { return bc.g2 }
func (bc *BranchCharacteristics) B2() float64 { return bc.b2 }

// R1 is the side 1 ratio (tap ratio times rated voltage ratio).
func (bc *BranchCharacteristics) R1() float64 { return bc.r1 }

// R2 is the side 2 ratio, always 1 in this model.
func (bc *BranchCharacteristics) R2() float64 { return bc.r2 }

// A1 is the side 1 phase shift in radians.
func (bc *BranchCharacteristics) A1() float64 { return bc.a1 }

func (bc *BranchCharacteristics) A2() float64 { return bc.a2 }

// SeriesAdmittance returns y·(sin ksi − j·cos ksi) = 1/(r + jx).
func (bc *BranchCharacteristics) SeriesAdmittance() complex128 {
	return complex(bc.y*math.Sin(bc.ksi), -bc.y*math.Cos(bc.ksi))
}

func (bc *BranchCharacteristics) Shunt1() complex128 { return complex(bc.g1, bc.b1) }

func (bc *BranchCharacteristics) Shunt2() complex128 { return complex(bc.g2, bc.b2) }
