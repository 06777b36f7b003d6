package consts

import "math"

const (
	BASE_MVA    = 100.0           // System base power (MVA)
	FLAT_V      = 1.0             // Flat start voltage magnitude (p.u.)
	FLAT_PHI    = 0.0             // Flat start phase angle (rad)
	DEG_PER_RAD = 180.0 / math.Pi // Radian to degree
)

func ToDegrees(rad float64) float64 { return rad * DEG_PER_RAD }

func ToRadians(deg float64) float64 { return deg / DEG_PER_RAD }
