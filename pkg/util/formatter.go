package util

import (
	"fmt"
	"math"

	"github.com/edp1096/toy-loadflow/internal/consts"
)

// FormatValueFactor prints value with an SI prefix chosen from its
// magnitude.
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case absValue >= 1e9:
		return fmt.Sprintf("%.3f G%s", value/1e9, unit)
	case absValue >= 1e6:
		return fmt.Sprintf("%.3f M%s", value/1e6, unit)
	case absValue >= 1e3:
		return fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case absValue >= 1 || absValue == 0:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

// FormatVoltage prints a per-unit magnitude and its value in kV.
func FormatVoltage(pu, nominalKV float64) string {
	return fmt.Sprintf("%7.4f pu (%s)", pu, FormatValueFactor(pu*nominalKV*1e3, "V"))
}

func FormatAngle(rad float64) string {
	return fmt.Sprintf("%8.3f deg", consts.ToDegrees(rad))
}

// FormatPower prints a per-unit power on the system base in MW, or Mvar
// when reactive is set.
func FormatPower(pu float64, reactive bool) string {
	unit := "MW"
	if reactive {
		unit = "Mvar"
	}
	return fmt.Sprintf("%9.3f %-4s", pu*consts.BASE_MVA, unit)
}

func FormatMagnitude(value float64) string {
	if value >= 1000 || (value < 0.001 && value != 0) {
		return fmt.Sprintf("%8.2e", value) // "1.00e+03" or "5.43e-05"
	}
	return fmt.Sprintf("%8.4f", value)
}
