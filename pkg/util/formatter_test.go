package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueFactor(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  string
	}{
		{400e3, "V", "400.000 kV"},
		{1.5e6, "W", "1.500 MW"},
		{2, "A", "2.000 A"},
		{0, "A", "0.000 A"},
		{0.0025, "A", "2.500 mA"},
		{-3e-6, "A", "-3.000 uA"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValueFactor(tt.value, tt.unit))
	}
}

func TestFormatLoadFlowQuantities(t *testing.T) {
	assert.Equal(t, " 1.0000 pu (400.000 kV)", FormatVoltage(1, 400))
	assert.Equal(t, " -90.000 deg", FormatAngle(-1.5707963267948966))
	assert.Equal(t, "   50.000 MW  ", FormatPower(0.5, false))
	assert.Equal(t, "  -20.000 Mvar", FormatPower(-0.2, true))
	assert.Equal(t, "  0.1234", FormatMagnitude(0.1234))
	assert.Equal(t, "1.50e+03", FormatMagnitude(1500))
}
