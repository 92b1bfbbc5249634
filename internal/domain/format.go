package domain

import (
	"fmt"
	"strconv"
)

// FormatReading renders a reading with the unit of its field.
func FormatReading(f FieldName, r Reading) string {
	if !r.Present {
		return "n/a"
	}
	switch f {
	case FieldTempAnomaly:
		return fmt.Sprintf("%+.2f °C", r.Value)
	case FieldCO2:
		return fmt.Sprintf("%.0f ppm", r.Value)
	default:
		return strconv.FormatFloat(r.Value, 'g', -1, 64)
	}
}
