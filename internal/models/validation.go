package models

import (
	"strconv"
	"strings"
)

// Units that require strictly positive values.
const (
	UnitLiters    = "L"
	UnitKilograms = "kg"
)

// Classify decides whether a measurement value is valid for a sensor
// unit. It is a pure write-time gate: the result is recorded on the
// measurement, the write itself is never rejected.
//
// A nil value is always invalid. For volume/mass units ("L", "kg") a
// value <= 0 is invalid; any other unit accepts any non-nil value.
func Classify(value *float64, unit string) (isValid bool, validationError *string) {
	if value == nil {
		msg := "value is null"
		return false, &msg
	}

	switch unit {
	case UnitLiters, UnitKilograms:
		if *value <= 0 {
			msg := "value is " + formatMeasurementValue(*value)
			return false, &msg
		}
	}

	return true, nil
}

// formatMeasurementValue renders a value the way it appears in
// validation messages: always with a decimal point ("-1.0", not "-1").
func formatMeasurementValue(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
