package coords

import (
	"fmt"
	"math"
)

// FormatHours renders right ascension degrees as "hh:mm:ss.ss".
func FormatHours(deg float64) string {
	// Work in integer hundredths of a second so rounding carries cleanly.
	total := int64(math.Round(deg / hourDegrees * 3600 * 100))
	day := int64(24 * 3600 * 100)
	total = ((total % day) + day) % day

	h := total / (3600 * 100)
	m := (total / (60 * 100)) % 60
	cs := total % (60 * 100)
	return fmt.Sprintf("%02d:%02d:%05.2f", h, m, float64(cs)/100)
}

// FormatDegrees renders declination degrees as "±dd:mm:ss.s".
func FormatDegrees(deg float64) string {
	sign := "+"
	if deg < 0 {
		sign = "-"
		deg = -deg
	}
	total := int64(math.Round(deg * 3600 * 10))

	d := total / (3600 * 10)
	m := (total / (60 * 10)) % 60
	ds := total % (60 * 10)
	return fmt.Sprintf("%s%02d:%02d:%04.1f", sign, d, m, float64(ds)/10)
}
