// Package coords normalizes right ascension and declination values into
// decimal degrees. Values may arrive as plain decimal degrees or as
// sexagesimal strings (colon, space or h/m/s delimited).
package coords

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrFormat is wrapped by every FormatError so callers can test with errors.Is.
var ErrFormat = errors.New("malformed coordinate")

// hourDegrees is the number of degrees of right ascension per hour.
const hourDegrees = 15.0

// Axis identifies which sky coordinate a value belongs to.
type Axis string

const (
	// AxisRA is right ascension; sexagesimal values are in hours.
	AxisRA Axis = "ra"
	// AxisDec is declination; sexagesimal values are in degrees.
	AxisDec Axis = "dec"
)

// FormatError reports a coordinate that could not be read as decimal degrees
// or as sexagesimal notation, or that fell outside the valid range.
type FormatError struct {
	Axis   Axis
	Value  string
	Reason string
}

// Error returns the axis, offending value and reason.
func (e *FormatError) Error() string {
	return fmt.Sprintf("coords: %s %q: %s", e.Axis, e.Value, e.Reason)
}

// Unwrap returns ErrFormat.
func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// Normalize converts a right ascension and declination pair to decimal degrees.
func Normalize(ra, dec string) (float64, float64, error) {
	raDeg, err := Parse(AxisRA, ra)
	if err != nil {
		return 0, 0, err
	}
	decDeg, err := Parse(AxisDec, dec)
	if err != nil {
		return 0, 0, err
	}
	return raDeg, decDeg, nil
}

// Parse converts a single coordinate string to decimal degrees. A value with
// no sexagesimal delimiter that parses as a float is already in degrees.
// Sexagesimal right ascension is read in hours (15 degrees per hour);
// sexagesimal declination is read in degrees.
func Parse(axis Axis, value string) (float64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, &FormatError{Axis: axis, Value: value, Reason: "empty value"}
	}

	var deg float64
	if !hasSexagesimalDelimiter(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &FormatError{Axis: axis, Value: value, Reason: "not a decimal or sexagesimal number"}
		}
		deg = f
	} else {
		v, err := parseSexagesimal(s)
		if err != nil {
			return 0, &FormatError{Axis: axis, Value: value, Reason: err.Error()}
		}
		deg = v
		if axis == AxisRA {
			deg *= hourDegrees
		}
	}

	if err := checkRange(axis, deg); err != nil {
		return 0, &FormatError{Axis: axis, Value: value, Reason: err.Error()}
	}
	return deg, nil
}

// Value converts a decoded value (a JSON or TOML number, or a string) to
// decimal degrees. Numbers are taken as degrees.
func Value(axis Axis, v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		if err := checkRange(axis, t); err != nil {
			return 0, &FormatError{Axis: axis, Value: strconv.FormatFloat(t, 'f', -1, 64), Reason: err.Error()}
		}
		return t, nil
	case int64:
		return Value(axis, float64(t))
	case int:
		return Value(axis, float64(t))
	case string:
		return Parse(axis, t)
	case nil:
		return 0, &FormatError{Axis: axis, Reason: "missing value"}
	default:
		return 0, &FormatError{Axis: axis, Value: fmt.Sprint(v), Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

func hasSexagesimalDelimiter(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r == ':' || unicode.IsSpace(r) || r == 'h' || r == 'd' || r == 'm' || r == 's'
	})
}

func isDelimiter(r rune) bool {
	switch r {
	case ':', 'h', 'd', 'm', 's', '\'', '"':
		return true
	}
	return unicode.IsSpace(r)
}

// parseSexagesimal reads "a:b:c" (or space/letter delimited) as
// a + b/60 + c/3600 with the sign of the leading component.
func parseSexagesimal(s string) (float64, error) {
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")

	parts := strings.FieldsFunc(s, isDelimiter)
	if len(parts) == 0 || len(parts) > 3 {
		return 0, errors.New("expected 1 to 3 sexagesimal components")
	}

	var total float64
	scale := 1.0
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid sexagesimal component %q", p)
		}
		if i > 0 && f >= 60 {
			return 0, fmt.Errorf("component %q out of range [0,60)", p)
		}
		total += f / scale
		scale *= 60
	}
	if negative {
		total = -total
	}
	return total, nil
}

func checkRange(axis Axis, deg float64) error {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return errors.New("not a finite number")
	}
	switch axis {
	case AxisRA:
		if deg < 0 || deg >= 360 {
			return errors.New("right ascension outside [0,360)")
		}
	case AxisDec:
		if deg < -90 || deg > 90 {
			return errors.New("declination outside [-90,90]")
		}
	}
	return nil
}
