// Package result decodes the artifacts the mask tools leave behind: the
// feature file with slit and hole geometry, the inclusion list saying which
// catalog objects made it onto the mask, and the error blocks printed on
// failure.
package result

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrMalformed is matched by every *DecodeError.
var ErrMalformed = errors.New("malformed result artifact")

var errNotFinite = errors.New("value is not finite")

// DecodeError identifies the artifact line that could not be decoded.
type DecodeError struct {
	Line  int
	Text  string
	Field string
	Err   error
}

// Error includes the line number, field and offending text.
func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
	}
	return fmt.Sprintf("line %d: field %s: %v: %q", e.Line, e.Field, e.Err, e.Text)
}

// Unwrap returns the parse error.
func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformed.
func (e *DecodeError) Is(target error) bool { return target == ErrMalformed }

// FeatureKind tags a Feature.
type FeatureKind string

// Feature kinds as they appear in feature files, lower-cased.
const (
	KindSlit FeatureKind = "slit"
	KindHole FeatureKind = "hole"
)

// Feature is one slit or hole on a mask. The set of implementations is
// closed: Slit and Hole.
type Feature interface {
	Kind() FeatureKind
	Ident() string
	sealed()
}

// Geometry is shared by every feature kind. RA and Dec are degrees; X and Y
// are focal-plane millimetres.
type Geometry struct {
	ID    string  `json:"id"`
	RA    float64 `json:"ra"`
	Dec   float64 `json:"dec"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Width float64 `json:"width"`
	ALen  float64 `json:"a_len"`
	BLen  float64 `json:"b_len"`
	Angle float64 `json:"angle"`
}

// Slit is a rectangular slit cut for a target or alignment object.
type Slit struct {
	Geometry
}

// Hole is a reference hole with a shape code.
type Hole struct {
	Geometry
	Shape int `json:"shape"`
}

// Kind returns KindSlit.
func (Slit) Kind() FeatureKind { return KindSlit }

// Ident returns the slit identifier.
func (s Slit) Ident() string { return s.ID }

func (Slit) sealed() {}

// Kind returns KindHole.
func (Hole) Kind() FeatureKind { return KindHole }

// Ident returns the hole identifier.
func (h Hole) Ident() string { return h.ID }

func (Hole) sealed() {}

var (
	slitFields = []string{"ra", "dec", "x", "y", "width", "a_len", "b_len", "angle"}
	holeFields = []string{"ra", "dec", "x", "y", "width", "shape", "a_len", "b_len", "angle"}
)

// DecodeFeatures reads a feature file. Lines whose first token is SLIT or
// HOLE become features in file order; every other line is ignored. Invalid
// UTF-8 is replaced rather than rejected.
func DecodeFeatures(r io.Reader) ([]Feature, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var out []Feature
	n := 0
	for sc.Scan() {
		n++
		text := strings.ToValidUTF8(sc.Text(), "\uFFFD")
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		var (
			f   Feature
			err error
		)
		switch fields[0] {
		case "SLIT":
			f, err = decodeSlit(fields[1:])
		case "HOLE":
			f, err = decodeHole(fields[1:])
		default:
			continue
		}
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				de.Line, de.Text = n, text
				return nil, de
			}
			return nil, &DecodeError{Line: n, Text: text, Err: err}
		}
		out = append(out, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading feature file: %w", err)
	}
	return out, nil
}

func decodeSlit(fields []string) (Feature, error) {
	vals, err := numbers(fields, slitFields)
	if err != nil {
		return nil, err
	}
	return Slit{Geometry: Geometry{
		ID: fields[0], RA: vals[0], Dec: vals[1], X: vals[2], Y: vals[3],
		Width: vals[4], ALen: vals[5], BLen: vals[6], Angle: vals[7],
	}}, nil
}

func decodeHole(fields []string) (Feature, error) {
	vals, err := numbers(fields, holeFields)
	if err != nil {
		return nil, err
	}
	shape := vals[5]
	if shape != math.Trunc(shape) {
		return nil, &DecodeError{Field: "shape", Err: errors.New("shape code is not an integer")}
	}
	if shape < 0 || shape > math.MaxInt32 {
		return nil, &DecodeError{Field: "shape", Err: errors.New("shape code out of range")}
	}
	return Hole{
		Geometry: Geometry{
			ID: fields[0], RA: vals[0], Dec: vals[1], X: vals[2], Y: vals[3],
			Width: vals[4], ALen: vals[6], BLen: vals[7], Angle: vals[8],
		},
		Shape: int(shape),
	}, nil
}

// numbers parses the positional numeric fields that follow the identifier.
func numbers(fields, names []string) ([]float64, error) {
	if len(fields) < len(names)+1 {
		return nil, &DecodeError{Err: fmt.Errorf("want %d fields, got %d", len(names)+1, len(fields))}
	}
	vals := make([]float64, len(names))
	for i, name := range names {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, &DecodeError{Field: name, Err: err}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &DecodeError{Field: name, Err: errNotFinite}
		}
		vals[i] = v
	}
	return vals, nil
}
