// Package rotator decides whether a requested rotator configuration is safe
// to observe at the observatory. A rejected configuration stops generation
// before any file is written or process started.
package rotator

import (
	"errors"
	"fmt"
	"math"

	"github.com/papapumpkin/slitforge/internal/setup"
)

const (
	// ObservatoryLatitude is the site latitude in degrees (Las Campanas).
	ObservatoryLatitude = -29.01418
	// AltitudeLimit is the lowest usable altitude in degrees.
	AltitudeLimit = 30.0
	// NoConstraintHours is the hour angle beyond which no check applies.
	NoConstraintHours = 24.0

	degree = math.Pi / 180.0
	hour   = 15.0 * degree
	// minCosDec keeps the arc finite for fields at the pole.
	minCosDec = 0.001
)

// ErrRejected is wrapped by every ValidationError.
var ErrRejected = errors.New("rotator configuration rejected")

// Level grades a rejected configuration.
type Level string

const (
	LevelUrgent  Level = "urgent"  // Hour angle inside the semi-diurnal arc.
	LevelWarning Level = "warning" // Hour angle at or beyond the arc.
)

// ValidationError reports a rotator conflict. It is always recoverable by
// resubmitting with different parameters.
type ValidationError struct {
	Level     Level
	HourAngle float64
	Arc       float64
	Dec       float64
}

// Error returns the warning text the observing tools have always shown.
func (e *ValidationError) Error() string {
	prefix := "WARNING ROTATOR!"
	if e.Level == LevelUrgent {
		prefix = "URGENT WARNING: ROTATOR!"
	}
	return fmt.Sprintf("%s hour angle %.2fh vs semi-diurnal arc %.2fh at dec %.4f", prefix, e.HourAngle, e.Arc, e.Dec)
}

// Unwrap returns ErrRejected.
func (e *ValidationError) Unwrap() error {
	return ErrRejected
}

// SemiDiurnalArc returns, in hours, the hour angle range over which an object
// at declination dec stays above altitude for an observer at latitude. All
// inputs are degrees. The cosine argument is clamped to [-1, 1].
func SemiDiurnalArc(altitude, dec, latitude float64) float64 {
	sd := math.Sin(dec * degree)
	cd := math.Cos(dec * degree)
	sp := math.Sin(latitude * degree)
	cp := math.Cos(latitude * degree)
	sal := math.Sin(altitude * degree)

	if cd < minCosDec {
		cd = minCosDec
	}

	csd := (sal - sd*sp) / (cd * cp)
	csd = math.Max(-1, math.Min(1, csd))
	return math.Acos(csd) / hour
}

// Check validates an hour angle (hours) at declination dec (degrees). Hour
// angles above NoConstraintHours are accepted unconditionally; otherwise the
// configuration is rejected with a level depending on where the hour angle
// falls relative to the semi-diurnal arc.
func Check(hourAngle, dec float64) error {
	if hourAngle > NoConstraintHours {
		return nil
	}
	arc := SemiDiurnalArc(AltitudeLimit, dec, ObservatoryLatitude)
	level := LevelWarning
	if math.Abs(hourAngle) < arc {
		level = LevelUrgent
	}
	return &ValidationError{Level: level, HourAngle: hourAngle, Arc: arc, Dec: dec}
}

// Validate checks the setup's hour angle against its field center.
func Validate(s setup.Setup) error {
	return Check(s.HourAngle, s.CenterDec)
}
