// Package setup holds the instrument and observation parameters submitted
// for one mask generation run. A Setup is a value: strategies derive
// per-iteration copies with WithName and WithPosition instead of mutating it.
package setup

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/slitforge/internal/coords"
)

// ErrInvalid is wrapped by every setup validation failure.
var ErrInvalid = errors.New("invalid observation setup")

// Strategy selects how many masks one request produces.
type Strategy string

const (
	StrategySingle  Strategy = "single"  // One mask.
	StrategySweep   Strategy = "sweep"   // One mask per rotator angle.
	StrategyIterate Strategy = "iterate" // Masks until every object is placed.
)

// GuideStar is written into the observation file header.
type GuideStar struct {
	Name    string  `toml:"name" json:"name"`
	RA      float64 `toml:"ra" json:"ra"`
	Dec     float64 `toml:"dec" json:"dec"`
	Equinox float64 `toml:"equinox" json:"equinox"`
	ID      string  `toml:"id" json:"id"`
}

// Sweep is an inclusive start/end/step rotator angle range in degrees.
type Sweep struct {
	Start float64 `toml:"start" json:"start"`
	End   float64 `toml:"end" json:"end"`
	Step  float64 `toml:"step" json:"step"`
}

// MaxSweepAngles bounds the number of masks one sweep may request.
const MaxSweepAngles = 360

// count returns the number of angles in the range, or -1 when the range is
// not finite, empty, or longer than MaxSweepAngles.
func (s Sweep) count() int {
	if !finite(s.Start, s.End, s.Step) || s.Step <= 0 || s.End < s.Start {
		return -1
	}
	n := math.Floor((s.End-s.Start)/s.Step+1e-9) + 1
	if n > MaxSweepAngles {
		return -1
	}
	return int(n)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Angles expands the range. The count is computed up front so float
// accumulation cannot drop or add the final angle. An invalid range
// yields no angles.
func (s Sweep) Angles() []float64 {
	n := s.count()
	if n < 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = roundAngle(s.Start + float64(i)*s.Step)
	}
	return out
}

func roundAngle(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Setup is one observation configuration. Name is the mask (and file) name.
type Setup struct {
	Name     string   `toml:"name" json:"name"`
	Project  string   `toml:"project" json:"project"`
	Catalog  string   `toml:"catalog" json:"catalog"`
	Objects  []string `toml:"objects" json:"objects,omitempty"`
	Observer string   `toml:"observer" json:"observer"`
	Title    string   `toml:"title" json:"title"`

	CenterRA  float64 `toml:"-" json:"center_ra"`
	CenterDec float64 `toml:"-" json:"center_dec"`
	Equinox   float64 `toml:"equinox" json:"equinox"`
	Position  float64 `toml:"position" json:"position"`
	DRef      string  `toml:"dref" json:"dref"`
	HourAngle float64 `toml:"hangle" json:"hangle"`

	WLimitLow  float64 `toml:"wlimit_low" json:"wlimit_low"`
	WLimitHigh float64 `toml:"wlimit_high" json:"wlimit_high"`
	Wavelength float64 `toml:"wavelength" json:"wavelength"`
	PDecide    float64 `toml:"pdecide" json:"pdecide"`

	Telescope  string `toml:"telescope" json:"telescope"`
	Instrument string `toml:"instrument" json:"instrument"`
	Disperser  string `toml:"disperser" json:"disperser"`

	Slit    SlitSize `toml:"slit" json:"slit"`
	RefHole RefHole  `toml:"refhole" json:"refhole"`

	Overlap  float64 `toml:"overlap" json:"overlap"`
	ExOrder  int     `toml:"exorder" json:"exorder"`
	Date     string  `toml:"date" json:"date"`
	EditDate string  `toml:"edit_date" json:"edit_date"`

	GuideStars []GuideStar `toml:"guide_star" json:"guide_stars,omitempty"`

	Sweep   *Sweep `toml:"sweep" json:"sweep,omitempty"`
	Iterate bool   `toml:"iterate" json:"iterate,omitempty"`
}

// SlitSize is the default slit geometry in arcseconds and degrees.
type SlitSize struct {
	Width float64 `toml:"width" json:"width"`
	ALen  float64 `toml:"a_len" json:"a_len"`
	BLen  float64 `toml:"b_len" json:"b_len"`
	Tilt  float64 `toml:"tilt" json:"tilt"`
}

// RefHole is the alignment hole geometry. Shape: 0 circle, 1 square,
// 2 rectangle, 3 special.
type RefHole struct {
	Width  float64 `toml:"width" json:"width"`
	Shape  int     `toml:"shape" json:"shape"`
	ALen   float64 `toml:"a_len" json:"a_len"`
	BLen   float64 `toml:"b_len" json:"b_len"`
	Orient float64 `toml:"orient" json:"orient"`
}

// Strategy reports which generation strategy the setup's shape selects.
func (s Setup) Strategy() Strategy {
	switch {
	case s.Sweep != nil:
		return StrategySweep
	case s.Iterate:
		return StrategyIterate
	default:
		return StrategySingle
	}
}

// WithName returns a copy renamed for one iteration of a multi-mask run.
func (s Setup) WithName(name string) Setup {
	out := s.clone()
	out.Name = name
	return out
}

// WithPosition returns a copy with a different rotator position angle.
func (s Setup) WithPosition(angle float64) Setup {
	out := s.clone()
	out.Position = angle
	return out
}

func (s Setup) clone() Setup {
	out := s
	out.Objects = append([]string(nil), s.Objects...)
	out.GuideStars = append([]GuideStar(nil), s.GuideStars...)
	if s.Sweep != nil {
		sw := *s.Sweep
		out.Sweep = &sw
	}
	return out
}

// Validate checks the fields the generation tool cannot run without.
func (s Setup) Validate() error {
	var problems []string
	if s.Name == "" {
		problems = append(problems, "name is required")
	}
	if strings.ContainsAny(s.Name, " /\\\t") {
		problems = append(problems, fmt.Sprintf("name %q must not contain spaces or path separators", s.Name))
	}
	if s.Project == "" {
		problems = append(problems, "project is required")
	}
	if s.Catalog == "" {
		problems = append(problems, "catalog is required")
	}
	if s.WLimitHigh < s.WLimitLow {
		problems = append(problems, "wlimit_high is below wlimit_low")
	}
	if !finite(s.CenterRA, s.CenterDec, s.Equinox, s.Position, s.HourAngle, s.WLimitLow, s.WLimitHigh) {
		problems = append(problems, "numeric fields must be finite")
	}
	if sw := s.Sweep; sw != nil {
		switch {
		case !finite(sw.Start, sw.End, sw.Step):
			problems = append(problems, "sweep start, end and step must be finite")
		case sw.Step <= 0:
			problems = append(problems, "sweep step must be positive")
		case sw.End < sw.Start:
			problems = append(problems, "sweep end is before start")
		case sw.count() < 0:
			problems = append(problems, fmt.Sprintf("sweep yields more than %d angles", MaxSweepAngles))
		}
		if s.Iterate {
			problems = append(problems, "sweep and iterate are mutually exclusive")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// fileSetup carries the center coordinates as text so they can be written
// in either decimal or sexagesimal notation.
type fileSetup struct {
	Setup
	Center struct {
		RA  any `toml:"ra"`
		Dec any `toml:"dec"`
	} `toml:"center"`
}

// Parse decodes a TOML setup document and normalizes its coordinates.
func Parse(data []byte) (Setup, error) {
	var fs fileSetup
	if err := toml.Unmarshal(data, &fs); err != nil {
		return Setup{}, fmt.Errorf("parsing setup TOML: %w", err)
	}
	s := fs.Setup

	ra, err := coords.Value(coords.AxisRA, fs.Center.RA)
	if err != nil {
		return Setup{}, fmt.Errorf("setup center: %w", err)
	}
	dec, err := coords.Value(coords.AxisDec, fs.Center.Dec)
	if err != nil {
		return Setup{}, fmt.Errorf("setup center: %w", err)
	}
	s.CenterRA, s.CenterDec = ra, dec

	if err := s.Validate(); err != nil {
		return Setup{}, err
	}
	return s, nil
}

// Load reads and parses a TOML setup file.
func Load(path string) (Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Setup{}, fmt.Errorf("reading setup: %w", err)
	}
	return Parse(data)
}
