package obsfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/papapumpkin/slitforge/internal/coords"
	"github.com/papapumpkin/slitforge/internal/setup"
)

// ErrNoObjectFiles is returned when an observation file would reference no
// object files; the tool refuses such input.
var ErrNoObjectFiles = errors.New("observation file needs at least one OBJFILE")

// WriteObservation writes the observation file for s, referencing each of
// objFiles on its own OBJFILE line. Float precision per field is part of
// the tool's input contract.
func WriteObservation(w io.Writer, s setup.Setup, objFiles []string) error {
	if len(objFiles) == 0 {
		return ErrNoObjectFiles
	}

	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	p("#Obs file (%s%s)", s.Name, SetupExt)
	p("# Written By:  slitforge")
	if s.EditDate != "" {
		p("! Edited %s", s.EditDate)
	}
	p("OBSERVER  %s", s.Observer)
	p("FILENAME  %s", s.Name)
	p("TITLE   %s", s.Title)
	p("CENTER   %s %s", coords.FormatHours(s.CenterRA), coords.FormatDegrees(s.CenterDec))
	p("EQUINOX  %.5f", s.Equinox)
	p("POSITION %.5f", s.Position)
	p("DREF  %s", s.DRef)
	p("HANGLE %s", Decimal(s.HourAngle))
	p("#! No rotator warnings above horizon.")

	for _, gs := range s.GuideStars {
		p("%s %s   %s  %.3f  %s", gs.Name,
			coords.FormatHours(gs.RA), coords.FormatDegrees(gs.Dec), gs.Equinox, gs.ID)
	}

	p("WLIMIT  %.1f %.1f", s.WLimitLow, s.WLimitHigh)
	p("Wavelength  %.2f", s.Wavelength)
	p("PDECIDE  %.2f", s.PDecide)
	p("TELESCOPE  %s", s.Telescope)
	p("INSTRUMENT %s", s.Instrument)
	p("DISPERSER  %s", s.Disperser)
	p("SLITSIZE  %.3f %.3f %.3f %.3f", s.Slit.Width, s.Slit.ALen, s.Slit.BLen, s.Slit.Tilt)
	p("REFHOLE   %.3f %d %.3f %.3f %.3f",
		s.RefHole.Width, s.RefHole.Shape, s.RefHole.ALen, s.RefHole.BLen, s.RefHole.Orient)
	p("OVERLAP    %.2f", s.Overlap)
	p("EXORDER  %d", s.ExOrder)
	p("DATE %s", s.Date)
	p("#  Object file list")
	for _, f := range objFiles {
		p("OBJFILE  %s", f)
	}
	return bw.Flush()
}

// EncodeObservation returns the observation file for s as bytes.
func EncodeObservation(s setup.Setup, objFiles []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteObservation(&buf, s, objFiles); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
