// Package obsfile encodes catalog objects and observation setups into the
// text formats read by the mask generation tool. Output is deterministic:
// the same input always produces byte-identical files.
package obsfile

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/papapumpkin/slitforge/internal/catalog"
)

// ObjectHeader is the first line of every object file; it tells the tool
// that coordinates are decimal degrees.
const ObjectHeader = "&RADEGREE"

// File extensions the generation tool reads and writes.
const (
	ObjectExt    = ".obj" // Object list input.
	SetupExt     = ".obs" // Observation setup input.
	FeatureExt   = ".SMF" // Slit/hole feature result.
	InclusionExt = ".obw" // Object list annotated with use counts.
)

// WriteObjects writes the object file for objs in the order given. Guide
// objects are skipped. Auxiliary attributes are written in catalog.AuxKeys
// order; absent keys are omitted.
func WriteObjects(w io.Writer, objs []catalog.Object) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, ObjectHeader)
	for _, o := range objs {
		line, ok := ObjectLine(o)
		if !ok {
			continue
		}
		fmt.Fprintln(bw, line)
	}
	return bw.Flush()
}

// EncodeObjects returns the object file for objs as bytes.
func EncodeObjects(objs []catalog.Object) []byte {
	var buf bytes.Buffer
	_ = WriteObjects(&buf, objs)
	return buf.Bytes()
}

// ObjectLine renders one object, reporting false for kinds that are never
// written (guide stars).
func ObjectLine(o catalog.Object) (string, bool) {
	marker, ok := o.Kind.Marker()
	if !ok {
		return "", false
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(o.Name)
	b.WriteByte(' ')
	b.WriteString(Decimal(o.RA))
	b.WriteByte(' ')
	b.WriteString(Decimal(o.Dec))
	b.WriteString(" Pri=")
	b.WriteString(Decimal(float64(o.Priority)))

	for _, key := range catalog.AuxKeys {
		v, present := o.Aux[key]
		if !present || v == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String(), true
}

// Decimal formats f with the fewest digits that round-trip, always keeping
// a fractional part ("10" becomes "10.0").
func Decimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
