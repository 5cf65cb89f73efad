package result

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrUnknownObject is wrapped when the inclusion list names an object the
// catalog does not contain.
var ErrUnknownObject = errors.New("inclusion list references unknown object")

var (
	objectMarker = regexp.MustCompile(`^[@*](\S+)`)
	usedMarker   = regexp.MustCompile(`Use=\d+`)
)

// UnknownObjectError reports the offending name and line.
type UnknownObjectError struct {
	Name string
	Line int
}

// Error names the object.
func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("line %d: object %q not found in catalog", e.Line, e.Name)
}

// Unwrap returns ErrUnknownObject.
func (e *UnknownObjectError) Unwrap() error { return ErrUnknownObject }

// Inclusion partitions the objects the tool considered.
type Inclusion struct {
	Included []string
	Excluded []string
}

// Total returns the number of objects listed.
func (in Inclusion) Total() int { return len(in.Included) + len(in.Excluded) }

// DecodeInclusion reads the tool's annotated object list. A line starting
// with @ or * names an object; it is included when the line carries a
// Use=<n> marker and excluded otherwise. known reports whether a name exists
// in the catalog; the first unknown name aborts decoding. A name listed more
// than once keeps its first classification.
func DecodeInclusion(r io.Reader, known func(string) bool) (Inclusion, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var in Inclusion
	seen := make(map[string]bool)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(strings.ToValidUTF8(sc.Text(), "\uFFFD"))
		m := objectMarker.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := m[1]
		if !known(name) {
			return Inclusion{}, &UnknownObjectError{Name: name, Line: n}
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		if usedMarker.MatchString(line) {
			in.Included = append(in.Included, name)
		} else {
			in.Excluded = append(in.Excluded, name)
		}
	}
	if err := sc.Err(); err != nil {
		return Inclusion{}, fmt.Errorf("reading inclusion list: %w", err)
	}
	return in, nil
}
