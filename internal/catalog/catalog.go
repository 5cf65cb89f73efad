// Package catalog models astronomical catalog objects and their ingestion
// from legacy object files, JSON and TOML. Coordinates are normalized to
// decimal degrees at ingestion; everything downstream works in degrees only.
package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for catalog manipulation.
var (
	// ErrDuplicateObject indicates two objects in one catalog share a name.
	ErrDuplicateObject = errors.New("duplicate object name")
	// ErrUnknownObject indicates a lookup by name found nothing.
	ErrUnknownObject = errors.New("unknown object")
	// ErrUnknownKind indicates an object kind string that is not target, align or guide.
	ErrUnknownKind = errors.New("unknown object kind")
)

// Kind is the role an object plays on a mask.
type Kind string

const (
	KindTarget Kind = "TARGET" // Spectroscopic target; gets a slit.
	KindAlign  Kind = "ALIGN"  // Alignment star; gets a hole.
	KindGuide  Kind = "GUIDE"  // Guide star; never cut into the mask.
)

// ParseKind accepts the canonical names case-insensitively, plus the
// one-character object file markers.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TARGET", "@":
		return KindTarget, nil
	case "ALIGN", "ALIGNMENT", "*":
		return KindAlign, nil
	case "GUIDE", "GUIDER":
		return KindGuide, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Marker returns the object file marker for the kind and whether the kind is
// written to object files at all.
func (k Kind) Marker() (string, bool) {
	switch k {
	case KindTarget:
		return "@", true
	case KindAlign:
		return "*", true
	case KindGuide:
		return "", false
	}
	return "", false
}

// Object is a single catalog entry. RA and Dec are decimal degrees.
type Object struct {
	Name     string  `json:"name"`
	Kind     Kind    `json:"type"`
	RA       float64 `json:"ra"`
	Dec      float64 `json:"dec"`
	Priority int     `json:"priority"`
	Aux      Aux     `json:"aux,omitempty"`
}

// Eligible reports whether the object may be written to an object file.
func (o Object) Eligible() bool {
	_, ok := o.Kind.Marker()
	return ok
}

// Aux holds auxiliary per-object attributes (slit width, lengths, tilt...).
// Values keep the text they were ingested with.
type Aux map[string]string

// AuxKeys is the canonical order in which auxiliary attributes are written.
var AuxKeys = []string{"use", "width", "shape", "a_len", "b_len", "tilt", "pa"}

// Clone returns an independent copy of the map.
func (a Aux) Clone() Aux {
	if a == nil {
		return nil
	}
	out := make(Aux, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Catalog is a named, ordered collection of objects with unique names.
type Catalog struct {
	Name    string   `json:"name"`
	Objects []Object `json:"objects"`
}

// New builds a catalog, rejecting duplicate object names.
func New(name string, objects []Object) (Catalog, error) {
	c := Catalog{Name: name}
	for _, o := range objects {
		if err := c.Add(o); err != nil {
			return Catalog{}, err
		}
	}
	return c, nil
}

// Add appends an object, rejecting a name already present.
func (c *Catalog) Add(o Object) error {
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("catalog: object name is empty")
	}
	if _, ok := c.Lookup(o.Name); ok {
		return fmt.Errorf("catalog %s: %w: %s", c.Name, ErrDuplicateObject, o.Name)
	}
	c.Objects = append(c.Objects, o)
	return nil
}

// Lookup returns the object with the given name.
func (c Catalog) Lookup(name string) (Object, bool) {
	for _, o := range c.Objects {
		if o.Name == name {
			return o, true
		}
	}
	return Object{}, false
}

// Eligible returns the objects that can be written to an object file, in
// catalog order.
func (c Catalog) Eligible() []Object {
	var out []Object
	for _, o := range c.Objects {
		if o.Eligible() {
			out = append(out, o)
		}
	}
	return out
}

// Select returns the named objects in catalog order. An empty names list
// selects every object.
func (c Catalog) Select(names []string) ([]Object, error) {
	if len(names) == 0 {
		return append([]Object(nil), c.Objects...), nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := c.Lookup(n); !ok {
			return nil, fmt.Errorf("catalog %s: %w: %s", c.Name, ErrUnknownObject, n)
		}
		want[n] = true
	}
	var out []Object
	for _, o := range c.Objects {
		if want[o.Name] {
			out = append(out, o)
		}
	}
	return out, nil
}

// Remove deletes the named object.
func (c *Catalog) Remove(name string) error {
	for i, o := range c.Objects {
		if o.Name == name {
			c.Objects = append(c.Objects[:i], c.Objects[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("catalog %s: %w: %s", c.Name, ErrUnknownObject, name)
}
