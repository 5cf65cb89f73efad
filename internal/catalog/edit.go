package catalog

import (
	"fmt"

	"github.com/papapumpkin/slitforge/internal/coords"
)

// Edit describes a partial update to an object. Nil fields are left alone;
// Aux entries are merged, and an empty value deletes the key.
type Edit struct {
	Kind     *string
	RA       *string
	Dec      *string
	Priority *int
	Aux      map[string]string
}

// Apply returns a copy of o with the edit applied. Coordinates pass through
// the same normalization as ingestion.
func (e Edit) Apply(o Object) (Object, error) {
	out := o
	out.Aux = o.Aux.Clone()

	if e.Kind != nil {
		k, err := ParseKind(*e.Kind)
		if err != nil {
			return Object{}, fmt.Errorf("object %s: %w", o.Name, err)
		}
		out.Kind = k
	}
	if e.RA != nil {
		ra, err := coords.Parse(coords.AxisRA, *e.RA)
		if err != nil {
			return Object{}, fmt.Errorf("object %s: %w", o.Name, err)
		}
		out.RA = ra
	}
	if e.Dec != nil {
		dec, err := coords.Parse(coords.AxisDec, *e.Dec)
		if err != nil {
			return Object{}, fmt.Errorf("object %s: %w", o.Name, err)
		}
		out.Dec = dec
	}
	if e.Priority != nil {
		out.Priority = *e.Priority
	}
	for k, v := range e.Aux {
		if out.Aux == nil {
			out.Aux = Aux{}
		}
		if v == "" {
			delete(out.Aux, k)
			continue
		}
		out.Aux[k] = v
	}
	return out, nil
}
