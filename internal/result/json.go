package result

import (
	"encoding/json"
	"fmt"
)

// record is the flat JSON form of a Feature. Shape is present only for holes.
type record struct {
	Kind FeatureKind `json:"kind"`
	Geometry
	Shape *int `json:"shape,omitempty"`
}

// MarshalFeatures encodes features as a JSON array of kind-tagged objects.
func MarshalFeatures(fs []Feature) ([]byte, error) {
	recs := make([]record, 0, len(fs))
	for _, f := range fs {
		switch v := f.(type) {
		case Slit:
			recs = append(recs, record{Kind: KindSlit, Geometry: v.Geometry})
		case Hole:
			shape := v.Shape
			recs = append(recs, record{Kind: KindHole, Geometry: v.Geometry, Shape: &shape})
		default:
			return nil, fmt.Errorf("unknown feature type %T", f)
		}
	}
	return json.Marshal(recs)
}

// UnmarshalFeatures decodes the output of MarshalFeatures.
func UnmarshalFeatures(data []byte) ([]Feature, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decoding features: %w", err)
	}
	out := make([]Feature, 0, len(recs))
	for i, r := range recs {
		switch r.Kind {
		case KindSlit:
			out = append(out, Slit{Geometry: r.Geometry})
		case KindHole:
			if r.Shape == nil {
				return nil, fmt.Errorf("feature %d: hole %q has no shape code", i, r.ID)
			}
			out = append(out, Hole{Geometry: r.Geometry, Shape: *r.Shape})
		default:
			return nil, fmt.Errorf("feature %d: unknown kind %q", i, r.Kind)
		}
	}
	return out, nil
}
