package result

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeFeatures_Slit(t *testing.T) {
	t.Parallel()

	got, err := DecodeFeatures(strings.NewReader("SLIT S1 10.0 -5.0 100.0 200.0 1.0 2.0 2.0 90.0\n"))
	if err != nil {
		t.Fatalf("DecodeFeatures: %v", err)
	}
	want := []Feature{Slit{Geometry: Geometry{
		ID: "S1", RA: 10, Dec: -5, X: 100, Y: 200, Width: 1, ALen: 2, BLen: 2, Angle: 90,
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFeatures_MixedFile(t *testing.T) {
	t.Parallel()

	in := "# header\n" +
		"SLITSIZE 1.0 2.0 2.0 0.0\n" +
		"SLIT S1 10.0 -5.0 100.0 200.0 1.0 2.0 2.0 90.0\n" +
		"\n" +
		"  HOLE H1 11.0 -6.0 -50.5 20.0 5.8 1 2.0 2.0 0.0\n" +
		"TEXT something else\n"
	got, err := DecodeFeatures(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeFeatures: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d features, want 2: %+v", len(got), got)
	}
	h, ok := got[1].(Hole)
	if !ok {
		t.Fatalf("second feature is %T, want Hole", got[1])
	}
	if h.Shape != 1 || h.X != -50.5 || h.ALen != 2 || h.Angle != 0 || h.Ident() != "H1" {
		t.Errorf("hole = %+v", h)
	}
	if got[0].Kind() != KindSlit || got[1].Kind() != KindHole {
		t.Errorf("kinds = %v, %v", got[0].Kind(), got[1].Kind())
	}
}

func TestDecodeFeatures_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    string
		line  int
		field string
	}{
		{"bad number", "SLIT S1 10.0 -5.0 abc 200.0 1.0 2.0 2.0 90.0\n", 1, "x"},
		{"too few fields", "\nSLIT S1 10.0 -5.0\n", 2, ""},
		{"fractional shape", "HOLE H1 1 2 3 4 5 1.5 2 2 0\n", 1, "shape"},
		{"nan coordinate", "SLIT S1 NaN -5.0 1 2 1.0 2.0 2.0 90.0\n", 1, "ra"},
		{"infinite width", "SLIT S1 10.0 -5.0 1 2 +Inf 2.0 2.0 90.0\n", 1, "width"},
		{"infinite shape", "HOLE H1 1 2 3 4 5 Inf 2 2 0\n", 1, "shape"},
		{"huge shape", "HOLE H1 1 2 3 4 5 1e300 2 2 0\n", 1, "shape"},
		{"negative shape", "HOLE H1 1 2 3 4 5 -1 2 2 0\n", 1, "shape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeFeatures(strings.NewReader(tt.in))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("error = %v, want *DecodeError", err)
			}
			if de.Line != tt.line || de.Field != tt.field {
				t.Errorf("DecodeError = line %d field %q, want line %d field %q", de.Line, de.Field, tt.line, tt.field)
			}
			if !errors.Is(err, ErrMalformed) {
				t.Error("error does not match ErrMalformed")
			}
		})
	}
}

func TestDecodeFeatures_InvalidUTF8(t *testing.T) {
	t.Parallel()

	in := "\xff\xfe junk\nSLIT S\xff1 1 2 3 4 5 6 7 8\n"
	got, err := DecodeFeatures(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeFeatures: %v", err)
	}
	if len(got) != 1 || got[0].Ident() != "S\uFFFD1" {
		t.Errorf("features = %+v", got)
	}
}

func TestFeaturesJSON(t *testing.T) {
	t.Parallel()

	in := []Feature{
		Slit{Geometry: Geometry{ID: "S1", RA: 10, Width: 1}},
		Hole{Geometry: Geometry{ID: "H1", X: 3}, Shape: 0},
	}
	data, err := MarshalFeatures(in)
	if err != nil {
		t.Fatalf("MarshalFeatures: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"hole"`) || !strings.Contains(string(data), `"shape":0`) {
		t.Errorf("json = %s", data)
	}
	if strings.Count(string(data), `"shape"`) != 1 {
		t.Errorf("slit carries a shape field: %s", data)
	}
	out, err := UnmarshalFeatures(data)
	if err != nil {
		t.Fatalf("UnmarshalFeatures: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("features mismatch (-want +got):\n%s", diff)
	}

	if _, err := UnmarshalFeatures([]byte(`[{"kind":"wedge","id":"W"}]`)); err == nil {
		t.Error("unknown kind accepted")
	}
	if _, err := UnmarshalFeatures([]byte(`[{"kind":"hole","id":"H"}]`)); err == nil {
		t.Error("hole without shape accepted")
	}
}

func knownSet(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(n string) bool { return set[n] }
}

func TestDecodeInclusion(t *testing.T) {
	t.Parallel()

	in := "&RADEGREE\n" +
		"@X1 10.0 -5.0 Pri=3.0 Use=1\n" +
		"@X2 10.1 -5.1 Pri=2.0 use=1\n" +
		"*A1 150.0 -29.0 Pri=0.0 Use=0\n" +
		"@X1 10.0 -5.0 Pri=3.0\n" +
		"plain line\n"
	got, err := DecodeInclusion(strings.NewReader(in), knownSet("X1", "X2", "A1"))
	if err != nil {
		t.Fatalf("DecodeInclusion: %v", err)
	}
	want := Inclusion{Included: []string{"X1", "A1"}, Excluded: []string{"X2"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("inclusion mismatch (-want +got):\n%s", diff)
	}
	if got.Total() != 3 {
		t.Errorf("Total = %d", got.Total())
	}
}

func TestDecodeInclusion_UnknownObject(t *testing.T) {
	t.Parallel()

	in := "@X1 1 2 Use=1\n@GHOST 1 2 Use=1\n"
	_, err := DecodeInclusion(strings.NewReader(in), knownSet("X1"))
	var ue *UnknownObjectError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want *UnknownObjectError", err)
	}
	if ue.Name != "GHOST" || ue.Line != 2 {
		t.Errorf("UnknownObjectError = %+v", ue)
	}
	if !errors.Is(err, ErrUnknownObject) {
		t.Error("error does not wrap ErrUnknownObject")
	}
}

func TestExtractErrors(t *testing.T) {
	t.Parallel()

	out := "Reading field7.obs\n" +
		"***********************************\n" +
		"** ERROR: no objects fit the mask **\n" +
		"**   ---------------------------  **\n" +
		"** check the field center          **\n" +
		"***********************************\n" +
		"noise after\n" +
		"*****\n" +
		"* second block *\n" +
		"*****\n"
	got := ExtractErrors(out)
	want := []string{"ERROR: no objects fit the mask", "check the field center", "second block"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ExtractErrors mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractErrors_FallbackToRaw(t *testing.T) {
	t.Parallel()

	if got := ExtractErrors("  segmentation fault\n"); !cmp.Equal(got, []string{"segmentation fault"}) {
		t.Errorf("ExtractErrors = %q", got)
	}
	if got := ExtractErrors("****\nunterminated\n"); !cmp.Equal(got, []string{"****\nunterminated"}) {
		t.Errorf("unterminated block: %q", got)
	}
	if got := ExtractErrors(""); got != nil {
		t.Errorf("empty output: %q", got)
	}
}

func TestCutTime(t *testing.T) {
	t.Parallel()

	line, ok := CutTime("writing mask\n  Estimated cutting time: 42 min\n")
	if !ok || line != "Estimated cutting time: 42 min" {
		t.Errorf("CutTime = %q, %v", line, ok)
	}
	if _, ok := CutTime("nothing"); ok {
		t.Error("CutTime found a marker in unrelated output")
	}
}
