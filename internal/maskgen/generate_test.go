package maskgen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/papapumpkin/slitforge/internal/events"
	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/process"
	"github.com/papapumpkin/slitforge/internal/result"
	"github.com/papapumpkin/slitforge/internal/rotator"
	"github.com/papapumpkin/slitforge/internal/setup"
	"github.com/papapumpkin/slitforge/internal/store"
)

func TestGenerate_Single(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{})
	ctx := context.Background()

	masks, err := e.gen.Generate(ctx, testSetup("m1"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(masks) != 1 {
		t.Fatalf("got %d masks, want 1", len(masks))
	}
	m := masks[0]
	if m.Name != "m1" || m.Status != mask.StatusDraft {
		t.Errorf("mask = %s/%s, want m1/draft", m.Name, m.Status)
	}
	if slits, holes := m.Counts(); slits != 5 || holes != 1 {
		t.Errorf("counts = %d slits %d holes, want 5 and 1", slits, holes)
	}
	if len(m.Included) != 6 || len(m.Excluded) != 0 {
		t.Errorf("included %v excluded %v", m.Included, m.Excluded)
	}

	reqs := e.tool.requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d tool runs, want 1", len(reqs))
	}
	if diff := cmp.Diff([]string{"-s", "m1.obs"}, reqs[0].Args); diff != "" {
		t.Errorf("args (-want +got):\n%s", diff)
	}
	if !reqs[0].AutoConfirm || reqs[0].SuccessMarker != GenerateMarker {
		t.Errorf("request = %+v, want auto-confirm with generation marker", reqs[0])
	}

	if got := dirEntries(t, e.toolDir); len(got) != 0 {
		t.Errorf("tool directory not clean: %v", got)
	}
	dir := e.artifacts.Dir("ngc300", "m1")
	if diff := cmp.Diff([]string{"m1.SMF", "m1.obj", "m1.obs"}, dirEntries(t, dir)); diff != "" {
		t.Errorf("artifacts (-want +got):\n%s", diff)
	}
	obj, err := os.ReadFile(filepath.Join(dir, "m1.obj"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(obj), "G1") {
		t.Error("guide star written to object file")
	}

	stored, err := e.store.GetMask(ctx, "ngc300", "m1")
	if err != nil {
		t.Fatalf("GetMask: %v", err)
	}
	if stored.ID != m.ID || len(stored.Features) != 6 {
		t.Errorf("stored mask = %+v", stored)
	}
	if diff := cmp.Diff([]events.Type{events.TypeCreated}, e.events.Types()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"m1"}, e.notes.created); diff != "" {
		t.Errorf("notifications (-want +got):\n%s", diff)
	}
}

func TestGenerate_SelectedObjects(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{})
	s := testSetup("m1")
	s.Objects = []string{"T2", "A1"}

	masks, err := e.gen.Generate(context.Background(), s)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if diff := cmp.Diff([]string{"A1", "T2"}, masks[0].Included); diff != "" {
		t.Errorf("included (-want +got):\n%s", diff)
	}
}

func TestGenerate_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prep   func(t *testing.T, e *env)
		setup  func() setup.Setup
		target error
	}{
		{
			name: "existing mask name",
			prep: func(t *testing.T, e *env) {
				if err := e.store.CreateMask(context.Background(), mask.New(testSetup("m1"), nil, result.Inclusion{}, e.gen.now())); err != nil {
					t.Fatal(err)
				}
			},
			setup:  func() setup.Setup { return testSetup("m1") },
			target: ErrMaskExists,
		},
		{
			name: "rotator conflict",
			setup: func() setup.Setup {
				s := testSetup("m1")
				s.HourAngle = 1.5
				return s
			},
			target: rotator.ErrRejected,
		},
		{
			name: "missing project",
			setup: func() setup.Setup {
				s := testSetup("m1")
				s.Project = "m31"
				return s
			},
			target: store.ErrNotFound,
		},
		{
			name: "invalid setup",
			setup: func() setup.Setup {
				s := testSetup("m 1")
				return s
			},
			target: setup.ErrInvalid,
		},
		{
			name: "only guide stars",
			setup: func() setup.Setup {
				s := testSetup("m1")
				s.Objects = []string{"G1"}
				return s
			},
			target: ErrNoObjects,
		},
		{
			name: "sweep name taken",
			prep: func(t *testing.T, e *env) {
				if err := e.store.CreateMask(context.Background(), mask.New(testSetup("m1_10"), nil, result.Inclusion{}, e.gen.now())); err != nil {
					t.Fatal(err)
				}
			},
			setup: func() setup.Setup {
				s := testSetup("m1")
				s.Sweep = &setup.Sweep{Start: 0, End: 20, Step: 10}
				return s
			},
			target: ErrMaskExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newEnv(t, &fakeTool{})
			if tt.prep != nil {
				tt.prep(t, e)
			}
			_, err := e.gen.Generate(context.Background(), tt.setup())
			if !errors.Is(err, tt.target) {
				t.Fatalf("err = %v, want %v", err, tt.target)
			}
			var f *Failure
			if !errors.As(err, &f) || f.Category != CategoryValidation {
				t.Errorf("err = %#v, want validation failure", err)
			}
			if n := len(e.tool.requests()); n != 0 {
				t.Errorf("tool ran %d times", n)
			}
			if got := dirEntries(t, e.toolDir); len(got) != 0 {
				t.Errorf("files written: %v", got)
			}
		})
	}
}

func TestGenerate_Sweep(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{})
	s := testSetup("m1")
	s.Sweep = &setup.Sweep{Start: -10, End: 10, Step: 10}

	masks, err := e.gen.Generate(context.Background(), s)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var names []string
	var positions []float64
	for _, m := range masks {
		names = append(names, m.Name)
		positions = append(positions, m.Setup.Position)
	}
	if diff := cmp.Diff([]string{"m1_m10", "m1_0", "m1_10"}, names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{-10, 0, 10}, positions); diff != "" {
		t.Errorf("positions (-want +got):\n%s", diff)
	}
	if got := dirEntries(t, e.toolDir); len(got) != 0 {
		t.Errorf("tool directory not clean: %v", got)
	}
}

func TestGenerate_SweepStopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{failAt: 2})
	s := testSetup("m1")
	s.Sweep = &setup.Sweep{Start: 0, End: 20, Step: 10}

	masks, err := e.gen.Generate(context.Background(), s)
	if len(masks) != 1 || masks[0].Name != "m1_0" {
		t.Fatalf("masks = %v, want only m1_0", masks)
	}
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("err = %v, want *Failure", err)
	}
	if f.Category != CategoryProcess || f.Mask != "m1_10" {
		t.Errorf("failure = %s for %s", f.Category, f.Mask)
	}
	if diff := cmp.Diff([]string{"Mask too crowded"}, f.Lines); diff != "" {
		t.Errorf("lines (-want +got):\n%s", diff)
	}
	var pe *process.Error
	if !errors.As(err, &pe) || pe.Kind != process.KindExit {
		t.Errorf("process error = %v", pe)
	}
	if n := len(e.tool.requests()); n != 2 {
		t.Errorf("tool ran %d times, want 2", n)
	}
	if _, err := e.store.GetMask(context.Background(), "ngc300", "m1_10"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("failed mask stored: %v", err)
	}
	if got := dirEntries(t, e.artifacts.Dir("ngc300", "m1_10")); len(got) != 0 {
		t.Errorf("artifacts left for failed mask: %v", got)
	}
	if got := dirEntries(t, e.toolDir); len(got) != 0 {
		t.Errorf("tool directory not clean: %v", got)
	}
}

func TestGenerate_Iterate(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{excluded: []int{3, 1, 0}})
	s := testSetup("m1")
	s.Iterate = true

	masks, err := e.gen.Generate(context.Background(), s)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var names []string
	var excluded []int
	for _, m := range masks {
		names = append(names, m.Name)
		excluded = append(excluded, len(m.Excluded))
	}
	if diff := cmp.Diff([]string{"m1_v1", "m1_v2", "m1_v3"}, names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{3, 1, 0}, excluded); diff != "" {
		t.Errorf("excluded counts (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"T2", "T3", "A1"}, masks[1].Included); diff != "" {
		t.Errorf("second mask included (-want +got):\n%s", diff)
	}
	if n := len(e.tool.requests()); n != 3 {
		t.Errorf("tool ran %d times, want 3", n)
	}
}

func TestGenerate_IterateWithoutProgress(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{excluded: []int{2, 2}})
	s := testSetup("m1")
	s.Iterate = true

	masks, err := e.gen.Generate(context.Background(), s)
	if !errors.Is(err, ErrNoProgress) {
		t.Fatalf("err = %v, want ErrNoProgress", err)
	}
	if len(masks) != 2 {
		t.Errorf("got %d masks, want 2", len(masks))
	}
}

func TestGenerate_IterationLimit(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{excluded: []int{4, 3, 2}})
	e.gen.Opts.MaxIterations = 2
	s := testSetup("m1")
	s.Iterate = true

	masks, err := e.gen.Generate(context.Background(), s)
	if !errors.Is(err, ErrIterationLimit) {
		t.Fatalf("err = %v, want ErrIterationLimit", err)
	}
	if len(masks) != 2 {
		t.Errorf("got %d masks, want 2", len(masks))
	}
}

func TestGenerate_UnknownObjectRollsBack(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{stranger: true})

	masks, err := e.gen.Generate(context.Background(), testSetup("m1"))
	if len(masks) != 0 {
		t.Errorf("masks = %v", masks)
	}
	var ce *ConsistencyError
	if !errors.As(err, &ce) || ce.Mask != "m1" {
		t.Fatalf("err = %v, want ConsistencyError", err)
	}
	if !errors.Is(err, result.ErrUnknownObject) {
		t.Errorf("err = %v, want ErrUnknownObject", err)
	}
	var f *Failure
	if errors.As(err, &f) && f.Category != CategoryConsistency {
		t.Errorf("category = %s", f.Category)
	}
	if _, err := e.store.GetMask(context.Background(), "ngc300", "m1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("mask stored after rollback: %v", err)
	}
	if got := dirEntries(t, e.toolDir); len(got) != 0 {
		t.Errorf("tool directory not clean: %v", got)
	}
	if got := dirEntries(t, e.artifacts.Dir("ngc300", "m1")); len(got) != 0 {
		t.Errorf("artifacts left: %v", got)
	}
	if len(e.events.Events()) != 0 {
		t.Errorf("events published: %v", e.events.Types())
	}
}

func TestGenerate_MalformedFeatures(t *testing.T) {
	t.Parallel()
	e := newEnv(t, &fakeTool{badSMF: true})

	_, err := e.gen.Generate(context.Background(), testSetup("m1"))
	if !errors.Is(err, result.ErrMalformed) {
		t.Fatalf("err = %v, want ErrMalformed", err)
	}
	var f *Failure
	if !errors.As(err, &f) || f.Category != CategoryDecode {
		t.Errorf("err = %#v, want decode failure", err)
	}
	if got := dirEntries(t, e.toolDir); len(got) != 0 {
		t.Errorf("tool directory not clean: %v", got)
	}
}

func TestAngleLabel(t *testing.T) {
	t.Parallel()
	tests := map[float64]string{0: "0", 15: "15", -12.5: "m12p5", 7.25: "7p25"}
	for angle, want := range tests {
		if got := AngleLabel(angle); got != want {
			t.Errorf("AngleLabel(%v) = %q, want %q", angle, got, want)
		}
	}
}

func TestFailure_Error(t *testing.T) {
	t.Parallel()
	f := fail(CategoryProcess, "m1", errors.New("exit status 1"), "Mask too crowded", "Reduce objects")
	want := "process failure for mask m1: exit status 1\n  Mask too crowded\n  Reduce objects"
	if got := f.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
