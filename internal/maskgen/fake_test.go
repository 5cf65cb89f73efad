package maskgen

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/papapumpkin/slitforge/internal/artifact"
	"github.com/papapumpkin/slitforge/internal/catalog"
	"github.com/papapumpkin/slitforge/internal/events"
	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/obsfile"
	"github.com/papapumpkin/slitforge/internal/process"
	"github.com/papapumpkin/slitforge/internal/setup"
	"github.com/papapumpkin/slitforge/internal/store"
	"github.com/papapumpkin/slitforge/internal/workspace"
)

const scratchFile = ".loc_mgvers.dat"

// fakeTool stands in for both external tools. It reads the object file the
// generator wrote and answers with feature and inclusion files.
type fakeTool struct {
	mu    sync.Mutex
	calls []process.Request

	excluded []int // targets to exclude, per generation call
	failAt   int   // 1-based generation call that exits non-zero
	stranger bool  // list an object the catalog does not contain
	badSMF   bool  // append a truncated SLIT record
}

func (f *fakeTool) Run(_ context.Context, req process.Request) (process.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)

	if err := os.WriteFile(filepath.Join(req.Dir, scratchFile), []byte("v3"), 0o644); err != nil {
		return process.Result{}, err
	}
	if req.Path == "smdfplt" {
		return process.Result{OK: true, State: process.StateDone, Output: "plotting\nEstimated cutting time: 4 min\n"}, nil
	}

	n := f.generations()
	if n == f.failAt {
		out := "reading objects\n*****\n* Mask too crowded *\n*****\n"
		return process.Result{State: process.StateFailed, Output: out, ExitCode: 1},
			&process.Error{Kind: process.KindExit, Command: req.CommandLine(), ExitCode: 1, Output: out}
	}

	name := strings.TrimSuffix(req.Args[1], obsfile.SetupExt)
	data, err := os.ReadFile(filepath.Join(req.Dir, name+obsfile.ObjectExt))
	if err != nil {
		return process.Result{}, err
	}
	objs, err := catalog.ParseObjectFile(bytes.NewReader(data))
	if err != nil {
		return process.Result{}, err
	}

	exclude := 0
	if n-1 < len(f.excluded) {
		exclude = f.excluded[n-1]
	}
	var smf, obw strings.Builder
	for _, o := range objs {
		line, _ := obsfile.ObjectLine(o)
		if o.Kind == catalog.KindTarget && exclude > 0 {
			exclude--
			fmt.Fprintln(&obw, line)
			continue
		}
		fmt.Fprintln(&obw, line+" Use=1")
		if o.Kind == catalog.KindAlign {
			fmt.Fprintf(&smf, "HOLE %s %g %g 5 6 4 1 4 4 0\n", o.Name, o.RA, o.Dec)
		} else {
			fmt.Fprintf(&smf, "SLIT %s %g %g 10 20 1 3 3 0\n", o.Name, o.RA, o.Dec)
		}
	}
	if f.stranger {
		fmt.Fprintln(&obw, "@ghost 1 2 Pri=1 Use=1")
	}
	if f.badSMF {
		fmt.Fprintln(&smf, "SLIT broken 1 2")
	}
	for file, body := range map[string]string{name + obsfile.FeatureExt: smf.String(), name + obsfile.InclusionExt: obw.String()} {
		if err := os.WriteFile(filepath.Join(req.Dir, file), []byte(body), 0o644); err != nil {
			return process.Result{}, err
		}
	}
	out := fmt.Sprintf("Do you wish to continue? y\nWriting object file with use counts to %s.obw\n", name)
	return process.Result{OK: true, State: process.StateDone, Output: out, Answers: 1}, nil
}

func (f *fakeTool) generations() int {
	n := 0
	for _, c := range f.calls {
		if c.Path == "maskgen" {
			n++
		}
	}
	return n
}

func (f *fakeTool) requests() []process.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.Request(nil), f.calls...)
}

type notes struct {
	mu      sync.Mutex
	created []string
	warns   []string
}

func (n *notes) MaskCreated(m mask.Mask) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, m.Name)
}

func (n *notes) Warn(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warns = append(n.warns, msg)
}

type env struct {
	gen       *Generator
	store     *store.Memory
	tool      *fakeTool
	events    *events.Recorder
	notes     *notes
	toolDir   string
	artifacts artifact.Local
}

func newEnv(t *testing.T, tool *fakeTool) *env {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()
	if err := st.CreateProject(ctx, store.Project{Name: "ngc300"}); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := st.CreateCatalog(ctx, "ngc300", testCatalog()); err != nil {
		t.Fatalf("CreateCatalog: %v", err)
	}

	e := &env{
		store:     st,
		tool:      tool,
		events:    &events.Recorder{},
		notes:     &notes{},
		toolDir:   t.TempDir(),
		artifacts: artifact.Local{Root: t.TempDir()},
	}
	e.gen = New(st, tool, workspace.NewManager([]string{scratchFile}), e.artifacts, Options{
		MaskgenPath: "maskgen",
		CutterPath:  "smdfplt",
		ToolDir:     e.toolDir,
	})
	e.gen.Events = e.events
	e.gen.Notify = e.notes
	return e
}

func testCatalog() catalog.Catalog {
	objs := []catalog.Object{
		{Name: "A1", Kind: catalog.KindAlign, RA: 150.1, Dec: -29.0},
		{Name: "G1", Kind: catalog.KindGuide, RA: 150.3, Dec: -29.2},
	}
	for i := 1; i <= 5; i++ {
		objs = append(objs, catalog.Object{
			Name: fmt.Sprintf("T%d", i), Kind: catalog.KindTarget,
			RA: 150 + float64(i)/100, Dec: -29, Priority: i,
		})
	}
	return catalog.Catalog{Name: "field", Objects: objs}
}

func testSetup(name string) setup.Setup {
	return setup.Setup{
		Name:       name,
		Project:    "ngc300",
		Catalog:    "field",
		CenterRA:   150.077083,
		CenterDec:  -29.014167,
		Equinox:    2000,
		HourAngle:  99,
		WLimitLow:  4000,
		WLimitHigh: 9000,
	}
}

// dirEntries lists the names left in dir.
func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
