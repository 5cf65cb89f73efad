package maskgen

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/papapumpkin/slitforge/internal/catalog"
	"github.com/papapumpkin/slitforge/internal/events"
	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/obsfile"
	"github.com/papapumpkin/slitforge/internal/result"
	"github.com/papapumpkin/slitforge/internal/rotator"
	"github.com/papapumpkin/slitforge/internal/setup"
	"github.com/papapumpkin/slitforge/internal/store"
)

// Generate produces the masks requested by s: one mask, one per rotator
// angle of a sweep, or successive masks until every object is placed. A
// multi-mask run stops at the first failure and returns the masks already
// produced together with that failure.
func (g *Generator) Generate(ctx context.Context, s setup.Setup) ([]mask.Mask, error) {
	if err := s.Validate(); err != nil {
		return nil, fail(CategoryValidation, s.Name, err)
	}
	if _, err := g.Store.GetProject(ctx, s.Project); err != nil {
		return nil, fail(CategoryValidation, s.Name, err)
	}
	if err := rotator.Validate(s); err != nil {
		return nil, fail(CategoryValidation, s.Name, err)
	}

	cat, err := g.Store.GetCatalog(ctx, s.Project, s.Catalog)
	if err != nil {
		return nil, fail(CategoryValidation, s.Name, err)
	}
	objs, err := cat.Select(s.Objects)
	if err != nil {
		return nil, fail(CategoryValidation, s.Name, err)
	}
	if len(eligible(objs)) == 0 {
		return nil, fail(CategoryValidation, s.Name, ErrNoObjects)
	}

	switch s.Strategy() {
	case setup.StrategySweep:
		return g.sweep(ctx, s, cat, objs)
	case setup.StrategyIterate:
		return g.iterate(ctx, s, cat, objs)
	default:
		if err := g.checkNames(ctx, s.Project, s.Name); err != nil {
			return nil, err
		}
		m, _, err := g.runOnce(ctx, s, cat, objs)
		if err != nil {
			return nil, err
		}
		return []mask.Mask{m}, nil
	}
}

// checkNames rejects names already taken so nothing is written for them.
func (g *Generator) checkNames(ctx context.Context, project string, names ...string) error {
	for _, n := range names {
		_, err := g.Store.GetMask(ctx, project, n)
		switch {
		case err == nil:
			return fail(CategoryValidation, n, fmt.Errorf("%w: %s/%s", ErrMaskExists, project, n))
		case !errors.Is(err, store.ErrNotFound):
			return fail(CategoryStorage, n, err)
		}
	}
	return nil
}

// AngleLabel renders a rotator angle as a file-name-safe suffix:
// -12.5 becomes m12p5.
func AngleLabel(angle float64) string {
	s := strconv.FormatFloat(angle, 'f', -1, 64)
	return strings.NewReplacer("-", "m", ".", "p").Replace(s)
}

func (g *Generator) sweep(ctx context.Context, s setup.Setup, cat catalog.Catalog, objs []catalog.Object) ([]mask.Mask, error) {
	angles := s.Sweep.Angles()
	names := make([]string, len(angles))
	for i, a := range angles {
		names[i] = s.Name + "_" + AngleLabel(a)
	}
	if err := g.checkNames(ctx, s.Project, names...); err != nil {
		return nil, err
	}

	var made []mask.Mask
	for i, a := range angles {
		if err := ctx.Err(); err != nil {
			return made, fail(CategoryProcess, names[i], err)
		}
		m, _, err := g.runOnce(ctx, s.WithName(names[i]).WithPosition(a), cat, objs)
		if err != nil {
			return made, err
		}
		made = append(made, m)
	}
	return made, nil
}

// iterate regenerates with the excluded targets plus every alignment star
// until nothing is excluded. Alignment stars are reused on every mask, so
// an exclusion list holding only alignment stars also ends the run.
func (g *Generator) iterate(ctx context.Context, s setup.Setup, cat catalog.Catalog, objs []catalog.Object) ([]mask.Mask, error) {
	var aligns []catalog.Object
	for _, o := range objs {
		if o.Kind == catalog.KindAlign {
			aligns = append(aligns, o)
		}
	}

	names := make([]string, g.Opts.MaxIterations)
	for i := range names {
		names[i] = iterationName(s.Name, i+1)
	}
	if err := g.checkNames(ctx, s.Project, names...); err != nil {
		return nil, err
	}

	var made []mask.Mask
	remaining := -1
	for i := 1; ; i++ {
		name := iterationName(s.Name, i)
		if i > g.Opts.MaxIterations {
			return made, fail(CategoryProcess, name, fmt.Errorf("%w: %d masks", ErrIterationLimit, len(made)))
		}
		if err := ctx.Err(); err != nil {
			return made, fail(CategoryProcess, name, err)
		}
		m, in, err := g.runOnce(ctx, s.WithName(name), cat, objs)
		if err != nil {
			return made, err
		}
		made = append(made, m)

		targets := excludedTargets(cat, in.Excluded)
		if len(targets) == 0 {
			return made, nil
		}
		if remaining >= 0 && len(targets) >= remaining {
			return made, fail(CategoryProcess, name, fmt.Errorf("%w: %d still excluded", ErrNoProgress, len(targets)))
		}
		remaining = len(targets)
		objs = append(targets, aligns...)
	}
}

func iterationName(base string, i int) string {
	return fmt.Sprintf("%s_v%d", base, i)
}

func excludedTargets(cat catalog.Catalog, names []string) []catalog.Object {
	var out []catalog.Object
	for _, n := range names {
		if o, ok := cat.Lookup(n); ok && o.Kind == catalog.KindTarget {
			out = append(out, o)
		}
	}
	return out
}

func eligible(objs []catalog.Object) []catalog.Object {
	var out []catalog.Object
	for _, o := range objs {
		if o.Eligible() {
			out = append(out, o)
		}
	}
	return out
}

// runOnce performs one generation in the tool directory. Scratch files and
// uncollected outputs are removed on every path. Outputs are collected into
// a staging directory that becomes the mask's artifact directory only after
// the mask is stored; on failure nothing is stored and an artifact
// directory owned by another mask of the same name is left untouched.
func (g *Generator) runOnce(ctx context.Context, s setup.Setup, cat catalog.Catalog, objs []catalog.Object) (mask.Mask, result.Inclusion, error) {
	name := s.Name
	var none result.Inclusion

	ws, err := g.Workspaces.Acquire(ctx, g.Opts.ToolDir)
	if err != nil {
		return mask.Mask{}, none, fail(CategoryWorkspace, name, err)
	}
	defer func() {
		if err := ws.Release(); err != nil {
			g.Notify.Warn(fmt.Sprintf("cleaning tool directory after %s: %v", name, err))
		}
	}()
	// Another run may have taken the name while this one waited.
	if err := g.checkNames(ctx, s.Project, name); err != nil {
		return mask.Mask{}, none, err
	}

	objFile := name + obsfile.ObjectExt
	obsFile := name + obsfile.SetupExt
	smfFile := name + obsfile.FeatureExt
	obwFile := name + obsfile.InclusionExt

	obs, err := obsfile.EncodeObservation(s, []string{objFile})
	if err != nil {
		return mask.Mask{}, none, fail(CategoryValidation, name, err)
	}
	for _, stale := range []string{smfFile, obwFile} {
		if err := ws.Remove(stale); err != nil {
			return mask.Mask{}, none, fail(CategoryWorkspace, name, err)
		}
	}
	if err := ws.Write(objFile, obsfile.EncodeObjects(objs)); err != nil {
		return mask.Mask{}, none, fail(CategoryWorkspace, name, err)
	}
	if err := ws.Write(obsFile, obs); err != nil {
		return mask.Mask{}, none, fail(CategoryWorkspace, name, err)
	}
	ws.Track(smfFile, obwFile)

	res, err := g.Runner.Run(ctx, g.request(g.Opts.MaskgenPath, ws.Dir(), GenerateMarker, "-s", obsFile))
	if err != nil {
		return mask.Mask{}, none, fail(CategoryProcess, name, err, result.ExtractErrors(res.Output)...)
	}

	features, err := decodeFeatures(ws, smfFile)
	if err != nil {
		return mask.Mask{}, none, fail(CategoryDecode, name, err)
	}
	in, err := decodeInclusion(ws, obwFile, cat)
	if errors.Is(err, result.ErrUnknownObject) {
		return mask.Mask{}, none, fail(CategoryConsistency, name, &ConsistencyError{Mask: name, Err: err})
	}
	if err != nil {
		return mask.Mask{}, none, fail(CategoryDecode, name, err)
	}
	if err := ws.Remove(obwFile); err != nil {
		g.Notify.Warn(fmt.Sprintf("removing %s: %v", obwFile, err))
	}

	staged, err := g.Artifacts.Stage(s.Project, name)
	if err != nil {
		return mask.Mask{}, none, fail(CategoryWorkspace, name, err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := g.Artifacts.Discard(staged); err != nil {
			g.Notify.Warn(fmt.Sprintf("removing staged artifacts of %s: %v", name, err))
		}
	}()

	dir := g.Artifacts.Dir(s.Project, name)
	var paths []string
	for _, f := range []string{objFile, obsFile, smfFile} {
		if _, err := ws.Collect(f, staged); err != nil {
			return mask.Mask{}, none, fail(CategoryWorkspace, name, err)
		}
		paths = append(paths, filepath.Join(dir, f))
	}

	m := mask.New(s, features, in, g.now())
	m.Artifacts = paths
	if err := g.Store.CreateMask(ctx, m); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return mask.Mask{}, none, fail(CategoryValidation, name, fmt.Errorf("%w: %v", ErrMaskExists, err))
		}
		return mask.Mask{}, none, fail(CategoryStorage, name, err)
	}
	if err := g.Artifacts.Commit(staged, s.Project, name); err != nil {
		if derr := g.Store.DeleteMask(ctx, s.Project, name); derr != nil {
			g.Notify.Warn(fmt.Sprintf("removing record of %s: %v", name, derr))
		}
		return mask.Mask{}, none, fail(CategoryWorkspace, name, err)
	}
	committed = true

	if _, err := g.Archiver.Archive(ctx, s.Project, name, paths); err != nil {
		g.Notify.Warn(fmt.Sprintf("archiving %s: %v", name, err))
	}
	g.publish(ctx, events.TypeCreated, m, fmt.Sprintf("%d included, %d excluded", len(in.Included), len(in.Excluded)))
	g.Notify.MaskCreated(m)
	return m, in, nil
}

func (g *Generator) dropArtifacts(project, name string) {
	if err := g.Artifacts.Release(project, name); err != nil {
		g.Notify.Warn(fmt.Sprintf("removing artifacts of %s: %v", name, err))
	}
}
