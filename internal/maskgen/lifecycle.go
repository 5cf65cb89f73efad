package maskgen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/slitforge/internal/events"
	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/obsfile"
	"github.com/papapumpkin/slitforge/internal/result"
)

// Finalize moves a draft mask to finalized.
func (g *Generator) Finalize(ctx context.Context, project, name string) (mask.Mask, error) {
	return g.transition(ctx, project, name, mask.ActionFinalize, events.TypeFinalized, "")
}

// Complete moves a finalized mask to completed without running the cutter.
func (g *Generator) Complete(ctx context.Context, project, name string) (mask.Mask, error) {
	return g.transition(ctx, project, name, mask.ActionComplete, events.TypeCompleted, "")
}

// Revert returns a finalized or completed mask to draft.
func (g *Generator) Revert(ctx context.Context, project, name string) (mask.Mask, error) {
	return g.transition(ctx, project, name, mask.ActionRevert, events.TypeReverted, "")
}

func (g *Generator) transition(ctx context.Context, project, name string, a mask.Action, t events.Type, detail string) (mask.Mask, error) {
	m, err := g.Store.GetMask(ctx, project, name)
	if err != nil {
		return mask.Mask{}, err
	}
	next, err := m.Status.Next(a)
	if err != nil {
		return mask.Mask{}, err
	}
	updated, err := g.Store.UpdateMaskStatus(ctx, project, name, m.Status, next)
	if err != nil {
		return mask.Mask{}, err
	}
	g.publish(ctx, t, updated, detail)
	return updated, nil
}

// Cut runs the cutting tool on a finalized mask and, on success, marks it
// completed. It returns the tool's cutting time estimate when one was printed.
func (g *Generator) Cut(ctx context.Context, project, name string) (mask.Mask, string, error) {
	m, err := g.Store.GetMask(ctx, project, name)
	if err != nil {
		return mask.Mask{}, "", err
	}
	if m.Status != mask.StatusFinalized {
		return mask.Mask{}, "", &mask.TransitionError{From: m.Status, Action: mask.ActionComplete}
	}

	estimate, err := g.runCutter(ctx, project, name)
	if err != nil {
		return mask.Mask{}, "", err
	}
	updated, err := g.transition(ctx, project, name, mask.ActionComplete, events.TypeCompleted, estimate)
	if err != nil {
		return mask.Mask{}, "", err
	}
	return updated, estimate, nil
}

func (g *Generator) runCutter(ctx context.Context, project, name string) (string, error) {
	smfFile := name + obsfile.FeatureExt
	data, err := os.ReadFile(filepath.Join(g.Artifacts.Dir(project, name), smfFile))
	if err != nil {
		return "", fail(CategoryWorkspace, name, fmt.Errorf("reading feature file: %w", err))
	}

	ws, err := g.Workspaces.Acquire(ctx, g.Opts.ToolDir)
	if err != nil {
		return "", fail(CategoryWorkspace, name, err)
	}
	defer func() {
		if err := ws.Release(); err != nil {
			g.Notify.Warn(fmt.Sprintf("cleaning tool directory after cutting %s: %v", name, err))
		}
	}()
	if err := ws.Write(smfFile, data); err != nil {
		return "", fail(CategoryWorkspace, name, err)
	}

	res, err := g.Runner.Run(ctx, g.request(g.Opts.CutterPath, ws.Dir(), result.CutMarker, name))
	if err != nil {
		return "", fail(CategoryProcess, name, err, result.ExtractErrors(res.Output)...)
	}
	estimate, _ := result.CutTime(res.Output)
	return estimate, nil
}

// Delete removes a mask record and its artifact files, local and archived.
func (g *Generator) Delete(ctx context.Context, project, name string) error {
	m, err := g.Store.GetMask(ctx, project, name)
	if err != nil {
		return err
	}
	if err := g.Store.DeleteMask(ctx, project, name); err != nil {
		return err
	}
	g.releaseArtifacts(ctx, m)
	g.publish(ctx, events.TypeDeleted, m, "")
	return nil
}

// DeleteProject removes a project with its catalogs and masks, then the
// artifact files of every mask it held.
func (g *Generator) DeleteProject(ctx context.Context, project string) error {
	masks, err := g.Store.ListMasks(ctx, project, "")
	if err != nil {
		return err
	}
	if err := g.Store.DeleteProject(ctx, project); err != nil {
		return err
	}
	for _, m := range masks {
		g.releaseArtifacts(ctx, m)
		g.publish(ctx, events.TypeDeleted, m, "project deleted")
	}
	return nil
}

func (g *Generator) releaseArtifacts(ctx context.Context, m mask.Mask) {
	g.dropArtifacts(m.Project, m.Name)
	files := make([]string, len(m.Artifacts))
	for i, p := range m.Artifacts {
		files[i] = filepath.Base(p)
	}
	if err := g.Archiver.Remove(ctx, m.Project, m.Name, files); err != nil {
		g.Notify.Warn(fmt.Sprintf("removing archived artifacts of %s: %v", m.Name, err))
	}
}
