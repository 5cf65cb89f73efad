// Package maskgen orchestrates mask generation: it validates a request,
// encodes the tool's input files, runs the generation tool, decodes its
// results and records one Mask per successful run. It also drives the
// mask lifecycle, including cutting.
package maskgen

import (
	"context"
	"time"

	"github.com/papapumpkin/slitforge/internal/artifact"
	"github.com/papapumpkin/slitforge/internal/events"
	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/process"
	"github.com/papapumpkin/slitforge/internal/store"
	"github.com/papapumpkin/slitforge/internal/workspace"
)

// GenerateMarker is printed by the generation tool once its results are written.
const GenerateMarker = "Writing object file with use counts to"

// Runner runs one external tool invocation.
type Runner interface {
	Run(ctx context.Context, req process.Request) (process.Result, error)
}

// Archiver copies artifact files to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, project, mask string, files []string) ([]string, error)
	Remove(ctx context.Context, project, mask string, files []string) error
}

// Publisher announces lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// Notifier receives progress for display.
type Notifier interface {
	MaskCreated(m mask.Mask)
	Warn(msg string)
}

// Options configures the external tools.
type Options struct {
	MaskgenPath string
	CutterPath  string
	// ToolDir is the tool's working directory; runs in it are serialized.
	ToolDir    string
	Timeout    time.Duration
	MaxPrompts int
	Answer     string
	// PromptIdle is the output silence after which stdin is closed.
	PromptIdle time.Duration
	// MaxIterations bounds iterate-until-complete.
	MaxIterations int
}

// DefaultMaxIterations bounds iterate-until-complete when Options leaves it zero.
const DefaultMaxIterations = 20

// Generator produces and manages masks.
type Generator struct {
	Store      store.Store
	Runner     Runner
	Workspaces *workspace.Manager
	Artifacts  artifact.Local
	Archiver   Archiver
	Events     Publisher
	Notify     Notifier
	Opts       Options
	Now        func() time.Time
}

// New returns a Generator with no-op archiving, events and notifications.
func New(st store.Store, r Runner, ws *workspace.Manager, artifacts artifact.Local, opts Options) *Generator {
	if opts.MaskgenPath == "" {
		opts.MaskgenPath = "maskgen"
	}
	if opts.CutterPath == "" {
		opts.CutterPath = "smdfplt"
	}
	if opts.ToolDir == "" {
		opts.ToolDir = "."
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Generator{
		Store:      st,
		Runner:     r,
		Workspaces: ws,
		Artifacts:  artifacts,
		Archiver:   artifact.Nop{},
		Events:     events.Discard{},
		Notify:     quiet{},
		Opts:       opts,
		Now:        time.Now,
	}
}

type quiet struct{}

func (quiet) MaskCreated(mask.Mask) {}
func (quiet) Warn(string)           {}

func (g *Generator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// request builds a tool invocation in dir with the configured prompt handling.
func (g *Generator) request(path, dir, marker string, args ...string) process.Request {
	return process.Request{
		Path:          path,
		Args:          args,
		Dir:           dir,
		AutoConfirm:   true,
		Answer:        g.Opts.Answer,
		MaxAnswers:    g.Opts.MaxPrompts,
		Idle:          g.Opts.PromptIdle,
		SuccessMarker: marker,
		Timeout:       g.Opts.Timeout,
	}
}

// publish sends ev, downgrading failures to warnings; the store is the
// record of truth and an undelivered event does not undo a change.
func (g *Generator) publish(ctx context.Context, t events.Type, m mask.Mask, detail string) {
	ev := events.Event{
		Type:    t,
		Project: m.Project,
		Mask:    m.Name,
		Status:  string(m.Status),
		Detail:  detail,
		At:      g.now().UTC(),
	}
	if err := g.Events.Publish(ctx, ev); err != nil {
		g.Notify.Warn("event " + string(t) + " for " + m.Name + " not delivered: " + err.Error())
	}
}
