package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/slitforge/internal/artifact"
	"github.com/papapumpkin/slitforge/internal/config"
	"github.com/papapumpkin/slitforge/internal/events"
	"github.com/papapumpkin/slitforge/internal/maskgen"
	"github.com/papapumpkin/slitforge/internal/process"
	"github.com/papapumpkin/slitforge/internal/store"
	"github.com/papapumpkin/slitforge/internal/ui"
	"github.com/papapumpkin/slitforge/internal/workspace"
)

// app holds the collaborators one command invocation works with.
type app struct {
	cfg     config.Config
	printer *ui.Printer
	session *process.Session
	store   store.Store
	gen     *maskgen.Generator
	closers []func() error
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	printer := ui.New()
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, printer: printer, store: st, closers: []func() error{st.Close}}

	a.session = &process.Session{Verbose: cfg.Verbose, Log: printer.Writer(), OnStart: printer.ToolRun}
	a.gen = maskgen.New(st, a.session, workspace.NewManager(cfg.ScratchFiles), artifact.Local{Root: cfg.ArtifactDir}, maskgen.Options{
		MaskgenPath:   cfg.MaskgenPath,
		CutterPath:    cfg.CutterPath,
		ToolDir:       cfg.ToolDir,
		Timeout:       cfg.Timeout,
		MaxPrompts:    cfg.MaxPrompts,
		Answer:        cfg.ConfirmAnswer,
		PromptIdle:    cfg.PromptIdle,
		MaxIterations: cfg.MaxIterations,
	})
	a.gen.Notify = printer

	if cfg.Archive.Bucket != "" {
		arch, err := artifact.NewS3Archiver(ctx, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.gen.Archiver = arch
	}
	var fan events.Fanout
	if len(cfg.Events.Brokers) > 0 {
		pub, err := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.Events.Brokers, Topic: cfg.Events.Topic})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		fan = append(fan, pub)
		a.closers = append(a.closers, pub.Close)
	}
	if cfg.Events.Journal != "" {
		j, err := events.OpenJournal(cfg.Events.Journal)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		fan = append(fan, j)
		a.closers = append(a.closers, j.Close)
	}
	if len(fan) > 0 {
		a.gen.Events = fan
	}
	return a, nil
}

// Close releases every collaborator in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// withApp opens the app for the duration of fn and prints fn's error.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if err := fn(a); err != nil {
		a.printer.Error(err)
		return errReported
	}
	return nil
}

// errReported marks an error already printed by the app's Printer.
var errReported = errors.New("command failed")

func projectFlag(cmd *cobra.Command) string {
	p, _ := cmd.Flags().GetString("project")
	return p
}
