package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/slitforge/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Generate masks for every setup file dropped into a directory",
	Long: "Watch generates masks for each *.toml setup written to dir, one request at a time. " +
		"Creating a file named STOP in dir, or interrupting, ends the watch.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			w, err := watch.New(args[0])
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()
			a.printer.Info("watching " + args[0] + " for setup files")

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					a.printer.Info("interrupted")
					return nil
				case <-w.Stops:
					a.printer.Info("STOP file found, exiting")
					return nil
				case c := <-w.Changes:
					name := filepath.Base(c.File)
					switch c.Kind {
					case watch.ChangeInvalid:
						a.printer.Warn(fmt.Sprintf("%s: %v", name, c.Err))
					case watch.ChangeReady:
						a.printer.Info("generating from " + name)
						masks, err := a.gen.Generate(ctx, c.Setup)
						a.printer.Generated(masks)
						if err != nil {
							a.printer.Error(err)
						}
					}
				}
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
