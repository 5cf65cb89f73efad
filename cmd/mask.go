package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/slitforge/internal/mask"
	"github.com/papapumpkin/slitforge/internal/setup"
	"github.com/papapumpkin/slitforge/internal/ui"
)

var maskCmd = &cobra.Command{
	Use:   "mask",
	Short: "Generate masks and move them through their lifecycle",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// generate takes the project from the setup file.
		if cmd != maskGenerateCmd && projectFlag(cmd) == "" {
			return errors.New("--project is required")
		}
		return nil
	},
}

var maskGenerateCmd = &cobra.Command{
	Use:   "generate <setup.toml>",
	Short: "Generate one mask, a rotator sweep, or masks until every object is placed",
	Long: "Generate reads an observation setup. A [sweep] table produces one mask per rotator " +
		"angle; iterate = true regenerates the excluded objects until none remain.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := setup.Load(args[0])
		if err != nil {
			return err
		}
		if p := projectFlag(cmd); p != "" {
			s.Project = p
		}
		return withApp(cmd, func(a *app) error {
			masks, err := a.gen.Generate(cmd.Context(), s)
			a.printer.Generated(masks)
			return err
		})
	},
}

var maskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's masks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("status")
		var status mask.Status
		if raw != "" {
			st, err := mask.ParseStatus(raw)
			if err != nil {
				return err
			}
			status = st
		}
		return withApp(cmd, func(a *app) error {
			ms, err := a.store.ListMasks(cmd.Context(), projectFlag(cmd), status)
			if err != nil {
				return err
			}
			ui.Masks(os.Stdout, ms)
			return nil
		})
	},
}

var maskShowCmd = &cobra.Command{
	Use:   "show <mask>",
	Short: "Show a mask with its features",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			m, err := a.store.GetMask(cmd.Context(), projectFlag(cmd), args[0])
			if err != nil {
				return err
			}
			ui.Mask(os.Stdout, m)
			return nil
		})
	},
}

var maskCutCmd = &cobra.Command{
	Use:   "cut <mask>",
	Short: "Run the cutting tool on a finalized mask and mark it completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			m, estimate, err := a.gen.Cut(cmd.Context(), projectFlag(cmd), args[0])
			if err != nil {
				return err
			}
			a.printer.Transition(m)
			if estimate != "" {
				a.printer.Info(estimate)
			}
			return nil
		})
	},
}

var maskDeleteCmd = &cobra.Command{
	Use:   "delete <mask>",
	Short: "Delete a mask and its artifact files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			if err := a.gen.Delete(cmd.Context(), projectFlag(cmd), args[0]); err != nil {
				return err
			}
			a.printer.Success("deleted mask " + args[0])
			return nil
		})
	},
}

type lifecycleFunc func(ctx context.Context, project, name string) (mask.Mask, error)

// transitionCmd builds finalize, complete and revert, which differ only in
// the Generator method they call.
func transitionCmd(use, short string, pick func(a *app) lifecycleFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <mask>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				m, err := pick(a)(cmd.Context(), projectFlag(cmd), args[0])
				if err != nil {
					return err
				}
				a.printer.Transition(m)
				return nil
			})
		},
	}
}

func init() {
	maskCmd.PersistentFlags().StringP("project", "p", "", "owning project")
	maskListCmd.Flags().String("status", "", "only masks in this status: draft, finalized or completed")

	maskCmd.AddCommand(
		maskGenerateCmd,
		maskListCmd,
		maskShowCmd,
		transitionCmd("finalize", "Finalize a draft mask", func(a *app) lifecycleFunc { return a.gen.Finalize }),
		transitionCmd("complete", "Mark a finalized mask completed without cutting", func(a *app) lifecycleFunc { return a.gen.Complete }),
		transitionCmd("revert", "Return a finalized or completed mask to draft", func(a *app) lifecycleFunc { return a.gen.Revert }),
		maskCutCmd,
		maskDeleteCmd,
	)
	rootCmd.AddCommand(maskCmd)
}
