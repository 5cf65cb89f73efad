package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/slitforge/internal/store"
	"github.com/papapumpkin/slitforge/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, _ := cmd.Flags().GetString("description")
		return withApp(cmd, func(a *app) error {
			if err := a.store.CreateProject(cmd.Context(), store.Project{Name: args[0], Description: desc}); err != nil {
				return err
			}
			a.printer.Success("created project " + args[0])
			return nil
		})
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			ps, err := a.store.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			ui.Projects(os.Stdout, ps)
			return nil
		})
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a project with its catalogs, masks and mask artifacts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			if err := a.gen.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			a.printer.Success("deleted project " + args[0])
			return nil
		})
	},
}

func init() {
	projectCreateCmd.Flags().StringP("description", "d", "", "project description")
	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
