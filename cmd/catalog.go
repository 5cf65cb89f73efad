package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/slitforge/internal/catalog"
	"github.com/papapumpkin/slitforge/internal/ui"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Import and edit object catalogs",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a catalog from an object file (.obj), JSON or TOML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		return withApp(cmd, func(a *app) error {
			c, err := catalog.Load(args[0], name)
			if err != nil {
				return err
			}
			if err := a.store.CreateCatalog(cmd.Context(), projectFlag(cmd), c); err != nil {
				return err
			}
			a.printer.Success(fmt.Sprintf("imported catalog %s (%d objects, %d eligible)", c.Name, len(c.Objects), len(c.Eligible())))
			return nil
		})
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a project's catalogs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			names, err := a.store.ListCatalogs(cmd.Context(), projectFlag(cmd))
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(os.Stdout, n)
			}
			return nil
		})
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <catalog>",
	Short: "Show the objects of a catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			c, err := a.store.GetCatalog(cmd.Context(), projectFlag(cmd), args[0])
			if err != nil {
				return err
			}
			ui.Catalog(os.Stdout, c)
			return nil
		})
	},
}

var catalogEditCmd = &cobra.Command{
	Use:   "edit <catalog> <object>",
	Short: "Edit one object of a catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		edit, err := editFromFlags(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app) error {
			ctx := cmd.Context()
			c, err := a.store.GetCatalog(ctx, projectFlag(cmd), args[0])
			if err != nil {
				return err
			}
			o, ok := c.Lookup(args[1])
			if !ok {
				return fmt.Errorf("catalog %s: %w: %s", c.Name, catalog.ErrUnknownObject, args[1])
			}
			updated, err := edit.Apply(o)
			if err != nil {
				return err
			}
			if err := a.store.UpdateObject(ctx, projectFlag(cmd), c.Name, updated); err != nil {
				return err
			}
			a.printer.Success("updated " + updated.Name)
			return nil
		})
	},
}

func editFromFlags(cmd *cobra.Command) (catalog.Edit, error) {
	var e catalog.Edit
	f := cmd.Flags()
	if f.Changed("kind") {
		v, _ := f.GetString("kind")
		e.Kind = &v
	}
	if f.Changed("ra") {
		v, _ := f.GetString("ra")
		e.RA = &v
	}
	if f.Changed("dec") {
		v, _ := f.GetString("dec")
		e.Dec = &v
	}
	if f.Changed("priority") {
		v, _ := f.GetInt("priority")
		e.Priority = &v
	}
	if f.Changed("aux") {
		v, err := f.GetStringToString("aux")
		if err != nil {
			return catalog.Edit{}, err
		}
		e.Aux = v
	}
	return e, nil
}

var catalogDeleteCmd = &cobra.Command{
	Use:   "delete <catalog> [object]",
	Short: "Delete a catalog, or one object of it",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app) error {
			var err error
			if len(args) == 2 {
				err = a.store.DeleteObject(cmd.Context(), projectFlag(cmd), args[0], args[1])
			} else {
				err = a.store.DeleteCatalog(cmd.Context(), projectFlag(cmd), args[0])
			}
			if err != nil {
				return err
			}
			a.printer.Success("deleted " + args[len(args)-1])
			return nil
		})
	},
}

func init() {
	catalogCmd.PersistentFlags().StringP("project", "p", "", "owning project")
	_ = catalogCmd.MarkPersistentFlagRequired("project")

	catalogImportCmd.Flags().String("name", "", "catalog name (default: file name without extension)")
	ef := catalogEditCmd.Flags()
	ef.String("kind", "", "object kind: target, align or guide")
	ef.String("ra", "", "right ascension, decimal degrees or HH:MM:SS.s")
	ef.String("dec", "", "declination, decimal degrees or DD:MM:SS.s")
	ef.Int("priority", 0, "object priority")
	ef.StringToString("aux", nil, "auxiliary attributes, key=value; an empty value removes the key")

	catalogCmd.AddCommand(catalogImportCmd, catalogListCmd, catalogShowCmd, catalogEditCmd, catalogDeleteCmd)
	rootCmd.AddCommand(catalogCmd)
}
