package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/slitforge/internal/config"
	"github.com/papapumpkin/slitforge/internal/process"
	"github.com/papapumpkin/slitforge/internal/rotator"
	"github.com/papapumpkin/slitforge/internal/setup"
	"github.com/papapumpkin/slitforge/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate [setup.toml...]",
	Short: "Check that the mask tools are available and setups pass the rotator check",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		printer := ui.New()
		ok := true

		if err := cfg.Validate(); err != nil {
			printer.Error(err)
			ok = false
		}
		sess := &process.Session{Verbose: cfg.Verbose, Log: printer.Writer()}
		for _, tool := range []string{cfg.MaskgenPath, cfg.CutterPath} {
			if err := sess.Validate(tool); err != nil {
				printer.Error(err)
				ok = false
			} else {
				printer.Success(tool + " found")
			}
		}

		for _, path := range args {
			s, err := setup.Load(path)
			if err != nil {
				printer.Error(err)
				ok = false
				continue
			}
			err = rotator.Validate(s)
			printer.RotatorResult(s.Name, err)
			if err != nil {
				ok = false
			}
		}

		if !ok {
			return errors.New("validation failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
