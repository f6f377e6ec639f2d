package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shipbot/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file template",
		Long: `Write a commented config file with default values.

The file is written to the --config path and is never overwritten.
Fill in ship_code before running the bridge.

Examples:
  shipbot init
  shipbot init --config ./zod.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	if err := config.WriteTemplate(opts.Config); err != nil {
		if config.IsCode(err, config.ErrCodeExists) {
			return WrapExitError(ExitCommandError, "config not written (remove it first to regenerate)", err)
		}
		return WrapExitError(ExitCommandError, "failed to write config", err)
	}

	if opts.Format == "json" {
		return out.Success(map[string]string{"path": opts.Config})
	}
	return out.Success(fmt.Sprintf("Wrote %s. Set ship_code before running 'shipbot run'.", opts.Config))
}
