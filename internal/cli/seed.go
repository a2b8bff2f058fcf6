package cli

import (
	"fmt"
	"time"

	"dispatch/internal/platform/seed"

	"github.com/spf13/cobra"
)

func newSeedCommand(opts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load providers, services and capabilities from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fixture, err := seed.Load(file)
			if err != nil {
				return WrapExitError(ExitCommandError, "load seed", err)
			}
			store, _, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			summary, err := fixture.Apply(cmd.Context(), store.SeedTarget(), time.Now())
			if err != nil {
				return WrapExitError(ExitFailure, "apply seed", err)
			}
			return write(cmd.OutOrStdout(), opts.Format, summary, fmt.Sprintf(
				"seeded %d providers, %d services, %d new capabilities (%d already present)",
				summary.Providers, summary.Services, summary.CapabilitiesCreated, summary.CapabilitiesKept,
			))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
