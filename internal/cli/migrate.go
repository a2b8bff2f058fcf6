package cli

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the record store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return WrapExitError(ExitCommandError, "migrate", err)
			}
			return write(cmd.OutOrStdout(), opts.Format,
				map[string]string{"driver": store.Driver},
				"schema applied ("+store.Driver+")")
		},
	}
}
