package cli

import (
	"context"
	"fmt"
	"log/slog"

	requestassignment "dispatch/contexts/field-operations/request-assignment"
	"dispatch/internal/app/bootstrap"
	"dispatch/internal/platform/config"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the config source shared by subcommands.
type RootOptions struct {
	Format     string // "json" | "text"
	LoadConfig func() (config.Config, error)
}

var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the dispatchctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{LoadConfig: config.Load}
	return newRootCommand(opts)
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dispatchctl",
		Short: "Administer the dispatch request assignment store",
		Long: `Administrative commands for the dispatch service.

Store selection follows the same environment as the API and worker
(STORE_DRIVER, POSTGRES_DSN, SQLITE_PATH).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newCapabilityCommand(opts))
	cmd.AddCommand(newRequestCommand(opts))
	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openStore loads config and opens the store without applying SEED_FILE;
// seeding is an explicit command here.
func (o *RootOptions) openStore(ctx context.Context) (*bootstrap.Store, config.Config, error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitCommandError, "load config", err)
	}
	cfg.SeedFile = ""
	store, err := bootstrap.OpenStore(ctx, cfg, cliLogger())
	if err != nil {
		return nil, config.Config{}, WrapExitError(ExitCommandError, "open store", err)
	}
	return store, cfg, nil
}

func (o *RootOptions) module(store *bootstrap.Store, cfg config.Config) requestassignment.Module {
	return requestassignment.NewModule(store.Dependencies(cfg, cliLogger()))
}

func cliLogger() *slog.Logger {
	return slog.Default().With("process", "dispatchctl")
}
