package cli

import (
	"fmt"

	"dispatch/contexts/field-operations/request-assignment/application/commands"

	"github.com/spf13/cobra"
)

func newCapabilityCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capability",
		Short: "Manage provider capability mappings",
	}
	cmd.AddCommand(newCapabilityAddCommand(opts))
	return cmd
}

func newCapabilityAddCommand(opts *RootOptions) *cobra.Command {
	var providerID, serviceID string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Map a provider to a service (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, cfg, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := opts.module(store, cfg).Handler.RegisterCapability.Execute(cmd.Context(), commands.RegisterCapabilityCommand{
				ProviderID: providerID,
				ServiceID:  serviceID,
			})
			if err != nil {
				return domainExitError("register capability", err)
			}
			text := fmt.Sprintf("capability %s -> %s created", providerID, serviceID)
			if result.AlreadyExists {
				text = fmt.Sprintf("capability %s -> %s already exists", providerID, serviceID)
			}
			return write(cmd.OutOrStdout(), opts.Format, map[string]any{
				"provider_id":    result.Mapping.ProviderID,
				"service_id":     result.Mapping.ServiceID,
				"already_exists": result.AlreadyExists,
			}, text)
		},
	}
	cmd.Flags().StringVar(&providerID, "provider", "", "provider id")
	cmd.Flags().StringVar(&serviceID, "service", "", "service id")
	_ = cmd.MarkFlagRequired("provider")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}
