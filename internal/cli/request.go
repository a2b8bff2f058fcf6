package cli

import (
	"fmt"

	"dispatch/contexts/field-operations/request-assignment/application/commands"
	"dispatch/contexts/field-operations/request-assignment/application/queries"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"

	"github.com/spf13/cobra"
)

func newRequestCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Inspect and claim service requests",
	}
	cmd.AddCommand(newRequestShowCommand(opts))
	cmd.AddCommand(newRequestClaimCommand(opts))
	return cmd
}

func newRequestShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <request-id>",
		Short: "Print a service request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := opts.module(store, cfg).Handler.GetRequest.Execute(cmd.Context(), queries.GetRequestQuery{RequestID: args[0]})
			if err != nil {
				return domainExitError("get request", err)
			}
			return write(cmd.OutOrStdout(), opts.Format, requestView(result.Request), describe(result.Request))
		},
	}
}

func newRequestClaimCommand(opts *RootOptions) *cobra.Command {
	var providerID string
	cmd := &cobra.Command{
		Use:   "claim <request-id>",
		Short: "Claim a pending request for a provider (pull path)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, err := opts.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := opts.module(store, cfg).Handler.ClaimRequest.Execute(cmd.Context(), commands.ClaimRequestCommand{
				RequestID:  args[0],
				ProviderID: providerID,
			})
			if err != nil {
				return domainExitError("claim request", err)
			}
			view := requestView(result.Request)
			view["strategy"] = result.Strategy
			return write(cmd.OutOrStdout(), opts.Format, view,
				fmt.Sprintf("%s via %s", describe(result.Request), result.Strategy))
		},
	}
	cmd.Flags().StringVar(&providerID, "provider", "", "claiming provider id")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func requestView(request entities.ServiceRequest) map[string]any {
	view := map[string]any{
		"request_id": request.RequestID,
		"user_id":    request.UserID,
		"service_id": request.ServiceID,
		"status":     string(request.Status),
	}
	if request.ProviderID != nil {
		view["provider_id"] = *request.ProviderID
	}
	return view
}

func describe(request entities.ServiceRequest) string {
	provider := "-"
	if request.ProviderID != nil {
		provider = *request.ProviderID
	}
	return fmt.Sprintf("%s %s service=%s provider=%s", request.RequestID, request.Status, request.ServiceID, provider)
}
