package commands

import (
	"context"
	"log/slog"
	"strings"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/application/assignment"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

type ClaimRequestCommand struct {
	RequestID  string
	ProviderID string
}

type ClaimRequestResult struct {
	Request  entities.ServiceRequest
	Strategy string
}

// ClaimRequestUseCase is the provider pull path. Eligibility and availability
// were evaluated when the provider listed claimable requests; here only the
// provider's own standing is re-checked before the single claim attempt.
type ClaimRequestUseCase struct {
	Providers    ports.ProviderDirectory
	Requests     ports.RequestRepository
	Capabilities ports.CapabilityRepository
	Claims       assignment.ClaimProtocol
	Logger       *slog.Logger
}

func (u ClaimRequestUseCase) Execute(ctx context.Context, cmd ClaimRequestCommand) (ClaimRequestResult, error) {
	logger := application.ResolveLogger(u.Logger)
	requestID := strings.TrimSpace(cmd.RequestID)
	providerID := strings.TrimSpace(cmd.ProviderID)
	if requestID == "" || providerID == "" {
		return ClaimRequestResult{}, domainerrors.ErrInvalidRequest
	}

	logger.Info("pull claim started",
		"event", "request_assignment_pull_claim_started",
		"module", application.ModuleName,
		"layer", "application",
		"request_id", requestID,
		"provider_id", providerID,
	)

	provider, err := u.Providers.GetProvider(ctx, providerID)
	if err != nil {
		return ClaimRequestResult{}, err
	}
	if !provider.Active {
		return ClaimRequestResult{}, domainerrors.ErrProviderInactive
	}

	request, err := u.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return ClaimRequestResult{}, err
	}

	capable, err := u.Capabilities.HasActiveCapability(ctx, providerID, request.ServiceID)
	if err != nil {
		return ClaimRequestResult{}, err
	}
	if !capable {
		logger.Warn("pull claim rejected for missing capability",
			"event", "request_assignment_pull_claim_not_capable",
			"module", application.ModuleName,
			"layer", "application",
			"request_id", requestID,
			"provider_id", providerID,
			"service_id", request.ServiceID,
		)
		return ClaimRequestResult{}, domainerrors.ErrProviderNotCapable
	}

	outcome, err := u.Claims.WithPath(assignment.ClaimPathPull).AttemptClaim(ctx, requestID, providerID)
	if err != nil {
		return ClaimRequestResult{}, err
	}
	return ClaimRequestResult{
		Request:  outcome.Request,
		Strategy: outcome.Strategy,
	}, nil
}
