package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

const (
	defaultClaimableLimit = 20
	maxClaimableLimit     = 100
)

type ListClaimableRequestsQuery struct {
	ProviderID string
	Limit      int
}

type ListClaimableRequestsResult struct {
	Items []entities.ServiceRequest
}

// ListClaimableRequestsUseCase feeds the pull path: pending requests for the
// services the provider is actively mapped to. Listing is a snapshot; any
// item may already be taken by the time it is claimed.
type ListClaimableRequestsUseCase struct {
	Providers    ports.ProviderDirectory
	Capabilities ports.CapabilityRepository
	Requests     ports.RequestRepository
	Clock        ports.Clock
	Logger       *slog.Logger
}

func (u ListClaimableRequestsUseCase) Execute(
	ctx context.Context,
	query ListClaimableRequestsQuery,
) (ListClaimableRequestsResult, error) {
	logger := application.ResolveLogger(u.Logger)
	providerID := strings.TrimSpace(query.ProviderID)
	if providerID == "" {
		return ListClaimableRequestsResult{}, domainerrors.ErrInvalidRequest
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultClaimableLimit
	}
	if limit > maxClaimableLimit {
		limit = maxClaimableLimit
	}

	provider, err := u.Providers.GetProvider(ctx, providerID)
	if err != nil {
		return ListClaimableRequestsResult{}, err
	}
	if !provider.Active {
		return ListClaimableRequestsResult{}, domainerrors.ErrProviderInactive
	}

	serviceIDs, err := u.Capabilities.ListProviderServices(ctx, providerID)
	if err != nil {
		return ListClaimableRequestsResult{}, err
	}
	if len(serviceIDs) == 0 {
		return ListClaimableRequestsResult{Items: []entities.ServiceRequest{}}, nil
	}

	pending, err := u.Requests.ListPendingRequests(ctx, serviceIDs, limit)
	if err != nil {
		logger.Error("claimable request listing failed",
			"event", "request_assignment_list_claimable_failed",
			"module", application.ModuleName,
			"layer", "application",
			"provider_id", providerID,
			"error", err.Error(),
		)
		return ListClaimableRequestsResult{}, err
	}

	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}
	items := make([]entities.ServiceRequest, 0, len(pending))
	for _, request := range pending {
		// Expired offers are hidden but stay claimable by id.
		if request.Expired(now) {
			continue
		}
		items = append(items, request)
	}
	return ListClaimableRequestsResult{Items: items}, nil
}
