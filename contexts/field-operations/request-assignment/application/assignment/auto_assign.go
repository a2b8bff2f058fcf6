package assignment

import (
	"context"
	"errors"
	"log/slog"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/domain/services"
)

const (
	ReasonAssigned             = "assigned"
	ReasonNoEligibleProviders  = "no_eligible_providers"
	ReasonNoAvailableProviders = "no_available_providers"
	ReasonClaimConflict        = "claim_conflict"
	ReasonStoreError           = "store_error"
)

type AssignmentResult struct {
	Request    entities.ServiceRequest
	ProviderID string
	Assigned   bool
	Reason     string
}

// AutoAssigner runs one eligibility -> availability -> selection -> claim
// cycle for a freshly created request.
type AutoAssigner struct {
	Eligibility  EligibilityResolver
	Availability AvailabilityFilter
	Policy       services.SelectionPolicy
	Claims       ClaimProtocol
	Logger       *slog.Logger
}

// Assign never retries. A non-nil error is informational: the request simply
// stays pending.
func (a AutoAssigner) Assign(ctx context.Context, request entities.ServiceRequest) (AssignmentResult, error) {
	logger := application.ResolveLogger(a.Logger)
	result := AssignmentResult{Request: request}

	eligible, err := a.Eligibility.Resolve(ctx, request.ServiceID)
	if err != nil {
		result.Reason = ReasonStoreError
		return result, err
	}
	if len(eligible) == 0 {
		result.Reason = ReasonNoEligibleProviders
		return result, nil
	}

	available, err := a.Availability.Filter(ctx, eligible, request.ScheduledAt)
	if err != nil {
		result.Reason = ReasonStoreError
		return result, err
	}
	if len(available) == 0 {
		result.Reason = ReasonNoAvailableProviders
		return result, nil
	}

	policy := a.Policy
	if policy == nil {
		policy = services.UniformRandomPolicy{}
	}
	providerID := policy.Select(available)

	outcome, err := a.Claims.WithPath(ClaimPathAuto).AttemptClaim(ctx, request.RequestID, providerID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrClaimConflict) {
			result.Reason = ReasonClaimConflict
			return result, nil
		}
		result.Reason = ReasonStoreError
		return result, err
	}

	logger.Info("service request auto-assigned",
		"event", "request_assignment_auto_assigned",
		"module", application.ModuleName,
		"layer", "application",
		"request_id", request.RequestID,
		"provider_id", providerID,
		"candidate_count", len(available),
	)
	return AssignmentResult{
		Request:    outcome.Request,
		ProviderID: providerID,
		Assigned:   true,
		Reason:     ReasonAssigned,
	}, nil
}
