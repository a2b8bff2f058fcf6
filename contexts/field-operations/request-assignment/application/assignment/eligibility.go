package assignment

import (
	"context"
	"log/slog"
	"strings"

	application "dispatch/contexts/field-operations/request-assignment/application"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/domain/services"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

// EligibilityResolver finds active providers holding an active capability
// mapping for a service. An empty result means no assignment is possible now.
type EligibilityResolver struct {
	Capabilities ports.CapabilityRepository
	Logger       *slog.Logger
}

func (r EligibilityResolver) Resolve(ctx context.Context, serviceID string) ([]string, error) {
	logger := application.ResolveLogger(r.Logger)
	if strings.TrimSpace(serviceID) == "" {
		return nil, domainerrors.ErrInvalidRequest
	}

	providerIDs, err := r.Capabilities.ListActiveCapableProviders(ctx, serviceID)
	if err != nil {
		logger.Error("eligibility lookup failed",
			"event", "request_assignment_eligibility_failed",
			"module", application.ModuleName,
			"layer", "application",
			"service_id", serviceID,
			"error", err.Error(),
		)
		return nil, err
	}

	eligible := services.NormalizeCandidates(providerIDs)
	logger.Debug("eligible providers resolved",
		"event", "request_assignment_eligibility_resolved",
		"module", application.ModuleName,
		"layer", "application",
		"service_id", serviceID,
		"eligible_count", len(eligible),
	)
	return eligible, nil
}
