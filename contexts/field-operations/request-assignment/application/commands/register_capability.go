package commands

import (
	"context"
	"log/slog"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

type RegisterCapabilityCommand struct {
	ProviderID string
	ServiceID  string
}

type RegisterCapabilityResult struct {
	Mapping       entities.CapabilityMapping
	AlreadyExists bool
}

type RegisterCapabilityUseCase struct {
	Capabilities ports.CapabilityRepository
	Clock        ports.Clock
	Logger       *slog.Logger
}

// Execute registers the mapping. A duplicate pair is reported through
// AlreadyExists, never as an error.
func (u RegisterCapabilityUseCase) Execute(ctx context.Context, cmd RegisterCapabilityCommand) (RegisterCapabilityResult, error) {
	logger := application.ResolveLogger(u.Logger)
	now := time.Now().UTC()
	if u.Clock != nil {
		now = u.Clock.Now().UTC()
	}

	mapping, err := entities.NewCapabilityMapping(cmd.ProviderID, cmd.ServiceID, now)
	if err != nil {
		return RegisterCapabilityResult{}, err
	}

	created, err := u.Capabilities.InsertCapability(ctx, mapping)
	if err != nil {
		logger.Error("capability insert failed",
			"event", "request_assignment_capability_insert_failed",
			"module", application.ModuleName,
			"layer", "application",
			"provider_id", mapping.ProviderID,
			"service_id", mapping.ServiceID,
			"error", err.Error(),
		)
		return RegisterCapabilityResult{}, err
	}

	logger.Info("capability registered",
		"event", "request_assignment_capability_registered",
		"module", application.ModuleName,
		"layer", "application",
		"provider_id", mapping.ProviderID,
		"service_id", mapping.ServiceID,
		"already_exists", !created,
	)
	return RegisterCapabilityResult{
		Mapping:       mapping,
		AlreadyExists: !created,
	}, nil
}
