package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/application/assignment"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

type CreateRequestCommand struct {
	UserID      string
	ServiceID   string
	ServiceCode string
	ScheduledAt *time.Time
	ExpiresAt   *time.Time
	Notes       string
}

type CreateRequestResult struct {
	Request                entities.ServiceRequest
	AutoAssignedProviderID *string
	AssignmentReason       string
}

type CreateRequestUseCase struct {
	Requests    ports.RequestRepository
	Services    ports.ServiceCatalog
	AutoAssign  assignment.AutoAssigner
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.AssignmentMetrics
	Logger      *slog.Logger
}

// Execute runs intake in this order:
// 1) validation (no store calls)
// 2) service code resolution
// 3) pending request insert
// 4) one automatic assignment cycle whose failure never fails intake.
func (u CreateRequestUseCase) Execute(ctx context.Context, cmd CreateRequestCommand) (CreateRequestResult, error) {
	logger := application.ResolveLogger(u.Logger)
	metrics := application.ResolveMetrics(u.Metrics)

	userID := strings.TrimSpace(cmd.UserID)
	serviceID := strings.TrimSpace(cmd.ServiceID)
	serviceCode := entities.NormalizeServiceCode(cmd.ServiceCode)
	if userID == "" || (serviceID == "" && serviceCode == "") {
		return CreateRequestResult{}, domainerrors.ErrInvalidRequest
	}

	if serviceID == "" {
		if u.Services == nil {
			return CreateRequestResult{}, domainerrors.ErrServiceNotFound
		}
		service, err := u.Services.GetServiceByCode(ctx, serviceCode)
		if err != nil {
			logger.Warn("service code resolution failed",
				"event", "request_assignment_service_code_unresolved",
				"module", application.ModuleName,
				"layer", "application",
				"service_code", serviceCode,
				"error", err.Error(),
			)
			return CreateRequestResult{}, err
		}
		serviceID = service.ServiceID
	}

	requestID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return CreateRequestResult{}, err
	}
	request, err := entities.NewServiceRequest(
		requestID,
		userID,
		serviceID,
		cmd.ScheduledAt,
		cmd.ExpiresAt,
		cmd.Notes,
		u.now(),
	)
	if err != nil {
		return CreateRequestResult{}, err
	}

	if err := u.Requests.CreateRequest(ctx, request); err != nil {
		logger.Error("service request insert failed",
			"event", "request_assignment_create_failed",
			"module", application.ModuleName,
			"layer", "application",
			"user_id", userID,
			"service_id", serviceID,
			"error", err.Error(),
		)
		return CreateRequestResult{}, err
	}

	logger.Info("service request created",
		"event", "request_assignment_request_created",
		"module", application.ModuleName,
		"layer", "application",
		"request_id", request.RequestID,
		"user_id", userID,
		"service_id", serviceID,
	)

	result := CreateRequestResult{Request: request}
	assigned, err := u.AutoAssign.Assign(ctx, request)
	result.AssignmentReason = assigned.Reason
	if err != nil {
		// The request stays pending and is left to the pull path.
		logger.Warn("automatic assignment failed",
			"event", "request_assignment_auto_assign_failed",
			"module", application.ModuleName,
			"layer", "application",
			"request_id", request.RequestID,
			"reason", assigned.Reason,
			"error", err.Error(),
		)
		metrics.ObserveIntake(false)
		return result, nil
	}
	if !assigned.Assigned {
		logger.Info("service request left pending",
			"event", "request_assignment_left_pending",
			"module", application.ModuleName,
			"layer", "application",
			"request_id", request.RequestID,
			"reason", assigned.Reason,
		)
		metrics.ObserveIntake(false)
		return result, nil
	}

	providerID := assigned.ProviderID
	result.Request = assigned.Request
	result.AutoAssignedProviderID = &providerID
	metrics.ObserveIntake(true)
	return result, nil
}

func (u CreateRequestUseCase) now() time.Time {
	if u.Clock == nil {
		return time.Now().UTC()
	}
	return u.Clock.Now().UTC()
}
