package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/application/commands"
	"dispatch/contexts/field-operations/request-assignment/application/queries"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	httptransport "dispatch/contexts/field-operations/request-assignment/transport/http"
)

type Handler struct {
	CreateRequest      commands.CreateRequestUseCase
	ClaimRequest       commands.ClaimRequestUseCase
	RegisterCapability commands.RegisterCapabilityUseCase
	GetRequest         queries.GetRequestUseCase
	ListClaimable      queries.ListClaimableRequestsUseCase
	Logger             *slog.Logger
}

// CreateServiceRequestHandler godoc
// @Summary Create a service request
// @Description Stores a pending request and runs one automatic assignment attempt.
// @Tags request-assignment
// @Accept json
// @Produce json
// @Param request body httptransport.CreateServiceRequestRequest true "Request payload"
// @Success 201 {object} httptransport.CreateServiceRequestResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/service-requests [post]
func (h Handler) CreateServiceRequestHandler(
	ctx context.Context,
	req httptransport.CreateServiceRequestRequest,
) (httptransport.CreateServiceRequestResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("create service request received",
		"event", "http_create_service_request_received",
		"module", application.ModuleName,
		"layer", "transport",
		"user_id", req.UserID,
	)

	scheduledAt, err := parseOptionalTime(req.ScheduledAt)
	if err != nil {
		return httptransport.CreateServiceRequestResponse{}, fmt.Errorf("%w: scheduled_at", domainerrors.ErrInvalidRequest)
	}
	expiresAt, err := parseOptionalTime(req.ExpiresAt)
	if err != nil {
		return httptransport.CreateServiceRequestResponse{}, fmt.Errorf("%w: expires_at", domainerrors.ErrInvalidRequest)
	}

	result, err := h.CreateRequest.Execute(ctx, commands.CreateRequestCommand{
		UserID:      req.UserID,
		ServiceID:   req.ServiceID,
		ServiceCode: req.ServiceCode,
		ScheduledAt: scheduledAt,
		ExpiresAt:   expiresAt,
		Notes:       req.Notes,
	})
	if err != nil {
		return httptransport.CreateServiceRequestResponse{}, err
	}
	return httptransport.CreateServiceRequestResponse{
		Request:                mapRequest(result.Request),
		AutoAssignedProviderID: result.AutoAssignedProviderID,
		AssignmentReason:       result.AssignmentReason,
	}, nil
}

// GetServiceRequestHandler godoc
// @Summary Get a service request
// @Tags request-assignment
// @Produce json
// @Param request_id path string true "Request id"
// @Success 200 {object} httptransport.GetServiceRequestResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/service-requests/{request_id} [get]
func (h Handler) GetServiceRequestHandler(ctx context.Context, requestID string) (httptransport.GetServiceRequestResponse, error) {
	result, err := h.GetRequest.Execute(ctx, queries.GetRequestQuery{RequestID: requestID})
	if err != nil {
		return httptransport.GetServiceRequestResponse{}, err
	}
	return httptransport.GetServiceRequestResponse{Request: mapRequest(result.Request)}, nil
}

// ListClaimableRequestsHandler godoc
// @Summary List claimable requests for a provider
// @Description Pending, unassigned requests for services the provider is mapped to.
// @Tags request-assignment
// @Produce json
// @Param provider_id path string true "Provider id"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} httptransport.ListClaimableRequestsResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 500 {object} httptransport.ErrorResponse
// @Router /v1/providers/{provider_id}/claimable-requests [get]
func (h Handler) ListClaimableRequestsHandler(
	ctx context.Context,
	providerID string,
	limit int,
) (httptransport.ListClaimableRequestsResponse, error) {
	result, err := h.ListClaimable.Execute(ctx, queries.ListClaimableRequestsQuery{
		ProviderID: providerID,
		Limit:      limit,
	})
	if err != nil {
		return httptransport.ListClaimableRequestsResponse{}, err
	}
	items := make([]httptransport.ServiceRequestDTO, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, mapRequest(item))
	}
	return httptransport.ListClaimableRequestsResponse{Items: items}, nil
}

// ClaimServiceRequestHandler godoc
// @Summary Claim a pending request
// @Description Provider-initiated claim. Exactly one concurrent claimant wins.
// @Tags request-assignment
// @Produce json
// @Param X-Provider-Id header string true "Claiming provider id"
// @Param request_id path string true "Request id"
// @Success 200 {object} httptransport.ClaimServiceRequestResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Failure 409 {object} httptransport.ErrorResponse
// @Failure 429 {object} httptransport.ErrorResponse
// @Failure 503 {object} httptransport.ErrorResponse
// @Router /v1/service-requests/{request_id}/claim [post]
func (h Handler) ClaimServiceRequestHandler(
	ctx context.Context,
	providerID string,
	requestID string,
) (httptransport.ClaimServiceRequestResponse, error) {
	result, err := h.ClaimRequest.Execute(ctx, commands.ClaimRequestCommand{
		RequestID:  requestID,
		ProviderID: providerID,
	})
	if err != nil {
		logger := application.ResolveLogger(h.Logger)
		logger.Info("claim request rejected",
			"event", "http_claim_service_request_rejected",
			"module", application.ModuleName,
			"layer", "transport",
			"request_id", requestID,
			"provider_id", providerID,
			"error", err.Error(),
		)
		return httptransport.ClaimServiceRequestResponse{}, err
	}
	return httptransport.ClaimServiceRequestResponse{
		Request:  mapRequest(result.Request),
		Strategy: result.Strategy,
	}, nil
}

// RegisterCapabilityHandler godoc
// @Summary Register a provider capability
// @Description Idempotent; an existing mapping is reported with already_exists=true.
// @Tags request-assignment
// @Accept json
// @Produce json
// @Param provider_id path string true "Provider id"
// @Param request body httptransport.RegisterCapabilityRequest true "Capability payload"
// @Success 200 {object} httptransport.RegisterCapabilityResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/providers/{provider_id}/capabilities [post]
func (h Handler) RegisterCapabilityHandler(
	ctx context.Context,
	providerID string,
	req httptransport.RegisterCapabilityRequest,
) (httptransport.RegisterCapabilityResponse, error) {
	result, err := h.RegisterCapability.Execute(ctx, commands.RegisterCapabilityCommand{
		ProviderID: providerID,
		ServiceID:  req.ServiceID,
	})
	if err != nil {
		return httptransport.RegisterCapabilityResponse{}, err
	}
	return httptransport.RegisterCapabilityResponse{
		ProviderID:    result.Mapping.ProviderID,
		ServiceID:     result.Mapping.ServiceID,
		Active:        result.Mapping.Active,
		AlreadyExists: result.AlreadyExists,
	}, nil
}

func mapRequest(item entities.ServiceRequest) httptransport.ServiceRequestDTO {
	return httptransport.ServiceRequestDTO{
		RequestID:   item.RequestID,
		UserID:      item.UserID,
		ServiceID:   item.ServiceID,
		ProviderID:  item.ProviderID,
		Status:      string(item.Status),
		ScheduledAt: formatOptionalTime(item.ScheduledAt),
		ClaimedBy:   item.ClaimedBy,
		ClaimedAt:   formatOptionalTime(item.ClaimedAt),
		ExpiresAt:   formatOptionalTime(item.ExpiresAt),
		Notes:       item.Notes,
		CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func parseOptionalTime(raw string) (*time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("parse time: %w", err)
	}
	utc := parsed.UTC()
	return &utc, nil
}

func formatOptionalTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(time.RFC3339)
	return &formatted
}
