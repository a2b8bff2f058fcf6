package queries

import (
	"context"
	"log/slog"
	"strings"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

type GetRequestQuery struct {
	RequestID string
}

type GetRequestResult struct {
	Request entities.ServiceRequest
}

type GetRequestUseCase struct {
	Requests ports.RequestRepository
	Logger   *slog.Logger
}

func (u GetRequestUseCase) Execute(ctx context.Context, query GetRequestQuery) (GetRequestResult, error) {
	if strings.TrimSpace(query.RequestID) == "" {
		return GetRequestResult{}, domainerrors.ErrInvalidRequest
	}
	request, err := u.Requests.GetRequest(ctx, strings.TrimSpace(query.RequestID))
	if err != nil {
		application.ResolveLogger(u.Logger).Debug("service request lookup failed",
			"event", "request_assignment_get_request_failed",
			"module", application.ModuleName,
			"layer", "application",
			"request_id", query.RequestID,
			"error", err.Error(),
		)
		return GetRequestResult{}, err
	}
	return GetRequestResult{Request: request}, nil
}
