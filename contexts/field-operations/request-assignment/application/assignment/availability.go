package assignment

import (
	"context"
	"log/slog"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/services"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

// AvailabilityFilter drops candidates already booked (claimed or accepted) at
// the same scheduled time. The check is advisory: nothing is locked between
// filtering and claiming, so the claim predicate remains the only guarantee.
type AvailabilityFilter struct {
	Requests ports.RequestRepository
	Logger   *slog.Logger
}

func (f AvailabilityFilter) Filter(
	ctx context.Context,
	candidates []string,
	scheduledAt *time.Time,
) ([]string, error) {
	if scheduledAt == nil || len(candidates) == 0 {
		return append([]string(nil), candidates...), nil
	}
	logger := application.ResolveLogger(f.Logger)

	busy, err := f.Requests.ListBusyProviders(ctx, candidates, scheduledAt.UTC())
	if err != nil {
		logger.Error("availability lookup failed",
			"event", "request_assignment_availability_failed",
			"module", application.ModuleName,
			"layer", "application",
			"scheduled_at", scheduledAt.UTC().Format(time.RFC3339),
			"error", err.Error(),
		)
		return nil, err
	}

	available := services.ExcludeCandidates(candidates, busy)
	logger.Debug("available providers filtered",
		"event", "request_assignment_availability_filtered",
		"module", application.ModuleName,
		"layer", "application",
		"candidate_count", len(candidates),
		"busy_count", len(busy),
		"available_count", len(available),
	)
	return available, nil
}
