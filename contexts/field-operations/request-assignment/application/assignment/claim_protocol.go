package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

const (
	ClaimPathAuto = "auto"
	ClaimPathPull = "pull"
)

// ClaimStrategy applies one atomic claim. (true, nil) means this strategy
// applied the mutation and (false, nil) is a definitive conflict.
// ErrClaimPrimitiveUnavailable means nothing was attempted; any other error
// leaves the outcome unknown.
type ClaimStrategy interface {
	Name() string
	Apply(ctx context.Context, cmd ports.ClaimCommand) (bool, error)
}

// PrimitiveStrategy delegates to a store-side claim function.
type PrimitiveStrategy struct {
	Primitive ports.ClaimPrimitive
}

func (PrimitiveStrategy) Name() string { return "primitive" }

func (s PrimitiveStrategy) Apply(ctx context.Context, cmd ports.ClaimCommand) (bool, error) {
	if s.Primitive == nil {
		return false, domainerrors.ErrClaimPrimitiveUnavailable
	}
	return s.Primitive.ClaimViaPrimitive(ctx, cmd)
}

// ConditionalUpdateStrategy issues the single
// "UPDATE ... WHERE status = 'pending' AND provider_id IS NULL" statement.
type ConditionalUpdateStrategy struct {
	Store ports.ClaimStore
}

func (ConditionalUpdateStrategy) Name() string { return "conditional_update" }

func (s ConditionalUpdateStrategy) Apply(ctx context.Context, cmd ports.ClaimCommand) (bool, error) {
	if s.Store == nil {
		return false, domainerrors.ErrRepositoryInvariantBroke
	}
	return s.Store.ConditionalClaim(ctx, cmd)
}

// DefaultStrategies orders the primitive (when present) before the
// conditional update.
func DefaultStrategies(store ports.ClaimStore, primitive ports.ClaimPrimitive) []ClaimStrategy {
	strategies := make([]ClaimStrategy, 0, 2)
	if primitive != nil {
		strategies = append(strategies, PrimitiveStrategy{Primitive: primitive})
	}
	return append(strategies, ConditionalUpdateStrategy{Store: store})
}

type ClaimOutcome struct {
	Request  entities.ServiceRequest
	Strategy string
}

// ClaimProtocol arbitrates concurrent claims. Both the automatic and the
// provider-initiated entry points call AttemptClaim; no retries happen here.
type ClaimProtocol struct {
	Strategies  []ClaimStrategy
	Requests    ports.RequestRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Metrics     ports.AssignmentMetrics
	Logger      *slog.Logger
	Path        string
}

// WithPath labels attempts for logs and metrics.
func (p ClaimProtocol) WithPath(path string) ClaimProtocol {
	p.Path = path
	return p
}

// AttemptClaim transitions requestID from pending to claimed by providerID.
// It returns ErrClaimConflict when the predicate did not hold at apply time
// and ErrRequestNotFound when the request does not exist. A strategy error
// other than ErrClaimPrimitiveUnavailable ends the attempt with an error
// wrapping ErrStoreUnavailable.
func (p ClaimProtocol) AttemptClaim(ctx context.Context, requestID string, providerID string) (ClaimOutcome, error) {
	logger := application.ResolveLogger(p.Logger)
	metrics := application.ResolveMetrics(p.Metrics)
	path := p.path()

	requestID = strings.TrimSpace(requestID)
	providerID = strings.TrimSpace(providerID)
	if requestID == "" || providerID == "" {
		return ClaimOutcome{}, domainerrors.ErrInvalidRequest
	}
	if len(p.Strategies) == 0 {
		return ClaimOutcome{}, domainerrors.ErrRepositoryInvariantBroke
	}

	now := p.now()
	cmd := ports.ClaimCommand{
		RequestID:  requestID,
		ProviderID: providerID,
		ClaimedAt:  now,
	}
	event, err := p.claimedEvent(ctx, cmd)
	if err != nil {
		return ClaimOutcome{}, err
	}
	cmd.Event = event

	var lastErr error
	for i, strategy := range p.Strategies {
		applied, err := strategy.Apply(ctx, cmd)
		if err != nil {
			lastErr = err
			// Any other failure may have committed; handing over would retry
			// an unacknowledged write.
			if i < len(p.Strategies)-1 && errors.Is(err, domainerrors.ErrClaimPrimitiveUnavailable) {
				logger.Warn("claim strategy unavailable, falling back",
					"event", "request_assignment_claim_fallback",
					"module", application.ModuleName,
					"layer", "application",
					"path", path,
					"strategy", strategy.Name(),
					"request_id", requestID,
					"provider_id", providerID,
					"error", err.Error(),
				)
				continue
			}
			break
		}

		if !applied {
			return ClaimOutcome{Strategy: strategy.Name()}, p.conflict(ctx, logger, metrics, cmd, strategy.Name())
		}

		request := p.loadClaimed(ctx, logger, cmd)
		metrics.ObserveClaim(path, "claimed")
		logger.Info("service request claimed",
			"event", "request_assignment_claimed",
			"module", application.ModuleName,
			"layer", "application",
			"path", path,
			"strategy", strategy.Name(),
			"request_id", requestID,
			"provider_id", providerID,
		)
		return ClaimOutcome{Request: request, Strategy: strategy.Name()}, nil
	}

	metrics.ObserveClaim(path, "store_error")
	logger.Error("claim attempt failed",
		"event", "request_assignment_claim_failed",
		"module", application.ModuleName,
		"layer", "application",
		"path", path,
		"request_id", requestID,
		"provider_id", providerID,
		"error", lastErr.Error(),
	)
	return ClaimOutcome{}, asStoreFault(lastErr)
}

// conflict runs after a definitive zero-row result. The existence read only
// picks the error kind; nothing was mutated either way.
func (p ClaimProtocol) conflict(
	ctx context.Context,
	logger *slog.Logger,
	metrics ports.AssignmentMetrics,
	cmd ports.ClaimCommand,
	strategy string,
) error {
	if p.Requests != nil {
		if _, err := p.Requests.GetRequest(ctx, cmd.RequestID); errors.Is(err, domainerrors.ErrRequestNotFound) {
			metrics.ObserveClaim(p.path(), "not_found")
			return domainerrors.ErrRequestNotFound
		}
	}

	metrics.ObserveClaim(p.path(), "conflict")
	logger.Info("claim conflict",
		"event", "request_assignment_claim_conflict",
		"module", application.ModuleName,
		"layer", "application",
		"path", p.path(),
		"strategy", strategy,
		"request_id", cmd.RequestID,
		"provider_id", cmd.ProviderID,
	)
	return domainerrors.ErrClaimConflict
}

func (p ClaimProtocol) loadClaimed(ctx context.Context, logger *slog.Logger, cmd ports.ClaimCommand) entities.ServiceRequest {
	if p.Requests != nil {
		request, err := p.Requests.GetRequest(ctx, cmd.RequestID)
		if err == nil {
			return request
		}
		logger.Warn("claimed request reload failed",
			"event", "request_assignment_claim_reload_failed",
			"module", application.ModuleName,
			"layer", "application",
			"request_id", cmd.RequestID,
			"error", err.Error(),
		)
	}
	return entities.ServiceRequest{RequestID: cmd.RequestID}.WithClaim(cmd.ProviderID, cmd.ClaimedAt)
}

func (p ClaimProtocol) claimedEvent(ctx context.Context, cmd ports.ClaimCommand) (*ports.ClaimedEvent, error) {
	if p.IDGenerator == nil {
		return nil, nil
	}
	eventID, err := p.IDGenerator.NewID(ctx)
	if err != nil {
		return nil, err
	}
	return &ports.ClaimedEvent{
		EventID:      eventID,
		EventType:    ports.ClaimedEventType,
		RequestID:    cmd.RequestID,
		ProviderID:   cmd.ProviderID,
		PartitionKey: cmd.RequestID,
		OccurredAt:   cmd.ClaimedAt,
	}, nil
}

func (p ClaimProtocol) path() string {
	if p.Path == "" {
		return ClaimPathPull
	}
	return p.Path
}

func (p ClaimProtocol) now() time.Time {
	if p.Clock == nil {
		return time.Now().UTC()
	}
	return p.Clock.Now().UTC()
}

func asStoreFault(err error) error {
	switch domainerrors.Kind(err) {
	case domainerrors.KindNotFound, domainerrors.KindConflict, domainerrors.KindValidation:
		return err
	}
	if errors.Is(err, domainerrors.ErrStoreUnavailable) ||
		errors.Is(err, domainerrors.ErrRepositoryInvariantBroke) {
		return err
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
}
