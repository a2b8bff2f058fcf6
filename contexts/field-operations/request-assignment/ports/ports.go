package ports

import (
	"context"
	"time"

	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	contractsv1 "dispatch/contracts/gen/events/v1"
)

// RequestRepository owns service request rows.
type RequestRepository interface {
	CreateRequest(ctx context.Context, request entities.ServiceRequest) error
	GetRequest(ctx context.Context, requestID string) (entities.ServiceRequest, error)
	// ListBusyProviders returns the subset of providerIDs holding a claimed or
	// accepted request scheduled at exactly scheduledAt.
	ListBusyProviders(ctx context.Context, providerIDs []string, scheduledAt time.Time) ([]string, error)
	// ListPendingRequests returns pending, unassigned requests for the given services.
	ListPendingRequests(ctx context.Context, serviceIDs []string, limit int) ([]entities.ServiceRequest, error)
}

// ProviderDirectory is read-only access to provider records.
type ProviderDirectory interface {
	GetProvider(ctx context.Context, providerID string) (entities.Provider, error)
}

// ServiceCatalog resolves service identifiers and codes.
type ServiceCatalog interface {
	GetService(ctx context.Context, serviceID string) (entities.Service, error)
	GetServiceByCode(ctx context.Context, code string) (entities.Service, error)
}

// CapabilityRepository owns provider capability mappings.
type CapabilityRepository interface {
	// ListActiveCapableProviders returns providers with an active mapping for
	// serviceID whose own active flag is set.
	ListActiveCapableProviders(ctx context.Context, serviceID string) ([]string, error)
	HasActiveCapability(ctx context.Context, providerID string, serviceID string) (bool, error)
	ListProviderServices(ctx context.Context, providerID string) ([]string, error)
	// InsertCapability returns created=false when the pair already exists.
	InsertCapability(ctx context.Context, mapping entities.CapabilityMapping) (bool, error)
}

// ClaimedEvent is the outbound integration payload persisted with a claim.
type ClaimedEvent struct {
	EventID      string
	EventType    string
	RequestID    string
	ProviderID   string
	ServiceID    string
	PartitionKey string
	OccurredAt   time.Time
}

// ClaimCommand is the input of one atomic claim application.
type ClaimCommand struct {
	RequestID  string
	ProviderID string
	ClaimedAt  time.Time
	// Event is enqueued to the outbox only when the claim applies. Optional.
	Event *ClaimedEvent
}

// ClaimStore applies the conditional claim update. It returns true iff the
// request was pending with no provider at apply time and the update applied.
// A false result means no row changed.
type ClaimStore interface {
	ConditionalClaim(ctx context.Context, cmd ClaimCommand) (bool, error)
}

// ClaimPrimitive is a dedicated store-side atomic claim. Implementations
// return ErrClaimPrimitiveUnavailable when the store does not offer one.
type ClaimPrimitive interface {
	ClaimViaPrimitive(ctx context.Context, cmd ClaimCommand) (bool, error)
}

// AssignmentMetrics receives outcome counters. Nil-safe wrappers live in the
// application package.
type AssignmentMetrics interface {
	ObserveClaim(path string, outcome string)
	ObserveIntake(autoAssigned bool)
}

// Clock allows deterministic testing of timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts request/event identifier generation.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// OutboxMessage is a row ready to relay from the module outbox.
type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// OutboxRepository models worker-side outbox polling/acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

// EventPublisher publishes canonical envelopes to a topic.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
