package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	application "dispatch/contexts/field-operations/request-assignment/application"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

// Seed is the initial catalog state of a Store.
type Seed struct {
	Providers    []entities.Provider
	Services     []entities.Service
	Capabilities []entities.CapabilityMapping
}

// Store is an in-memory adapter implementing the request assignment ports for
// local runtime and tests. It is not intended as production persistence.
type Store struct {
	mu           sync.RWMutex
	requests     map[string]entities.ServiceRequest
	providers    map[string]entities.Provider
	services     map[string]entities.Service
	serviceCodes map[string]string
	capabilities map[capabilityKey]entities.CapabilityMapping
	outbox       map[string]ports.OutboxMessage
	outboxOrder  []string
	outboxSent   map[string]time.Time
	sequence     uint64
	logger       *slog.Logger
}

type capabilityKey struct {
	providerID string
	serviceID  string
}

func NewStore(seed Seed, logger *slog.Logger) *Store {
	s := &Store{
		requests:     make(map[string]entities.ServiceRequest),
		providers:    make(map[string]entities.Provider),
		services:     make(map[string]entities.Service),
		serviceCodes: make(map[string]string),
		capabilities: make(map[capabilityKey]entities.CapabilityMapping),
		outbox:       make(map[string]ports.OutboxMessage),
		outboxOrder:  make([]string, 0),
		outboxSent:   make(map[string]time.Time),
		logger:       application.ResolveLogger(logger),
	}
	for _, provider := range seed.Providers {
		s.providers[provider.ProviderID] = provider
	}
	for _, service := range seed.Services {
		s.putService(service)
	}
	for _, mapping := range seed.Capabilities {
		s.capabilities[capabilityKey{mapping.ProviderID, mapping.ServiceID}] = mapping
	}
	return s
}

func (s *Store) UpsertProvider(_ context.Context, provider entities.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[provider.ProviderID] = provider
	return nil
}

func (s *Store) UpsertService(_ context.Context, service entities.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putService(service)
	return nil
}

func (s *Store) putService(service entities.Service) {
	service.Code = entities.NormalizeServiceCode(service.Code)
	s.services[service.ServiceID] = service
	if service.Code != "" {
		s.serviceCodes[service.Code] = service.ServiceID
	}
}

func (s *Store) CreateRequest(_ context.Context, request entities.ServiceRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[request.RequestID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.requests[request.RequestID] = cloneRequest(request)
	return nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (entities.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[requestID]
	if !ok {
		return entities.ServiceRequest{}, domainerrors.ErrRequestNotFound
	}
	return cloneRequest(request), nil
}

func (s *Store) ListBusyProviders(_ context.Context, providerIDs []string, scheduledAt time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(providerIDs))
	for _, id := range providerIDs {
		wanted[id] = struct{}{}
	}
	busy := make(map[string]struct{})
	for _, request := range s.requests {
		if !request.Status.HoldsSlot() || request.ProviderID == nil {
			continue
		}
		if _, ok := wanted[*request.ProviderID]; !ok {
			continue
		}
		if request.ScheduledFor(scheduledAt) {
			busy[*request.ProviderID] = struct{}{}
		}
	}
	return sortedKeys(busy), nil
}

func (s *Store) ListPendingRequests(_ context.Context, serviceIDs []string, limit int) ([]entities.ServiceRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(serviceIDs))
	for _, id := range serviceIDs {
		wanted[id] = struct{}{}
	}
	items := make([]entities.ServiceRequest, 0)
	for _, request := range s.requests {
		if !request.IsClaimable() {
			continue
		}
		if _, ok := wanted[request.ServiceID]; !ok {
			continue
		}
		items = append(items, cloneRequest(request))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].RequestID < items[j].RequestID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ConditionalClaim evaluates the claim predicate and applies the update in
// one critical section, which stands in for a single conditional UPDATE.
func (s *Store) ConditionalClaim(_ context.Context, cmd ports.ClaimCommand) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[cmd.RequestID]
	if !ok || !request.IsClaimable() {
		return false, nil
	}

	var message *ports.OutboxMessage
	if cmd.Event != nil {
		event := *cmd.Event
		event.ServiceID = request.ServiceID
		payload, err := event.OutboxPayload()
		if err != nil {
			return false, err
		}
		message = &ports.OutboxMessage{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      payload,
			CreatedAt:    event.OccurredAt.UTC(),
		}
	}

	s.requests[cmd.RequestID] = request.WithClaim(cmd.ProviderID, cmd.ClaimedAt)
	if message != nil {
		s.outbox[message.OutboxID] = *message
		s.outboxOrder = append(s.outboxOrder, message.OutboxID)
	}

	s.logger.Debug("claim applied in memory store",
		"event", "memory_conditional_claim_applied",
		"module", application.ModuleName,
		"layer", "adapter",
		"request_id", cmd.RequestID,
		"provider_id", cmd.ProviderID,
	)
	return true, nil
}

func (s *Store) GetProvider(_ context.Context, providerID string) (entities.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	provider, ok := s.providers[providerID]
	if !ok {
		return entities.Provider{}, domainerrors.ErrProviderNotFound
	}
	return provider, nil
}

func (s *Store) GetService(_ context.Context, serviceID string) (entities.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	service, ok := s.services[serviceID]
	if !ok {
		return entities.Service{}, domainerrors.ErrServiceNotFound
	}
	return service, nil
}

func (s *Store) GetServiceByCode(_ context.Context, code string) (entities.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	serviceID, ok := s.serviceCodes[entities.NormalizeServiceCode(code)]
	if !ok {
		return entities.Service{}, domainerrors.ErrServiceNotFound
	}
	service, ok := s.services[serviceID]
	if !ok || !service.Active {
		return entities.Service{}, domainerrors.ErrServiceNotFound
	}
	return service, nil
}

func (s *Store) ListActiveCapableProviders(_ context.Context, serviceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eligible := make(map[string]struct{})
	for key, mapping := range s.capabilities {
		if key.serviceID != serviceID || !mapping.Active {
			continue
		}
		if provider, ok := s.providers[key.providerID]; ok && provider.Active {
			eligible[key.providerID] = struct{}{}
		}
	}
	return sortedKeys(eligible), nil
}

func (s *Store) HasActiveCapability(_ context.Context, providerID string, serviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mapping, ok := s.capabilities[capabilityKey{providerID, serviceID}]
	return ok && mapping.Active, nil
}

func (s *Store) ListProviderServices(_ context.Context, providerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	serviceIDs := make(map[string]struct{})
	for key, mapping := range s.capabilities {
		if key.providerID == providerID && mapping.Active {
			serviceIDs[key.serviceID] = struct{}{}
		}
	}
	return sortedKeys(serviceIDs), nil
}

func (s *Store) InsertCapability(_ context.Context, mapping entities.CapabilityMapping) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[mapping.ProviderID]; !ok {
		return false, domainerrors.ErrProviderNotFound
	}
	if _, ok := s.services[mapping.ServiceID]; !ok {
		return false, domainerrors.ErrServiceNotFound
	}
	key := capabilityKey{mapping.ProviderID, mapping.ServiceID}
	if _, exists := s.capabilities[key]; exists {
		return false, nil
	}
	s.capabilities[key] = mapping
	return true, nil
}

// CapabilityCount exposes the number of mapping rows for a pair.
func (s *Store) CapabilityCount(providerID string, serviceID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.capabilities[capabilityKey{providerID, serviceID}]; ok {
		return 1
	}
	return 0
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outboxOrder {
		if _, sent := s.outboxSent[id]; sent {
			continue
		}
		if msg, ok := s.outbox[id]; ok {
			messages = append(messages, msg)
		}
		if len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outboxSent[outboxID] = sentAt.UTC()
	return nil
}

func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outboxOrder))
	for _, id := range s.outboxOrder {
		if evt, ok := s.outbox[id]; ok {
			events = append(events, evt)
		}
	}
	return events
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("sr-%d", value), nil
}

func cloneRequest(request entities.ServiceRequest) entities.ServiceRequest {
	request.ProviderID = cloneString(request.ProviderID)
	request.ClaimedBy = cloneString(request.ClaimedBy)
	request.ScheduledAt = cloneTime(request.ScheduledAt)
	request.ClaimedAt = cloneTime(request.ClaimedAt)
	request.ExpiresAt = cloneTime(request.ExpiresAt)
	return request
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	out := *value
	return &out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
