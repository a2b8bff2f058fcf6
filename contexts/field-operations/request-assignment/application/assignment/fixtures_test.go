package assignment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch/contexts/field-operations/request-assignment/adapters/memory"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

var (
	testNow  = time.Date(2025, 7, 29, 9, 0, 0, 0, time.UTC)
	testSlot = time.Date(2025, 7, 29, 14, 0, 0, 0, time.UTC)
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type recordingMetrics struct {
	mu     sync.Mutex
	claims map[string]int
}

func (m *recordingMetrics) ObserveClaim(path string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims == nil {
		m.claims = make(map[string]int)
	}
	m.claims[path+"/"+outcome]++
}

func (m *recordingMetrics) ObserveIntake(bool) {}

func (m *recordingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.claims[key]
}

type stubStrategy struct {
	name    string
	applied bool
	err     error
	calls   int
	mu      sync.Mutex
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Apply(_ context.Context, _ ports.ClaimCommand) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.applied, s.err
}

var errPrimitiveDown = errors.New("primitive connection reset")

func newSeededStore(t *testing.T, providers ...string) *memory.Store {
	t.Helper()
	seed := memory.Seed{
		Services: []entities.Service{{ServiceID: "svc-install", Code: "INSTALL_2GIG", Active: true}},
	}
	for _, id := range providers {
		seed.Providers = append(seed.Providers, entities.Provider{ProviderID: id, Active: true})
		seed.Capabilities = append(seed.Capabilities, entities.CapabilityMapping{
			ProviderID: id,
			ServiceID:  "svc-install",
			Active:     true,
			CreatedAt:  testNow,
		})
	}
	return memory.NewStore(seed, nil)
}

func createPending(t *testing.T, store *memory.Store, requestID string, scheduledAt *time.Time) entities.ServiceRequest {
	t.Helper()
	request, err := entities.NewServiceRequest(requestID, "user-1", "svc-install", scheduledAt, nil, "", testNow)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if err := store.CreateRequest(context.Background(), request); err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	return request
}

func claimProtocol(store *memory.Store, metrics ports.AssignmentMetrics) ClaimProtocol {
	return ClaimProtocol{
		Strategies:  DefaultStrategies(store, nil),
		Requests:    store,
		Clock:       fixedClock{now: testNow.Add(time.Minute)},
		IDGenerator: store,
		Metrics:     metrics,
	}
}

type primitiveFunc func() (bool, error)

func (f primitiveFunc) ClaimViaPrimitive(context.Context, ports.ClaimCommand) (bool, error) {
	return f()
}

type committingPrimitive struct {
	store *memory.Store
	err   error
}

func (p committingPrimitive) ClaimViaPrimitive(ctx context.Context, cmd ports.ClaimCommand) (bool, error) {
	if _, err := p.store.ConditionalClaim(ctx, cmd); err != nil {
		return false, err
	}
	return false, p.err
}

func claimCommandFor(requestID string, providerID string) ports.ClaimCommand {
	return ports.ClaimCommand{RequestID: requestID, ProviderID: providerID, ClaimedAt: testNow}
}
