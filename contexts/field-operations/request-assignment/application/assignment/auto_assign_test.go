package assignment

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"dispatch/contexts/field-operations/request-assignment/adapters/memory"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/domain/services"
)

func autoAssigner(store *memory.Store, policy services.SelectionPolicy) AutoAssigner {
	return AutoAssigner{
		Eligibility:  EligibilityResolver{Capabilities: store},
		Availability: AvailabilityFilter{Requests: store},
		Policy:       policy,
		Claims:       claimProtocol(store, nil),
	}
}

func firstCandidate() services.SelectionPolicy {
	return services.SelectionPolicyFunc(func(candidates []string) string { return candidates[0] })
}

func TestEligibilityExcludesInactiveProvidersAndMappings(t *testing.T) {
	store := newSeededStore(t, "p1", "p2", "p3")
	ctx := context.Background()
	if err := store.UpsertProvider(ctx, entities.Provider{ProviderID: "p2", Active: false}); err != nil {
		t.Fatalf("deactivate provider failed: %v", err)
	}

	got, err := EligibilityResolver{Capabilities: store}.Resolve(ctx, "svc-install")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"p1", "p3"}) {
		t.Fatalf("expected [p1 p3], got %v", got)
	}

	got, err = EligibilityResolver{Capabilities: store}.Resolve(ctx, "svc-unknown")
	if err != nil {
		t.Fatalf("resolve unknown service failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

func TestEligibilityRejectsBlankService(t *testing.T) {
	_, err := EligibilityResolver{}.Resolve(context.Background(), "  ")
	if !errors.Is(err, domainerrors.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestAvailabilityDropsProvidersBookedAtSameSlot(t *testing.T) {
	store := newSeededStore(t, "p1", "p2")
	slot := testSlot
	createPending(t, store, "req-booked", &slot)
	if _, err := claimProtocol(store, nil).AttemptClaim(context.Background(), "req-booked", "p1"); err != nil {
		t.Fatalf("seed claim failed: %v", err)
	}
	filter := AvailabilityFilter{Requests: store}

	same, err := filter.Filter(context.Background(), []string{"p1", "p2"}, &slot)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if !reflect.DeepEqual(same, []string{"p2"}) {
		t.Fatalf("expected [p2] at booked slot, got %v", same)
	}

	other := slot.Add(time.Hour)
	different, err := filter.Filter(context.Background(), []string{"p1", "p2"}, &other)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if !reflect.DeepEqual(different, []string{"p1", "p2"}) {
		t.Fatalf("expected both providers at a different slot, got %v", different)
	}
}

func TestAvailabilityWithoutScheduleKeepsEveryone(t *testing.T) {
	got, err := AvailabilityFilter{}.Filter(context.Background(), []string{"p1", "p2"}, nil)
	if err != nil {
		t.Fatalf("filter failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Fatalf("expected candidates unchanged, got %v", got)
	}
}

func TestAutoAssignClaimsSelectedProvider(t *testing.T) {
	store := newSeededStore(t, "p1", "p2")
	slot := testSlot
	request := createPending(t, store, "req-1", &slot)

	result, err := autoAssigner(store, firstCandidate()).Assign(context.Background(), request)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if !result.Assigned || result.ProviderID != "p1" || result.Reason != ReasonAssigned {
		t.Fatalf("expected assignment to p1, got %+v", result)
	}
	if result.Request.Status != entities.RequestStatusClaimed {
		t.Fatalf("expected claimed request, got %s", result.Request.Status)
	}
}

func TestAutoAssignWithoutEligibleProvidersLeavesPending(t *testing.T) {
	store := newSeededStore(t)
	request := createPending(t, store, "req-1", nil)

	result, err := autoAssigner(store, nil).Assign(context.Background(), request)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if result.Assigned || result.Reason != ReasonNoEligibleProviders {
		t.Fatalf("expected no eligible providers, got %+v", result)
	}
	stored, _ := store.GetRequest(context.Background(), "req-1")
	if stored.Status != entities.RequestStatusPending || stored.ProviderID != nil {
		t.Fatalf("expected request untouched, got %+v", stored)
	}
}

func TestAutoAssignSkipsBookedProviderForSameSlot(t *testing.T) {
	store := newSeededStore(t, "p1")
	slot := testSlot
	first := createPending(t, store, "req-1", &slot)
	if _, err := autoAssigner(store, nil).Assign(context.Background(), first); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}

	second := createPending(t, store, "req-2", &slot)
	result, err := autoAssigner(store, nil).Assign(context.Background(), second)
	if err != nil {
		t.Fatalf("second assign failed: %v", err)
	}
	if result.Assigned || result.Reason != ReasonNoAvailableProviders {
		t.Fatalf("expected no available providers, got %+v", result)
	}
}

func TestAutoAssignConflictIsNotAnError(t *testing.T) {
	store := newSeededStore(t, "p1", "p2")
	request := createPending(t, store, "req-1", nil)
	if _, err := claimProtocol(store, nil).AttemptClaim(context.Background(), "req-1", "p2"); err != nil {
		t.Fatalf("competing claim failed: %v", err)
	}

	result, err := autoAssigner(store, firstCandidate()).Assign(context.Background(), request)
	if err != nil {
		t.Fatalf("expected conflict to be reported without error, got %v", err)
	}
	if result.Assigned || result.Reason != ReasonClaimConflict {
		t.Fatalf("expected claim conflict reason, got %+v", result)
	}
}
