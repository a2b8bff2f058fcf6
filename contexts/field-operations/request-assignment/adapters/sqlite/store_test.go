package sqliteadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/contexts/field-operations/request-assignment/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 7, 29, 9, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.UpsertService(ctx, entities.Service{ServiceID: "svc-install", Code: "install_2gig", Active: true}))
	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, store.UpsertProvider(ctx, entities.Provider{ProviderID: id, Active: true}))
	}
	return store
}

func createPending(t *testing.T, store *Store, requestID string, scheduledAt *time.Time) entities.ServiceRequest {
	t.Helper()
	request, err := entities.NewServiceRequest(requestID, "user-1", "svc-install", scheduledAt, nil, "", baseTime)
	require.NoError(t, err)
	require.NoError(t, store.CreateRequest(context.Background(), request))
	return request
}

func TestCreateAndGetRequestRoundTripsTimestamps(t *testing.T) {
	store := openTestStore(t)
	slot := time.Date(2025, 7, 29, 14, 0, 0, 0, time.UTC)
	createPending(t, store, "req-1", &slot)

	got, err := store.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusPending, got.Status)
	assert.Nil(t, got.ProviderID)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, got.ScheduledAt.Equal(slot))
	assert.True(t, got.CreatedAt.Equal(baseTime))
}

func TestGetRequestMissing(t *testing.T) {
	store := openTestStore(t)
	_, err := store.GetRequest(context.Background(), "nope")
	require.ErrorIs(t, err, domainerrors.ErrRequestNotFound)
}

func TestCreateRequestDuplicateID(t *testing.T) {
	store := openTestStore(t)
	createPending(t, store, "req-1", nil)

	request, err := entities.NewServiceRequest("req-1", "user-2", "svc-install", nil, nil, "", baseTime)
	require.NoError(t, err)
	err = store.CreateRequest(context.Background(), request)
	require.ErrorIs(t, err, domainerrors.ErrRepositoryInvariantBroke)
}

func TestConditionalClaimAppliesOnceAndEnqueuesEvent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	createPending(t, store, "req-1", nil)
	claimedAt := baseTime.Add(time.Minute)

	applied, err := store.ConditionalClaim(ctx, ports.ClaimCommand{
		RequestID:  "req-1",
		ProviderID: "p1",
		ClaimedAt:  claimedAt,
		Event: &ports.ClaimedEvent{
			EventID:      "evt-1",
			EventType:    ports.ClaimedEventType,
			RequestID:    "req-1",
			ProviderID:   "p1",
			PartitionKey: "req-1",
			OccurredAt:   claimedAt,
		},
	})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = store.ConditionalClaim(ctx, ports.ClaimCommand{
		RequestID:  "req-1",
		ProviderID: "p2",
		ClaimedAt:  claimedAt.Add(time.Minute),
		Event:      &ports.ClaimedEvent{EventID: "evt-2", EventType: ports.ClaimedEventType},
	})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, entities.RequestStatusClaimed, got.Status)
	require.NotNil(t, got.ProviderID)
	assert.Equal(t, "p1", *got.ProviderID)
	require.NotNil(t, got.ClaimedAt)
	assert.True(t, got.ClaimedAt.Equal(claimedAt), "losing claim must not move claimed_at")

	outbox, err := store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, outbox, 1)
	assert.Equal(t, "evt-1", outbox[0].OutboxID)

	var envelope ports.EventEnvelope
	require.NoError(t, json.Unmarshal(outbox[0].Payload, &envelope))
	assert.Equal(t, ports.ClaimedEventType, envelope.EventType)
	var data map[string]string
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "svc-install", data["service_id"])
	assert.Equal(t, "p1", data["provider_id"])

	require.NoError(t, store.MarkOutboxSent(ctx, "evt-1", claimedAt))
	outbox, err = store.ListPendingOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, outbox)
}

func TestConditionalClaimMissingRequestIsNotApplied(t *testing.T) {
	store := openTestStore(t)
	applied, err := store.ConditionalClaim(context.Background(), ports.ClaimCommand{
		RequestID:  "ghost",
		ProviderID: "p1",
		ClaimedAt:  baseTime,
	})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestConcurrentConditionalClaimsHaveOneWinner(t *testing.T) {
	store := openTestStore(t)
	createPending(t, store, "req-1", nil)

	const contenders = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < contenders; i++ {
		providerID := []string{"p1", "p2", "p3"}[i%3]
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			applied, err := store.ConditionalClaim(context.Background(), ports.ClaimCommand{
				RequestID:  "req-1",
				ProviderID: providerID,
				ClaimedAt:  baseTime.Add(time.Duration(n) * time.Second),
			})
			if err != nil {
				t.Errorf("unexpected claim error: %v", err)
				return
			}
			if applied {
				mu.Lock()
				winners = append(winners, providerID)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	got, err := store.GetRequest(context.Background(), "req-1")
	require.NoError(t, err)
	require.NotNil(t, got.ProviderID)
	assert.Equal(t, winners[0], *got.ProviderID)
}

func TestListBusyProvidersMatchesExactSlot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	slot := time.Date(2025, 7, 29, 14, 0, 0, 0, time.UTC)
	createPending(t, store, "req-1", &slot)

	applied, err := store.ConditionalClaim(ctx, ports.ClaimCommand{RequestID: "req-1", ProviderID: "p1", ClaimedAt: baseTime})
	require.NoError(t, err)
	require.True(t, applied)

	busy, err := store.ListBusyProviders(ctx, []string{"p1", "p2"}, slot)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, busy)

	busy, err = store.ListBusyProviders(ctx, []string{"p1", "p2"}, slot.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, busy)
}

func TestListPendingRequestsOrdersByCreation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for i := 3; i >= 1; i-- {
		request, err := entities.NewServiceRequest(
			fmt.Sprintf("req-%d", i), "user-1", "svc-install", nil, nil, "",
			baseTime.Add(time.Duration(i)*time.Minute),
		)
		require.NoError(t, err)
		require.NoError(t, store.CreateRequest(ctx, request))
	}
	applied, err := store.ConditionalClaim(ctx, ports.ClaimCommand{RequestID: "req-2", ProviderID: "p1", ClaimedAt: baseTime})
	require.NoError(t, err)
	require.True(t, applied)

	items, err := store.ListPendingRequests(ctx, []string{"svc-install"}, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "req-1", items[0].RequestID)
	assert.Equal(t, "req-3", items[1].RequestID)
}

func TestInsertCapabilityIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mapping, err := entities.NewCapabilityMapping("p1", "svc-install", baseTime)
	require.NoError(t, err)

	created, err := store.InsertCapability(ctx, mapping)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.InsertCapability(ctx, mapping)
	require.NoError(t, err)
	assert.False(t, created)

	count, err := store.CapabilityCount(ctx, "p1", "svc-install")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	capable, err := store.HasActiveCapability(ctx, "p1", "svc-install")
	require.NoError(t, err)
	assert.True(t, capable)

	providers, err := store.ListActiveCapableProviders(ctx, "svc-install")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, providers)
}

func TestListActiveCapableProvidersSkipsInactiveProvider(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	for _, id := range []string{"p1", "p2"} {
		mapping, err := entities.NewCapabilityMapping(id, "svc-install", baseTime)
		require.NoError(t, err)
		_, err = store.InsertCapability(ctx, mapping)
		require.NoError(t, err)
	}
	require.NoError(t, store.UpsertProvider(ctx, entities.Provider{ProviderID: "p2", Active: false}))

	providers, err := store.ListActiveCapableProviders(ctx, "svc-install")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, providers)
}

func TestGetServiceByCodeIsCaseInsensitive(t *testing.T) {
	store := openTestStore(t)
	service, err := store.GetServiceByCode(context.Background(), " Install_2GIG ")
	require.NoError(t, err)
	assert.Equal(t, "svc-install", service.ServiceID)

	_, err = store.GetServiceByCode(context.Background(), "UNKNOWN")
	require.ErrorIs(t, err, domainerrors.ErrServiceNotFound)
}

func TestInsertCapabilityNamesTheMissingReference(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mapping, err := entities.NewCapabilityMapping("ghost", "svc-install", baseTime)
	require.NoError(t, err)
	_, err = store.InsertCapability(ctx, mapping)
	require.ErrorIs(t, err, domainerrors.ErrProviderNotFound)

	mapping, err = entities.NewCapabilityMapping("p1", "svc-missing", baseTime)
	require.NoError(t, err)
	_, err = store.InsertCapability(ctx, mapping)
	require.ErrorIs(t, err, domainerrors.ErrServiceNotFound)

	count, err := store.CapabilityCount(ctx, "p1", "svc-missing")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDriverErrorsClassifiedByResultCode(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `INSERT INTO providers (provider_id, active) VALUES ('p1', 1)`)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err), "duplicate primary key: %v", err)
	assert.False(t, isForeignKeyViolation(err))
	assert.False(t, isBusy(err))

	_, err = store.db.ExecContext(ctx,
		`INSERT INTO provider_capabilities (provider_id, service_id, active, created_at) VALUES ('ghost', 'svc-install', 1, ?)`,
		formatTime(baseTime),
	)
	require.Error(t, err)
	assert.True(t, isForeignKeyViolation(err), "dangling provider: %v", err)
	assert.False(t, isUniqueViolation(err))

	assert.False(t, isUniqueViolation(fmt.Errorf("UNIQUE constraint failed")))
	assert.NotErrorIs(t, mapStoreError(err), domainerrors.ErrStoreUnavailable)
	assert.ErrorIs(t, mapStoreError(context.DeadlineExceeded), domainerrors.ErrStoreUnavailable)
}
