package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatch/contexts/field-operations/request-assignment/adapters/memory"
	"dispatch/contexts/field-operations/request-assignment/domain/entities"
	"dispatch/contexts/field-operations/request-assignment/ports"
)

type capturePublisher struct {
	topics []string
	events []ports.EventEnvelope
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func claimedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore(memory.Seed{}, nil)
	now := time.Date(2025, 7, 29, 9, 0, 0, 0, time.UTC)
	request, err := entities.NewServiceRequest("req-1", "user-1", "svc-install", nil, nil, "", now)
	if err != nil {
		t.Fatalf("build request failed: %v", err)
	}
	if err := store.CreateRequest(context.Background(), request); err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	applied, err := store.ConditionalClaim(context.Background(), ports.ClaimCommand{
		RequestID:  "req-1",
		ProviderID: "p1",
		ClaimedAt:  now,
		Event: &ports.ClaimedEvent{
			EventID:      "evt-1",
			EventType:    ports.ClaimedEventType,
			RequestID:    "req-1",
			ProviderID:   "p1",
			PartitionKey: "req-1",
			OccurredAt:   now,
		},
	})
	if err != nil || !applied {
		t.Fatalf("seed claim failed: applied=%v err=%v", applied, err)
	}
	return store
}

func TestOutboxRelayPublishesAndAcknowledges(t *testing.T) {
	store := claimedStore(t)
	publisher := &capturePublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.events))
	}
	if publisher.topics[0] != ports.ClaimedEventType {
		t.Fatalf("expected default topic, got %s", publisher.topics[0])
	}
	event := publisher.events[0]
	if event.EventID != "evt-1" || event.PartitionKey != "req-1" {
		t.Fatalf("unexpected envelope: %+v", event)
	}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay failed: %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected acknowledged rows not to be re-published, got %d", len(publisher.events))
	}
}

func TestOutboxRelayKeepsRowsOnPublishFailure(t *testing.T) {
	store := claimedStore(t)
	relay := OutboxRelay{
		Outbox:    store,
		Publisher: &capturePublisher{err: errors.New("broker down")},
		Topic:     "dispatch.claims",
	}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure")
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("expected row to stay pending for redelivery, got %d", len(pending))
	}
}

type rawOutbox struct {
	rows []ports.OutboxMessage
	sent []string
}

func (o *rawOutbox) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	out := make([]ports.OutboxMessage, 0, len(o.rows))
	for _, row := range o.rows {
		acked := false
		for _, id := range o.sent {
			if id == row.OutboxID {
				acked = true
			}
		}
		if !acked {
			out = append(out, row)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (o *rawOutbox) MarkOutboxSent(_ context.Context, outboxID string, _ time.Time) error {
	o.sent = append(o.sent, outboxID)
	return nil
}

func TestOutboxRelayDropsUndecodableRowsWithoutBlocking(t *testing.T) {
	outbox := &rawOutbox{rows: []ports.OutboxMessage{
		{OutboxID: "bad", EventType: ports.ClaimedEventType, Payload: []byte("{not json")},
		{OutboxID: "good", EventType: ports.ClaimedEventType, Payload: []byte(`{"event_id":"evt-2","partition_key":"req-2"}`)},
	}}
	publisher := &capturePublisher{}
	relay := OutboxRelay{Outbox: outbox, Publisher: publisher}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once failed: %v", err)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventID != "evt-2" {
		t.Fatalf("expected only the decodable row to publish, got %+v", publisher.events)
	}
	if publisher.topics[0] != "service_request.claimed" {
		t.Fatalf("expected default topic, got %s", publisher.topics[0])
	}
	if len(outbox.sent) != 2 {
		t.Fatalf("expected both rows acknowledged, got %v", outbox.sent)
	}
}

func TestOutboxRelayStopsOnCancelledContext(t *testing.T) {
	store := claimedStore(t)
	publisher := &capturePublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := relay.RunOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected nothing published after cancellation")
	}
}
