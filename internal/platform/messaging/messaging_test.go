package messaging

import (
	"context"
	"testing"
	"time"

	contractsv1 "dispatch/contracts/gen/events/v1"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan contractsv1.Envelope, 1)
	require.NoError(t, bus.Subscribe(ctx, "service_request.claimed", "test-cg", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "service_request.claimed", contractsv1.Envelope{EventID: "evt-1"}))

	select {
	case event := <-received:
		require.Equal(t, "evt-1", event.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected event delivery")
	}
}

func TestBusPublishWithoutSubscribersSucceeds(t *testing.T) {
	bus := NewBus(nil)
	require.NoError(t, bus.Publish(context.Background(), "nobody", contractsv1.Envelope{EventID: "evt-1"}))
}

func TestRedisPublisherStreamNaming(t *testing.T) {
	p := NewRedisPublisher(nil, WithStreamPrefix("dispatch:events:"))
	require.Equal(t, "dispatch:events:service_request.claimed", p.Stream("service_request.claimed"))

	bare := NewRedisPublisher(nil, WithStreamPrefix(""))
	require.Equal(t, "service_request.claimed", bare.Stream("service_request.claimed"))
}

func TestRedisPublisherSurfacesConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer func() { _ = rdb.Close() }()

	err := NewRedisPublisher(rdb).Publish(context.Background(), "service_request.claimed", contractsv1.Envelope{EventID: "evt-1"})
	require.Error(t, err)
}
