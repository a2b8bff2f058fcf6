package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	requestassignment "dispatch/contexts/field-operations/request-assignment"
	"dispatch/contexts/field-operations/request-assignment/application/commands"
	contractsv1 "dispatch/contracts/gen/events/v1"
	"dispatch/internal/platform/config"
	"dispatch/internal/platform/messaging"

	"github.com/stretchr/testify/require"
)

const fixture = `
providers:
  - id: P1
services:
  - id: S1
    code: INSTALL_2GIG
capabilities:
  - provider_id: P1
    service_id: S1
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	return path
}

func testConfig(driver string, seedFile string) config.Config {
	return config.Config{
		ServiceName:        "dispatch-test",
		StoreDriver:        driver,
		SQLitePath:         ":memory:",
		SeedFile:           seedFile,
		EventTopic:         "service_request.claimed",
		OutboxPollInterval: 10 * time.Millisecond,
		OutboxBatchSize:    10,
	}
}

func TestNormalizeAddr(t *testing.T) {
	require.Equal(t, ":8080", normalizeAddr(""))
	require.Equal(t, ":9090", normalizeAddr("9090"))
	require.Equal(t, ":9090", normalizeAddr(" :9090 "))
}

func TestOpenStoreSeedsEachEmbeddedDriver(t *testing.T) {
	for _, driver := range []string{config.StoreDriverMemory, config.StoreDriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(driver, writeFixture(t))
			store, err := OpenStore(ctx, cfg, nil)
			require.NoError(t, err)
			defer func() { require.NoError(t, store.Close()) }()

			module := requestassignment.NewModule(store.Dependencies(cfg, nil))
			result, err := module.Handler.CreateRequest.Execute(ctx, commands.CreateRequestCommand{
				UserID:      "U1",
				ServiceCode: "install_2gig",
			})
			require.NoError(t, err)
			require.NotNil(t, result.AutoAssignedProviderID)
			require.Equal(t, "P1", *result.AutoAssignedProviderID)
		})
	}
}

func TestOpenStoreRejectsMissingSeedFile(t *testing.T) {
	_, err := OpenStore(context.Background(), testConfig(config.StoreDriverMemory, "/nonexistent/seed.yaml"), nil)
	require.Error(t, err)
}

func TestMemoryStoreHasNoSchema(t *testing.T) {
	store, err := OpenStore(context.Background(), testConfig(config.StoreDriverMemory, ""), nil)
	require.NoError(t, err)
	require.Error(t, store.Migrate(context.Background()))
}

func TestRunRelayPublishesClaimedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(config.StoreDriverSQLite, writeFixture(t))
	store, err := OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	bus := messaging.NewBus(nil)
	received := make(chan string, 1)
	require.NoError(t, bus.Subscribe(ctx, cfg.EventTopic, "test", func(_ context.Context, event contractsv1.Envelope) error {
		received <- event.PartitionKey
		return nil
	}))

	deps := store.Dependencies(cfg, nil)
	deps.Publisher = bus
	module := requestassignment.NewModule(deps)
	result, err := module.Handler.CreateRequest.Execute(ctx, commands.CreateRequestCommand{UserID: "U1", ServiceID: "S1"})
	require.NoError(t, err)

	go func() { _ = runRelay(ctx, module.OutboxRelay, cfg.OutboxPollInterval, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	select {
	case key := <-received:
		require.Equal(t, result.Request.RequestID, key)
	case <-time.After(2 * time.Second):
		t.Fatal("expected claimed event to be relayed")
	}
}
