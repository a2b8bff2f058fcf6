package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithMemoryDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "dispatch", cfg.ServiceName)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	require.Equal(t, 2*time.Second, cfg.OutboxPollInterval)
	require.Equal(t, 100, cfg.OutboxBatchSize)
	require.True(t, cfg.ClaimPrimitiveEnabled)
	require.Equal(t, "service_request.claimed", cfg.EventTopic)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/dispatch-test.db")
	t.Setenv("CLAIM_PRIMITIVE_ENABLED", "false")
	t.Setenv("PULL_CLAIM_RPS", "2.5")
	t.Setenv("OUTBOX_POLL_INTERVAL", "500ms")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	require.Equal(t, "/tmp/dispatch-test.db", cfg.SQLitePath)
	require.False(t, cfg.ClaimPrimitiveEnabled)
	require.InDelta(t, 2.5, cfg.PullClaimRPS, 0.0001)
	require.Equal(t, 500*time.Millisecond, cfg.OutboxPollInterval)
}

func TestLoadRequiresDSNForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("POSTGRES_DSN", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store_driver: memory\nhttp_port: \"9090\"\n"), 0o600))
	t.Setenv("DISPATCH_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.HTTPPort)
	require.Equal(t, StoreDriverMemory, cfg.StoreDriver)
}
