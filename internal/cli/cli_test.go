package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dispatch/contexts/field-operations/request-assignment/application/commands"
	domainerrors "dispatch/contexts/field-operations/request-assignment/domain/errors"
	"dispatch/internal/app/bootstrap"
	"dispatch/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
providers:
  - id: P1
  - id: P2
services:
  - id: S1
    code: INSTALL_2GIG
`

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		ServiceName:        "dispatchctl-test",
		StoreDriver:        config.StoreDriverSQLite,
		SQLitePath:         filepath.Join(t.TempDir(), "dispatch.db"),
		EventTopic:         "service_request.claimed",
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    10,
	}
}

func execute(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{LoadConfig: func() (config.Config, error) { return cfg, nil }}
	cmd := newRootCommand(opts)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{{"migrate"}, {"seed"}, {"capability", "add"}, {"request", "claim"}, {"request", "show"}} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestInvalidFormatIsRejected(t *testing.T) {
	_, err := execute(t, sqliteConfig(t), "--format", "xml", "migrate")
	require.Error(t, err)
}

func TestMigrateRefusesMemoryDriver(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.StoreDriver = config.StoreDriverMemory
	_, err := execute(t, cfg, "migrate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSeedCapabilityAndClaimFlow(t *testing.T) {
	cfg := sqliteConfig(t)
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o600))

	out, err := execute(t, cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema applied (sqlite)")

	out, err = execute(t, cfg, "seed", "--file", seedPath)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 providers, 1 services")

	// No capability yet, so intake leaves the request pending.
	requestID := createPendingRequest(t, cfg)

	out, err = execute(t, cfg, "capability", "add", "--provider", "P2", "--service", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "created")

	out, err = execute(t, cfg, "capability", "add", "--provider", "P2", "--service", "S1")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = execute(t, cfg, "--format", "json", "request", "claim", requestID, "--provider", "P2")
	require.NoError(t, err)
	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "claimed", resp.Data["status"])
	assert.Equal(t, "P2", resp.Data["provider_id"])
	assert.Equal(t, "conditional_update", resp.Data["strategy"])

	_, err = execute(t, cfg, "request", "claim", requestID, "--provider", "P2")
	require.Error(t, err)
	assert.Equal(t, ExitConflict, GetExitCode(err))

	out, err = execute(t, cfg, "request", "show", requestID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, requestID+" claimed"))
}

func createPendingRequest(t *testing.T, cfg config.Config) string {
	t.Helper()
	ctx := context.Background()
	store, err := bootstrap.OpenStore(ctx, cfg, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	opts := &RootOptions{}
	result, err := opts.module(store, cfg).Handler.CreateRequest.Execute(ctx, commands.CreateRequestCommand{
		UserID:      "U1",
		ServiceCode: "INSTALL_2GIG",
	})
	require.NoError(t, err)
	require.Nil(t, result.AutoAssignedProviderID)
	return result.Request.RequestID
}

func TestClaimExitCodesFollowFailureKind(t *testing.T) {
	cfg := sqliteConfig(t)
	seedPath := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seedPath, []byte(seedYAML), 0o600))
	_, err := execute(t, cfg, "seed", "--file", seedPath)
	require.NoError(t, err)

	requestID := createPendingRequest(t, cfg)

	_, err = execute(t, cfg, "request", "claim", requestID, "--provider", "P1")
	require.Error(t, err)
	assert.Equal(t, ExitNotCapable, GetExitCode(err))

	_, err = execute(t, cfg, "request", "claim", requestID, "--provider", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, GetExitCode(err))

	_, err = execute(t, cfg, "request", "show", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, GetExitCode(err))

	_, err = execute(t, cfg, "capability", "add", "--provider", "P1", "--service", "S-missing")
	require.Error(t, err)
	assert.Equal(t, ExitNotFound, GetExitCode(err))
}

func TestDomainExitErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{err: domainerrors.ErrInvalidRequest, want: ExitCommandError},
		{err: domainerrors.ErrRequestNotFound, want: ExitNotFound},
		{err: domainerrors.ErrProviderNotCapable, want: ExitNotCapable},
		{err: domainerrors.ErrClaimConflict, want: ExitConflict},
		{err: fmt.Errorf("%w: timeout", domainerrors.ErrStoreUnavailable), want: ExitUnavailable},
		{err: errors.New("boom"), want: ExitFailure},
	}
	for _, tc := range cases {
		err := domainExitError("claim request", tc.err)
		assert.Equal(t, tc.want, GetExitCode(err), tc.err.Error())
		assert.ErrorIs(t, err, tc.err)
	}
}
