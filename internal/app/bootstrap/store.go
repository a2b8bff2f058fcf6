package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	requestassignment "dispatch/contexts/field-operations/request-assignment"
	"dispatch/contexts/field-operations/request-assignment/adapters/memory"
	postgresadapter "dispatch/contexts/field-operations/request-assignment/adapters/postgres"
	sqliteadapter "dispatch/contexts/field-operations/request-assignment/adapters/sqlite"
	"dispatch/contexts/field-operations/request-assignment/adapters/system"
	"dispatch/contexts/field-operations/request-assignment/domain/services"
	"dispatch/internal/platform/config"
	"dispatch/internal/platform/db"
	"dispatch/internal/platform/seed"
)

// Store is the record store selected by STORE_DRIVER. Exactly one of the
// driver fields is set.
type Store struct {
	Driver   string
	Memory   *memory.Store
	Postgres *postgresadapter.Repository
	SQLite   *sqliteadapter.Store

	pg *db.Postgres
}

// OpenStore connects the configured driver, applies the schema and, when
// SEED_FILE is set, loads the catalog fixture.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fixture, err := loadSeed(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	store := &Store{Driver: cfg.StoreDriver}
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		initial := memory.Seed{}
		if fixture != nil {
			initial = fixture.MemorySeed(time.Now())
		}
		store.Memory = memory.NewStore(initial, logger)
		return store, nil

	case config.StoreDriverSQLite:
		sqliteStore, err := sqliteadapter.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		store.SQLite = sqliteStore

	case config.StoreDriverPostgres:
		pg, err := db.Connect(ctx, cfg.PostgresDSN, db.PoolOptions{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			return nil, err
		}
		store.pg = pg
		store.Postgres = postgresadapter.NewRepository(pg.DB, logger)
		if err := store.Postgres.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if fixture != nil {
		summary, err := fixture.Apply(ctx, store.SeedTarget(), time.Now())
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("seed applied",
			"event", "bootstrap_seed_applied",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"providers", summary.Providers,
			"services", summary.Services,
			"capabilities_created", summary.CapabilitiesCreated,
		)
	}
	return store, nil
}

// Dependencies wires the request assignment ports to the selected driver.
// Publisher and Metrics are left for the caller.
func (s *Store) Dependencies(cfg config.Config, logger *slog.Logger) requestassignment.Dependencies {
	deps := requestassignment.Dependencies{
		SelectionPolicy: services.UniformRandomPolicy{},
		EventTopic:      cfg.EventTopic,
		OutboxBatchSize: cfg.OutboxBatchSize,
		Logger:          logger,
	}
	switch {
	case s.Memory != nil:
		deps.Requests = s.Memory
		deps.Providers = s.Memory
		deps.Services = s.Memory
		deps.Capabilities = s.Memory
		deps.ClaimStore = s.Memory
		deps.Outbox = s.Memory
		deps.Clock = s.Memory
		deps.IDGenerator = s.Memory
	case s.SQLite != nil:
		deps.Requests = s.SQLite
		deps.Providers = s.SQLite
		deps.Services = s.SQLite
		deps.Capabilities = s.SQLite
		deps.ClaimStore = s.SQLite
		deps.Outbox = s.SQLite
		deps.Clock = system.Clock{}
		deps.IDGenerator = system.UUIDGenerator{}
	case s.Postgres != nil:
		deps.Requests = s.Postgres
		deps.Providers = s.Postgres
		deps.Services = s.Postgres
		deps.Capabilities = s.Postgres
		deps.ClaimStore = s.Postgres
		deps.Outbox = s.Postgres
		deps.Clock = system.Clock{}
		deps.IDGenerator = system.UUIDGenerator{}
		if cfg.ClaimPrimitiveEnabled {
			deps.ClaimPrimitive = s.Postgres
		}
	}
	return deps
}

func (s *Store) SeedTarget() seed.Target {
	switch {
	case s.Memory != nil:
		return s.Memory
	case s.SQLite != nil:
		return s.SQLite
	default:
		return s.Postgres
	}
}

// Migrate re-applies the schema. Both SQL schemas are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	switch {
	case s.Postgres != nil:
		return s.Postgres.Migrate(ctx)
	case s.SQLite != nil:
		return s.SQLite.Migrate(ctx)
	default:
		return errors.New("memory store has no schema")
	}
}

func (s *Store) Close() error {
	var errs []error
	if s.SQLite != nil {
		errs = append(errs, s.SQLite.Close())
	}
	if s.pg != nil {
		errs = append(errs, s.pg.Close())
	}
	return errors.Join(errs...)
}

func loadSeed(path string) (*seed.File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	file, err := seed.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load seed %s: %w", path, err)
	}
	return &file, nil
}
