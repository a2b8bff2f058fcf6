package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	requestassignment "dispatch/contexts/field-operations/request-assignment"
	workerapp "dispatch/contexts/field-operations/request-assignment/application/workers"
	"dispatch/contexts/field-operations/request-assignment/ports"
	"dispatch/internal/platform/config"
	"dispatch/internal/platform/httpserver"
	"dispatch/internal/platform/messaging"
	"dispatch/internal/platform/metrics"

	contractsv1 "dispatch/contracts/gen/events/v1"

	"github.com/redis/go-redis/v9"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server       *httpserver.Server
	limiter      *httpserver.ClaimLimiter
	store        *Store
	embedded     *workerapp.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

type WorkerApp struct {
	store        *Store
	outboxRelay  workerapp.OutboxRelay
	publisher    ports.EventPublisher
	redis        *redis.Client
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	store, err := OpenStore(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	var recorder *metrics.Recorder
	deps := store.Dependencies(cfg, logger)
	if cfg.MetricsEnabled {
		recorder = metrics.NewRecorder("dispatch")
		deps.Metrics = recorder
	}

	// Without a shared database the API process relays its own outbox.
	var embedded *workerapp.OutboxRelay
	if store.Driver == config.StoreDriverMemory {
		deps.Publisher = messaging.NewBus(logger)
	}
	module := requestassignment.NewModule(deps)
	if deps.Publisher != nil {
		embedded = &module.OutboxRelay
	}

	limiter := httpserver.NewClaimLimiter(cfg.PullClaimRPS, cfg.PullClaimBurst)
	opts := []httpserver.Option{httpserver.WithClaimLimiter(limiter)}
	if recorder != nil {
		opts = append(opts, httpserver.WithMetricsHandler(recorder.Handler()))
	}

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort), opts...)
	return &APIApp{
		server:       server,
		limiter:      limiter,
		store:        store,
		embedded:     embedded,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.StoreDriver == config.StoreDriverMemory {
		return nil, errors.New("worker requires a persistent STORE_DRIVER (postgres or sqlite)")
	}

	store, err := OpenStore(context.Background(), cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &WorkerApp{
		store:        store,
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		app.publisher = messaging.NewRedisPublisher(app.redis, messaging.WithRedisLogger(logger))
	} else {
		bus := messaging.NewBus(logger)
		app.publisher = bus
	}

	deps := store.Dependencies(cfg, logger)
	deps.Publisher = app.publisher
	app.outboxRelay = requestassignment.NewModule(deps).OutboxRelay
	return app, nil
}

func (a *APIApp) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.limiter.StartJanitor(ctx)
	if a.embedded != nil {
		go runRelay(ctx, *a.embedded, a.pollInterval, a.logger)
	}

	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
			"store_driver", a.store.Driver,
			"embedded_relay", a.embedded != nil,
		)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()
		return a.server.Shutdown(shutdownCtx)
	}
}

func (a *APIApp) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if bus, ok := w.publisher.(*messaging.Bus); ok {
		if err := bus.Subscribe(ctx, w.outboxRelay.Topic, "dispatch-claimed-log", w.logClaimed); err != nil {
			return err
		}
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"store_driver", w.store.Driver,
		"poll_interval", w.pollInterval.String(),
	)
	return runRelay(ctx, w.outboxRelay, w.pollInterval, w.logger)
}

func (w *WorkerApp) logClaimed(_ context.Context, event contractsv1.Envelope) error {
	w.logger.Info("claimed event relayed",
		"event", "bootstrap_claimed_event_relayed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"event_id", event.EventID,
		"partition_key", event.PartitionKey,
	)
	return nil
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.redis != nil {
		errs = append(errs, w.redis.Close())
	}
	if w.store != nil {
		errs = append(errs, w.store.Close())
	}
	return errors.Join(errs...)
}

// runRelay drains the outbox every interval until ctx is done. Transient
// publish failures are logged and retried on the next tick.
func runRelay(ctx context.Context, relay workerapp.OutboxRelay, interval time.Duration, logger *slog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := relay.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("outbox relay pass failed",
				"event", "bootstrap_outbox_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
