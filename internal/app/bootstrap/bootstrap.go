package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	entitlementservice "gatehouse/contexts/access-control/entitlement-service"
	postgresadapter "gatehouse/contexts/access-control/entitlement-service/adapters/postgres"
	"gatehouse/contexts/access-control/entitlement-service/application/commands"
	workerapp "gatehouse/contexts/access-control/entitlement-service/application/workers"
	"gatehouse/internal/platform/config"
	"gatehouse/internal/platform/db"
	"gatehouse/internal/platform/httpserver"
	"gatehouse/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	outboxRelay   workerapp.OutboxRelay
	projector     workerapp.SnapshotProjector
	sweeper       workerapp.ExpirySweeper
	pollInterval  time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	module := entitlementservice.NewModule(entitlementservice.Dependencies{
		Identity:       postgresadapter.NewIdentityRepository(pg.DB),
		Primary:        postgresadapter.NewPrimaryWriter(pg.DB),
		Fallback:       postgresadapter.NewFallbackWriter(pg.DB),
		Repository:     repo,
		Snapshots:      repo,
		Idempotency:    repo,
		Clock:          postgresadapter.SystemClock{},
		IDGenerator:    postgresadapter.UUIDGenerator{},
		IdempotencyTTL: cfg.IdempotencyTTL,
		Logger:         logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(nil, logger)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    repo,
			Publisher: kafka,
			Clock:     postgresadapter.SystemClock{},
			Topic:     workerapp.EntitlementChangedTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		projector: workerapp.SnapshotProjector{
			Subscriber: kafka,
			Snapshots:  repo,
			Dedup:      repo,
			Clock:      postgresadapter.SystemClock{},
			DedupTTL:   cfg.EventDedupTTL,
			Logger:     logger,
		},
		sweeper: workerapp.ExpirySweeper{
			Expire: commands.ExpireStaleGrantsUseCase{
				Repository: repo,
				Clock:      postgresadapter.SystemClock{},
				Logger:     logger,
			},
			Logger: logger,
		},
		pollInterval:  cfg.OutboxPollInterval,
		sweepInterval: cfg.SweepInterval,
		logger:        logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.projector.Start(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
		"sweep_interval", w.sweepInterval.String(),
	)

	lastSweep := time.Now().Add(-w.sweepInterval)
	for {
		if time.Since(lastSweep) >= w.sweepInterval {
			if err := w.sweeper.RunOnce(ctx); err != nil {
				return err
			}
			lastSweep = time.Now()
		}
		if err := w.outboxRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
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
