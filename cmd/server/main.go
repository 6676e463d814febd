// BoardPulse - Project Analytics and Sprint Lifecycle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/boardpulse

// Package main is the entry point for the BoardPulse server.
//
// BoardPulse tracks sprint lifecycles and project activity analytics for an
// issue tracker. It automates sprint start and completion on schedule,
// computes dashboard snapshots from the append-only activity log, and caches
// permission lookups so authorization checks stay off the role service's hot
// path.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 with env vars (ROLE_SERVICE_URL, SERVER_PORT,
//     NATS_ENABLED, ...) layered over a config file and defaults
//  2. Database: DuckDB holding sprints, sprint membership, the activity log,
//     and dashboard snapshots
//  3. Permission cache: BadgerDB-backed cache-aside reader in front of the
//     role service
//  4. Sprint manager: lifecycle transitions with issue-service notification
//  5. Analytics engine: dashboard snapshot computation and metric trends
//  6. NATS (optional): JetStream-backed activity event pipeline, with an
//     embedded server for single-binary deployments
//  7. Supervisor tree: scheduler, messaging, and HTTP layers under suture
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority
// wins): environment variables (ROLE_SERVICE_*, ISSUE_SERVICE_*, PERMCACHE_*,
// SCHEDULER_*, DATABASE_*, SERVER_*, NATS_*, API_*, LOGGING_*), config.yaml,
// defaults.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: the HTTP
// server drains connections, the scheduler finishes its current sweep, and
// NATS components flush before the process exits.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/boardpulse/internal/analytics"
	"github.com/tomtom215/boardpulse/internal/api"
	"github.com/tomtom215/boardpulse/internal/authz"
	"github.com/tomtom215/boardpulse/internal/config"
	"github.com/tomtom215/boardpulse/internal/database"
	"github.com/tomtom215/boardpulse/internal/eventprocessor"
	"github.com/tomtom215/boardpulse/internal/logging"
	"github.com/tomtom215/boardpulse/internal/sprints"
	"github.com/tomtom215/boardpulse/internal/supervisor"
	"github.com/tomtom215/boardpulse/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("role_service", cfg.RoleService.URL).
		Str("issue_service", cfg.IssueService.URL).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Bool("scheduler_enabled", cfg.Scheduler.Enabled).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	permStore, err := authz.NewStore(&cfg.PermCache)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open permission cache")
	}
	defer func() {
		if err := permStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing permission cache")
		}
	}()

	roleClient := authz.NewRoleServiceClient(&cfg.RoleService)
	permReader := authz.NewReader(permStore, roleClient)

	issueClient := sprints.NewIssueServiceClient(&cfg.IssueService)
	sprintManager := sprints.NewManager(db, issueClient, permReader)

	engine := analytics.New(db, db, permReader, cfg.API.TrendCacheTTL)
	defer engine.Close()

	// Context driving the whole supervisor tree.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sutureslog wants an slog.Logger; bridge it to zerolog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if cfg.Scheduler.Enabled {
		scheduler := sprints.NewScheduler(sprintManager, nil, cfg.Scheduler.Interval)
		tree.AddJobService(services.NewSchedulerService(scheduler))
		logging.Info().Dur("interval", cfg.Scheduler.Interval).Msg("Sprint expiration scheduler added")
	}

	// publisher stays nil unless NATS is enabled; the activity endpoint then
	// writes to the log synchronously.
	var publisher api.EventPublisher
	if cfg.NATS.Enabled {
		pub, cleanup, err := initEventPipeline(ctx, cfg, db, tree)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize event pipeline")
		}
		defer cleanup()
		publisher = pub
	}

	handler := api.NewHandler(cfg, sprintManager, engine, db, publisher, db)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain the error channel until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// initEventPipeline wires the optional NATS-backed activity event path: an
// embedded server when configured, stream provisioning, the publisher used
// by the HTTP layer, and the consumer that lands events in the activity log.
// The returned cleanup closes everything the supervisor does not own.
func initEventPipeline(ctx context.Context, cfg *config.Config, db *database.DB, tree *supervisor.SupervisorTree) (*eventprocessor.Publisher, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.NATS.EmbeddedServer {
		embedded, err := eventprocessor.NewEmbeddedServer(&cfg.NATS)
		if err != nil {
			return nil, cleanup, err
		}
		// Point every client at the in-process server.
		cfg.NATS.URL = embedded.ClientURL()
		tree.AddMessagingService(services.NewNATSServerService(embedded))
		logging.Info().Str("url", cfg.NATS.URL).Msg("Embedded NATS server started")
	}

	nc, err := natsgo.Connect(cfg.NATS.URL,
		natsgo.MaxReconnects(cfg.NATS.MaxReconnects),
		natsgo.ReconnectWait(cfg.NATS.ReconnectWait))
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, cleanup, err
	}

	initializer, err := eventprocessor.NewStreamInitializer(js, &cfg.NATS)
	if err != nil {
		return nil, cleanup, err
	}
	if _, err := initializer.EnsureStream(ctx); err != nil {
		return nil, cleanup, err
	}

	publisher, err := eventprocessor.NewPublisher(&cfg.NATS, nil)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event publisher")
		}
	})

	consumer, err := eventprocessor.NewConsumer(&cfg.NATS, db, nil)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, func() {
		if err := consumer.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event consumer")
		}
	})
	tree.AddMessagingService(services.NewConsumerService(consumer))

	logging.Info().
		Str("stream", cfg.NATS.StreamName).
		Str("topic", cfg.NATS.Topic).
		Msg("Activity event pipeline initialized")

	return publisher, cleanup, nil
}
