package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/empire-bidder/internal/api"
	"github.com/rickgao/empire-bidder/internal/auction"
	"github.com/rickgao/empire-bidder/internal/auth"
	"github.com/rickgao/empire-bidder/internal/bidding"
	"github.com/rickgao/empire-bidder/internal/config"
	"github.com/rickgao/empire-bidder/internal/connection"
	"github.com/rickgao/empire-bidder/internal/database"
	"github.com/rickgao/empire-bidder/internal/dispatch"
	"github.com/rickgao/empire-bidder/internal/filter"
	"github.com/rickgao/empire-bidder/internal/logging"
	"github.com/rickgao/empire-bidder/internal/poller"
	"github.com/rickgao/empire-bidder/internal/pricing"
	"github.com/rickgao/empire-bidder/internal/router"
	"github.com/rickgao/empire-bidder/internal/supervisor"
	"github.com/rickgao/empire-bidder/internal/version"
	"github.com/rickgao/empire-bidder/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/bidder.local.yaml", "path to config file")
	flag.Parse()

	// Bootstrap logger until the configured one is available
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = logging.New(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting bidder",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
		"api_url", cfg.API.RestURL,
		"ws_url", cfg.API.WSURL,
	)

	creds, err := auth.LoadCredentials(cfg.API.APIKey, cfg.API.APIKeyFile)
	if err != nil {
		logger.Error("failed to load credentials", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database only when pricing or audit needs it
	var pools *database.Pools
	if cfg.UsesPostgres() {
		logger.Info("connecting to database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
		pools, err = database.NewPools(ctx, cfg.Database, cfg.Audit.Enabled)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pools.Close()
		logger.Info("database connected")
	}

	pgPool := pools.PostgresPool()
	oracle, err := pricing.New(cfg.Pricing, pgPool, logger)
	if err != nil {
		logger.Error("failed to create price oracle", "error", err)
		os.Exit(1)
	}
	if c, ok := oracle.(io.Closer); ok {
		defer c.Close()
	}
	logger.Info("price oracle ready", "source", cfg.Pricing.Source)

	apiClient := api.NewClient(
		cfg.API.RestURL,
		creds,
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, time.Second),
	)

	// Bid audit writer
	var auditWriter *writer.AuditWriter
	bidOpts := []bidding.Option{bidding.WithLogger(logger)}
	if cfg.Audit.Enabled {
		auditWriter = writer.NewAuditWriter(writer.WriterConfig{
			BatchSize:     cfg.Audit.BatchSize,
			FlushInterval: cfg.Audit.FlushInterval,
		}, pgPool, logger)
		if err := auditWriter.Start(ctx); err != nil {
			logger.Error("failed to start audit writer", "error", err)
			os.Exit(1)
		}
		bidOpts = append(bidOpts, bidding.WithRecorder(auditWriter))
	}

	store := auction.NewStore()
	session := dispatch.NewSession()
	controller := bidding.NewController(apiClient, cfg.Bidding, bidOpts...)
	filters := filter.NewManager(cfg.Filters, logger)

	// Connection Manager
	connCfg := connection.DefaultManagerConfig()
	connCfg.WSURL = cfg.API.WSURL
	if cfg.API.WSPath != "" {
		connCfg.WSPath = cfg.API.WSPath
	}
	connCfg.PingTimeout = cfg.Connection.PingTimeout
	connCfg.WriteTimeout = cfg.Connection.WriteTimeout
	connCfg.BufferSize = cfg.Connection.BufferSize
	connMgr := connection.NewManager(connCfg, logger)
	if err := connMgr.Start(ctx); err != nil {
		logger.Error("failed to start connection manager", "error", err)
		os.Exit(1)
	}

	// Message Router
	msgRouter := router.NewRouter(router.RouterConfig{QueueSize: cfg.Dispatch.QueueSize}, connMgr.Messages(), logger)
	if err := msgRouter.Start(ctx); err != nil {
		logger.Error("failed to start message router", "error", err)
		os.Exit(1)
	}

	sup := supervisor.New(cfg.Reconnect, supervisor.Deps{
		Conn:     connMgr,
		Users:    apiClient,
		Auctions: apiClient,
		Store:    store,
		Session:  session,
	}, logger)

	// Event Dispatcher
	dispatcher := dispatch.New(cfg.Dispatch, dispatch.Deps{
		Queue:      msgRouter.Queue(),
		Oracle:     oracle,
		Bids:       controller,
		Store:      store,
		Auctions:   apiClient,
		Users:      apiClient,
		Filters:    filters,
		Emitter:    connMgr,
		Session:    session,
		Supervisor: sup,
	}, logger)
	if err := dispatcher.Start(ctx); err != nil {
		logger.Error("failed to start event dispatcher", "error", err)
		os.Exit(1)
	}

	// Auction reconciler
	reconciler := poller.New(poller.Config{Interval: cfg.Poller.Interval}, apiClient, store, logger)
	if err := reconciler.Start(ctx); err != nil {
		logger.Error("failed to start auction reconciler", "error", err)
		os.Exit(1)
	}

	// Health server
	healthServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(healthDeps{
			db:         pools,
			store:      store,
			conn:       connMgr,
			dispatcher: dispatcher,
			supervisor: sup,
		}),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// Startup and reconnects from here on
	if err := sup.Start(ctx); err != nil {
		logger.Error("failed to start supervisor", "error", err)
		os.Exit(1)
	}

	logger.Info("bidder running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	exitCode := 0
	select {
	case <-ctx.Done():
	case <-sup.Done():
		if err := sup.Err(); err != nil {
			logger.Error("supervisor gave up", "error", err)
			exitCode = 1
		}
		cancel()
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sup.Stop(shutdownCtx)
	reconciler.Stop(shutdownCtx)
	connMgr.Stop(shutdownCtx)
	msgRouter.Stop(shutdownCtx)
	dispatcher.Stop(shutdownCtx)
	if auditWriter != nil {
		auditWriter.Stop(shutdownCtx)
		logger.Info("audit writer stats", "stats", auditWriter.Stats())
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("bidder stopped",
		"dispatch", dispatcher.Stats(),
		"supervisor", sup.Stats(),
	)

	if exitCode != 0 {
		pools.Close()
		os.Exit(exitCode)
	}
}
