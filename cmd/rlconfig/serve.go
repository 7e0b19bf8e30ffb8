package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/runelite/api.runelite.net/internal/auth"
	"github.com/runelite/api.runelite.net/internal/backup"
	"github.com/runelite/api.runelite.net/internal/config"
	"github.com/runelite/api.runelite.net/internal/events"
	"github.com/runelite/api.runelite.net/internal/server"
	"github.com/runelite/api.runelite.net/internal/settings"
	"github.com/runelite/api.runelite.net/internal/store"
	"github.com/runelite/api.runelite.net/internal/store/memory"
	"github.com/runelite/api.runelite.net/internal/store/mongo"
	"github.com/runelite/api.runelite.net/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the configuration HTTP server",
	GroupID:           "system",
	Args:              cobra.NoArgs,
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger := cfg.Logger()
		return serve(cfg, logger)
	},
}

// openStore connects to the backend selected by cfg.Store and
// establishes its indexes.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var st store.Store
	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st = pg
	case config.StoreMongo:
		m, err := mongo.New(ctx, cfg.DatabaseURL, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		st = m
	case config.StoreMemory:
		st = memory.New()
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
	if err := st.EnsureIndexes(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return st, nil
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("events disabled (RLCONFIG_NATS_URL not set)")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("events enabled", "nats_url", cfg.NATSURL)
	return pub, nil
}

func openSessions(cfg *config.Config, logger *slog.Logger) (*auth.SessionTable, error) {
	if cfg.SessionsFile == "" {
		logger.Warn("no sessions file configured (RLCONFIG_SESSIONS_FILE); every request will be rejected")
		return auth.NewSessionTable(), nil
	}
	sessions, err := auth.LoadSessions(cfg.SessionsFile)
	if err != nil {
		return nil, err
	}
	logger.Info("sessions loaded", "file", cfg.SessionsFile, "count", sessions.Len())
	return sessions, nil
}

// backupDestinations builds the configured destinations. A destination
// that fails to initialise is logged and skipped.
func backupDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []backup.Destination {
	var dests []backup.Destination
	if cfg.BackupS3Bucket != "" {
		d, err := backup.NewS3Destination(ctx, cfg.BackupS3Bucket, cfg.BackupS3Key, cfg.BackupS3Region, cfg.BackupS3Endpoint)
		if err != nil {
			logger.Error("failed to create S3 backup destination", "err", err)
		} else {
			dests = append(dests, d)
			logger.Info("backup destination enabled", "destination", d.Name())
		}
	}
	if cfg.BackupGitRepo != "" {
		d := backup.NewGitDestination(cfg.BackupGitRepo, cfg.BackupGitFile, cfg.BackupGitBranch)
		dests = append(dests, d)
		logger.Info("backup destination enabled", "destination", d.Name())
	}
	return dests
}

func serve(cfg *config.Config, logger *slog.Logger) error {
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := openStore(startCtx, cfg)
	if err != nil {
		return err
	}
	logger.Info("store ready", "store", cfg.Store)

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		st.Close()
		return err
	}

	sessions, err := openSessions(cfg, logger)
	if err != nil {
		publisher.Close()
		st.Close()
		return err
	}

	svc := settings.New(st, publisher, logger)
	srv := server.NewConfigServer(svc, sessions, logger, cfg.StoreTimeout)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.NewHTTPHandler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var scheduler *backup.Scheduler
	if cfg.BackupInterval > 0 {
		if dests := backupDestinations(startCtx, cfg, logger); len(dests) > 0 {
			scheduler = backup.NewScheduler(st, dests, cfg.BackupInterval, logger)
			scheduler.Start()
			logger.Info("backup scheduler started", "interval", cfg.BackupInterval)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case serveErr = <-errCh:
		logger.Error("HTTP server error", "err", serveErr)
	}

	if scheduler != nil {
		scheduler.Stop()
		logger.Info("backup scheduler stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "err", err)
	}
	logger.Info("HTTP server stopped")

	if err := publisher.Close(); err != nil {
		logger.Error("error closing publisher", "err", err)
	}
	if err := st.Close(); err != nil {
		logger.Error("error closing store", "err", err)
	}

	logger.Info("shutdown complete")
	return serveErr
}
