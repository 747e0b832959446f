package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blinovmaxim/TgBotStore/internal/app"
	"github.com/blinovmaxim/TgBotStore/internal/pidfile"
	"github.com/blinovmaxim/TgBotStore/internal/supervisor"
)

// newRunCmd creates the 'run' subcommand, which starts the full pipeline:
// feed poller, autoposter, reaper and the operational HTTP server.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Starts the catalog synchronization and publishing service",
		RunE:  runService,
	}
}

func runService(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	lock, err := pidfile.Acquire(cfg.Runtime.PIDFile)
	if err != nil {
		return fmt.Errorf("acquire pid lock: %w", err)
	}
	defer func() {
		if rerr := lock.Release(); rerr != nil {
			logger.Warn("release pid lock failed", zap.Error(rerr))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer func() {
		if cerr := container.Close(); cerr != nil {
			logger.Warn("close services failed", zap.Error(cerr))
		}
	}()

	// A usable local feed copy is required before any loop starts; without
	// one the catalog cannot load at all.
	if err := container.Fetcher().EnsureLocal(ctx); err != nil {
		return fmt.Errorf("obtain initial feed: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           container.Server().Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	sup := supervisor.New(10*time.Second, logger.Named("supervisor"))
	sup.Add("feed-poller", container.Fetcher().Run)
	sup.Add("autopost", container.Poster().Run)
	sup.Add("reaper", container.Reaper().Run)
	sup.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("service stopped")
	return nil
}
