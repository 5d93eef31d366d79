package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/t77yq/vigencias-bridge/internal/logging"
	"github.com/t77yq/vigencias-bridge/internal/model"
	"github.com/t77yq/vigencias-bridge/internal/scheduler"
)

const (
	monitorInterval     = 30 * time.Second
	maintenanceInterval = 24 * time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the trigger engine until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return serve(a)
	},
}

func serve(a *app) error {
	logger := a.logger
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := scheduler.NewTriggerEngine(logger,
		scheduler.WithInterval(a.settings.Scheduler.Interval),
		scheduler.WithRetryOnFailure(a.settings.Scheduler.RetryOnFailure),
		scheduler.OnFired(func(at time.Time) {
			if _, err := a.store.RecordExecution(at); err != nil {
				logger.Error("Failed to persist last execution", zap.Error(err))
			}
		}),
	)

	locale := a.settings.Scheduler.Locale
	if err := engine.Start(ctx, a.store.Current().Process.ScheduledExecution, a.executor.RunScheduledJob); err != nil {
		return err
	}
	logger.Info("Next execution", zap.String("at", engine.FormatNextExecution(locale)))

	err := a.store.Watch(func(cfg model.AppConfig) {
		if err := engine.Reconfigure(ctx, cfg.Process.ScheduledExecution); err != nil {
			logger.Error("Failed to reconfigure scheduler", zap.Error(err))
			return
		}
		logger.Info("Next execution", zap.String("at", engine.FormatNextExecution(locale)))
	})
	if err != nil {
		logger.Error("Config watch unavailable", zap.Error(err))
	}

	go a.tracker.Monitor(ctx, monitorInterval)
	go maintain(ctx, a)

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	// returns once a running job has recorded and published its outcome
	engine.Shutdown()
	a.tracker.Stop()

	logger.Info("Server shutting down gracefully")
	return nil
}

// maintain prunes run history and old log files once at start and then daily.
func maintain(ctx context.Context, a *app) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		cutoff := time.Now().Add(-a.settings.History.Retention)
		if _, err := a.executor.CleanupOldHistory(ctx, cutoff); err != nil {
			a.logger.Error("Failed to cleanup old run history", zap.Error(err))
		}
		if a.settings.Log.Dir != "" {
			removed, err := logging.Cleanup(a.settings.Log.Dir, a.settings.Log.MaxAge, time.Now())
			if err != nil {
				a.logger.Error("Failed to cleanup old log files", zap.Error(err))
			} else if removed > 0 {
				a.logger.Info("Removed old log files", zap.Int("count", removed))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
