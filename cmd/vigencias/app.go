package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/t77yq/vigencias-bridge/internal/bridge"
	"github.com/t77yq/vigencias-bridge/internal/config"
	"github.com/t77yq/vigencias-bridge/internal/executor"
	"github.com/t77yq/vigencias-bridge/internal/logging"
	"github.com/t77yq/vigencias-bridge/internal/notify"
	"github.com/t77yq/vigencias-bridge/internal/storage"
)

// app holds the components shared by every command
type app struct {
	settings  *config.Settings
	logger    *zap.Logger
	logFile   *logging.DailyFile
	store     *config.Store
	history   *storage.SQLiteRunHistory
	publisher *notify.Publisher
	tracker   *executor.ProcessTracker
	bridge    *bridge.Bridge
	executor  *executor.Executor
}

func newApp() (*app, error) {
	settings, err := config.LoadSettings(settingsFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		settings.Log.Level = logLevel
	}

	logger, logFile, err := logging.New(logging.Config{
		Dir:     settings.Log.Dir,
		Level:   settings.Log.Level,
		Console: true,
		MaxAge:  settings.Log.MaxAge,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{settings: settings, logger: logger, logFile: logFile}

	a.store, err = config.NewStore(settings.App.ConfigFile, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.history, err = storage.NewSQLiteRunHistory(logger, settings.History.Path)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create run history storage: %w", err)
	}

	a.publisher, err = notify.Connect(settings.NATS.URL, settings.NATS.SubjectPrefix, logger)
	if err != nil {
		// Events are optional; the job still runs without listeners.
		logger.Error("Event publishing unavailable", zap.Error(err))
	}

	a.tracker = executor.NewProcessTracker(logger)
	a.bridge = bridge.New(settings.Bridge, logger, bridge.WithObserver(a.tracker))
	a.executor = executor.NewExecutor(a.bridge, a.store, logger,
		executor.WithHistory(a.history),
		executor.WithPublisher(a.publisher),
	)

	logger.Debug("Application initialised",
		zap.String("config_file", settings.App.ConfigFile),
		zap.String("history", settings.History.Path),
		zap.String("entry", a.bridge.EntryPath()))
	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		a.publisher.Close()
	}
	if a.history != nil {
		a.history.Close()
	}
	a.logger.Sync()
	if a.logFile != nil {
		a.logFile.Close()
	}
}
