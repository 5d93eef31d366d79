package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/vigencias-bridge/internal/bridge"
	"github.com/t77yq/vigencias-bridge/internal/model"
	"github.com/t77yq/vigencias-bridge/internal/storage"
)

// ConfigSource supplies the current job configuration
type ConfigSource interface {
	Current() model.AppConfig
}

// EventPublisher forwards log events and operation results to listeners
type EventPublisher interface {
	PublishEvent(ctx context.Context, event model.Event) error
	PublishResult(ctx context.Context, operation string, result *model.OperationResult) error
}

// Option configures an Executor
type Option func(*Executor)

// WithHistory records every invocation in history.
func WithHistory(history storage.RunHistory) Option {
	return func(e *Executor) { e.history = history }
}

// WithPublisher forwards events and results through p.
func WithPublisher(p EventPublisher) Option {
	return func(e *Executor) { e.publisher = p }
}

// Executor runs the catalogue of operations through the bridge and
// composes them into the scheduled job.
type Executor struct {
	logger    *zap.Logger
	invoker   bridge.Invoker
	source    ConfigSource
	history   storage.RunHistory
	publisher EventPublisher
}

// NewExecutor creates a new executor
func NewExecutor(invoker bridge.Invoker, source ConfigSource, logger *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger:  logger.Named("executor"),
		invoker: invoker,
		source:  source,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invoke runs one operation, recording it in history and publishing the
// outcome. Like the bridge, it never returns a nil result.
func (e *Executor) Invoke(ctx context.Context, trigger storage.Trigger, operation string, params model.Params) *model.OperationResult {
	startTime := time.Now()
	record := &storage.RunRecord{
		ID:        uuid.New().String(),
		Operation: operation,
		Trigger:   trigger,
		Status:    storage.RunStatusRunning,
		ParamKeys: params.Keys(),
		StartedAt: startTime,
	}

	if e.history != nil {
		if err := e.history.Store(ctx, record); err != nil {
			e.logger.Error("Failed to store run history",
				zap.String("run_id", record.ID),
				zap.Error(err))
		}
	}

	e.emit(ctx, model.EventLevelInfo, fmt.Sprintf("Executing %s", operation), map[string]interface{}{
		"run_id":  record.ID,
		"trigger": trigger,
	})

	result := e.invoker.Invoke(ctx, operation, params)
	endTime := time.Now()

	record.CompletedAt = &endTime
	record.Duration = endTime.Sub(startTime)
	if result.Success {
		record.Status = storage.RunStatusSucceeded
	} else {
		record.Status = storage.RunStatusFailed
		record.Error = result.Error
	}
	if data, err := json.Marshal(result); err == nil {
		record.Result = data
	}

	if e.history != nil {
		// Outcome is written even when the caller's context is done.
		if err := e.history.Update(context.WithoutCancel(ctx), record); err != nil {
			e.logger.Error("Failed to update run history",
				zap.String("run_id", record.ID),
				zap.Error(err))
		}
	}

	data := map[string]interface{}{
		"run_id":   record.ID,
		"trigger":  trigger,
		"duration": record.Duration.String(),
	}
	if result.Success {
		e.emit(ctx, model.EventLevelSuccess, fmt.Sprintf("%s completed", operation), data)
	} else {
		data["error"] = result.Error
		e.emit(ctx, model.EventLevelError, fmt.Sprintf("%s failed", operation), data)
	}

	if e.publisher != nil {
		if err := e.publisher.PublishResult(context.WithoutCancel(ctx), operation, result); err != nil {
			e.logger.Error("Failed to publish operation result",
				zap.String("operation", operation),
				zap.Error(err))
		}
	}

	return result
}

// CopyDatabase copies the source database file to destination.
func (e *Executor) CopyDatabase(ctx context.Context, source, destination string) *model.OperationResult {
	return e.Invoke(ctx, storage.TriggerManual, OpCopyDatabase, CopyDatabaseParams(source, destination))
}

// TestFirebirdConnection checks the source database connection.
func (e *Executor) TestFirebirdConnection(ctx context.Context, cfg model.FirebirdConfig) *model.OperationResult {
	return e.Invoke(ctx, storage.TriggerManual, OpTestFirebirdConnection, FirebirdTestParams(cfg))
}

// TestMySQLConnection checks the destination database connection.
func (e *Executor) TestMySQLConnection(ctx context.Context, cfg model.MySQLConfig) *model.OperationResult {
	return e.Invoke(ctx, storage.TriggerManual, OpTestMySQLConnection, MySQLTestParams(cfg))
}

// ProcessVigencias runs the validity computation with cfg.
func (e *Executor) ProcessVigencias(ctx context.Context, cfg model.AppConfig) *model.OperationResult {
	return e.Invoke(ctx, storage.TriggerManual, OpProcessVigencias, ProcessVigenciasParams(cfg))
}

// RunScheduledJob is the callback handed to the trigger engine.
func (e *Executor) RunScheduledJob(ctx context.Context) error {
	_, err := e.RunJob(ctx, storage.TriggerScheduled)
	return err
}

// RunJob copies the source database to the local path and then processes
// it. The returned error wraps ErrJobFailed when either step fails.
func (e *Executor) RunJob(ctx context.Context, trigger storage.Trigger) (*model.ProcessSummary, error) {
	cfg := e.source.Current()
	if cfg.Paths.SourceDBPath == "" || cfg.Paths.LocalDBPath == "" {
		err := fmt.Errorf("%w: %w: sourceDbPath and localDbPath are required", ErrJobFailed, ErrMissingPath)
		e.emit(ctx, model.EventLevelError, "Job not started", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	e.logger.Info("Starting job",
		zap.String("trigger", string(trigger)),
		zap.String("source", cfg.Paths.SourceDBPath),
		zap.String("destination", cfg.Paths.LocalDBPath))

	copied := e.Invoke(ctx, trigger, OpCopyDatabase, CopyDatabaseParams(cfg.Paths.SourceDBPath, cfg.Paths.LocalDBPath))
	if err := copied.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrJobFailed, OpCopyDatabase, err)
	}

	processed := e.Invoke(ctx, trigger, OpProcessVigencias, ProcessVigenciasParams(cfg))
	if err := processed.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrJobFailed, OpProcessVigencias, err)
	}

	summary := &model.ProcessSummary{Success: true}
	if processed.Data != nil {
		if err := processed.Decode(summary); err != nil {
			e.logger.Warn("Unexpected process summary", zap.Error(err))
		}
	}

	e.logger.Info("Job completed",
		zap.String("trigger", string(trigger)),
		zap.Int("facturas_processed", summary.FacturasProcessed),
		zap.Int("vigencias_updated", summary.VigenciasUpdated),
		zap.Int("registros_generados", summary.RegistrosGenerados),
		zap.Strings("archivos_generados", summary.ArchivosGenerados),
		zap.Int("errors", len(summary.Errors)))
	return summary, nil
}

// History returns the most recent runs.
func (e *Executor) History(ctx context.Context, filter storage.RunFilter, limit int) ([]*storage.RunRecord, error) {
	if e.history == nil {
		return nil, nil
	}
	return e.history.List(ctx, filter, 0, limit)
}

// CleanupOldHistory deletes run records started before the given time
func (e *Executor) CleanupOldHistory(ctx context.Context, before time.Time) (int64, error) {
	if e.history == nil {
		return 0, nil
	}
	return e.history.DeleteBefore(ctx, before)
}

// emit logs an event at its level and forwards it to the publisher.
func (e *Executor) emit(ctx context.Context, level model.EventLevel, msg string, data map[string]interface{}) {
	fields := make([]zap.Field, 0, len(data)+1)
	for k, v := range data {
		fields = append(fields, zap.Any(k, v))
	}
	switch level {
	case model.EventLevelSuccess:
		e.logger.Info(msg, append(fields, zap.String("status", "success"))...)
	case model.EventLevelError:
		e.logger.Error(msg, fields...)
	case model.EventLevelCritical:
		e.logger.Error(msg, append(fields, zap.Bool("critical", true))...)
	default:
		e.logger.Info(msg, fields...)
	}

	if e.publisher == nil {
		return
	}
	event := model.Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Data:      data,
	}
	if err := e.publisher.PublishEvent(context.WithoutCancel(ctx), event); err != nil {
		e.logger.Error("Failed to publish event", zap.Error(err))
	}
}
