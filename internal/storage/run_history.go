package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// RunStatus is the lifecycle state of a recorded invocation
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Trigger names what started a run
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// RunRecord is one bridge invocation
type RunRecord struct {
	ID          string          `json:"id"`
	Operation   string          `json:"operation"`
	Trigger     Trigger         `json:"trigger"`
	Status      RunStatus       `json:"status"`
	ParamKeys   []string        `json:"param_keys,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Duration    time.Duration   `json:"duration,omitempty"`
}

// RunFilter narrows List and Count. Empty fields match everything.
type RunFilter struct {
	Operation string
	Trigger   Trigger
	Status    RunStatus
}

// RunHistory defines the interface for run history storage
type RunHistory interface {
	// Store inserts a new run record
	Store(ctx context.Context, record *RunRecord) error

	// Update writes the outcome of an existing record
	Update(ctx context.Context, record *RunRecord) error

	// Get retrieves a record by ID, nil if absent
	Get(ctx context.Context, id string) (*RunRecord, error)

	// List retrieves records, newest first
	List(ctx context.Context, filter RunFilter, offset, limit int) ([]*RunRecord, error)

	// Count returns the number of records matching filter
	Count(ctx context.Context, filter RunFilter) (int, error)

	// DeleteBefore deletes records started before the given time
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteRunHistory implements RunHistory using SQLite
type SQLiteRunHistory struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteRunHistory opens (or creates) the history database at dbPath
func NewSQLiteRunHistory(logger *zap.Logger, dbPath string) (*SQLiteRunHistory, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &SQLiteRunHistory{
		logger: logger.Named("history"),
		db:     db,
	}

	if err := storage.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// initialize creates the necessary tables if they don't exist
func (s *SQLiteRunHistory) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_history (
			id TEXT PRIMARY KEY,
			operation TEXT NOT NULL,
			trigger TEXT NOT NULL,
			status TEXT NOT NULL,
			param_keys TEXT,
			result TEXT,
			error TEXT,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			duration INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_run_history_operation ON run_history(operation);
		CREATE INDEX IF NOT EXISTS idx_run_history_status ON run_history(status);
		CREATE INDEX IF NOT EXISTS idx_run_history_started_at ON run_history(started_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// Store implements RunHistory.Store
func (s *SQLiteRunHistory) Store(ctx context.Context, record *RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_history (
			id, operation, trigger, status, param_keys, started_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Operation,
		record.Trigger,
		record.Status,
		strings.Join(record.ParamKeys, ","),
		record.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store run history: %w", err)
	}
	return nil
}

// Update implements RunHistory.Update
func (s *SQLiteRunHistory) Update(ctx context.Context, record *RunRecord) error {
	var completedAt sql.NullTime
	if record.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *record.CompletedAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE run_history SET
			status = ?,
			result = ?,
			error = ?,
			completed_at = ?,
			duration = ?
		WHERE id = ?`,
		record.Status,
		sql.NullString{String: string(record.Result), Valid: len(record.Result) > 0},
		sql.NullString{String: record.Error, Valid: record.Error != ""},
		completedAt,
		sql.NullInt64{Int64: int64(record.Duration), Valid: record.Duration != 0},
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run history: %w", err)
	}
	return nil
}

const selectColumns = `id, operation, trigger, status, param_keys, result, error, started_at, completed_at, duration`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*RunRecord, error) {
	record := &RunRecord{}
	var paramKeys, result, errorStr sql.NullString
	var completedAt sql.NullTime
	var durationNanos sql.NullInt64

	err := row.Scan(
		&record.ID,
		&record.Operation,
		&record.Trigger,
		&record.Status,
		&paramKeys,
		&result,
		&errorStr,
		&record.StartedAt,
		&completedAt,
		&durationNanos,
	)
	if err != nil {
		return nil, err
	}

	if paramKeys.Valid && paramKeys.String != "" {
		record.ParamKeys = strings.Split(paramKeys.String, ",")
	}
	if result.Valid && result.String != "" {
		record.Result = json.RawMessage(result.String)
	}
	if errorStr.Valid {
		record.Error = errorStr.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}
	if durationNanos.Valid {
		record.Duration = time.Duration(durationNanos.Int64)
	}
	return record, nil
}

// Get implements RunHistory.Get
func (s *SQLiteRunHistory) Get(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM run_history WHERE id = ?", id)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan run history: %w", err)
	}
	return record, nil
}

func (f RunFilter) where() (string, []interface{}) {
	var clauses []string
	var args []interface{}
	if f.Operation != "" {
		clauses = append(clauses, "operation = ?")
		args = append(args, f.Operation)
	}
	if f.Trigger != "" {
		clauses = append(clauses, "trigger = ?")
		args = append(args, f.Trigger)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List implements RunHistory.List
func (s *SQLiteRunHistory) List(ctx context.Context, filter RunFilter, offset, limit int) ([]*RunRecord, error) {
	where, args := filter.where()
	query := "SELECT " + selectColumns + " FROM run_history" + where + " ORDER BY started_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list run history: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run history: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return records, nil
}

// Count implements RunHistory.Count
func (s *SQLiteRunHistory) Count(ctx context.Context, filter RunFilter) (int, error) {
	where, args := filter.where()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM run_history"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count run history: %w", err)
	}
	return count, nil
}

// DeleteBefore implements RunHistory.DeleteBefore
func (s *SQLiteRunHistory) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM run_history WHERE started_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete run history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	s.logger.Info("Deleted old run history records",
		zap.Time("before", before),
		zap.Int64("deleted", affected))

	return affected, nil
}

// Close closes the database connection
func (s *SQLiteRunHistory) Close() error {
	return s.db.Close()
}
