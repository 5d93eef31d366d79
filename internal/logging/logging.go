package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	filePrefix = "vigencias-"
	fileSuffix = ".log"
	dateLayout = "2006-01-02"
)

// Config defines the log sinks
type Config struct {
	Dir     string        // Directory of the daily files, empty disables file logging
	Level   string        // Minimum level, "info" when empty
	Console bool          // Also write a development console log to stderr
	MaxAge  time.Duration // Age after which daily files are removed by Cleanup
}

// New builds a logger writing JSON to the daily file and, optionally,
// console output to stderr. The returned DailyFile is nil when Dir is empty.
func New(cfg Config) (*zap.Logger, *DailyFile, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var cores []zapcore.Core
	if cfg.Console {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	var daily *DailyFile
	if cfg.Dir != "" {
		var err error
		daily, err = NewDailyFile(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			daily,
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop(), nil, nil
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), daily, nil
}

// FileName returns the daily log file name for t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(dateLayout) + fileSuffix
}

// DailyFile is a zapcore.WriteSyncer that appends to one file per local
// calendar day.
type DailyFile struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	file *os.File
	date string
}

// NewDailyFile creates the directory and opens today's file lazily.
func NewDailyFile(dir string) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &DailyFile{dir: dir, now: time.Now}, nil
}

// Write implements io.Writer
func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.rotate(); err != nil {
		return 0, err
	}
	return d.file.Write(p)
}

// Sync implements zapcore.WriteSyncer
func (d *DailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

// Close closes the current file
func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	d.date = ""
	return err
}

// Path returns the file written for the current local date.
func (d *DailyFile) Path() string {
	return filepath.Join(d.dir, FileName(d.now()))
}

// rotate opens a new file when the local date has changed.
func (d *DailyFile) rotate() error {
	now := d.now()
	date := now.Format(dateLayout)
	if d.file != nil && d.date == date {
		return nil
	}

	file, err := os.OpenFile(filepath.Join(d.dir, FileName(now)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if d.file != nil {
		d.file.Close()
	}
	d.file = file
	d.date = date
	return nil
}

// Cleanup removes daily files in dir whose date is more than maxAge before
// now. Files not following the daily naming are left alone.
func Cleanup(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		date, err := time.ParseInLocation(dateLayout,
			strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix), now.Location())
		if err != nil {
			continue
		}
		if now.Sub(date) <= maxAge {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("failed to remove old log file: %w", err)
		}
		removed++
	}
	return removed, nil
}
