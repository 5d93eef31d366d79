package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

// ConfigFileName is the name of the persisted job configuration
const ConfigFileName = "vigencias-config.json"

// SetJobDefaults seeds v with the job configuration used when no file exists
// or a key is missing from it.
func SetJobDefaults(v *viper.Viper) {
	v.SetDefault("database.firebird.host", "localhost")
	v.SetDefault("database.firebird.database", `C:\SAE\SAE90EMPRE01.FDB`)
	v.SetDefault("database.firebird.user", "SYSDBA")
	v.SetDefault("database.firebird.password", "masterkey")
	v.SetDefault("database.firebird.port", "3050")

	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.database", "vigencias_db")
	v.SetDefault("database.mysql.user", "root")
	v.SetDefault("database.mysql.password", "")

	v.SetDefault("paths.sourceDbPath", `Z:\SAE\SAE90EMPRE01.FDB`)
	v.SetDefault("paths.localDbPath", `C:\SAE\SAE90EMPRE01.FDB`)
	v.SetDefault("paths.outputPath", `C:\Vigencias\`)

	v.SetDefault("process.diasFacturas", 5)
	v.SetDefault("process.vigenciaDia", 9)
	v.SetDefault("process.vigenciaConvenio", 35)
	v.SetDefault("process.vigenciaCicloEscolar", 365)
	v.SetDefault("process.palabrasExcluidas", []string{
		"FONDO DE RESERVA", "FONDO", "INSCRIP", "INSCRIPCION", "ADELANTO",
		"TARJETA", "TARJE", "ACCESO", "TAG", "APP",
	})
	v.SetDefault("process.palabrasConvenio", []string{"CONVENIO"})
	v.SetDefault("process.palabrasCicloEscolar", []string{"CICLO ESCOLAR"})

	v.SetDefault("process.scheduledExecution.enabled", false)
	v.SetDefault("process.scheduledExecution.times", []string{"09:00"})
	v.SetDefault("process.scheduledExecution.days", []string{"monday", "tuesday", "wednesday", "thursday", "friday"})
}

// ValidateSchedule rejects malformed times and unknown weekday names.
func ValidateSchedule(cfg model.ScheduleConfig) error {
	for _, t := range cfg.Times {
		if _, _, ok := model.ParseClock(t); !ok {
			return fmt.Errorf("%w: %q", ErrInvalidTime, t)
		}
	}
	for _, d := range cfg.Days {
		known := false
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			if model.WeekdayName(wd) == d {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: %q", ErrInvalidDay, d)
		}
	}
	return nil
}

// Store loads and persists the job configuration document.
type Store struct {
	logger *zap.Logger
	path   string
	v      *viper.Viper
	now    func() time.Time

	mu      sync.RWMutex
	current model.AppConfig
	written []byte
}

// NewStore loads the document at path, falling back to defaults for a
// missing file or missing keys.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	v := viper.New()
	SetJobDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")

	s := &Store{
		logger: logger.Named("config"),
		path:   path,
		v:      v,
		now:    time.Now,
	}
	cfg, err := s.read()
	if err != nil {
		return nil, err
	}
	s.current = cfg
	return s, nil
}

// Path returns the location of the document.
func (s *Store) Path() string {
	return s.path
}

// Current returns the last loaded or saved configuration.
func (s *Store) Current() model.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.current)
}

// Reload re-reads the document from disk.
func (s *Store) Reload() (model.AppConfig, error) {
	cfg, err := s.read()
	if err != nil {
		return model.AppConfig{}, err
	}
	s.mu.Lock()
	cfg.Process.ScheduledExecution.LastExecution = latest(
		cfg.Process.ScheduledExecution.LastExecution,
		s.current.Process.ScheduledExecution.LastExecution)
	s.current = cfg
	s.mu.Unlock()
	return clone(cfg), nil
}

// Save validates cfg, stamps lastUpdated and writes it as indented JSON. A
// lastExecution older than the stored one is never written.
func (s *Store) Save(cfg model.AppConfig) error {
	if err := ValidateSchedule(cfg.Process.ScheduledExecution); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg = clone(cfg)
	cfg.Process.ScheduledExecution.LastExecution = latest(
		cfg.Process.ScheduledExecution.LastExecution,
		s.current.Process.ScheduledExecution.LastExecution)
	return s.saveLocked(cfg)
}

// RecordExecution stores at as the last successful scheduled run. It reports
// false, without writing, when at is before the stored value.
func (s *Store) RecordExecution(at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := s.current.Process.ScheduledExecution.LastExecution
	if last != nil && at.Before(*last) {
		s.logger.Warn("Ignoring older execution time",
			zap.Time("at", at),
			zap.Time("last_execution", *last))
		return false, nil
	}

	cfg := clone(s.current)
	cfg.Process.ScheduledExecution.LastExecution = &at
	if err := s.saveLocked(cfg); err != nil {
		return false, err
	}
	return true, nil
}

// Watch calls fn with the reloaded configuration whenever the file is
// changed by another writer. The file is created from the current
// configuration when missing.
func (s *Store) Watch(fn func(model.AppConfig)) error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := s.Save(s.Current()); err != nil {
			return err
		}
	}

	s.v.OnConfigChange(func(e fsnotify.Event) {
		data, err := os.ReadFile(s.path)
		if err != nil {
			s.logger.Error("Failed to read changed config", zap.String("file", e.Name), zap.Error(err))
			return
		}
		s.mu.RLock()
		own := bytes.Equal(data, s.written)
		s.mu.RUnlock()
		if own {
			return
		}

		cfg, err := s.Reload()
		if err != nil {
			s.logger.Error("Failed to reload config", zap.String("file", e.Name), zap.Error(err))
			return
		}
		s.logger.Info("Configuration reloaded", zap.String("file", e.Name))
		fn(cfg)
	})
	s.v.WatchConfig()
	return nil
}

func (s *Store) read() (model.AppConfig, error) {
	var cfg model.AppConfig

	if err := s.v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		s.logger.Info("Config file not found, using defaults", zap.String("file", s.path))
	}

	err := s.v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateSchedule(cfg.Process.ScheduledExecution); err != nil {
		s.logger.Warn("Schedule contains entries that never match", zap.Error(err))
	}
	return cfg, nil
}

func (s *Store) saveLocked(cfg model.AppConfig) error {
	cfg.LastUpdated = s.now()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}

	s.written = data
	s.current = cfg
	s.logger.Info("Configuration saved", zap.String("file", s.path))
	return nil
}

func latest(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil || !a.Before(*b):
		return a
	default:
		return b
	}
}

func clone(cfg model.AppConfig) model.AppConfig {
	out := cfg
	out.Process.PalabrasExcluidas = model.CopyStrings(cfg.Process.PalabrasExcluidas)
	out.Process.PalabrasConvenio = model.CopyStrings(cfg.Process.PalabrasConvenio)
	out.Process.PalabrasCicloEscolar = model.CopyStrings(cfg.Process.PalabrasCicloEscolar)
	out.Process.ScheduledExecution = cfg.Process.ScheduledExecution.Clone()
	return out
}
