package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/t77yq/vigencias-bridge/internal/bridge"
	"github.com/t77yq/vigencias-bridge/internal/scheduler"
)

// Settings is the infrastructure configuration of the service
type Settings struct {
	App       AppSettings       `mapstructure:"app"`
	Log       LogSettings       `mapstructure:"log"`
	Bridge    bridge.Config     `mapstructure:"bridge"`
	Scheduler SchedulerSettings `mapstructure:"scheduler"`
	History   HistorySettings   `mapstructure:"history"`
	NATS      NATSSettings      `mapstructure:"nats"`
}

// AppSettings locates the application data
type AppSettings struct {
	Name       string `mapstructure:"name"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// LogSettings configures the log sinks
type LogSettings struct {
	Dir    string        `mapstructure:"dir"`
	Level  string        `mapstructure:"level"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

// SchedulerSettings configures the trigger engine
type SchedulerSettings struct {
	Interval       time.Duration    `mapstructure:"interval"`
	RetryOnFailure bool             `mapstructure:"retry_on_failure"`
	Locale         scheduler.Locale `mapstructure:"locale"`
}

// HistorySettings configures the run history database
type HistorySettings struct {
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

// NATSSettings configures event publishing. An empty URL disables it.
type NATSSettings struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// DefaultDataDir returns the per-user application directory.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vigencias")
	}
	return ".vigencias"
}

// SetDefaults configures default values for all settings
func SetDefaults(v *viper.Viper) {
	b := bridge.DefaultConfig()

	v.SetDefault("app.name", "vigencias")
	v.SetDefault("app.data_dir", DefaultDataDir())
	v.SetDefault("app.config_file", "")

	v.SetDefault("log.dir", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_age", 30*24*time.Hour)

	v.SetDefault("bridge.interpreter", b.Interpreter)
	v.SetDefault("bridge.harness_args", b.HarnessArgs)
	v.SetDefault("bridge.resource_root", "")
	v.SetDefault("bridge.entry_script", b.EntryScript)
	v.SetDefault("bridge.timeout", b.Timeout)
	v.SetDefault("bridge.log_arg_limit", b.LogArgLimit)

	v.SetDefault("scheduler.interval", scheduler.DefaultInterval)
	v.SetDefault("scheduler.retry_on_failure", true)
	v.SetDefault("scheduler.locale", string(scheduler.LocaleES))

	v.SetDefault("history.path", "")
	v.SetDefault("history.retention", 720*time.Hour)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "vigencias")
}

// NewViper builds the settings viper instance. configFile, when set, replaces
// the search in ./config and $HOME/.vigencias.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("VIGENCIAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		return v
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".vigencias"))
	}
	return v
}

// LoadSettings reads settings from file and environment. A missing config
// file is not an error when no explicit path was given.
func LoadSettings(configFile string) (*Settings, error) {
	v := NewViper(configFile)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return LoadSettingsWithViper(v)
}

// LoadSettingsWithViper decodes settings from a prepared viper instance
func LoadSettingsWithViper(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	s.applyDerived()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// applyDerived fills paths that default to locations under the data dir.
func (s *Settings) applyDerived() {
	if s.App.ConfigFile == "" {
		s.App.ConfigFile = filepath.Join(s.App.DataDir, ConfigFileName)
	}
	if s.Log.Dir == "" {
		s.Log.Dir = filepath.Join(s.App.DataDir, "logs")
	}
	if s.History.Path == "" {
		s.History.Path = filepath.Join(s.App.DataDir, "history.db")
	}
	if s.Bridge.ResourceRoot == "" {
		if exe, err := os.Executable(); err == nil {
			s.Bridge.ResourceRoot = filepath.Dir(exe)
		}
	}
}

// Validate checks the settings that have a closed set of values
func (s *Settings) Validate() error {
	if s.Scheduler.Interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, s.Scheduler.Interval)
	}
	switch s.Scheduler.Locale {
	case scheduler.LocaleES, scheduler.LocaleEN:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLocale, s.Scheduler.Locale)
	}
	return nil
}
