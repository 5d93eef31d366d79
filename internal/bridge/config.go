package bridge

import (
	"path/filepath"
	"time"
)

const (
	// DefaultTimeout bounds a single invocation.
	DefaultTimeout = 600 * time.Second

	// DefaultLogArgLimit is how many argv tokens reach the logs.
	DefaultLogArgLimit = 6

	excerptLimit = 500
	waitDelay    = 5 * time.Second
)

// Config describes how the external entry point is launched.
type Config struct {
	Interpreter  string        `mapstructure:"interpreter"`
	HarnessArgs  []string      `mapstructure:"harness_args"`
	ResourceRoot string        `mapstructure:"resource_root"`
	EntryScript  string        `mapstructure:"entry_script"`
	Timeout      time.Duration `mapstructure:"timeout"`
	LogArgLimit  int           `mapstructure:"log_arg_limit"`
}

// DefaultConfig returns the PowerShell harness used in production.
func DefaultConfig() Config {
	return Config{
		Interpreter: "powershell.exe",
		HarnessArgs: []string{
			"-ExecutionPolicy", "Bypass",
			"-NoProfile",
			"-WindowStyle", "Hidden",
			"-File",
		},
		EntryScript: filepath.Join("powershell-bridge", "VigenciasProcessor.ps1"),
		Timeout:     DefaultTimeout,
		LogArgLimit: DefaultLogArgLimit,
	}
}

// PathResolver maps a resource-relative path to a location on disk.
type PathResolver interface {
	Resolve(rel string) string
}

// RootResolver resolves paths against a fixed resource root.
type RootResolver string

// Resolve implements PathResolver
func (r RootResolver) Resolve(rel string) string {
	if filepath.IsAbs(rel) || r == "" {
		return rel
	}
	return filepath.Join(string(r), rel)
}
