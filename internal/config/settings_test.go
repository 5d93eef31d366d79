package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t77yq/vigencias-bridge/internal/scheduler"
)

func TestLoadSettings_Defaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("app:\n  data_dir: "+dir+"\n"), 0o644))

	s, err := LoadSettings(file)
	require.NoError(t, err)

	assert.Equal(t, "powershell.exe", s.Bridge.Interpreter)
	assert.Equal(t, []string{"-ExecutionPolicy", "Bypass", "-NoProfile", "-WindowStyle", "Hidden", "-File"}, s.Bridge.HarnessArgs)
	assert.Equal(t, 600*time.Second, s.Bridge.Timeout)
	assert.Equal(t, 6, s.Bridge.LogArgLimit)
	assert.Equal(t, time.Minute, s.Scheduler.Interval)
	assert.True(t, s.Scheduler.RetryOnFailure)
	assert.Equal(t, scheduler.LocaleES, s.Scheduler.Locale)
	assert.Equal(t, 720*time.Hour, s.History.Retention)

	assert.Equal(t, filepath.Join(dir, ConfigFileName), s.App.ConfigFile)
	assert.Equal(t, filepath.Join(dir, "logs"), s.Log.Dir)
	assert.Equal(t, filepath.Join(dir, "history.db"), s.History.Path)
	assert.Empty(t, s.NATS.URL)
	assert.Equal(t, "vigencias", s.NATS.SubjectPrefix)
}

func TestLoadSettings_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	yaml := `
bridge:
  interpreter: /bin/sh
  harness_args: []
  timeout: 30s
scheduler:
  interval: 10s
  retry_on_failure: false
  locale: en
`
	require.NoError(t, os.WriteFile(file, []byte(yaml), 0o644))
	t.Setenv("VIGENCIAS_BRIDGE_TIMEOUT", "45s")
	t.Setenv("VIGENCIAS_NATS_URL", "nats://127.0.0.1:4222")

	s, err := LoadSettings(file)
	require.NoError(t, err)

	assert.Equal(t, "/bin/sh", s.Bridge.Interpreter)
	assert.Empty(t, s.Bridge.HarnessArgs)
	assert.Equal(t, 45*time.Second, s.Bridge.Timeout)
	assert.Equal(t, 10*time.Second, s.Scheduler.Interval)
	assert.False(t, s.Scheduler.RetryOnFailure)
	assert.Equal(t, scheduler.LocaleEN, s.Scheduler.Locale)
	assert.Equal(t, "nats://127.0.0.1:4222", s.NATS.URL)
}

func TestLoadSettings_Invalid(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("scheduler:\n  locale: fr\n"), 0o644))

	_, err := LoadSettings(file)
	assert.True(t, errors.Is(err, ErrInvalidLocale))

	require.NoError(t, os.WriteFile(file, []byte("scheduler:\n  interval: 0s\n"), 0o644))
	_, err = LoadSettings(file)
	assert.True(t, errors.Is(err, ErrInvalidInterval))

	_, err = LoadSettings(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
