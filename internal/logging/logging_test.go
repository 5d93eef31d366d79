package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToDailyFile(t *testing.T) {
	dir := t.TempDir()
	logger, daily, err := New(Config{Dir: dir, Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, daily)
	t.Cleanup(func() { daily.Close() })

	logger.Named("bridge").Info("External process completed", zap.String("operation", "copy_database"))
	logger.Debug("hidden")
	require.NoError(t, logger.Sync())

	f, err := os.Open(daily.Path())
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 1)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "bridge", lines[0]["logger"])
	assert.Equal(t, "copy_database", lines[0]["operation"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNew_NoSinks(t *testing.T) {
	logger, daily, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, daily)
	logger.Info("dropped")
}

func TestDailyFile_RotatesOnDateChange(t *testing.T) {
	dir := t.TempDir()
	daily, err := NewDailyFile(dir)
	require.NoError(t, err)
	t.Cleanup(func() { daily.Close() })

	day := time.Date(2026, 10, 19, 23, 59, 0, 0, time.Local)
	daily.now = func() time.Time { return day }
	_, err = daily.Write([]byte("first\n"))
	require.NoError(t, err)

	day = day.Add(2 * time.Minute)
	_, err = daily.Write([]byte("second\n"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "vigencias-2026-10-19.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "vigencias-2026-10-20.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"vigencias-2026-08-01.log",
		"vigencias-2026-09-25.log",
		"vigencias-2026-10-19.log",
		"vigencias-notadate.log",
		"other.log",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
	removed, err := Cleanup(dir, 30*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		"vigencias-2026-09-25.log",
		"vigencias-2026-10-19.log",
		"vigencias-notadate.log",
		"other.log",
	}, names)

	_, err = Cleanup(filepath.Join(dir, "missing"), time.Hour, now)
	assert.Error(t, err)
}
