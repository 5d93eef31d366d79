package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{"00:00", 0, 0, true},
		{"09:05", 9, 5, true},
		{"23:59", 23, 59, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"9:00", 0, 0, false},
		{"09-00", 0, 0, false},
		{"ab:cd", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, ok := ParseClock(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.hour, h)
			assert.Equal(t, tt.minute, m)
		})
	}
}

func TestScheduleConfig_CloneIsDeep(t *testing.T) {
	last := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	cfg := ScheduleConfig{Enabled: true, Times: []string{"09:00"}, Days: []string{}, LastExecution: &last}

	out := cfg.Clone()
	out.Times[0] = "10:00"
	*out.LastExecution = last.Add(time.Hour)

	assert.Equal(t, "09:00", cfg.Times[0])
	assert.True(t, last.Equal(*cfg.LastExecution))
	assert.NotNil(t, out.Days)
	assert.Nil(t, ScheduleConfig{}.Clone().Times)
}

func TestScheduleConfig_Matching(t *testing.T) {
	cfg := ScheduleConfig{Times: []string{"09:00", "18:30"}, Days: []string{"monday", "Friday"}}

	assert.True(t, cfg.HasTime("18:30"))
	assert.False(t, cfg.HasTime("9:00"))
	assert.True(t, cfg.HasDay(WeekdayName(time.Monday)))
	assert.True(t, cfg.HasDay("friday"))
	assert.False(t, cfg.HasDay("sunday"))
	assert.Equal(t, "saturday", WeekdayName(time.Saturday))
}

func TestScheduleConfig_JSONShape(t *testing.T) {
	var cfg ScheduleConfig
	require.NoError(t, json.Unmarshal([]byte(`{"enabled":true,"times":["09:00"],"days":["monday"],"lastExecution":null}`), &cfg))
	assert.True(t, cfg.Enabled)
	assert.Nil(t, cfg.LastExecution)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true,"times":["09:00"],"days":["monday"],"lastExecution":null}`, string(data))
}

func TestParams(t *testing.T) {
	var p Params
	p = p.Set("SourcePath", "a").Set("DestinationPath", "b").Set("SourcePath", "c")

	assert.Equal(t, []string{"SourcePath", "DestinationPath"}, p.Keys())
	assert.Equal(t, "c", p[0].Value)
	assert.Empty(t, Params(nil).Keys())
}

func TestOperationResult_Err(t *testing.T) {
	sentinel := errors.New("entry point not found")

	assert.NoError(t, (&OperationResult{Success: true}).Err())
	var nilResult *OperationResult
	assert.NoError(t, nilResult.Err())

	err := Failure(sentinel).Err()
	assert.Equal(t, sentinel, err)

	err = FailureMessage("script missing", sentinel).Err()
	assert.EqualError(t, err, "script missing")
	assert.True(t, errors.Is(err, sentinel))

	err = (&OperationResult{Error: "reported"}).Err()
	assert.EqualError(t, err, "reported")
}

func TestOperationResult_Decode(t *testing.T) {
	r := &OperationResult{Success: true, Data: map[string]interface{}{
		"success":            true,
		"message":            "ok",
		"facturasProcessed":  3,
		"errors":             []interface{}{},
		"archivosGenerados":  []interface{}{"a.csv"},
		"registrosGenerados": 2,
	}}

	var summary ProcessSummary
	require.NoError(t, r.Decode(&summary))
	assert.Equal(t, 3, summary.FacturasProcessed)
	assert.Equal(t, 2, summary.RegistrosGenerados)
	assert.Equal(t, []string{"a.csv"}, summary.ArchivosGenerados)

	assert.Error(t, (&OperationResult{Success: true}).Decode(&summary))
}

func TestAppConfig_JSONKeys(t *testing.T) {
	data, err := json.Marshal(AppConfig{})
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"database", "paths", "process", "lastUpdated"} {
		assert.Contains(t, raw, key)
	}

	var process map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["process"], &process))
	for _, key := range []string{"diasFacturas", "vigenciaDia", "vigenciaConvenio", "vigenciaCicloEscolar",
		"palabrasExcluidas", "palabrasConvenio", "palabrasCicloEscolar", "scheduledExecution"} {
		assert.Contains(t, process, key)
	}
}
