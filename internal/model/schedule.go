package model

import (
	"strconv"
	"strings"
	"time"
)

// Weekday names as stored in the persisted configuration.
var weekdayNames = [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayName returns the lowercase English name for d.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}

// ScheduleConfig describes when the scheduled job should run.
type ScheduleConfig struct {
	Enabled       bool       `json:"enabled" mapstructure:"enabled"`
	Times         []string   `json:"times" mapstructure:"times"`
	Days          []string   `json:"days" mapstructure:"days"`
	LastExecution *time.Time `json:"lastExecution" mapstructure:"lastExecution"`
}

// Clone returns a deep copy so the scheduler never shares slices with the caller.
func (c ScheduleConfig) Clone() ScheduleConfig {
	out := ScheduleConfig{
		Enabled: c.Enabled,
		Times:   CopyStrings(c.Times),
		Days:    CopyStrings(c.Days),
	}
	if c.LastExecution != nil {
		t := *c.LastExecution
		out.LastExecution = &t
	}
	return out
}

// CopyStrings copies s, keeping nil and empty distinct.
func CopyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}

// HasTime reports whether hhmm is one of the configured times.
func (c ScheduleConfig) HasTime(hhmm string) bool {
	for _, t := range c.Times {
		if t == hhmm {
			return true
		}
	}
	return false
}

// HasDay reports whether day is one of the configured weekday names.
func (c ScheduleConfig) HasDay(day string) bool {
	for _, d := range c.Days {
		if strings.EqualFold(d, day) {
			return true
		}
	}
	return false
}

// ParseClock parses a zero-padded 24h "HH:MM" value.
func ParseClock(s string) (hour, minute int, ok bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, 0, false
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, false
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}
