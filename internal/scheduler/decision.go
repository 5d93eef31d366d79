package scheduler

import (
	"time"

	"github.com/t77yq/vigencias-bridge/internal/model"
)

// Decision is the outcome of evaluating a schedule at one instant.
type Decision int

const (
	DecisionDisabled Decision = iota
	DecisionNoMatch
	DecisionAlreadyFired
	DecisionSuppressed
	DecisionFire
)

func (d Decision) String() string {
	switch d {
	case DecisionDisabled:
		return "disabled"
	case DecisionNoMatch:
		return "no_match"
	case DecisionAlreadyFired:
		return "already_fired"
	case DecisionSuppressed:
		return "suppressed"
	case DecisionFire:
		return "fire"
	default:
		return "unknown"
	}
}

// HourBucket truncates t to its local hour, the de-duplication key for slots.
func HourBucket(t time.Time) string {
	return t.Format(bucketLayout)
}

// Decide reports whether config should fire at now. Malformed times never
// match.
func Decide(config model.ScheduleConfig, now time.Time) Decision {
	if !config.Enabled {
		return DecisionDisabled
	}
	if !config.HasTime(now.Format(clockLayout)) || !config.HasDay(model.WeekdayName(now.Weekday())) {
		return DecisionNoMatch
	}
	if last := config.LastExecution; last != nil && HourBucket(last.In(now.Location())) == HourBucket(now) {
		return DecisionAlreadyFired
	}
	return DecisionFire
}

// NextFireTime returns the first slot strictly after now. Days are scanned in
// ascending order and, within a day, times in configured order; the first hit
// wins, so unsorted times may not yield the earliest slot of that day.
func NextFireTime(config model.ScheduleConfig, now time.Time) (time.Time, bool) {
	if !config.Enabled {
		return time.Time{}, false
	}
	for offset := 0; offset <= nextFireHorizonDays; offset++ {
		day := now.AddDate(0, 0, offset)
		for _, s := range config.Times {
			hour, minute, ok := model.ParseClock(s)
			if !ok {
				continue
			}
			candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
			if config.HasDay(model.WeekdayName(candidate.Weekday())) && candidate.After(now) {
				return candidate, true
			}
		}
	}
	return time.Time{}, false
}
