package scheduler

import (
	"time"

	"github.com/goodsign/monday"
)

// Locale selects the language of FormatNextFire.
type Locale string

const (
	LocaleES Locale = "es"
	LocaleEN Locale = "en"
)

const (
	longLayoutES = "Monday, 2 de January de 2006, 15:04"
	longLayoutEN = "Monday, January 2, 2006 at 15:04"
)

// NotScheduled returns the sentinel shown when nothing is scheduled.
func (l Locale) NotScheduled() string {
	if l == LocaleEN {
		return "Not scheduled"
	}
	return "No programado"
}

// FormatNextFire renders t in long form, or the locale's sentinel when ok is false.
func FormatNextFire(t time.Time, ok bool, locale Locale) string {
	if !ok {
		return locale.NotScheduled()
	}
	if locale == LocaleEN {
		return monday.Format(t, longLayoutEN, monday.LocaleEnUS)
	}
	return monday.Format(t, longLayoutES, monday.LocaleEsES)
}

// FormatNextExecution renders the engine's next slot.
func (e *TriggerEngine) FormatNextExecution(locale Locale) string {
	next, ok := e.NextFireTime()
	return FormatNextFire(next, ok, locale)
}
