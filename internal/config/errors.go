package config

import "errors"

var (
	// ErrInvalidTime is returned for a schedule time that is not "HH:MM"
	ErrInvalidTime = errors.New("invalid schedule time")

	// ErrInvalidDay is returned for an unknown weekday name
	ErrInvalidDay = errors.New("invalid schedule day")

	// ErrInvalidLocale is returned for an unsupported display locale
	ErrInvalidLocale = errors.New("invalid locale")

	// ErrInvalidInterval is returned for a non-positive scheduler interval
	ErrInvalidInterval = errors.New("invalid scheduler interval")
)
