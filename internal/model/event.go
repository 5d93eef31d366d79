package model

import "time"

// EventLevel mirrors the levels understood by the log sink.
type EventLevel string

const (
	EventLevelInfo     EventLevel = "INFO"
	EventLevelSuccess  EventLevel = "SUCCESS"
	EventLevelError    EventLevel = "ERROR"
	EventLevelCritical EventLevel = "CRITICAL"
)

// Event is a log message forwarded to external listeners.
type Event struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Level     EventLevel             `json:"level"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
