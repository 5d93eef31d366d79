package scheduler

import "time"

const (
	// DefaultInterval is the fixed evaluation period of the trigger engine.
	DefaultInterval = 60 * time.Second

	clockLayout  = "15:04"
	bucketLayout = "2006-01-02T15"

	// Days after today scanned by NextFireTime. Today plus seven more lets the
	// same weekday of next week win once today's slots have passed.
	nextFireHorizonDays = 7
)
