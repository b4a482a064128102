package models

import "time"

// PipelineStats is a lightweight snapshot of pipeline instrumentation served
// by the ops API.
type PipelineStats struct {
	EventsConsumed    uint64    `json:"eventsConsumed"`
	EventsMalformed   uint64    `json:"eventsMalformed"`
	EventsDroppedLate uint64    `json:"eventsDroppedLate"`
	ScoresEmitted     uint64    `json:"scoresEmitted"`
	AlertsTriggered   uint64    `json:"alertsTriggered"`
	ActiveAggregates  int64     `json:"activeAggregates"`
	Goroutines        int       `json:"goroutines"`
	GeneratedAt       time.Time `json:"generatedAt"`
}
