package scheduler

import "github.com/evalbench/evalbench/internal/models"

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventTaskStarted   EventType = "task_started"
	EventUnitStarted   EventType = "unit_started"
	EventUnitRetried   EventType = "unit_retried"
	EventUnitFinished  EventType = "unit_finished"
	EventTaskFinished  EventType = "task_finished"
	EventTaskCancelled EventType = "task_cancelled"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType EventType
	TaskID    string
	Unit      models.UnitKey
	Outcome   models.UnitOutcome
	State     models.TaskState
	Attempt   int
	Completed int
	Failed    int
	Total     int
}
