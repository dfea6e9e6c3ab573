package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTaskCreated   EventType = "TASK_CREATED"
	EventTaskAssigned  EventType = "TASK_ASSIGNED"
	EventTaskStarted   EventType = "TASK_STARTED"
	EventTaskCompleted EventType = "TASK_COMPLETED"
	EventTaskCanceled  EventType = "TASK_CANCELED"
	EventTaskOverdue   EventType = "TASK_OVERDUE"
	EventTaskEscalated EventType = "TASK_ESCALATED"
	EventTaskUpdated   EventType = "TASK_UPDATED"
)

// AllEventTypes lists every lifecycle event type.
var AllEventTypes = []EventType{
	EventTaskCreated,
	EventTaskAssigned,
	EventTaskStarted,
	EventTaskCompleted,
	EventTaskCanceled,
	EventTaskOverdue,
	EventTaskEscalated,
	EventTaskUpdated,
}

// TaskEvent is the lifecycle fact published after a successful operation.
type TaskEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	EventType   EventType `json:"event_type"`
	TaskID      uuid.UUID `json:"task_id"`
	UserID      *int64    `json:"user_id,omitempty"`
	Description string    `json:"description"`
	Reason      *string   `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTaskEvent(task *Task, eventType EventType, userID *int64, reason *string, now time.Time) TaskEvent {
	return TaskEvent{
		EventID:     uuid.New(),
		EventType:   eventType,
		TaskID:      task.ID,
		UserID:      userID,
		Description: fmt.Sprintf("Task %s: %s", task.Title, eventType),
		Reason:      reason,
		Timestamp:   now.UTC(),
	}
}
