package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "NEW"
	TaskStatusAssigned   TaskStatus = "ASSIGNED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCanceled   TaskStatus = "CANCELED"
	TaskStatusOverdue    TaskStatus = "OVERDUE"
	TaskStatusEscalated  TaskStatus = "ESCALATED"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []TaskStatus{
	TaskStatusNew,
	TaskStatusAssigned,
	TaskStatusInProgress,
	TaskStatusCompleted,
	TaskStatusCanceled,
	TaskStatusOverdue,
	TaskStatusEscalated,
}

var allowedTransitions = map[TaskStatus]map[TaskStatus]struct{}{
	TaskStatusNew: {
		TaskStatusAssigned:   {},
		TaskStatusInProgress: {},
		TaskStatusCanceled:   {},
		TaskStatusEscalated:  {},
		TaskStatusOverdue:    {},
	},
	TaskStatusAssigned: {
		TaskStatusInProgress: {},
		TaskStatusCanceled:   {},
		TaskStatusEscalated:  {},
		TaskStatusOverdue:    {},
	},
	TaskStatusInProgress: {
		TaskStatusCompleted: {},
		TaskStatusCanceled:  {},
		TaskStatusEscalated: {},
		TaskStatusOverdue:   {},
	},
	TaskStatusOverdue: {
		TaskStatusAssigned:   {},
		TaskStatusInProgress: {},
		TaskStatusCompleted:  {},
		TaskStatusCanceled:   {},
		TaskStatusEscalated:  {},
	},
	TaskStatusEscalated: {
		TaskStatusAssigned:   {},
		TaskStatusInProgress: {},
		TaskStatusCanceled:   {},
		TaskStatusEscalated:  {},
	},
	TaskStatusCompleted: {},
	TaskStatusCanceled:  {},
}

func (s TaskStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition or mutation is allowed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCanceled
}

func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	allowed, ok := allowedTransitions[s]
	if !ok {
		return false
	}
	_, ok = allowed[target]
	return ok
}

// ParseStatus matches raw case-insensitively against the known statuses.
func ParseStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", validationf("invalid status value: %s", raw)
	}
	return s, nil
}

type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "LOW"
	TaskPriorityMedium   TaskPriority = "MEDIUM"
	TaskPriorityHigh     TaskPriority = "HIGH"
	TaskPriorityCritical TaskPriority = "CRITICAL"
)

func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	default:
		return false
	}
}

// ParsePriority matches raw case-insensitively against the known priorities.
func ParsePriority(raw string) (TaskPriority, error) {
	p := TaskPriority(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return "", validationf("invalid priority value: %s", raw)
	}
	return p, nil
}

type Task struct {
	ID              uuid.UUID    `json:"id" db:"id"`
	Title           string       `json:"title" db:"title"`
	Description     string       `json:"description" db:"description"`
	Status          TaskStatus   `json:"status" db:"status"`
	Priority        TaskPriority `json:"priority" db:"priority"`
	CreatorID       int64        `json:"creator_id" db:"creator_id"`
	AssigneeID      *int64       `json:"assignee_id,omitempty" db:"assignee_id"`
	PropertyID      *int64       `json:"property_id,omitempty" db:"property_id"`
	AssetID         *int64       `json:"asset_id,omitempty" db:"asset_id"`
	CreationDate    time.Time    `json:"creation_date" db:"creation_date"`
	DueDate         *time.Time   `json:"due_date,omitempty" db:"due_date"`
	CompletionDate  *time.Time   `json:"completion_date,omitempty" db:"completion_date"`
	EscalationLevel int          `json:"escalation_level" db:"escalation_level"`
	EscalatedTo     *int64       `json:"escalated_to,omitempty" db:"escalated_to"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// NewTask builds a NEW task from a create request. Status, escalation and
// creation date are always server-assigned.
func NewTask(dto CreateTaskDTO, now time.Time) (*Task, error) {
	if err := ValidateForCreate(dto, now); err != nil {
		return nil, err
	}

	priority := TaskPriorityMedium
	if dto.Priority != nil && strings.TrimSpace(*dto.Priority) != "" {
		p, err := ParsePriority(*dto.Priority)
		if err != nil {
			return nil, err
		}
		priority = p
	}

	now = now.UTC()
	return &Task{
		ID:              uuid.New(),
		Title:           strings.TrimSpace(dto.Title),
		Description:     dto.Description,
		Status:          TaskStatusNew,
		Priority:        priority,
		CreatorID:       *dto.CreatorID,
		AssigneeID:      dto.AssigneeID,
		PropertyID:      dto.PropertyID,
		AssetID:         dto.AssetID,
		CreationDate:    now,
		DueDate:         utcPtr(dto.DueDate),
		EscalationLevel: 0,
		UpdatedAt:       now,
	}, nil
}

func (t *Task) Assign(assigneeID *int64) error {
	if err := ValidateAssign(t, assigneeID); err != nil {
		return err
	}
	id := *assigneeID
	t.AssigneeID = &id
	t.Status = TaskStatusAssigned
	return nil
}

func (t *Task) Start(userID *int64) error {
	if err := ValidateStart(t, userID); err != nil {
		return err
	}
	t.Status = TaskStatusInProgress
	return nil
}

func (t *Task) Complete(userID *int64, now time.Time) error {
	if err := ValidateComplete(t, userID); err != nil {
		return err
	}
	completed := now.UTC()
	t.Status = TaskStatusCompleted
	t.CompletionDate = &completed
	return nil
}

func (t *Task) Cancel() error {
	if err := ValidateCancel(t); err != nil {
		return err
	}
	t.Status = TaskStatusCanceled
	return nil
}

func (t *Task) Escalate(escalatedTo *int64) error {
	if err := ValidateEscalation(t, escalatedTo); err != nil {
		return err
	}
	target := *escalatedTo
	t.Status = TaskStatusEscalated
	t.EscalationLevel++
	t.EscalatedTo = &target
	assignee := target
	t.AssigneeID = &assignee
	return nil
}

// ApplyUpdate merges the non-nil fields of dto into the task.
func (t *Task) ApplyUpdate(dto UpdateTaskDTO, now time.Time) error {
	if err := ValidateForUpdate(t); err != nil {
		return err
	}

	// Parse everything before touching the task so a bad request leaves it intact.
	var status TaskStatus
	if dto.Status != nil {
		s, err := ParseStatus(*dto.Status)
		if err != nil {
			return err
		}
		if s != t.Status {
			if err := ValidateTransition(t.Status, s); err != nil {
				return err
			}
		}
		status = s
	}
	var priority TaskPriority
	if dto.Priority != nil {
		p, err := ParsePriority(*dto.Priority)
		if err != nil {
			return err
		}
		priority = p
	}
	if dto.Title != nil && strings.TrimSpace(*dto.Title) == "" {
		return validationf("task title is required")
	}

	if dto.Title != nil {
		t.Title = strings.TrimSpace(*dto.Title)
	}
	if dto.Description != nil {
		t.Description = *dto.Description
	}
	if dto.AssigneeID != nil {
		t.AssigneeID = dto.AssigneeID
	}
	if dto.PropertyID != nil {
		t.PropertyID = dto.PropertyID
	}
	if dto.AssetID != nil {
		t.AssetID = dto.AssetID
	}
	if priority != "" {
		t.Priority = priority
	}
	if dto.DueDate != nil {
		t.DueDate = utcPtr(dto.DueDate)
	}
	if status != "" && status != t.Status {
		t.Status = status
		if status == TaskStatusCompleted {
			completed := now.UTC()
			t.CompletionDate = &completed
		}
	}
	return nil
}

// IsOverdue reports whether the task is past due while still in an active state.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || !t.DueDate.Before(now) {
		return false
	}
	switch t.Status {
	case TaskStatusNew, TaskStatusAssigned, TaskStatusInProgress:
		return true
	default:
		return false
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
