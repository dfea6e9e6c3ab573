package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreateTaskDTO represents the payload for creating a new task
type CreateTaskDTO struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatorID   *int64     `json:"creator_id"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	PropertyID  *int64     `json:"property_id,omitempty"`
	AssetID     *int64     `json:"asset_id,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// CreateBulkTaskDTO represents the payload for bulk task creation
type CreateBulkTaskDTO struct {
	Tasks []CreateTaskDTO `json:"tasks"`
}

// UpdateTaskDTO carries a partial update; nil fields are left unchanged.
type UpdateTaskDTO struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	AssigneeID  *int64     `json:"assignee_id,omitempty"`
	PropertyID  *int64     `json:"property_id,omitempty"`
	AssetID     *int64     `json:"asset_id,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Status      *string    `json:"status,omitempty"`
}

// TaskResponse represents the API response for a task
type TaskResponse struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Status          TaskStatus   `json:"status"`
	Priority        TaskPriority `json:"priority"`
	CreatorID       int64        `json:"creator_id"`
	AssigneeID      *int64       `json:"assignee_id,omitempty"`
	PropertyID      *int64       `json:"property_id,omitempty"`
	AssetID         *int64       `json:"asset_id,omitempty"`
	CreationDate    time.Time    `json:"creation_date"`
	DueDate         *time.Time   `json:"due_date,omitempty"`
	CompletionDate  *time.Time   `json:"completion_date,omitempty"`
	EscalationLevel int          `json:"escalation_level"`
	EscalatedTo     *int64       `json:"escalated_to,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// BulkTaskResponse represents the API response for bulk operations
type BulkTaskResponse struct {
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Tasks        []TaskResponse `json:"tasks"`
	Errors       []string       `json:"errors,omitempty"`
}

// TaskMetrics represents the aggregated statistics of tasks
type TaskMetrics struct {
	Total      int `json:"total" db:"total"`
	New        int `json:"new" db:"status_new"`
	Assigned   int `json:"assigned" db:"status_assigned"`
	InProgress int `json:"in_progress" db:"status_in_progress"`
	Completed  int `json:"completed" db:"status_completed"`
	Canceled   int `json:"canceled" db:"status_canceled"`
	Overdue    int `json:"overdue" db:"status_overdue"`
	Escalated  int `json:"escalated" db:"status_escalated"`
}

// HealthStatus reports reachability of the service dependencies.
type HealthStatus struct {
	System   string `json:"system"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
}

// ToResponse converts a domain Task entity to TaskResponse
func (t *Task) ToResponse() TaskResponse {
	return TaskResponse{
		ID:              t.ID,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		CreatorID:       t.CreatorID,
		AssigneeID:      t.AssigneeID,
		PropertyID:      t.PropertyID,
		AssetID:         t.AssetID,
		CreationDate:    t.CreationDate,
		DueDate:         t.DueDate,
		CompletionDate:  t.CompletionDate,
		EscalationLevel: t.EscalationLevel,
		EscalatedTo:     t.EscalatedTo,
		UpdatedAt:       t.UpdatedAt,
	}
}

// ToResponses converts a slice of tasks, never returning nil.
func ToResponses(tasks []*Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ToResponse())
	}
	return out
}
