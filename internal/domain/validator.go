package domain

import (
	"strings"
	"time"
)

// Validators are pure: they inspect a task snapshot and the proposed input and
// either pass or return an *Error. They never mutate and never do I/O.

func ValidateForCreate(dto CreateTaskDTO, now time.Time) error {
	if strings.TrimSpace(dto.Title) == "" {
		return validationf("task title is required")
	}
	if dto.CreatorID == nil {
		return validationf("creator id is required")
	}
	if dto.DueDate != nil && dto.DueDate.Before(now) {
		return validationf("due date cannot be in the past")
	}
	return nil
}

func ValidateForUpdate(t *Task) error {
	if t.Status.IsTerminal() {
		return operationf("task with status %s cannot be updated", t.Status)
	}
	return nil
}

func ValidateTransition(from, to TaskStatus) error {
	if !from.CanTransitionTo(to) {
		return statef("invalid task status transition from %s to %s", from, to)
	}
	return nil
}

func ValidateAssign(t *Task, assigneeID *int64) error {
	if assigneeID == nil {
		return validationf("assignee id cannot be null")
	}
	if t.AssigneeID != nil {
		return operationf("task is already assigned")
	}
	if t.Status != TaskStatusNew {
		return validationf("only NEW tasks can be assigned, current status: %s", t.Status)
	}
	return nil
}

func ValidateStart(t *Task, userID *int64) error {
	if userID == nil {
		return validationf("user id cannot be null")
	}
	if !isAssignee(t, *userID) {
		return operationf("only assignee can start the task")
	}
	if t.Status != TaskStatusNew && t.Status != TaskStatusAssigned {
		return statef("task [ID=%s] with status '%s' cannot be started", t.ID, t.Status)
	}
	return nil
}

func ValidateComplete(t *Task, userID *int64) error {
	if userID == nil {
		return validationf("user id cannot be null")
	}
	if !isAssignee(t, *userID) {
		return operationf("only assignee can complete the task")
	}
	if t.Status != TaskStatusInProgress && t.Status != TaskStatusOverdue {
		return statef("task [ID=%s] with status '%s' cannot be completed", t.ID, t.Status)
	}
	return nil
}

func ValidateCancel(t *Task) error {
	if t.Status.IsTerminal() {
		return operationf("cannot cancel task with status: %s", t.Status)
	}
	return nil
}

func ValidateEscalation(t *Task, escalatedTo *int64) error {
	if escalatedTo == nil {
		return validationf("escalation target cannot be null")
	}
	switch t.Status {
	case TaskStatusCompleted:
		return operationf("cannot escalate a completed task")
	case TaskStatusCanceled:
		return operationf("cannot escalate a canceled task")
	}
	if isAssignee(t, *escalatedTo) {
		return operationf("cannot escalate to self")
	}
	return nil
}

func ValidateDelete(t *Task) error {
	if !t.Status.IsTerminal() {
		return operationf("cannot delete task with status: %s", t.Status)
	}
	return nil
}

func isAssignee(t *Task, userID int64) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}
