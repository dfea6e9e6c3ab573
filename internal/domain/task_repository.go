package domain

import (
	"context"

	"github.com/google/uuid"
)

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error

	BulkInsert(ctx context.Context, tasks []*Task) error

	// FindByID returns an ErrNotFound error when the task does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*Task, error)

	Update(ctx context.Context, task *Task) error

	Delete(ctx context.Context, id uuid.UUID) error

	FindAll(ctx context.Context, predicate Predicate) ([]*Task, error)

	GetMetrics(ctx context.Context) (*TaskMetrics, error)

	// WithinTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repo TaskRepository) error) error
}
