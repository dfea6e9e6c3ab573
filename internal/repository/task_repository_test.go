package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"maintenance-task-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var baseTime = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite", "file::memory:?_time_format=sqlite")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// a single connection keeps every query on the same in-memory database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return db
}

func newTask(title string, status domain.TaskStatus, created time.Time) *domain.Task {
	return &domain.Task{
		ID:           uuid.New(),
		Title:        title,
		Status:       status,
		Priority:     domain.TaskPriorityMedium,
		CreatorID:    1,
		CreationDate: created,
	}
}

func TestCreateAndFindByID(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	due := baseTime.Add(24 * time.Hour)
	task := newTask("Inspect roof", domain.TaskStatusNew, baseTime)
	task.AssigneeID = ptr(int64(4))
	task.PropertyID = ptr(int64(10))
	task.DueDate = &due

	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	if got.ID != task.ID || got.Title != task.Title || got.Status != task.Status {
		t.Errorf("got %+v, want %+v", got, task)
	}
	if got.AssigneeID == nil || *got.AssigneeID != 4 {
		t.Errorf("got assignee %v, want 4", got.AssigneeID)
	}
	if got.AssetID != nil {
		t.Errorf("got asset %v, want nil", got.AssetID)
	}
	if !got.CreationDate.Equal(baseTime) {
		t.Errorf("got creation date %v, want %v", got.CreationDate, baseTime)
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("got due date %v, want %v", got.DueDate, due)
	}
}

func TestFindByIDNotFound(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want not found", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	task := newTask("Paint hallway", domain.TaskStatusNew, baseTime)
	if err := repo.Create(ctx, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	task.Status = domain.TaskStatusCanceled
	task.EscalationLevel = 2
	if err := repo.Update(ctx, task); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got.Status != domain.TaskStatusCanceled || got.EscalationLevel != 2 {
		t.Errorf("got status %s level %d", got.Status, got.EscalationLevel)
	}

	if err := repo.Delete(ctx, task.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want not found on second delete", err)
	}
	if err := repo.Update(ctx, task); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want not found on update of deleted task", err)
	}
}

func TestFindAllWithPredicates(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	past := baseTime.Add(-time.Hour)
	a := newTask("a", domain.TaskStatusAssigned, baseTime)
	a.AssigneeID = ptr(int64(7))
	a.DueDate = &past
	b := newTask("b", domain.TaskStatusInProgress, baseTime.Add(time.Hour))
	b.AssigneeID = ptr(int64(7))
	b.Priority = domain.TaskPriorityHigh
	c := newTask("c", domain.TaskStatusCompleted, baseTime.Add(2*time.Hour))
	c.DueDate = &past
	c.PropertyID = ptr(int64(3))

	if err := repo.BulkInsert(ctx, []*domain.Task{a, b, c}); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	tests := []struct {
		name string
		p    domain.Predicate
		want []string
	}{
		{"all", domain.Predicate{}, []string{"a", "b", "c"}},
		{"assignee", domain.FieldEquals(domain.FieldAssigneeID, int64(7)), []string{"a", "b"}},
		{"priority", domain.FieldEquals(domain.FieldPriority, "HIGH"), []string{"b"}},
		{"property", domain.FieldEquals(domain.FieldPropertyID, int64(3)), []string{"c"}},
		{"overdue", domain.OverduePredicate(baseTime), []string{"a"}},
		{"created range", domain.Predicate{}.And(
			domain.Condition{Field: domain.FieldCreationDate, Op: domain.OpGte, Value: baseTime.Add(time.Hour)},
			domain.Condition{Field: domain.FieldCreationDate, Op: domain.OpLte, Value: baseTime.Add(2 * time.Hour)},
		), []string{"b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.FindAll(ctx, tt.p)
			if err != nil {
				t.Fatalf("FindAll() error = %v", err)
			}
			if len(tasks) != len(tt.want) {
				t.Fatalf("got %d tasks, want %d", len(tasks), len(tt.want))
			}
			for i, task := range tasks {
				if task.Title != tt.want[i] {
					t.Errorf("task %d: got %q, want %q", i, task.Title, tt.want[i])
				}
			}
		})
	}
}

func TestFindAllEmptyResult(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))

	tasks, err := repo.FindAll(context.Background(), domain.FieldEquals(domain.FieldCreatorID, int64(99)))
	if err != nil {
		t.Fatalf("FindAll() error = %v", err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Errorf("got %v, want empty non-nil slice", tasks)
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	task := newTask("rollback", domain.TaskStatusNew, baseTime)
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(tx domain.TaskRepository) error {
		if err := tx.Create(ctx, task); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want boom", err)
	}

	if _, err := repo.FindByID(ctx, task.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("got %v, want task to be rolled back", err)
	}
}

func TestGetMetrics(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))

	tasks := []*domain.Task{
		newTask("1", domain.TaskStatusNew, baseTime),
		newTask("2", domain.TaskStatusNew, baseTime),
		newTask("3", domain.TaskStatusInProgress, baseTime),
		newTask("4", domain.TaskStatusEscalated, baseTime),
		newTask("5", domain.TaskStatusCanceled, baseTime),
	}
	if err := repo.BulkInsert(ctx, tasks); err != nil {
		t.Fatalf("BulkInsert() error = %v", err)
	}

	m, err := repo.GetMetrics(ctx)
	if err != nil {
		t.Fatalf("GetMetrics() error = %v", err)
	}

	want := domain.TaskMetrics{Total: 5, New: 2, InProgress: 1, Escalated: 1, Canceled: 1}
	if *m != want {
		t.Errorf("got %+v, want %+v", *m, want)
	}
}

func TestBuildWhereRejectsUnknownField(t *testing.T) {
	_, _, err := buildWhere(domain.FieldEquals(domain.Field("title; DROP TABLE tasks"), "x"))
	if err == nil {
		t.Error("expected error for unknown field")
	}
}
