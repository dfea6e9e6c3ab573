package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"maintenance-task-service/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const taskColumns = `id, title, description, status, priority, creator_id, assignee_id,
	property_id, asset_id, creation_date, due_date, completion_date,
	escalation_level, escalated_to, updated_at`

const insertTaskQuery = `
	INSERT INTO tasks (
		id, title, description, status, priority, creator_id, assignee_id,
		property_id, asset_id, creation_date, due_date, completion_date,
		escalation_level, escalated_to, updated_at
	) VALUES (
		:id, :title, :description, :status, :priority, :creator_id, :assignee_id,
		:property_id, :asset_id, :creation_date, :due_date, :completion_date,
		:escalation_level, :escalated_to, :updated_at
	)
`

var searchableColumns = map[domain.Field]bool{
	domain.FieldAssigneeID:   true,
	domain.FieldCreatorID:    true,
	domain.FieldStatus:       true,
	domain.FieldPriority:     true,
	domain.FieldPropertyID:   true,
	domain.FieldAssetID:      true,
	domain.FieldCreationDate: true,
	domain.FieldDueDate:      true,
}

// SQLTaskRepository stores tasks through sqlx. The same type serves the
// connection pool and a single transaction; ext is whichever is active.
type SQLTaskRepository struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

func NewTaskRepository(db *sqlx.DB) domain.TaskRepository {
	return &SQLTaskRepository{
		db:  db,
		ext: db,
	}
}

func (r *SQLTaskRepository) WithinTx(ctx context.Context, fn func(repo domain.TaskRepository) error) error {
	if r.db == nil {
		// already bound to a transaction
		return fn(r)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLTaskRepository{ext: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("failed to commit task transaction")
		return err
	}
	return nil
}

func (r *SQLTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	_, err := sqlx.NamedExecContext(ctx, r.ext, insertTaskQuery, task)
	if err != nil {
		log.Error().Err(err).Str("task_id", task.ID.String()).Msg("failed to create task")
		return err
	}
	return nil
}

func (r *SQLTaskRepository) BulkInsert(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	const batchSize = 100
	now := time.Now().UTC()
	for _, t := range tasks {
		t.UpdatedAt = now
	}

	return r.WithinTx(ctx, func(repo domain.TaskRepository) error {
		txRepo := repo.(*SQLTaskRepository)

		for i := 0; i < len(tasks); i += batchSize {
			end := i + batchSize
			if end > len(tasks) {
				end = len(tasks)
			}

			batch := tasks[i:end]
			if _, err := sqlx.NamedExecContext(ctx, txRepo.ext, insertTaskQuery, batch); err != nil {
				log.Error().Err(err).Int("batch_start", i).Msg("failed to insert batch")
				return err
			}
		}
		return nil
	})
}

func (r *SQLTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	query := r.ext.Rebind("SELECT " + taskColumns + " FROM tasks WHERE id = ?")

	err := sqlx.GetContext(ctx, r.ext, &task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.TaskNotFound(id)
		}
		log.Error().Err(err).Str("task_id", id.String()).Msg("failed to find task")
		return nil, err
	}

	return &task, nil
}

func (r *SQLTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	task.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE tasks SET
			title = :title, description = :description, status = :status,
			priority = :priority, assignee_id = :assignee_id, property_id = :property_id,
			asset_id = :asset_id, due_date = :due_date, completion_date = :completion_date,
			escalation_level = :escalation_level, escalated_to = :escalated_to,
			updated_at = :updated_at
		WHERE id = :id
	`

	result, err := sqlx.NamedExecContext(ctx, r.ext, query, task)
	if err != nil {
		log.Error().Err(err).Str("task_id", task.ID.String()).Str("status", string(task.Status)).Msg("failed to update task")
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.TaskNotFound(task.ID)
	}

	return nil
}

func (r *SQLTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := r.ext.Rebind("DELETE FROM tasks WHERE id = ?")

	result, err := r.ext.ExecContext(ctx, query, id)
	if err != nil {
		log.Error().Err(err).Str("task_id", id.String()).Msg("failed to delete task")
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.TaskNotFound(id)
	}

	return nil
}

func (r *SQLTaskRepository) FindAll(ctx context.Context, predicate domain.Predicate) ([]*domain.Task, error) {
	where, args, err := buildWhere(predicate)
	if err != nil {
		return nil, err
	}

	query := "SELECT " + taskColumns + " FROM tasks" + where + " ORDER BY creation_date ASC, id ASC"
	query, args, err = sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("expand query: %w", err)
	}

	tasks := []*domain.Task{}
	if err := sqlx.SelectContext(ctx, r.ext, &tasks, r.ext.Rebind(query), args...); err != nil {
		log.Error().Err(err).Msg("failed to find tasks")
		return nil, err
	}

	return tasks, nil
}

func (r *SQLTaskRepository) GetMetrics(ctx context.Context) (*domain.TaskMetrics, error) {
	metrics := &domain.TaskMetrics{}

	if err := sqlx.GetContext(ctx, r.ext, metrics, metricsQuery); err != nil {
		log.Error().Err(err).Msg("failed to get metrics")
		return nil, err
	}

	return metrics, nil
}

// metricsQuery counts tasks per status; columns match TaskMetrics db tags.
var metricsQuery = func() string {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) AS total")
	for _, s := range domain.AllStatuses {
		fmt.Fprintf(&b, ", COUNT(CASE WHEN status = '%s' THEN 1 END) AS status_%s", s, strings.ToLower(string(s)))
	}
	b.WriteString(" FROM tasks")
	return b.String()
}()

// buildWhere renders the predicate as a WHERE clause with ? placeholders.
// OpIn conditions keep a single ? for sqlx.In to expand.
func buildWhere(p domain.Predicate) (string, []any, error) {
	if p.IsEmpty() {
		return "", nil, nil
	}
	conds := p.Conditions()

	clauses := make([]string, 0, len(conds))
	args := make([]any, 0, len(conds))
	for _, c := range conds {
		if !searchableColumns[c.Field] {
			return "", nil, fmt.Errorf("unsupported filter field %q", c.Field)
		}

		switch c.Op {
		case domain.OpIn:
			values, ok := c.Value.([]string)
			if !ok || len(values) == 0 {
				clauses = append(clauses, "1 = 0")
				continue
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (?)", c.Field))
			args = append(args, values)
		case domain.OpEq, domain.OpLt, domain.OpGte, domain.OpLte:
			clauses = append(clauses, fmt.Sprintf("%s %s ?", c.Field, c.Op))
			args = append(args, c.Value)
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", c.Op)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}
