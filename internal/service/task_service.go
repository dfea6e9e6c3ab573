package service

import (
	"context"
	"fmt"
	"time"

	"maintenance-task-service/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventEmitter receives lifecycle facts after a successful commit. It must
// not block the caller and returns false when the event was not accepted.
type EventEmitter interface {
	Emit(event domain.TaskEvent) bool
}

// TaskService owns the task state machine: every mutating operation loads,
// validates, mutates and persists inside one repository transaction, then
// emits exactly one event.
type TaskService struct {
	repo   domain.TaskRepository
	events EventEmitter
	logger zerolog.Logger
}

func NewTaskService(
	repo domain.TaskRepository,
	events EventEmitter,
	logger zerolog.Logger,
) *TaskService {
	return &TaskService{
		repo:   repo,
		events: events,
		logger: logger,
	}
}

func (s *TaskService) Create(ctx context.Context, dto domain.CreateTaskDTO, now time.Time) (*domain.Task, error) {
	task, err := domain.NewTask(dto, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.emit(task, domain.EventTaskCreated, int64Ptr(task.CreatorID), nil, now)
	s.logger.Info().Str("task_id", task.ID.String()).Msg("task created successfully")
	return task, nil
}

func (s *TaskService) CreateBulk(ctx context.Context, dtos domain.CreateBulkTaskDTO, now time.Time) (*domain.BulkTaskResponse, error) {
	if len(dtos.Tasks) == 0 {
		return &domain.BulkTaskResponse{Tasks: []domain.TaskResponse{}}, nil
	}

	validTasks := make([]*domain.Task, 0, len(dtos.Tasks))
	taskErrorMessages := make([]string, 0)

	for idx, tDto := range dtos.Tasks {
		t, err := domain.NewTask(tDto, now)
		if err != nil {
			taskErrorMessages = append(taskErrorMessages, fmt.Sprintf("index %d: %s", idx, err.Error()))
			continue
		}
		validTasks = append(validTasks, t)
	}

	if len(validTasks) == 0 {
		return &domain.BulkTaskResponse{
			FailureCount: len(dtos.Tasks),
			Tasks:        []domain.TaskResponse{},
			Errors:       taskErrorMessages,
		}, nil
	}

	if err := s.repo.BulkInsert(ctx, validTasks); err != nil {
		s.logger.Error().Err(err).Msg("failed bulk insert tasks")
		return nil, err
	}

	for _, t := range validTasks {
		s.emit(t, domain.EventTaskCreated, int64Ptr(t.CreatorID), nil, now)
	}

	return &domain.BulkTaskResponse{
		SuccessCount: len(validTasks),
		FailureCount: len(dtos.Tasks) - len(validTasks),
		Tasks:        domain.ToResponses(validTasks),
		Errors:       taskErrorMessages,
	}, nil
}

func (s *TaskService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		s.logger.Debug().Err(err).Str("task_id", id.String()).Msg("failed to get task")
		return nil, err
	}
	return task, nil
}

func (s *TaskService) List(ctx context.Context) ([]*domain.Task, error) {
	return s.repo.FindAll(ctx, domain.Predicate{})
}

func (s *TaskService) FindByAssignee(ctx context.Context, assigneeID int64) ([]*domain.Task, error) {
	return s.repo.FindAll(ctx, domain.FieldEquals(domain.FieldAssigneeID, assigneeID))
}

func (s *TaskService) FindByCreator(ctx context.Context, creatorID int64) ([]*domain.Task, error) {
	return s.repo.FindAll(ctx, domain.FieldEquals(domain.FieldCreatorID, creatorID))
}

func (s *TaskService) FindByProperty(ctx context.Context, propertyID int64) ([]*domain.Task, error) {
	return s.repo.FindAll(ctx, domain.FieldEquals(domain.FieldPropertyID, propertyID))
}

func (s *TaskService) FindByStatus(ctx context.Context, raw string) ([]*domain.Task, error) {
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return s.repo.FindAll(ctx, domain.FieldEquals(domain.FieldStatus, string(status)))
}

func (s *TaskService) FindByPriority(ctx context.Context, raw string) ([]*domain.Task, error) {
	priority, err := domain.ParsePriority(raw)
	if err != nil {
		return nil, err
	}
	return s.repo.FindAll(ctx, domain.FieldEquals(domain.FieldPriority, string(priority)))
}

// Search validates every filter before the repository is touched.
func (s *TaskService) Search(ctx context.Context, params domain.SearchParams) ([]*domain.Task, error) {
	predicate, err := domain.BuildSearchPredicate(params)
	if err != nil {
		return nil, err
	}
	return s.repo.FindAll(ctx, predicate)
}

// FindOverdue is a pure read; it never moves tasks to OVERDUE.
func (s *TaskService) FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	return s.repo.FindAll(ctx, domain.OverduePredicate(now))
}

// ReportOverdue emits TASK_OVERDUE for a task without changing it. It
// reports false when the task is not overdue at now or the event was not
// accepted, so the caller may retry later.
func (s *TaskService) ReportOverdue(task *domain.Task, now time.Time) bool {
	if !task.IsOverdue(now) {
		return false
	}
	reason := fmt.Sprintf("task is overdue, due date: %s", task.DueDate.UTC().Format(time.RFC3339))
	return s.emit(task, domain.EventTaskOverdue, task.AssigneeID, &reason, now)
}

func (s *TaskService) Assign(ctx context.Context, id uuid.UUID, assigneeID *int64) (*domain.Task, error) {
	task, err := s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Assign(assigneeID)
	})
	if err != nil {
		return nil, err
	}

	s.emit(task, domain.EventTaskAssigned, task.AssigneeID, nil, time.Now())
	s.logger.Info().Str("task_id", id.String()).Int64("assignee_id", *task.AssigneeID).Msg("task assigned")
	return task, nil
}

func (s *TaskService) Start(ctx context.Context, id uuid.UUID, userID *int64) (*domain.Task, error) {
	task, err := s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Start(userID)
	})
	if err != nil {
		return nil, err
	}

	s.emit(task, domain.EventTaskStarted, userID, nil, time.Now())
	return task, nil
}

func (s *TaskService) Complete(ctx context.Context, id uuid.UUID, userID *int64, now time.Time) (*domain.Task, error) {
	task, err := s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Complete(userID, now)
	})
	if err != nil {
		return nil, err
	}

	s.emit(task, domain.EventTaskCompleted, userID, nil, now)
	return task, nil
}

// Cancel does not persist reason; it only travels on the emitted event.
func (s *TaskService) Cancel(ctx context.Context, id uuid.UUID, reason *string) (*domain.Task, error) {
	task, err := s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Cancel()
	})
	if err != nil {
		return nil, err
	}

	s.emit(task, domain.EventTaskCanceled, int64Ptr(task.CreatorID), reason, time.Now())

	logEvent := s.logger.Info().Str("task_id", id.String())
	if reason != nil {
		logEvent = logEvent.Str("reason", *reason)
	}
	logEvent.Msg("task canceled")
	return task, nil
}

func (s *TaskService) Escalate(ctx context.Context, id uuid.UUID, escalatedTo *int64) (*domain.Task, error) {
	task, err := s.mutate(ctx, id, func(t *domain.Task) error {
		return t.Escalate(escalatedTo)
	})
	if err != nil {
		return nil, err
	}

	s.emit(task, domain.EventTaskEscalated, escalatedTo, nil, time.Now())
	s.logger.Info().
		Str("task_id", id.String()).
		Int64("escalated_to", *escalatedTo).
		Int("escalation_level", task.EscalationLevel).
		Msg("task escalated")
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, id uuid.UUID, dto domain.UpdateTaskDTO) (*domain.Task, error) {
	now := time.Now()
	task, err := s.mutate(ctx, id, func(t *domain.Task) error {
		return t.ApplyUpdate(dto, now)
	})
	if err != nil {
		return nil, err
	}

	s.emit(task, domain.EventTaskUpdated, int64Ptr(task.CreatorID), nil, now)
	return task, nil
}

func (s *TaskService) UpdatePriority(ctx context.Context, id uuid.UUID, priority string) (*domain.Task, error) {
	return s.Update(ctx, id, domain.UpdateTaskDTO{Priority: &priority})
}

func (s *TaskService) UpdateDueDate(ctx context.Context, id uuid.UUID, dueDate time.Time) (*domain.Task, error) {
	return s.Update(ctx, id, domain.UpdateTaskDTO{DueDate: &dueDate})
}

// Delete removes a COMPLETED or CANCELED task. No event type exists for
// deletion, so nothing is emitted.
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.WithinTx(ctx, func(repo domain.TaskRepository) error {
		task, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := domain.ValidateDelete(task); err != nil {
			return err
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("task_id", id.String()).Msg("task deleted")
	return nil
}

func (s *TaskService) GetMetrics(ctx context.Context) (*domain.TaskMetrics, error) {
	return s.repo.GetMetrics(ctx)
}

// mutate is the read-validate-mutate-persist unit shared by every lifecycle
// operation.
func (s *TaskService) mutate(ctx context.Context, id uuid.UUID, apply func(t *domain.Task) error) (*domain.Task, error) {
	var result *domain.Task

	err := s.repo.WithinTx(ctx, func(repo domain.TaskRepository) error {
		task, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(task); err != nil {
			return err
		}
		if err := repo.Update(ctx, task); err != nil {
			return err
		}
		result = task
		return nil
	})
	if err != nil {
		s.logger.Debug().Err(err).Str("task_id", id.String()).Msg("task operation rejected")
		return nil, err
	}

	return result, nil
}

func (s *TaskService) emit(task *domain.Task, eventType domain.EventType, userID *int64, reason *string, now time.Time) bool {
	if s.events == nil {
		return false
	}
	return s.events.Emit(domain.NewTaskEvent(task, eventType, userID, reason, now))
}

func int64Ptr(v int64) *int64 {
	return &v
}
