package scheduler

import (
	"context"
	"fmt"
	"time"

	"maintenance-task-service/internal/domain"

	"github.com/rs/zerolog"
)

const overdueLockName = "overdue-scan"

// OverdueSource finds overdue tasks and reports them. TaskService
// satisfies it. ReportOverdue returns false when the event was not accepted.
type OverdueSource interface {
	FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error)
	ReportOverdue(task *domain.Task, now time.Time) bool
}

// Guard serializes scans across worker instances and remembers which tasks
// were already reported.
type Guard interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, name, token string) error
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

type OverdueConfig struct {
	Interval time.Duration
	DedupTTL time.Duration
	LockTTL  time.Duration
}

// OverdueScanner periodically emits TASK_OVERDUE for open tasks past their
// due date. Each task is reported once per due date.
type OverdueScanner struct {
	source OverdueSource
	guard  Guard
	config OverdueConfig
	logger zerolog.Logger
	now    func() time.Time
}

func NewOverdueScanner(source OverdueSource, guard Guard, config OverdueConfig, logger zerolog.Logger) *OverdueScanner {
	if config.Interval <= 0 {
		config.Interval = time.Minute
	}
	if config.DedupTTL <= 0 {
		config.DedupTTL = 24 * time.Hour
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Second
	}

	return &OverdueScanner{
		source: source,
		guard:  guard,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Run scans on every tick until ctx is canceled.
func (s *OverdueScanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.config.Interval).Msg("overdue scanner started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("overdue scanner stopped")
			return
		case <-ticker.C:
			if _, err := s.ScanOnce(ctx, s.now()); err != nil {
				s.logger.Error().Err(err).Msg("overdue scan failed")
			}
		}
	}
}

// ScanOnce reports every newly overdue task and returns how many were
// reported. It does nothing when another instance holds the scan lock.
func (s *OverdueScanner) ScanOnce(ctx context.Context, now time.Time) (int, error) {
	token, acquired, err := s.guard.AcquireLock(ctx, overdueLockName, s.config.LockTTL)
	if err != nil {
		return 0, fmt.Errorf("acquire overdue lock: %w", err)
	}
	if !acquired {
		s.logger.Debug().Msg("overdue scan already running elsewhere")
		return 0, nil
	}
	defer func() {
		if err := s.guard.ReleaseLock(context.Background(), overdueLockName, token); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release overdue lock")
		}
	}()

	tasks, err := s.source.FindOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	reported := 0
	for _, task := range tasks {
		key := overdueKey(task)
		first, err := s.guard.MarkOnce(ctx, key, s.config.DedupTTL)
		if err != nil {
			s.logger.Warn().Err(err).Str("task_id", task.ID.String()).Msg("skipping overdue task")
			continue
		}
		if !first {
			continue
		}

		// unmark so the next scan retries
		if !s.source.ReportOverdue(task, now) {
			if err := s.guard.Forget(ctx, key); err != nil {
				s.logger.Error().Err(err).Str("task_id", task.ID.String()).Msg("failed to clear overdue marker")
			}
			continue
		}
		reported++
	}

	if reported > 0 {
		s.logger.Info().Int("reported", reported).Int("overdue", len(tasks)).Msg("overdue tasks reported")
	}
	return reported, nil
}

// a new due date produces a new key, so a rescheduled task is reported again
func overdueKey(task *domain.Task) string {
	var due int64
	if task.DueDate != nil {
		due = task.DueDate.Unix()
	}
	return fmt.Sprintf("overdue:%s:%d", task.ID, due)
}
