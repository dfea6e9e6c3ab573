package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"maintenance-task-service/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var scanTime = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu       sync.Mutex
	tasks    []*domain.Task
	err      error
	full     bool
	onFind   func()
	reported []uuid.UUID
}

func (f *fakeSource) FindOverdue(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	if f.onFind != nil {
		f.onFind()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks, nil
}

func (f *fakeSource) ReportOverdue(task *domain.Task, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.reported = append(f.reported, task.ID)
	return true
}

func (f *fakeSource) setFull(full bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.full = full
}

func (f *fakeSource) reportedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reported)
}

// fakeGuard mirrors RedisStore: a lock is released only by its token.
type fakeGuard struct {
	mu       sync.Mutex
	holder   string
	issued   int
	marks    map[string]bool
	released int
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{marks: make(map[string]bool)}
}

func (g *fakeGuard) locked() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.holder != ""
}

// takeOver simulates the lock expiring and another instance acquiring it.
func (g *fakeGuard) takeOver(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holder = token
}

func (g *fakeGuard) AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holder != "" {
		return "", false, nil
	}
	g.issued++
	g.holder = fmt.Sprintf("token-%d", g.issued)
	return g.holder, true, nil
}

func (g *fakeGuard) ReleaseLock(ctx context.Context, name, token string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holder == token {
		g.holder = ""
		g.released++
	}
	return nil
}

func (g *fakeGuard) Forget(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.marks, key)
	return nil
}

func (g *fakeGuard) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.marks[key] {
		return false, nil
	}
	g.marks[key] = true
	return true, nil
}

func overdueTask(due time.Time) *domain.Task {
	return &domain.Task{
		ID:      uuid.New(),
		Title:   "Service lift",
		Status:  domain.TaskStatusAssigned,
		DueDate: &due,
	}
}

func TestScanOnceReportsEachTaskOnce(t *testing.T) {
	source := &fakeSource{tasks: []*domain.Task{
		overdueTask(scanTime.Add(-time.Hour)),
		overdueTask(scanTime.Add(-2 * time.Hour)),
	}}
	guard := newFakeGuard()
	scanner := NewOverdueScanner(source, guard, OverdueConfig{}, zerolog.Nop())

	n, err := scanner.ScanOnce(context.Background(), scanTime)
	if err != nil {
		t.Fatalf("ScanOnce() error = %v", err)
	}
	if n != 2 {
		t.Errorf("got %d reported, want 2", n)
	}

	n, err = scanner.ScanOnce(context.Background(), scanTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("second ScanOnce() error = %v", err)
	}
	if n != 0 {
		t.Errorf("got %d reported on second scan, want 0", n)
	}
	if source.reportedCount() != 2 {
		t.Errorf("got %d total reports, want 2", source.reportedCount())
	}
	if guard.released != 2 {
		t.Errorf("got %d lock releases, want 2", guard.released)
	}
}

func TestScanOnceReportsAgainAfterNewDueDate(t *testing.T) {
	task := overdueTask(scanTime.Add(-time.Hour))
	source := &fakeSource{tasks: []*domain.Task{task}}
	scanner := NewOverdueScanner(source, newFakeGuard(), OverdueConfig{}, zerolog.Nop())

	if _, err := scanner.ScanOnce(context.Background(), scanTime); err != nil {
		t.Fatalf("ScanOnce() error = %v", err)
	}

	rescheduled := scanTime.Add(-time.Minute)
	task.DueDate = &rescheduled
	n, err := scanner.ScanOnce(context.Background(), scanTime)
	if err != nil {
		t.Fatalf("ScanOnce() error = %v", err)
	}
	if n != 1 {
		t.Errorf("got %d reported after due date change, want 1", n)
	}
}

func TestScanOnceSkipsWhenLocked(t *testing.T) {
	source := &fakeSource{tasks: []*domain.Task{overdueTask(scanTime.Add(-time.Hour))}}
	guard := newFakeGuard()
	guard.takeOver("other-instance")
	scanner := NewOverdueScanner(source, guard, OverdueConfig{}, zerolog.Nop())

	n, err := scanner.ScanOnce(context.Background(), scanTime)
	if err != nil {
		t.Fatalf("ScanOnce() error = %v", err)
	}
	if n != 0 || source.reportedCount() != 0 {
		t.Errorf("got %d reported while locked, want 0", n)
	}
	if guard.released != 0 {
		t.Error("released a lock it did not hold")
	}
}

func TestScanOnceRetriesRejectedReport(t *testing.T) {
	source := &fakeSource{tasks: []*domain.Task{overdueTask(scanTime.Add(-time.Hour))}, full: true}
	scanner := NewOverdueScanner(source, newFakeGuard(), OverdueConfig{}, zerolog.Nop())

	n, err := scanner.ScanOnce(context.Background(), scanTime)
	if err != nil {
		t.Fatalf("ScanOnce() error = %v", err)
	}
	if n != 0 {
		t.Errorf("got %d reported while the emitter was full, want 0", n)
	}

	source.setFull(false)
	n, err = scanner.ScanOnce(context.Background(), scanTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("second ScanOnce() error = %v", err)
	}
	if n != 1 || source.reportedCount() != 1 {
		t.Errorf("got %d reported on retry, want 1", n)
	}
}

func TestScanOnceKeepsLockTakenOverByAnotherInstance(t *testing.T) {
	guard := newFakeGuard()
	source := &fakeSource{}
	source.onFind = func() { guard.takeOver("other-instance") }
	scanner := NewOverdueScanner(source, guard, OverdueConfig{}, zerolog.Nop())

	if _, err := scanner.ScanOnce(context.Background(), scanTime); err != nil {
		t.Fatalf("ScanOnce() error = %v", err)
	}
	if guard.holder != "other-instance" {
		t.Errorf("got lock holder %q, want other-instance", guard.holder)
	}
	if guard.released != 0 {
		t.Errorf("got %d releases, want 0", guard.released)
	}
}

func TestScanOncePropagatesFindError(t *testing.T) {
	boom := errors.New("db down")
	guard := newFakeGuard()
	scanner := NewOverdueScanner(&fakeSource{err: boom}, guard, OverdueConfig{}, zerolog.Nop())

	if _, err := scanner.ScanOnce(context.Background(), scanTime); !errors.Is(err, boom) {
		t.Errorf("got %v, want db down", err)
	}
	if guard.locked() {
		t.Error("lock not released after failure")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &fakeSource{tasks: []*domain.Task{overdueTask(scanTime.Add(-time.Hour))}}
	scanner := NewOverdueScanner(source, newFakeGuard(), OverdueConfig{Interval: 10 * time.Millisecond}, zerolog.Nop())
	scanner.now = func() time.Time { return scanTime }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		scanner.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for source.reportedCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("scanner never reported the overdue task")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if source.reportedCount() != 1 {
		t.Errorf("got %d reports, want 1", source.reportedCount())
	}
}
