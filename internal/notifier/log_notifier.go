package notifier

import (
	"context"

	"maintenance-task-service/internal/domain"

	"github.com/rs/zerolog"
)

// LogNotifier writes an audit line for every event it receives.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string {
	return "audit_log"
}

func (n *LogNotifier) Notify(ctx context.Context, event domain.TaskEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logEvent := n.logger.Info().
		Str("event_id", event.EventID.String()).
		Str("event_type", string(event.EventType)).
		Str("task_id", event.TaskID.String()).
		Time("timestamp", event.Timestamp)
	if event.UserID != nil {
		logEvent = logEvent.Int64("user_id", *event.UserID)
	}
	if event.Reason != nil {
		logEvent = logEvent.Str("reason", *event.Reason)
	}
	logEvent.Msg(event.Description)
	return nil
}
