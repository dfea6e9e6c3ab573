package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"maintenance-task-service/internal/domain"
)

type InboxStore interface {
	PushInbox(ctx context.Context, userID int64, payload []byte, limit int64) error
}

// InboxNotifier stores the event in the inbox of the user it concerns.
type InboxNotifier struct {
	store InboxStore
	limit int64
}

func NewInboxNotifier(store InboxStore, limit int64) *InboxNotifier {
	if limit <= 0 {
		limit = 100
	}
	return &InboxNotifier{
		store: store,
		limit: limit,
	}
}

func (n *InboxNotifier) Name() string {
	return "user_inbox"
}

func (n *InboxNotifier) Notify(ctx context.Context, event domain.TaskEvent) error {
	if event.UserID == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	return n.store.PushInbox(ctx, *event.UserID, payload, n.limit)
}
