package notifier

import "github.com/rs/zerolog"

func NewNotifierRegistry(store InboxStore, inboxLimit int64, logger zerolog.Logger) *Registry {
	r := NewRegistry(logger)

	r.Register(NewLogNotifier(logger))
	r.Register(NewInboxNotifier(store, inboxLimit))

	return r
}
