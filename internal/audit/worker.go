package audit

import (
	"context"
	"log/slog"
)

// Worker drains the event channel into the store. It keeps background
// processing testable without wiring queue implementations.
type Worker struct {
	store Store
	inbox <-chan Event
	log   *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, log *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, log: log}
}

// Run consumes until the context is cancelled. Append failures are logged,
// not fatal; losing an audit row must not take the service down.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.log.Error("audit append failed",
					"action", event.Action, "did", event.DID, "err", err)
			}
		}
	}
}
