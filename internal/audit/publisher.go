package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Publisher hands events to the worker through a bounded channel. Emit never
// blocks the caller: when the buffer is full the event is dropped and logged.
type Publisher struct {
	inbox chan<- Event
	log   *slog.Logger
}

func NewPublisher(inbox chan<- Event, log *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, log: log}
}

// Emit queues an event, stamping ID and timestamp when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.log.Warn("audit buffer full, dropping event",
			"action", event.Action, "did", event.DID)
	}
}
