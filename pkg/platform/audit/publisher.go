package audit

import (
	"log/slog"
	"time"
)

// Publisher hands events to the worker without blocking the caller. When the
// buffer is full the event is dropped and counted in the log; the audit trail
// is best-effort by contract, badge operations never wait on it.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewPublisher(buffer int, logger *slog.Logger) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &Publisher{
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Inbox exposes the channel the worker consumes.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}

func (p *Publisher) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action, "badge_id", event.BadgeID)
	}
}
