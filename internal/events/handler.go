// internal/events/handler.go
package events

import (
	"context"
)

// Handler consumes events of one subscribed type. Handle runs on the bus's
// dispatch goroutine, so it must return promptly; slow consumers buffer on
// their own side (the feed's per-client channels, the journal's driver).
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is the handle returned by Subscribe; Unsubscribe detaches the
// handler and is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}
