package eventbus

import (
	"context"
	"log"

	"github.com/matthewbaird/landbank/internal/event"
)

// LogConsumer logs all domain events for observability. Records excluded
// from ranking surface here, not in ranked output.
type LogConsumer struct{}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	if evt.PropertyID != "" {
		log.Printf("event: %s property=%s: %s", evt.EventType, evt.PropertyID, evt.Summary)
		return nil
	}
	log.Printf("event: %s: %s", evt.EventType, evt.Summary)
	return nil
}
