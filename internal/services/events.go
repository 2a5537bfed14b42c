package services

import (
	"context"
	"time"

	"github.com/inkpress/apiserver/types"
)

// EventPublisher receives domain events after successful mutations.
// Implementations must not block the caller on delivery failures.
type EventPublisher interface {
	Publish(ctx context.Context, event types.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, types.Event) {}

func orNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func emit(ctx context.Context, p EventPublisher, entity, action string, id int, data any) {
	p.Publish(ctx, types.Event{
		Type:   entity + "." + action,
		Entity: entity,
		ID:     id,
		At:     time.Now().UTC(),
		Data:   data,
	})
}
