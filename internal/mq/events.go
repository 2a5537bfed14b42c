package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/inkpress/apiserver/types"
)

const publishTimeout = 5 * time.Second

// EventPublisher sends domain events to one channel in the background.
// Delivery failures are logged and never reach the caller.
type EventPublisher struct {
	mq      *MQ
	channel string
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewEventPublisher(m *MQ, channel string, logger *slog.Logger) *EventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{mq: m, channel: channel, logger: logger}
}

func (p *EventPublisher) Publish(ctx context.Context, event types.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("encode event", "type", event.Type, "id", event.ID, "err", err)
		return
	}
	attrs := map[string]string{
		"type":          event.Type,
		"entity":        event.Entity,
		AttrContentType: "application/json",
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if _, err := p.mq.Publish(ctx, p.channel, data, attrs); err != nil {
			p.logger.Warn("publish event failed", "type", event.Type, "id", event.ID, "err", err)
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (p *EventPublisher) Wait() {
	p.wg.Wait()
}

// DecodeEvent parses a message produced by EventPublisher.
func DecodeEvent(msg Message) (types.Event, error) {
	var event types.Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return types.Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return event, nil
}
