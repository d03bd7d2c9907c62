package broker

import (
	"context"
	"encoding/json"
	"fmt"
)

// InlinePublisher hands events straight to an EventHandler in-process. It is
// used when Kafka is disabled; events go through the same JSON encoding so
// handlers see identical payloads.
type InlinePublisher struct {
	handler *EventHandler
}

func NewInlinePublisher(handler *EventHandler) *InlinePublisher {
	return &InlinePublisher{handler: handler}
}

func (p *InlinePublisher) PublishEvent(ctx context.Context, key string, event interface{}) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return p.handler.Dispatch(ctx, raw)
}
