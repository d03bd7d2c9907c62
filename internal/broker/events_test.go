package broker

import (
	"context"
	"testing"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys   []string
	events []interface{}
}

func (r *recordingPublisher) PublishEvent(ctx context.Context, key string, event interface{}) error {
	r.keys = append(r.keys, key)
	r.events = append(r.events, event)
	return nil
}

func TestEventPublisherKeysByOrder(t *testing.T) {
	rec := &recordingPublisher{}
	pub := NewEventPublisher(rec)
	orderID := uuid.New()

	require.NoError(t, pub.PublishOrderPlaced(context.Background(), &models.OrderPlacedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:   orderID,
	}))
	require.NoError(t, pub.PublishOrderStatusChanged(context.Background(), &models.OrderStatusChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:   orderID,
	}))

	assert.Equal(t, []string{"order-" + orderID.String(), "order-" + orderID.String()}, rec.keys)
}

func TestInlinePublisherRoutesByType(t *testing.T) {
	handler := NewEventHandler()

	var placed *models.OrderPlacedEvent
	var changed *models.OrderStatusChangedEvent
	handler.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		placed = e
		return nil
	})
	handler.OnOrderStatusChanged(func(ctx context.Context, e *models.OrderStatusChangedEvent) error {
		changed = e
		return nil
	})

	pub := NewEventPublisher(NewInlinePublisher(handler))
	orderID := uuid.New()

	require.NoError(t, pub.PublishOrderPlaced(context.Background(), &models.OrderPlacedEvent{
		BaseEvent:  models.NewBaseEvent(models.EventTypeOrderPlaced),
		OrderID:    orderID,
		TotalPrice: decimal.RequireFromString("20.00"),
	}))
	require.NotNil(t, placed)
	assert.Equal(t, orderID, placed.OrderID)
	assert.True(t, placed.TotalPrice.Equal(decimal.NewFromInt(20)))
	assert.Nil(t, changed)

	require.NoError(t, pub.PublishOrderStatusChanged(context.Background(), &models.OrderStatusChangedEvent{
		BaseEvent: models.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:   orderID,
		From:      models.OrderStatusProcessing,
		To:        models.OrderStatusShipped,
	}))
	require.NotNil(t, changed)
	assert.Equal(t, models.OrderStatusShipped, changed.To)
}

func TestHandleMessageIgnoresUnknownTypes(t *testing.T) {
	handler := NewEventHandler()
	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)})
	assert.NoError(t, err)

	err = handler.HandleMessage(context.Background(), kafka.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
}
