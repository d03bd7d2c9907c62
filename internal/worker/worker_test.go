package worker

import (
	"context"
	"testing"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineEventsReachNotifications(t *testing.T) {
	ctx := context.Background()
	repo := memstore.New()
	notifications := service.NewNotificationService(repo, nil, nil)
	publisher := broker.NewEventPublisher(broker.NewInlinePublisher(NewEventHandler(notifications)))

	buyer, seller := uuid.New(), uuid.New()
	err := publisher.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
		BaseEvent:   models.NewBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:     uuid.New(),
		OrderNumber: "ORD-20260101-ABCDEF",
		UserID:      buyer,
		From:        models.OrderStatusProcessing,
		To:          models.OrderStatusCancelled,
		Items: []models.OrderItemData{
			{ProductID: uuid.New(), SellerID: seller, Quantity: 1},
			{ProductID: uuid.New(), SellerID: seller, Quantity: 2},
		},
	})
	require.NoError(t, err)

	mine, err := notifications.List(ctx, buyer, false)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Contains(t, mine[0].Title, "Cancelled")

	theirs, err := notifications.List(ctx, seller, false)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestInlineWorkerStopsWithContext(t *testing.T) {
	w := NewNotificationWorker(nil, broker.NewEventHandler())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.NoError(t, w.Stop())
}
