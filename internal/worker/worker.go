package worker

import (
	"context"

	"storefront/internal/broker"
	"storefront/internal/service"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker turns order events into user notifications
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewEventHandler routes order events to the notification service.
func NewEventHandler(notifications *service.NotificationService) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderPlaced(notifications.NotifyOrderPlaced)
	eventHandler.OnOrderStatusChanged(notifications.NotifyOrderStatusChanged)
	return eventHandler
}

// NewNotificationWorker creates a worker reading from consumer. The consumer
// may be nil when events are dispatched inline; Start then only waits for ctx.
func NewNotificationWorker(consumer *broker.Consumer, eventHandler *broker.EventHandler) *NotificationWorker {
	return &NotificationWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks until ctx is done or the consumer fails
func (w *NotificationWorker) Start(ctx context.Context) error {
	if w.consumer == nil {
		w.logger.Info("Notification worker running inline")
		<-ctx.Done()
		return ctx.Err()
	}
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	if w.consumer == nil {
		return nil
	}
	return w.consumer.Close()
}
