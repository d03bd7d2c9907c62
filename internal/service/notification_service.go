package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/email"
	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService stores in-app notifications, pushes them to live
// connections and emails buyers about their orders.
type NotificationService struct {
	repo   models.Repository
	pusher Pusher
	mailer email.Sender
	logger *zap.Logger
}

func NewNotificationService(repo models.Repository, pusher Pusher, mailer email.Sender) *NotificationService {
	return &NotificationService{
		repo:   repo,
		pusher: pusher,
		mailer: mailer,
		logger: util.GetLogger(),
	}
}

// Notify persists a notification for userID and pushes it.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, kind, title, message string, orderID *uuid.UUID) (*models.Notification, error) {
	n := &models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		OrderID: orderID,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pusher != nil {
		s.pusher.Push(userID, n)
	}
	util.NotificationsSentTotal.WithLabelValues(kind).Inc()
	return n, nil
}

// NotifyOrderPlaced tells the buyer about a new order and, once it is
// confirmed, each seller whose products it contains.
func (s *NotificationService) NotifyOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.NotifyOrderPlaced")
	defer span.End()

	orderID := event.OrderID
	title := "Order " + event.OrderNumber + " placed"
	message := fmt.Sprintf("We received your order of %s.", event.TotalPrice.StringFixed(2))
	if event.Status == models.OrderStatusPending {
		message += " It will be confirmed once payment completes."
	}
	if _, err := s.Notify(ctx, event.UserID, models.NotificationOrderPlaced, title, message, &orderID); err != nil {
		return util.RecordError(span, err)
	}

	if event.Status == models.OrderStatusProcessing {
		if err := s.notifySellers(ctx, event.OrderNumber, orderID, event.Items, "New order", "has products of yours"); err != nil {
			return util.RecordError(span, err)
		}
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		s.logger.Warn("Skipping order email, order not loaded", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil
	}
	s.emailBuyer(ctx, event.UserID, func(u *models.User) (email.Message, error) {
		return email.OrderPlaced(u.Email, u.FullName(), order)
	})
	return nil
}

// NotifyOrderStatusChanged tells the buyer about a transition. Sellers hear
// about payments settling and cancellations.
func (s *NotificationService) NotifyOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "NotificationService.NotifyOrderStatusChanged")
	defer span.End()

	orderID := event.OrderID
	title := "Order " + event.OrderNumber + " is " + string(event.To)
	message := fmt.Sprintf("Your order moved from %s to %s.", event.From, event.To)
	if event.Note != "" {
		message += " " + event.Note
	}
	if _, err := s.Notify(ctx, event.UserID, models.NotificationOrderStatus, title, message, &orderID); err != nil {
		return util.RecordError(span, err)
	}

	switch event.To {
	case models.OrderStatusProcessing:
		if err := s.notifySellers(ctx, event.OrderNumber, orderID, event.Items, "New order", "was paid and has products of yours"); err != nil {
			return util.RecordError(span, err)
		}
	case models.OrderStatusCancelled:
		if err := s.notifySellers(ctx, event.OrderNumber, orderID, event.Items, "Order cancelled", "was cancelled"); err != nil {
			return util.RecordError(span, err)
		}
	}

	s.emailBuyer(ctx, event.UserID, func(u *models.User) (email.Message, error) {
		return email.OrderStatusChanged(u.Email, u.FullName(), event.OrderNumber, event.To, event.Note)
	})
	return nil
}

func (s *NotificationService) notifySellers(ctx context.Context, orderNumber string, orderID uuid.UUID, items []models.OrderItemData, title, what string) error {
	seen := make(map[uuid.UUID]bool)
	for _, item := range items {
		if seen[item.SellerID] {
			continue
		}
		seen[item.SellerID] = true

		message := fmt.Sprintf("Order %s %s.", orderNumber, what)
		if _, err := s.Notify(ctx, item.SellerID, models.NotificationNewSellerSale, title, message, &orderID); err != nil {
			return err
		}
	}
	return nil
}

// emailBuyer sends best effort; a mail outage never fails event handling.
func (s *NotificationService) emailBuyer(ctx context.Context, userID uuid.UUID, build func(*models.User) (email.Message, error)) {
	if s.mailer == nil {
		return
	}
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Skipping email, user not loaded", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	msg, err := build(user)
	if err != nil {
		s.logger.Error("Failed to render email", zap.Error(err))
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send email",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
	}
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.ListNotifications(ctx, userID, unreadOnly)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnreadNotifications(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	err := s.repo.MarkNotificationRead(ctx, id, userID)
	if errors.Is(err, models.ErrNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllNotificationsRead(ctx, userID)
}
