package store

import (
	"context"

	"storefront/internal/models"

	"github.com/google/uuid"
)

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, order_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	return s.get(ctx, &n.CreatedAt, query, n.ID, n.UserID, n.Type, n.Title, n.Message, n.OrderID)
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	query := "SELECT * FROM notifications WHERE user_id = $1"
	if unreadOnly {
		query += " AND NOT is_read"
	}
	query += " ORDER BY created_at DESC LIMIT 100"

	var notifications []models.Notification
	err := s.selectAll(ctx, &notifications, query, userID)
	return notifications, err
}

func (s *Store) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.get(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read", userID)
	return count, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.execOne(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2", id, userID)
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	return s.exec(ctx,
		"UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read", userID)
}
