package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/01moynul/storefront-golang/internal/models"
)

// addNotification creates a notification inside the caller's transaction.
func addNotification(ctx context.Context, tx *sql.Tx, userID int64, message, link string, now time.Time) error {
	var nullLink sql.NullString
	if link != "" {
		nullLink = sql.NullString{String: link, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (user_id, message, link, is_read, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		userID, message, nullLink, now)
	if err != nil {
		return fmt.Errorf("failed to add notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's notifications, unread and newest first.
func (s *Store) ListNotifications(ctx context.Context, userID int64) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, message, link, is_read, created_at
		FROM notifications
		WHERE user_id = ?
		ORDER BY is_read ASC, created_at DESC
		LIMIT 50`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks one of the user's notifications as read.
// Another user's notification is reported as not found.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	var owner int64
	err := s.db.QueryRowContext(ctx, "SELECT user_id FROM notifications WHERE id = ?", notificationID).Scan(&owner)
	if err == sql.ErrNoRows || (err == nil && owner != userID) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?", notificationID, userID)
	return err
}
