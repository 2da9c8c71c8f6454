package store

import (
	"context"
	"fmt"

	"github.com/01moynul/storefront-golang/internal/models"
)

// SaveAssistantMessage records one assistant exchange.
func (s *Store) SaveAssistantMessage(ctx context.Context, m *models.AssistantMessage) error {
	m.CreatedAt = s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO assistant_messages (user_id, user_message, reply, tokens_used, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.UserID, m.UserMessage, m.Reply, m.TokensUsed, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("save assistant message: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

// ListAssistantMessages returns the user's most recent exchanges, newest first.
func (s *Store) ListAssistantMessages(ctx context.Context, userID int64, limit int) ([]models.AssistantMessage, error) {
	limit = PageSize(limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, user_message, reply, tokens_used, created_at
		FROM assistant_messages
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AssistantMessage{}
	for rows.Next() {
		var m models.AssistantMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.UserMessage, &m.Reply, &m.TokensUsed, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
