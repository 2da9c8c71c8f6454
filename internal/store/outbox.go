package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/google/uuid"
)

// OutboxLease is how long a claimed message stays invisible to other claimers.
const OutboxLease = 2 * time.Minute

// enqueueOutbox writes a message in the caller's transaction so it commits or
// rolls back together with the change it describes.
func enqueueOutbox(ctx context.Context, tx *sql.Tx, kind string, payload any, now time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode outbox payload: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (id, kind, payload, attempts, next_attempt_at, created_at)
		VALUES (?, ?, ?, 0, ?, ?)`,
		uuid.NewString(), kind, body, now, now)
	if err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}

// ClaimOutbox returns up to limit due messages and pushes their next attempt
// past the lease so concurrent dispatchers skip them.
func (s *Store) ClaimOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	var claimed []models.OutboxMessage

	err := s.execTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		rows, err := tx.QueryContext(ctx, `
			SELECT id, kind, payload, attempts, next_attempt_at, created_at
			FROM outbox_messages
			WHERE sent_at IS NULL AND failed_at IS NULL AND next_attempt_at <= ?
			ORDER BY created_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED`, now, limit)
		if err != nil {
			return fmt.Errorf("query outbox: %w", err)
		}

		for rows.Next() {
			var m models.OutboxMessage
			var payload []byte
			if err := rows.Scan(&m.ID, &m.Kind, &payload, &m.Attempts, &m.NextAttemptAt, &m.CreatedAt); err != nil {
				rows.Close()
				return err
			}
			m.Payload = json.RawMessage(payload)
			claimed = append(claimed, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		lease := now.Add(OutboxLease)
		for _, m := range claimed {
			if _, err := tx.ExecContext(ctx,
				"UPDATE outbox_messages SET next_attempt_at = ? WHERE id = ?", lease, m.ID); err != nil {
				return fmt.Errorf("lease outbox message: %w", err)
			}
		}
		return nil
	})
	return claimed, err
}

// MarkOutboxSent records a successful delivery.
func (s *Store) MarkOutboxSent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE outbox_messages SET sent_at = ?, attempts = attempts + 1, last_error = NULL WHERE id = ?",
		s.now(), id)
	return err
}

// MarkOutboxRetry records a failed delivery that will be retried at next.
func (s *Store) MarkOutboxRetry(ctx context.Context, id string, next time.Time, cause string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE outbox_messages SET attempts = attempts + 1, next_attempt_at = ?, last_error = ? WHERE id = ?",
		next, cause, id)
	return err
}

// MarkOutboxFailed gives up on a message after its final attempt.
func (s *Store) MarkOutboxFailed(ctx context.Context, id string, cause string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE outbox_messages SET attempts = attempts + 1, failed_at = ?, last_error = ? WHERE id = ?",
		s.now(), cause, id)
	return err
}
