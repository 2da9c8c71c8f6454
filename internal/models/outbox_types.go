package models

import (
	"encoding/json"
	"time"
)

// Outbox message kinds.
const (
	OutboxOrderConfirmationEmail = "order_confirmation_email"
	OutboxOrderEvent             = "order_event"
)

// OutboxMessage is the model for the 'outbox_messages' table. Rows are written
// in the same transaction as the change they describe and delivered later.
type OutboxMessage struct {
	ID            string          `json:"id" db:"id"`
	Kind          string          `json:"kind" db:"kind"`
	Payload       json.RawMessage `json:"payload" db:"payload"`
	Attempts      int             `json:"attempts" db:"attempts"`
	NextAttemptAt time.Time       `json:"nextAttemptAt" db:"next_attempt_at"`
	SentAt        *time.Time      `json:"sentAt,omitempty" db:"sent_at"`
	FailedAt      *time.Time      `json:"failedAt,omitempty" db:"failed_at"`
	LastError     *string         `json:"lastError,omitempty" db:"last_error"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}

// OrderEmailPayload is the payload of an order confirmation email message.
type OrderEmailPayload struct {
	OrderID int64       `json:"orderId"`
	To      string      `json:"to"`
	Name    string      `json:"name"`
	Total   float64     `json:"total"`
	Items   []OrderItem `json:"items"`
}

// OrderEventPayload is the payload of an order lifecycle event.
type OrderEventPayload struct {
	Type        string    `json:"type"` // order.created, order.status_changed, order.paid
	OrderID     int64     `json:"orderId"`
	UserID      int64     `json:"userId"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"totalAmount"`
	OccurredAt  time.Time `json:"occurredAt"`
}
