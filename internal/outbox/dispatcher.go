// Package outbox delivers messages written by order transactions: the
// confirmation email and order events. Delivery is at-least-once.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/01moynul/storefront-golang/internal/email"
	"github.com/01moynul/storefront-golang/internal/events"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/rs/zerolog"
)

const (
	DefaultBatchSize = 20
	MaxAttempts      = 8
	baseBackoff      = 10 * time.Second
	maxBackoff       = 30 * time.Minute
)

// Store is the persistence the dispatcher needs.
type Store interface {
	ClaimOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, id string) error
	MarkOutboxRetry(ctx context.Context, id string, next time.Time, cause string) error
	MarkOutboxFailed(ctx context.Context, id string, cause string) error
}

type Dispatcher struct {
	store     Store
	mailer    email.Sender
	publisher events.Publisher
	log       zerolog.Logger
	batchSize int
	now       func() time.Time
}

func NewDispatcher(store Store, mailer email.Sender, publisher events.Publisher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		mailer:    mailer,
		publisher: publisher,
		log:       log.With().Str("component", "outbox").Logger(),
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
}

// Run dispatches due messages every interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.log.Info().Dur("interval", interval).Msg("outbox dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
				d.log.Error().Err(err).Msg("outbox dispatch failed")
			}
		}
	}
}

// DispatchOnce claims one batch and delivers it. It returns how many messages
// were delivered.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	msgs, err := d.store.ClaimOutbox(ctx, d.batchSize)
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}

	sent := 0
	for _, m := range msgs {
		if err := d.deliver(ctx, m); err != nil {
			d.fail(ctx, m, err)
			continue
		}
		if err := d.store.MarkOutboxSent(ctx, m.ID); err != nil {
			d.log.Error().Err(err).Str("id", m.ID).Msg("mark outbox message sent")
			continue
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) deliver(ctx context.Context, m models.OutboxMessage) error {
	switch m.Kind {
	case models.OutboxOrderConfirmationEmail:
		var p models.OrderEmailPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("decode email payload: %w", err)
		}
		return d.mailer.Send(ctx, email.OrderConfirmation(p))
	case models.OutboxOrderEvent:
		var p models.OrderEventPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			return fmt.Errorf("decode event payload: %w", err)
		}
		return d.publisher.Publish(ctx, p)
	default:
		return fmt.Errorf("unknown outbox kind %q", m.Kind)
	}
}

func (d *Dispatcher) fail(ctx context.Context, m models.OutboxMessage, cause error) {
	attempt := m.Attempts + 1
	logEvt := d.log.Warn().Err(cause).Str("id", m.ID).Str("kind", m.Kind).Int("attempt", attempt)

	if attempt >= MaxAttempts {
		logEvt.Msg("outbox message gave up")
		if err := d.store.MarkOutboxFailed(ctx, m.ID, cause.Error()); err != nil {
			d.log.Error().Err(err).Str("id", m.ID).Msg("mark outbox message failed")
		}
		return
	}

	next := d.now().Add(Backoff(attempt))
	logEvt.Time("next_attempt_at", next).Msg("outbox delivery failed")
	if err := d.store.MarkOutboxRetry(ctx, m.ID, next, cause.Error()); err != nil {
		d.log.Error().Err(err).Str("id", m.ID).Msg("schedule outbox retry")
	}
}

// Backoff is the delay before retry number attempt (1-based): 10s doubling,
// capped at 30m.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
