// Package sweeper cancels orders that stayed pending and unpaid past a
// deadline, returning their stock to the catalog.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/01moynul/storefront-golang/internal/store"
	"github.com/rs/zerolog"
)

const batchSize = 50

type Store interface {
	StaleOrderIDs(ctx context.Context, before time.Time, limit int) ([]int64, error)
	ExpireOrder(ctx context.Context, id int64) (*models.Order, error)
}

type Sweeper struct {
	store Store
	ttl   time.Duration
	log   zerolog.Logger
	now   func() time.Time
}

func New(s Store, ttl time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		store: s,
		ttl:   ttl,
		log:   log.With().Str("component", "sweeper").Logger(),
		now:   time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info().Dur("ttl", s.ttl).Dur("interval", interval).Msg("order sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("order sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("order sweep failed")
			}
		}
	}
}

// SweepOnce expires one batch of stale orders and returns how many were
// cancelled. Orders paid since the lookup are skipped.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	ids, err := s.store.StaleOrderIDs(ctx, s.now().UTC().Add(-s.ttl), batchSize)
	if err != nil {
		return 0, fmt.Errorf("stale orders: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if _, err := s.store.ExpireOrder(ctx, id); err != nil {
			if errors.Is(err, store.ErrInvalidTransition) || errors.Is(err, store.ErrNotFound) {
				s.log.Debug().Int64("order_id", id).Msg("order changed before expiry, skipped")
				continue
			}
			s.log.Error().Err(err).Int64("order_id", id).Msg("expire order")
			continue
		}
		s.log.Info().Int64("order_id", id).Msg("unpaid order expired")
		expired++
	}
	return expired, nil
}
