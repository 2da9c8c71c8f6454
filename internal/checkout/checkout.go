// Package checkout turns a cart submission into an order. Stock enforcement
// and all writes happen inside the store's single order transaction; this
// package validates the request and guards against duplicate submissions.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/storefront-golang/internal/idempotency"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/rs/zerolog"
)

// ErrInvalidOrder wraps every request validation failure.
var ErrInvalidOrder = errors.New("invalid order")

// OrderStore places a validated draft atomically.
type OrderStore interface {
	PlaceOrder(ctx context.Context, d models.OrderDraft) (*models.Order, error)
}

// UserStore looks up the buyer for the confirmation email.
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Request is a checkout submission.
type Request struct {
	UserID          int64
	Items           []models.OrderLine
	CouponCode      string
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	IdempotencyKey  string
}

type Service struct {
	orders OrderStore
	users  UserStore
	guard  idempotency.Guard
	log    zerolog.Logger
}

func NewService(orders OrderStore, users UserStore, guard idempotency.Guard, log zerolog.Logger) *Service {
	if guard == nil {
		guard = idempotency.Noop{}
	}
	return &Service{orders: orders, users: users, guard: guard, log: log}
}

// MergeLines validates line quantities and folds repeated products into one
// line, keeping first-seen order.
func MergeLines(lines []models.OrderLine) ([]models.OrderLine, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}

	merged := make([]models.OrderLine, 0, len(lines))
	index := make(map[int64]int, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 {
			return nil, fmt.Errorf("%w: invalid product id %d", ErrInvalidOrder, l.ProductID)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %d must be at least 1", ErrInvalidOrder, l.ProductID)
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

func idempotencyKey(userID int64, key string) string {
	return fmt.Sprintf("%d:%s", userID, key)
}

// PlaceOrder validates the request and places the order. A request carrying
// an idempotency key that was already used fails with idempotency.ErrDuplicate;
// the key is released again when placement fails.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*models.Order, error) {
	lines, err := MergeLines(req.Items)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load buyer: %w", err)
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		if err := s.guard.Acquire(ctx, idempotencyKey(req.UserID, key)); err != nil {
			return nil, err
		}
	}

	order, err := s.orders.PlaceOrder(ctx, models.OrderDraft{
		UserID:          req.UserID,
		UserEmail:       user.Email,
		UserName:        user.Name,
		Lines:           lines,
		CouponCode:      strings.TrimSpace(req.CouponCode),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	})
	if err != nil {
		if key != "" {
			if relErr := s.guard.Release(context.WithoutCancel(ctx), idempotencyKey(req.UserID, key)); relErr != nil {
				s.log.Warn().Err(relErr).Int64("user_id", req.UserID).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Int64("user_id", order.UserID).
		Int("lines", len(order.Items)).
		Float64("total", order.TotalAmount).
		Msg("order placed")
	return order, nil
}
