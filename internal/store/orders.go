package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/01moynul/storefront-golang/internal/coupon"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, status, is_paid, paid_at, subtotal, discount, coupon_code, total_amount,
	shipping_address, payment_method, payment_id, created_at, updated_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var address []byte
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.IsPaid, &o.PaidAt, &o.Subtotal, &o.Discount, &o.CouponCode, &o.TotalAmount,
		&address, &o.PaymentMethod, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decode shipping address for order %d: %w", o.ID, err)
	}
	o.Items = []models.OrderItem{}
	return &o, nil
}

func orderItems(ctx context.Context, q querier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, order_id, product_id, name, quantity, price FROM order_items WHERE order_id = ? ORDER BY id", orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// decrementStock takes qty units of a product only if that many are in stock.
// The conditional update is the single point that keeps stock non-negative
// under concurrent checkouts.
func decrementStock(ctx context.Context, tx *sql.Tx, line models.OrderLine, now time.Time) (name, category string, price float64, err error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?",
		line.Quantity, now, line.ProductID, line.Quantity)
	if err != nil {
		return "", "", 0, fmt.Errorf("decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", "", 0, err
	}

	var stock int
	err = tx.QueryRowContext(ctx,
		"SELECT name, category, price, stock FROM products WHERE id = ?", line.ProductID).
		Scan(&name, &category, &price, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", 0, fmt.Errorf("product %d: %w", line.ProductID, ErrNotFound)
	}
	if err != nil {
		return "", "", 0, err
	}

	if affected == 0 {
		return "", "", 0, &InsufficientStockError{
			ProductID: line.ProductID,
			Name:      name,
			Requested: line.Quantity,
			Available: stock,
		}
	}
	return name, category, price, nil
}

// PlaceOrder creates an order in one transaction: stock for every line is
// decremented, the coupon (if any) is redeemed, order and item rows are
// written, a notification and outbox messages are queued, and the purchased
// products leave the cart. Any failure rolls everything back.
func (s *Store) PlaceOrder(ctx context.Context, d models.OrderDraft) (*models.Order, error) {
	if len(d.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	// Lock products in id order so concurrent orders cannot deadlock.
	lines := append([]models.OrderLine(nil), d.Lines...)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	var order *models.Order
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		now := s.now()

		items := make([]models.OrderItem, 0, len(lines))
		categories := make([]string, 0, len(lines))
		productIDs := make([]int64, 0, len(lines))
		subtotal := decimal.Zero

		for _, line := range lines {
			name, category, price, err := decrementStock(ctx, tx, line, now)
			if err != nil {
				return err
			}

			pid := line.ProductID
			items = append(items, models.OrderItem{ProductID: &pid, Name: name, Quantity: line.Quantity, Price: price})
			categories = append(categories, category)
			productIDs = append(productIDs, pid)
			subtotal = subtotal.Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
		subtotal = subtotal.Round(2)

		discount := decimal.Zero
		var couponCode *string
		if d.CouponCode != "" {
			c, result, err := s.redeemCoupon(ctx, tx, d.CouponCode, coupon.Cart{
				Subtotal:   subtotal.InexactFloat64(),
				Categories: categories,
				ProductIDs: productIDs,
			})
			if err != nil {
				return err
			}
			discount = decimal.NewFromFloat(result.Discount)
			couponCode = &c.Code
		}
		total := subtotal.Sub(discount).Round(2)

		address, err := json.Marshal(d.ShippingAddress)
		if err != nil {
			return err
		}
		var paymentMethod *string
		if d.PaymentMethod != "" {
			paymentMethod = &d.PaymentMethod
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders
				(user_id, status, is_paid, subtotal, discount, coupon_code, total_amount,
				 shipping_address, payment_method, created_at, updated_at)
			VALUES (?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.UserID, models.OrderStatusPending, subtotal.InexactFloat64(), discount.InexactFloat64(), couponCode,
			total.InexactFloat64(), address, paymentMethod, now, now)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		orderID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = orderID
			res, err := tx.ExecContext(ctx,
				"INSERT INTO order_items (order_id, product_id, name, quantity, price) VALUES (?, ?, ?, ?, ?)",
				orderID, *items[i].ProductID, items[i].Name, items[i].Quantity, items[i].Price)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			if items[i].ID, err = res.LastInsertId(); err != nil {
				return err
			}
		}

		order = &models.Order{
			ID:              orderID,
			UserID:          d.UserID,
			Status:          models.OrderStatusPending,
			Subtotal:        subtotal.InexactFloat64(),
			Discount:        discount.InexactFloat64(),
			CouponCode:      couponCode,
			TotalAmount:     total.InexactFloat64(),
			ShippingAddress: d.ShippingAddress,
			PaymentMethod:   paymentMethod,
			CreatedAt:       now,
			UpdatedAt:       now,
			Items:           items,
		}

		msg := fmt.Sprintf("Order #%d placed. Total: %s", orderID, total.StringFixed(2))
		if err := addNotification(ctx, tx, d.UserID, msg, fmt.Sprintf("/orders/%d", orderID), now); err != nil {
			return err
		}
		if err := enqueueOutbox(ctx, tx, models.OutboxOrderConfirmationEmail, models.OrderEmailPayload{
			OrderID: orderID,
			To:      d.UserEmail,
			Name:    d.UserName,
			Total:   order.TotalAmount,
			Items:   items,
		}, now); err != nil {
			return err
		}
		if err := enqueueOutbox(ctx, tx, models.OutboxOrderEvent, orderEvent("order.created", order, now), now); err != nil {
			return err
		}

		query := "DELETE FROM cart_items WHERE user_id = ? AND product_id IN (" + placeholders(len(productIDs)) + ")"
		args := append([]any{d.UserID}, int64Args(productIDs)...)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("clear purchased cart items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func orderEvent(eventType string, o *models.Order, now time.Time) models.OrderEventPayload {
	return models.OrderEventPayload{
		Type:        eventType,
		OrderID:     o.ID,
		UserID:      o.UserID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		OccurredAt:  now,
	}
}

// GetOrder returns an order with its item snapshot.
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if err != nil {
		return nil, err
	}
	if o.Items, err = orderItems(ctx, s.db, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns a page of orders, newest first. userID 0 lists every
// user's orders; an empty status lists every status.
func (s *Store) ListOrders(ctx context.Context, userID int64, status string, limit, offset int) ([]*models.Order, error) {
	limit = PageSize(limit)
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + orderColumns + " FROM orders WHERE 1 = 1"
	var args []any
	if userID != 0 {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		if o.Items, err = orderItems(ctx, s.db, o.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateOrderStatus moves an order to a new status. Cancelling returns the
// ordered quantities to stock for products that still exist.
func (s *Store) UpdateOrderStatus(ctx context.Context, id int64, status string) (*models.Order, error) {
	return s.transitionOrder(ctx, id, status, nil)
}

// ExpireOrder cancels an order only if it is still pending and unpaid, so a
// payment landing between the sweep query and the lock is never undone.
func (s *Store) ExpireOrder(ctx context.Context, id int64) (*models.Order, error) {
	return s.transitionOrder(ctx, id, models.OrderStatusCancelled, func(o *models.Order) error {
		if o.Status != models.OrderStatusPending || o.IsPaid {
			return fmt.Errorf("%w: order %d is %s (paid=%t)", ErrInvalidTransition, o.ID, o.Status, o.IsPaid)
		}
		return nil
	})
}

// StaleOrderIDs lists unpaid pending orders created before the cutoff, oldest
// first.
func (s *Store) StaleOrderIDs(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM orders
		WHERE status = ? AND is_paid = 0 AND created_at < ?
		ORDER BY created_at ASC
		LIMIT ?`, models.OrderStatusPending, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) transitionOrder(ctx context.Context, id int64, status string, check func(*models.Order) error) (*models.Order, error) {
	var order *models.Order
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ? FOR UPDATE", id))
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(o); err != nil {
				return err
			}
		}
		if !models.CanTransition(o.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, status)
		}

		if o.Items, err = orderItems(ctx, tx, o.ID); err != nil {
			return err
		}

		now := s.now()
		if status == models.OrderStatusCancelled {
			for _, it := range o.Items {
				if it.ProductID == nil {
					continue
				}
				if _, err := tx.ExecContext(ctx,
					"UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?",
					it.Quantity, now, *it.ProductID); err != nil {
					return fmt.Errorf("restore stock: %w", err)
				}
			}
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE orders SET status = ?, updated_at = ? WHERE id = ?", status, now, id); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		o.Status = status
		o.UpdatedAt = now

		msg := fmt.Sprintf("Order #%d is now %s", o.ID, status)
		if err := addNotification(ctx, tx, o.UserID, msg, fmt.Sprintf("/orders/%d", o.ID), now); err != nil {
			return err
		}
		if err := enqueueOutbox(ctx, tx, models.OutboxOrderEvent, orderEvent("order.status_changed", o, now), now); err != nil {
			return err
		}
		order = o
		return nil
	})
	return order, err
}

// AttachPayment records the payment reference created for an unpaid order.
func (s *Store) AttachPayment(ctx context.Context, orderID int64, method, paymentID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET payment_method = ?, payment_id = ?, updated_at = ? WHERE id = ? AND is_paid = 0",
		method, paymentID, s.now(), orderID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyPaid
	}
	return nil
}

// MarkOrderPaid flags the order holding paymentID as paid and moves a
// pending order to processing. Repeated calls are no-ops. A cancelled order
// is left untouched and ErrOrderCancelled is returned; its stock is already
// back on sale, so the charge has to be refunded.
func (s *Store) MarkOrderPaid(ctx context.Context, paymentID string) (*models.Order, error) {
	var order *models.Order
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(ctx,
			"SELECT "+orderColumns+" FROM orders WHERE payment_id = ? FOR UPDATE", paymentID))
		if err != nil {
			return err
		}
		if o.IsPaid {
			order = o
			return nil
		}
		if o.Status == models.OrderStatusCancelled {
			return fmt.Errorf("order %d: %w", o.ID, ErrOrderCancelled)
		}

		now := s.now()
		if o.Status == models.OrderStatusPending {
			o.Status = models.OrderStatusProcessing
		}
		o.IsPaid = true
		o.PaidAt = &now
		o.UpdatedAt = now

		if _, err := tx.ExecContext(ctx,
			"UPDATE orders SET is_paid = 1, paid_at = ?, status = ?, updated_at = ? WHERE id = ?",
			now, o.Status, now, o.ID); err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}

		msg := fmt.Sprintf("Payment received for order #%d", o.ID)
		if err := addNotification(ctx, tx, o.UserID, msg, fmt.Sprintf("/orders/%d", o.ID), now); err != nil {
			return err
		}
		if err := enqueueOutbox(ctx, tx, models.OutboxOrderEvent, orderEvent("order.paid", o, now), now); err != nil {
			return err
		}
		order = o
		return nil
	})
	return order, err
}
