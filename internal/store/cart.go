package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/01moynul/storefront-golang/internal/cart"
	"github.com/01moynul/storefront-golang/internal/models"
)

const cartSelect = `
	SELECT
		ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		p.name, p.sku, p.price, p.stock, p.category, p.images
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.user_id = ?
	ORDER BY ci.created_at ASC, ci.id ASC`

func listCart(ctx context.Context, q querier, userID int64, forUpdate bool) ([]models.CartItem, error) {
	query := cartSelect
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		var images []byte
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&item.Name, &item.SKU, &item.Price, &item.Stock, &item.Category, &images,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		item.Images = []string{}
		if len(images) > 0 {
			_ = json.Unmarshal(images, &item.Images)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListCart returns the user's cart joined with live product data.
func (s *Store) ListCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	return listCart(ctx, s.db, userID, false)
}

func productStock(ctx context.Context, q querier, productID int64) (name string, stock int, err error) {
	err = q.QueryRowContext(ctx, "SELECT name, stock FROM products WHERE id = ?", productID).Scan(&name, &stock)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	return name, stock, err
}

// AddToCart adds qty of a product to the cart. An existing line for the same
// product is summed; the resulting quantity may not exceed current stock.
// It returns the line's new quantity.
func (s *Store) AddToCart(ctx context.Context, userID, productID int64, qty int) (int, error) {
	var newQty int
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		name, stock, err := productStock(ctx, tx, productID)
		if err != nil {
			return err
		}

		var held int
		err = tx.QueryRowContext(ctx,
			"SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ? FOR UPDATE",
			userID, productID).Scan(&held)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		newQty = held + qty
		if newQty > stock {
			return &InsufficientStockError{ProductID: productID, Name: name, Requested: newQty, Available: stock}
		}

		now := s.now()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				quantity = quantity + VALUES(quantity),
				updated_at = VALUES(updated_at)`,
			userID, productID, qty, now, now)
		if err != nil {
			return fmt.Errorf("upsert cart item: %w", err)
		}
		return nil
	})
	return newQty, err
}

// QuantityResult reports what SetCartQuantity actually stored.
type QuantityResult struct {
	Quantity int  `json:"quantity"`
	Clamped  bool `json:"clamped"`
	Removed  bool `json:"removed"`
}

// SetCartQuantity sets a line's quantity, clamped to [1, stock]. A line whose
// product is sold out is removed.
func (s *Store) SetCartQuantity(ctx context.Context, userID, productID int64, qty int) (QuantityResult, error) {
	var result QuantityResult
	err := s.execTx(ctx, func(tx *sql.Tx) error {
		var held int
		err := tx.QueryRowContext(ctx,
			"SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ? FOR UPDATE",
			userID, productID).Scan(&held)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		_, stock, err := productStock(ctx, tx, productID)
		if err != nil {
			return err
		}

		applied, ok := cart.Clamp(qty, stock)
		if !ok {
			result = QuantityResult{Removed: true}
			_, err = tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ? AND product_id = ?", userID, productID)
			return err
		}

		result = QuantityResult{Quantity: applied, Clamped: applied != qty}
		_, err = tx.ExecContext(ctx,
			"UPDATE cart_items SET quantity = ?, updated_at = ? WHERE user_id = ? AND product_id = ?",
			applied, s.now(), userID, productID)
		return err
	})
	return result, err
}

// RemoveFromCart deletes one line from the cart.
func (s *Store) RemoveFromCart(ctx context.Context, userID, productID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ? AND product_id = ?", userID, productID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCart empties the user's cart.
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", userID)
	return err
}

// ReconcileCart re-validates every held quantity against live stock and
// persists the clamped result. It returns the updated cart and the changes made.
func (s *Store) ReconcileCart(ctx context.Context, userID int64) ([]models.CartItem, []cart.Adjustment, error) {
	var items []models.CartItem
	var adjustments []cart.Adjustment

	err := s.execTx(ctx, func(tx *sql.Tx) error {
		held, err := listCart(ctx, tx, userID, true)
		if err != nil {
			return err
		}

		lines := make([]cart.Line, 0, len(held))
		stock := make(map[int64]int, len(held))
		for _, it := range held {
			lines = append(lines, cart.Line{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity})
			stock[it.ProductID] = it.Stock
		}

		_, adjustments = cart.Reconcile(lines, stock)

		now := s.now()
		for _, adj := range adjustments {
			switch adj.Action {
			case cart.ActionRemoved:
				_, err = tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ? AND product_id = ?", userID, adj.ProductID)
			case cart.ActionClamped:
				_, err = tx.ExecContext(ctx,
					"UPDATE cart_items SET quantity = ?, updated_at = ? WHERE user_id = ? AND product_id = ?",
					adj.NewQuantity, now, userID, adj.ProductID)
			}
			if err != nil {
				return fmt.Errorf("apply cart adjustment: %w", err)
			}
		}

		items = applyAdjustments(held, adjustments)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return items, adjustments, nil
}

func applyAdjustments(items []models.CartItem, adjustments []cart.Adjustment) []models.CartItem {
	byProduct := make(map[int64]cart.Adjustment, len(adjustments))
	for _, a := range adjustments {
		byProduct[a.ProductID] = a
	}

	out := make([]models.CartItem, 0, len(items))
	for _, it := range items {
		if a, ok := byProduct[it.ProductID]; ok {
			if a.Action == cart.ActionRemoved {
				continue
			}
			it.Quantity = a.NewQuantity
		}
		out = append(out, it)
	}
	return out
}
