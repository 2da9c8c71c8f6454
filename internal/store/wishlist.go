package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/01moynul/storefront-golang/internal/models"
)

// ListWishlist returns the user's wishlist with product summaries, newest first.
func (s *Store) ListWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.user_id, w.product_id, w.added_at,
			p.name, p.slug, p.price, p.original_price, p.stock, p.images, p.category, p.sku, p.discount
		FROM wishlist_items w
		JOIN products p ON p.id = w.product_id
		WHERE w.user_id = ?
		ORDER BY w.added_at DESC, w.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.WishlistItem{}
	for rows.Next() {
		var w models.WishlistItem
		var p models.Product
		var images []byte
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.ProductID, &w.AddedAt,
			&p.Name, &p.Slug, &p.Price, &p.OriginalPrice, &p.Stock, &images, &p.Category, &p.SKU, &p.Discount,
		); err != nil {
			return nil, err
		}
		p.ID = w.ProductID
		p.Images = []string{}
		if len(images) > 0 {
			_ = json.Unmarshal(images, &p.Images)
		}
		w.Product = &p
		items = append(items, w)
	}
	return items, rows.Err()
}

// AddToWishlist adds a product to the wishlist. Adding twice is a no-op.
func (s *Store) AddToWishlist(ctx context.Context, userID, productID int64) error {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM products WHERE id = ?", productID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT IGNORE INTO wishlist_items (user_id, product_id, added_at) VALUES (?, ?, ?)",
		userID, productID, s.now())
	return err
}

// RemoveFromWishlist removes one product from the wishlist.
func (s *Store) RemoveFromWishlist(ctx context.Context, userID, productID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM wishlist_items WHERE user_id = ? AND product_id = ?", userID, productID)
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

// ClearWishlist empties the user's wishlist.
func (s *Store) ClearWishlist(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM wishlist_items WHERE user_id = ?", userID)
	return err
}
