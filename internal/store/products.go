package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/gosimple/slug"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageSize defaults a missing limit and clamps an oversized one.
func PageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	}
	return limit
}

// productSelect aggregates review rows at query time; there is no rating cache.
const productSelect = `
	SELECT
		p.id, p.name, p.slug, p.description, p.price, p.original_price, p.stock,
		p.images, p.category, p.sku, p.featured, p.is_new, p.discount,
		p.created_at, p.updated_at,
		COALESCE(AVG(r.rating), 0) AS average_rating,
		COUNT(r.id) AS total_reviews
	FROM products p
	LEFT JOIN reviews r ON r.product_id = p.id`

var productSortColumns = map[string]string{
	models.SortByCreatedAt: "p.created_at",
	models.SortByPrice:     "p.price",
	models.SortByName:      "p.name",
	models.SortByRating:    "average_rating",
	models.SortByStock:     "p.stock",
}

// ProductSlug derives the URL slug for a product.
func ProductSlug(name, sku string) string {
	return slug.Make(name + " " + sku)
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	var images []byte
	var avg float64

	if err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.OriginalPrice, &p.Stock,
		&images, &p.Category, &p.SKU, &p.Featured, &p.IsNew, &p.Discount,
		&p.CreatedAt, &p.UpdatedAt,
		&avg, &p.TotalReviews,
	); err != nil {
		return nil, err
	}

	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("decode images for product %d: %w", p.ID, err)
		}
	}
	p.AverageRating = math.Round(avg*10) / 10
	return &p, nil
}

func getProduct(ctx context.Context, q querier, where string, arg any) (*models.Product, error) {
	query := productSelect + " WHERE " + where + " GROUP BY p.id"
	p, err := scanProduct(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetProduct returns one product with its rating aggregate.
func (s *Store) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	return getProduct(ctx, s.db, "p.id = ?", id)
}

// GetProductBySlug looks a product up by its URL slug.
func (s *Store) GetProductBySlug(ctx context.Context, productSlug string) (*models.Product, error) {
	return getProduct(ctx, s.db, "p.slug = ?", productSlug)
}

// NormalizeFilter applies defaults and bounds to catalog query parameters.
func NormalizeFilter(f models.ProductFilter) models.ProductFilter {
	if _, ok := productSortColumns[f.SortBy]; !ok {
		f.SortBy = models.SortByCreatedAt
	}
	f.SortOrder = strings.ToLower(f.SortOrder)
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
	f.Limit = PageSize(f.Limit)
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// productWhere builds the WHERE clause shared by the list and count queries.
func productWhere(f models.ProductFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Category != "" {
		conds = append(conds, "p.category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		conds = append(conds, "(p.name LIKE ? OR p.description LIKE ? OR p.sku LIKE ?)")
		term := "%" + f.Search + "%"
		args = append(args, term, term, term)
	}
	if f.MinPrice != nil {
		conds = append(conds, "p.price >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		conds = append(conds, "p.price <= ?")
		args = append(args, *f.MaxPrice)
	}
	if f.InStock != nil {
		if *f.InStock {
			conds = append(conds, "p.stock > 0")
		} else {
			conds = append(conds, "p.stock = 0")
		}
	}
	if f.Featured != nil {
		conds = append(conds, "p.featured = ?")
		args = append(args, *f.Featured)
	}
	if f.IsNew != nil {
		conds = append(conds, "p.is_new = ?")
		args = append(args, *f.IsNew)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListProducts returns one page of products matching the filter and the total
// number of matches.
func (s *Store) ListProducts(ctx context.Context, f models.ProductFilter) ([]*models.Product, int, error) {
	f = NormalizeFilter(f)
	where, args := productWhere(f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	var qb strings.Builder
	qb.WriteString(productSelect)
	qb.WriteString(where)
	qb.WriteString(" GROUP BY p.id")
	fmt.Fprintf(&qb, " ORDER BY %s %s, p.id %s", productSortColumns[f.SortBy], strings.ToUpper(f.SortOrder), strings.ToUpper(f.SortOrder))
	qb.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ProductStocks returns the authoritative stock for each requested id that exists.
func (s *Store) ProductStocks(ctx context.Context, ids []int64) ([]models.ProductStock, error) {
	out := []models.ProductStock{}
	if len(ids) == 0 {
		return out, nil
	}

	query := "SELECT id, stock FROM products WHERE id IN (" + placeholders(len(ids)) + ")"
	rows, err := s.db.QueryContext(ctx, query, int64Args(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var ps models.ProductStock
		if err := rows.Scan(&ps.ID, &ps.Stock); err != nil {
			return nil, err
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func skuTaken(ctx context.Context, q querier, sku string, excludeID int64) (bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, "SELECT id FROM products WHERE sku = ? AND id <> ?", sku, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateProduct inserts p and fills in its ID, slug and timestamps.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.execTx(ctx, func(tx *sql.Tx) error {
		taken, err := skuTaken(ctx, tx, p.SKU, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateSKU
		}

		images, err := json.Marshal(nonNilImages(p.Images))
		if err != nil {
			return err
		}

		now := s.now()
		p.Slug = ProductSlug(p.Name, p.SKU)
		p.CreatedAt, p.UpdatedAt = now, now

		res, err := tx.ExecContext(ctx, `
			INSERT INTO products
				(name, slug, description, price, original_price, stock, images, category, sku,
				 featured, is_new, discount, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Name, p.Slug, p.Description, p.Price, p.OriginalPrice, p.Stock, images, p.Category, p.SKU,
			p.Featured, p.IsNew, p.Discount, now, now)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateSKU
			}
			return fmt.Errorf("insert product: %w", err)
		}

		p.ID, err = res.LastInsertId()
		p.Images = nonNilImages(p.Images)
		return err
	})
}

// UpdateProduct overwrites every editable field of an existing product.
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	return s.execTx(ctx, func(tx *sql.Tx) error {
		var createdAt sql.NullTime
		err := tx.QueryRowContext(ctx, "SELECT created_at FROM products WHERE id = ? FOR UPDATE", p.ID).Scan(&createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		taken, err := skuTaken(ctx, tx, p.SKU, p.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicateSKU
		}

		images, err := json.Marshal(nonNilImages(p.Images))
		if err != nil {
			return err
		}

		now := s.now()
		p.Slug = ProductSlug(p.Name, p.SKU)
		p.UpdatedAt = now
		p.CreatedAt = createdAt.Time

		_, err = tx.ExecContext(ctx, `
			UPDATE products SET
				name = ?, slug = ?, description = ?, price = ?, original_price = ?, stock = ?,
				images = ?, category = ?, sku = ?, featured = ?, is_new = ?, discount = ?, updated_at = ?
			WHERE id = ?`,
			p.Name, p.Slug, p.Description, p.Price, p.OriginalPrice, p.Stock,
			images, p.Category, p.SKU, p.Featured, p.IsNew, p.Discount, now, p.ID)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateSKU
			}
			return fmt.Errorf("update product: %w", err)
		}
		p.Images = nonNilImages(p.Images)
		return nil
	})
}

// DeleteProduct removes a product together with every cart and wishlist
// reference to it. Order items keep their snapshot and lose only the link.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	return s.execTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE product_id = ?", id); err != nil {
			return fmt.Errorf("clean cart references: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM wishlist_items WHERE product_id = ?", id); err != nil {
			return fmt.Errorf("clean wishlist references: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE order_items SET product_id = NULL WHERE product_id = ?", id); err != nil {
			return fmt.Errorf("detach order items: %w", err)
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListCategories returns the distinct product categories.
func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT category FROM products ORDER BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
