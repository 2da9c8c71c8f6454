package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/01moynul/storefront-golang/internal/coupon"
	"github.com/01moynul/storefront-golang/internal/models"
)

const couponColumns = `id, code, type, value, min_purchase, max_discount, usage_limit, used_count,
	valid_from, valid_until, is_active, applicable_categories, applicable_products, created_at`

func scanCoupon(row rowScanner) (*models.Coupon, error) {
	var c models.Coupon
	var cats, prods []byte
	err := row.Scan(
		&c.ID, &c.Code, &c.Type, &c.Value, &c.MinPurchase, &c.MaxDiscount, &c.UsageLimit, &c.UsedCount,
		&c.ValidFrom, &c.ValidUntil, &c.IsActive, &cats, &prods, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(cats) > 0 {
		if err := json.Unmarshal(cats, &c.ApplicableCategories); err != nil {
			return nil, fmt.Errorf("decode coupon categories: %w", err)
		}
	}
	if len(prods) > 0 {
		if err := json.Unmarshal(prods, &c.ApplicableProducts); err != nil {
			return nil, fmt.Errorf("decode coupon products: %w", err)
		}
	}
	return &c, nil
}

func jsonOrNull[T any](v []T) (any, error) {
	if len(v) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListCoupons returns every coupon, newest first.
func (s *Store) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+couponColumns+" FROM coupons ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := []models.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

// GetCoupon loads a coupon by id.
func (s *Store) GetCoupon(ctx context.Context, id int64) (*models.Coupon, error) {
	return scanCoupon(s.db.QueryRowContext(ctx,
		"SELECT "+couponColumns+" FROM coupons WHERE id = ?", id))
}

// GetCouponByCode looks a coupon up by its normalized code.
func (s *Store) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return scanCoupon(s.db.QueryRowContext(ctx,
		"SELECT "+couponColumns+" FROM coupons WHERE code = ?", coupon.NormalizeCode(code)))
}

// CreateCoupon inserts c; the code is normalized before storage.
func (s *Store) CreateCoupon(ctx context.Context, c *models.Coupon) error {
	cats, err := jsonOrNull(c.ApplicableCategories)
	if err != nil {
		return err
	}
	prods, err := jsonOrNull(c.ApplicableProducts)
	if err != nil {
		return err
	}

	c.Code = coupon.NormalizeCode(c.Code)
	c.CreatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO coupons
			(code, type, value, min_purchase, max_discount, usage_limit, used_count,
			 valid_from, valid_until, is_active, applicable_categories, applicable_products, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.Type, c.Value, c.MinPurchase, c.MaxDiscount, c.UsageLimit,
		c.ValidFrom, c.ValidUntil, c.IsActive, cats, prods, c.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	c.UsedCount = 0
	c.ID, err = res.LastInsertId()
	return err
}

// UpdateCoupon overwrites the editable fields of a coupon. usedCount is
// never changed here.
func (s *Store) UpdateCoupon(ctx context.Context, c *models.Coupon) error {
	cats, err := jsonOrNull(c.ApplicableCategories)
	if err != nil {
		return err
	}
	prods, err := jsonOrNull(c.ApplicableProducts)
	if err != nil {
		return err
	}
	c.Code = coupon.NormalizeCode(c.Code)

	return s.execTx(ctx, func(tx *sql.Tx) error {
		current, err := scanCoupon(tx.QueryRowContext(ctx,
			"SELECT "+couponColumns+" FROM coupons WHERE id = ? FOR UPDATE", c.ID))
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE coupons SET
				code = ?, type = ?, value = ?, min_purchase = ?, max_discount = ?, usage_limit = ?,
				valid_from = ?, valid_until = ?, is_active = ?, applicable_categories = ?, applicable_products = ?
			WHERE id = ?`,
			c.Code, c.Type, c.Value, c.MinPurchase, c.MaxDiscount, c.UsageLimit,
			c.ValidFrom, c.ValidUntil, c.IsActive, cats, prods, c.ID)
		if err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateCode
			}
			return fmt.Errorf("update coupon: %w", err)
		}
		c.UsedCount = current.UsedCount
		c.CreatedAt = current.CreatedAt
		return nil
	})
}

// DeleteCoupon removes a coupon. Orders keep the code they were placed with.
func (s *Store) DeleteCoupon(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM coupons WHERE id = ?", id)
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

// redeemCoupon locks the coupon row, validates it against the order snapshot
// and increments used_count only while it is below usage_limit.
func (s *Store) redeemCoupon(ctx context.Context, tx *sql.Tx, code string, cart coupon.Cart) (*models.Coupon, coupon.Result, error) {
	c, err := scanCoupon(tx.QueryRowContext(ctx,
		"SELECT "+couponColumns+" FROM coupons WHERE code = ? FOR UPDATE", coupon.NormalizeCode(code)))
	if errors.Is(err, ErrNotFound) {
		return nil, coupon.Result{}, &coupon.RejectionError{Code: coupon.NormalizeCode(code), Reason: coupon.ReasonUnknown}
	}
	if err != nil {
		return nil, coupon.Result{}, err
	}

	result, err := coupon.Apply(*c, cart, s.now())
	if err != nil {
		return nil, coupon.Result{}, err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE coupons SET used_count = used_count + 1 WHERE id = ? AND used_count < usage_limit", c.ID)
	if err != nil {
		return nil, coupon.Result{}, fmt.Errorf("redeem coupon: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, coupon.Result{}, err
	}
	if n == 0 {
		return nil, coupon.Result{}, &coupon.RejectionError{Code: c.Code, Reason: coupon.ReasonUsageExhausted}
	}
	c.UsedCount++
	return c, result, nil
}
