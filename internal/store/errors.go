package store

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateSKU      = errors.New("a product with this SKU already exists")
	ErrDuplicateEmail    = errors.New("a user with this email already exists")
	ErrDuplicateCode     = errors.New("a coupon with this code already exists")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrOrderCancelled    = errors.New("order is cancelled")
	ErrEmptyOrder        = errors.New("order has no items")
)

// InsufficientStockError names the product that could not be fulfilled.
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}
