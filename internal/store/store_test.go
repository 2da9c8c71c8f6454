package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/01moynul/storefront-golang/internal/cart"
	"github.com/01moynul/storefront-golang/internal/coupon"
	"github.com/01moynul/storefront-golang/internal/models"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(db)
	s.now = func() time.Time { return fixedNow }
	return s, mock
}

func q(query string) string { return regexp.QuoteMeta(query) }

const decrementSQL = "UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?"
const snapshotSQL = "SELECT name, category, price, stock FROM products WHERE id = ?"

func draft(lines ...models.OrderLine) models.OrderDraft {
	return models.OrderDraft{
		UserID:    5,
		UserEmail: "ana@example.com",
		UserName:  "Ana",
		Lines:     lines,
		ShippingAddress: models.ShippingAddress{
			FullName: "Ana", Street: "1 Main St", City: "Lisbon", PostalCode: "1000", Country: "PT",
		},
		PaymentMethod: "card",
	}
}

func TestPlaceOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(decrementSQL)).
		WithArgs(2, fixedNow, int64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q(snapshotSQL)).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "category", "price", "stock"}).AddRow("Mug", "kitchen", 12.5, 8))
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(42), int64(7), "Mug", 2, 12.5).
		WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO outbox_messages").
		WithArgs(sqlmock.AnyArg(), models.OutboxOrderConfirmationEmail, sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox_messages").
		WithArgs(sqlmock.AnyArg(), models.OutboxOrderEvent, sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM cart_items WHERE user_id = ? AND product_id IN (?)")).
		WithArgs(int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := s.PlaceOrder(context.Background(), draft(models.OrderLine{ProductID: 7, Quantity: 2, Price: 1}))
	require.NoError(t, err)

	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 25.0, order.Subtotal)
	assert.Equal(t, 25.0, order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 12.5, order.Items[0].Price, "the stored price wins over the client price")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderLocksInProductOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(decrementSQL)).WithArgs(1, fixedNow, int64(3), 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q(snapshotSQL)).WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "category", "price", "stock"}).AddRow("Pen", "office", 2.0, 4))
	mock.ExpectExec(q(decrementSQL)).WithArgs(5, fixedNow, int64(9), 5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(snapshotSQL)).WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "category", "price", "stock"}).AddRow("Lamp", "home", 30.0, 1))
	mock.ExpectRollback()

	_, err := s.PlaceOrder(context.Background(), draft(
		models.OrderLine{ProductID: 9, Quantity: 5},
		models.OrderLine{ProductID: 3, Quantity: 1},
	))

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(9), stockErr.ProductID)
	assert.Equal(t, "Lamp", stockErr.Name)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)
	assert.NoError(t, mock.ExpectationsWereMet(), "no order rows may be written after a failed decrement")
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(decrementSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q(snapshotSQL)).WillReturnRows(sqlmock.NewRows([]string{"name", "category", "price", "stock"}))
	mock.ExpectRollback()

	_, err := s.PlaceOrder(context.Background(), draft(models.OrderLine{ProductID: 404, Quantity: 1}))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderRejectedCouponRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(q(decrementSQL)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q(snapshotSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "category", "price", "stock"}).AddRow("Mug", "kitchen", 12.5, 8))
	mock.ExpectQuery("FROM coupons WHERE code = \\? FOR UPDATE").WithArgs("NOPE").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	d := draft(models.OrderLine{ProductID: 7, Quantity: 1})
	d.CouponCode = " nope "
	_, err := s.PlaceOrder(context.Background(), d)

	var rej *coupon.RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, coupon.ReasonUnknown, rej.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var couponCols = []string{
	"id", "code", "type", "value", "min_purchase", "max_discount", "usage_limit", "used_count",
	"valid_from", "valid_until", "is_active", "applicable_categories", "applicable_products", "created_at",
}

const redeemSQL = "UPDATE coupons SET used_count = used_count + 1 WHERE id = ? AND used_count < usage_limit"

func expectCouponLine(mock sqlmock.Sqlmock) {
	mock.ExpectExec(q(decrementSQL)).
		WithArgs(2, fixedNow, int64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q(snapshotSQL)).WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"name", "category", "price", "stock"}).AddRow("Mug", "kitchen", 12.5, 8))
	mock.ExpectQuery("FROM coupons WHERE code = \\? FOR UPDATE").WithArgs("SAVE10").
		WillReturnRows(sqlmock.NewRows(couponCols).AddRow(
			int64(3), "SAVE10", "percentage", 10.0, nil, nil, 100, 4,
			fixedNow.Add(-time.Hour), nil, true, nil, nil, fixedNow.Add(-time.Hour),
		))
}

func TestPlaceOrderRedeemsCoupon(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	expectCouponLine(mock)
	mock.ExpectExec(q(redeemSQL)).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(int64(5), models.OrderStatusPending, 25.0, 2.5, "SAVE10", 22.5,
			sqlmock.AnyArg(), sqlmock.AnyArg(), fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO order_items").WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO outbox_messages").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO outbox_messages").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM cart_items WHERE user_id = ? AND product_id IN (?)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	d := draft(models.OrderLine{ProductID: 7, Quantity: 2})
	d.CouponCode = "save10"
	order, err := s.PlaceOrder(context.Background(), d)
	require.NoError(t, err)

	assert.Equal(t, 25.0, order.Subtotal)
	assert.Equal(t, 2.5, order.Discount)
	assert.Equal(t, 22.5, order.TotalAmount)
	require.NotNil(t, order.CouponCode)
	assert.Equal(t, "SAVE10", *order.CouponCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderCouponExhaustedByConcurrentOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	expectCouponLine(mock)
	mock.ExpectExec(q(redeemSQL)).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	d := draft(models.OrderLine{ProductID: 7, Quantity: 2})
	d.CouponCode = "SAVE10"
	_, err := s.PlaceOrder(context.Background(), d)

	var rej *coupon.RejectionError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, coupon.ReasonUsageExhausted, rej.Reason)
	assert.Equal(t, "SAVE10", rej.Code)
	assert.NoError(t, mock.ExpectationsWereMet(), "no order rows may be written once the coupon is used up")
}

func TestPlaceOrderEmpty(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.PlaceOrder(context.Background(), draft())
	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func orderRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "status", "is_paid", "paid_at", "subtotal", "discount", "coupon_code", "total_amount",
		"shipping_address", "payment_method", "payment_id", "created_at", "updated_at",
	}).AddRow(
		int64(42), int64(5), status, false, nil, 25.0, 0.0, nil, 25.0,
		[]byte(`{"fullName":"Ana","street":"1 Main St","city":"Lisbon","postalCode":"1000","country":"PT"}`),
		"card", "pi_123", fixedNow, fixedNow,
	)
}

func TestUpdateOrderStatusCancelRestoresStock(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id = \\? FOR UPDATE").WithArgs(int64(42)).WillReturnRows(orderRow(models.OrderStatusPending))
	mock.ExpectQuery("FROM order_items WHERE order_id = \\?").WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "quantity", "price"}).
			AddRow(int64(1), int64(42), int64(7), "Mug", 2, 12.5).
			AddRow(int64(2), int64(42), nil, "Deleted thing", 1, 5.0))
	mock.ExpectExec(q("UPDATE products SET stock = stock + ?, updated_at = ? WHERE id = ?")).
		WithArgs(2, fixedNow, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?")).
		WithArgs(models.OrderStatusCancelled, fixedNow, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO outbox_messages").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	o, err := s.UpdateOrderStatus(context.Background(), 42, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, o.Status)
	assert.Len(t, o.Items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateOrderStatusRejectsInvalidTransition(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id = \\? FOR UPDATE").WillReturnRows(orderRow(models.OrderStatusDelivered))
	mock.ExpectRollback()

	_, err := s.UpdateOrderStatus(context.Background(), 42, models.OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachPaymentAlreadyPaid(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE orders SET payment_method").
		WithArgs("card", "pi_123", fixedNow, int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.AttachPayment(context.Background(), 42, "card", "pi_123")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestMarkOrderPaid(t *testing.T) {
	const lock = "FROM orders WHERE payment_id = \\? FOR UPDATE"

	t.Run("pending order moves to processing", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("pi_123").WillReturnRows(orderRow(models.OrderStatusPending))
		mock.ExpectExec(q("UPDATE orders SET is_paid = 1, paid_at = ?, status = ?, updated_at = ? WHERE id = ?")).
			WithArgs(fixedNow, models.OrderStatusProcessing, fixedNow, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO outbox_messages").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		o, err := s.MarkOrderPaid(context.Background(), "pi_123")
		require.NoError(t, err)
		assert.True(t, o.IsPaid)
		assert.Equal(t, models.OrderStatusProcessing, o.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelled order is not marked paid", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lock).WithArgs("pi_123").WillReturnRows(orderRow(models.OrderStatusCancelled))
		mock.ExpectRollback()

		_, err := s.MarkOrderPaid(context.Background(), "pi_123")
		assert.ErrorIs(t, err, ErrOrderCancelled)
		assert.NoError(t, mock.ExpectationsWereMet(), "a cancelled order must not be updated")
	})
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	t.Run("caught by the lookup", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT id FROM products WHERE sku = ? AND id <> ?")).
			WithArgs("MUG-1", int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
		mock.ExpectRollback()

		err := s.CreateProduct(context.Background(), &models.Product{Name: "Mug", SKU: "MUG-1"})
		assert.ErrorIs(t, err, ErrDuplicateSKU)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("caught by the unique index", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT id FROM products WHERE sku = ? AND id <> ?")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec("INSERT INTO products").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		mock.ExpectRollback()

		err := s.CreateProduct(context.Background(), &models.Product{Name: "Mug", SKU: "MUG-1"})
		assert.ErrorIs(t, err, ErrDuplicateSKU)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateProduct(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM products WHERE sku = ? AND id <> ?")).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO products").WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	p := &models.Product{Name: "Blue Mug", SKU: "MUG-1", Price: 9.99, Stock: 3}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	assert.Equal(t, int64(11), p.ID)
	assert.Equal(t, "blue-mug-mug-1", p.Slug)
	assert.Equal(t, []string{}, p.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProduct(t *testing.T) {
	t.Run("detaches references", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec(q("DELETE FROM cart_items WHERE product_id = ?")).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(q("DELETE FROM wishlist_items WHERE product_id = ?")).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q("UPDATE order_items SET product_id = NULL WHERE product_id = ?")).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectExec(q("DELETE FROM products WHERE id = ?")).WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, s.DeleteProduct(context.Background(), 7))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing product", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE FROM cart_items").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM wishlist_items").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE order_items").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("DELETE FROM products").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.ErrorIs(t, s.DeleteProduct(context.Background(), 7), ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetCartQuantity(t *testing.T) {
	const held = "SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ? FOR UPDATE"
	const stock = "SELECT name, stock FROM products WHERE id = ?"

	t.Run("clamps to stock", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(held)).WithArgs(int64(5), int64(7)).WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(1))
		mock.ExpectQuery(q(stock)).WithArgs(int64(7)).WillReturnRows(sqlmock.NewRows([]string{"name", "stock"}).AddRow("Mug", 3))
		mock.ExpectExec(q("UPDATE cart_items SET quantity = ?, updated_at = ? WHERE user_id = ? AND product_id = ?")).
			WithArgs(3, fixedNow, int64(5), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := s.SetCartQuantity(context.Background(), 5, 7, 10)
		require.NoError(t, err)
		assert.Equal(t, QuantityResult{Quantity: 3, Clamped: true}, res)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sold out removes the line", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q(held)).WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(2))
		mock.ExpectQuery(q(stock)).WillReturnRows(sqlmock.NewRows([]string{"name", "stock"}).AddRow("Mug", 0))
		mock.ExpectExec(q("DELETE FROM cart_items WHERE user_id = ? AND product_id = ?")).
			WithArgs(int64(5), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		res, err := s.SetCartQuantity(context.Background(), 5, 7, 2)
		require.NoError(t, err)
		assert.True(t, res.Removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReconcileCart(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{
		"id", "user_id", "product_id", "quantity", "created_at", "updated_at",
		"name", "sku", "price", "stock", "category", "images",
	}
	mock.ExpectBegin()
	mock.ExpectQuery("FROM cart_items ci .* FOR UPDATE").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), int64(5), int64(7), 5, fixedNow, fixedNow, "Mug", "MUG-1", 12.5, 2, "kitchen", nil).
			AddRow(int64(2), int64(5), int64(8), 1, fixedNow, fixedNow, "Lamp", "LMP-1", 30.0, 0, "home", nil).
			AddRow(int64(3), int64(5), int64(9), 1, fixedNow, fixedNow, "Pen", "PEN-1", 2.0, 10, "office", []byte(`["pen.jpg"]`)))
	mock.ExpectExec(q("UPDATE cart_items SET quantity = ?, updated_at = ? WHERE user_id = ? AND product_id = ?")).
		WithArgs(2, fixedNow, int64(5), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM cart_items WHERE user_id = ? AND product_id = ?")).
		WithArgs(int64(5), int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	items, adjustments, err := s.ReconcileCart(context.Background(), 5)
	require.NoError(t, err)

	require.Len(t, adjustments, 2)
	assert.Equal(t, cart.ActionClamped, adjustments[0].Action)
	assert.Equal(t, 2, adjustments[0].NewQuantity)
	assert.Equal(t, cart.ActionRemoved, adjustments[1].Action)
	assert.Equal(t, int64(8), adjustments[1].ProductID)

	require.Len(t, items, 2)
	assert.Equal(t, int64(7), items[0].ProductID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, int64(9), items[1].ProductID)
	assert.Equal(t, []string{"pen.jpg"}, items[1].Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddToCartRejectsOverStock(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT name, stock FROM products WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "stock"}).AddRow("Mug", 3))
	mock.ExpectQuery(q("SELECT quantity FROM cart_items WHERE user_id = ? AND product_id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(2))
	mock.ExpectRollback()

	_, err := s.AddToCart(context.Background(), 5, 7, 2)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductStocks(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("SELECT id, stock FROM products WHERE id IN (?, ?)")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "stock"}).AddRow(int64(1), 0).AddRow(int64(2), 12))

	stocks, err := s.ProductStocks(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []models.ProductStock{{ID: 1, Stock: 0}, {ID: 2, Stock: 12}}, stocks)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestExpireOrderSkipsProcessing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders WHERE id = \\? FOR UPDATE").WithArgs(int64(42)).
		WillReturnRows(orderRow(models.OrderStatusProcessing))
	mock.ExpectRollback()

	_, err := s.ExpireOrder(context.Background(), 42)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStaleOrderIDs(t *testing.T) {
	s, mock := newMockStore(t)
	cutoff := fixedNow.Add(-48 * time.Hour)

	mock.ExpectQuery("WHERE status = \\? AND is_paid = 0 AND created_at < \\?").
		WithArgs(models.OrderStatusPending, cutoff, 50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)).AddRow(int64(9)))

	ids, err := s.StaleOrderIDs(context.Background(), cutoff, 50)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 9}, ids)
}

func TestDashboardStats(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SUM\\(CASE WHEN status <> \\?").WithArgs(models.OrderStatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"revenue", "paid"}).AddRow(300.0, 120.0))
	mock.ExpectQuery(q("SELECT status, COUNT(*) FROM orders GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "n"}).
			AddRow(models.OrderStatusPending, 2).
			AddRow(models.OrderStatusDelivered, 4))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM users WHERE is_admin = 0")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(17))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM products WHERE stock < ?")).WithArgs(LowStockThreshold).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("SELECT id, name, sku, stock FROM products").WithArgs(LowStockThreshold, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "sku", "stock"}).AddRow(int64(7), "Mug", "MUG-1", 2))
	mock.ExpectQuery("FROM order_items oi").WithArgs(models.OrderStatusCancelled, 5).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "units", "revenue"}).
			AddRow(int64(7), "Mug", 12, 150.0))

	stats, err := s.DashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 300.0, stats.Revenue)
	assert.Equal(t, 120.0, stats.PaidRevenue)
	assert.Equal(t, map[string]int{"pending": 2, "delivered": 4}, stats.OrdersByStatus)
	assert.Equal(t, 17, stats.Customers)
	assert.Equal(t, 1, stats.LowStockCount)
	require.Len(t, stats.LowStock, 1)
	assert.Equal(t, "MUG-1", stats.LowStock[0].SKU)
	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, 12, stats.TopProducts[0].UnitsSold)
	assert.NoError(t, mock.ExpectationsWereMet())
}
