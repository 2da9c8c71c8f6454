package store

import (
	"context"
	"fmt"

	"github.com/01moynul/storefront-golang/internal/models"
)

const (
	LowStockThreshold = 10
	dashboardListSize = 5
)

// DashboardStats aggregates the admin KPIs in one read-only pass.
func (s *Store) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		OrdersByStatus: map[string]int{},
		LowStock:       []models.LowStockEntry{},
		TopProducts:    []models.TopProductStat{},
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN is_paid = 1 THEN total_amount ELSE 0 END), 0)
		FROM orders`, models.OrderStatusCancelled).Scan(&stats.Revenue, &stats.PaidRevenue)
	if err != nil {
		return nil, fmt.Errorf("revenue: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("orders by status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.OrdersByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE is_admin = 0`).Scan(&stats.Customers); err != nil {
		return nil, fmt.Errorf("customers: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE stock < ?`, LowStockThreshold).Scan(&stats.LowStockCount); err != nil {
		return nil, fmt.Errorf("low stock count: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT id, name, sku, stock FROM products
		WHERE stock < ?
		ORDER BY stock ASC, id ASC
		LIMIT ?`, LowStockThreshold, dashboardListSize)
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	for rows.Next() {
		var e models.LowStockEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.SKU, &e.Stock); err != nil {
			rows.Close()
			return nil, err
		}
		stats.LowStock = append(stats.LowStock, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT oi.product_id, MAX(oi.name), SUM(oi.quantity), COALESCE(SUM(oi.quantity * oi.price), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status <> ? AND oi.product_id IS NOT NULL
		GROUP BY oi.product_id
		ORDER BY SUM(oi.quantity) DESC
		LIMIT ?`, models.OrderStatusCancelled, dashboardListSize)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.TopProductStat
		if err := rows.Scan(&p.ProductID, &p.Name, &p.UnitsSold, &p.Revenue); err != nil {
			return nil, err
		}
		stats.TopProducts = append(stats.TopProducts, p)
	}
	return stats, rows.Err()
}
