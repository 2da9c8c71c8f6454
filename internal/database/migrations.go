package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on every boot; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		is_admin TINYINT(1) NOT NULL DEFAULT 0,
		phone VARCHAR(64) NULL,
		address_line1 VARCHAR(255) NULL,
		city VARCHAR(128) NULL,
		postal_code VARCHAR(32) NULL,
		country VARCHAR(64) NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		slug VARCHAR(300) NOT NULL,
		description TEXT NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		original_price DECIMAL(12,2) NULL,
		stock INT NOT NULL DEFAULT 0,
		images JSON NULL,
		category VARCHAR(128) NOT NULL,
		sku VARCHAR(64) NOT NULL UNIQUE,
		featured TINYINT(1) NOT NULL DEFAULT 0,
		is_new TINYINT(1) NOT NULL DEFAULT 0,
		discount INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_products_category (category),
		INDEX idx_products_slug (slug),
		CONSTRAINT chk_products_stock CHECK (stock >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		product_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		rating TINYINT NOT NULL,
		comment TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE KEY uq_reviews_user_product (user_id, product_id),
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity INT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uq_cart_user_product (user_id, product_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS wishlist_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		added_at DATETIME NOT NULL,
		UNIQUE KEY uq_wishlist_user_product (user_id, product_id),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		code VARCHAR(64) NOT NULL UNIQUE,
		type VARCHAR(16) NOT NULL,
		value DECIMAL(12,2) NOT NULL,
		min_purchase DECIMAL(12,2) NULL,
		max_discount DECIMAL(12,2) NULL,
		usage_limit INT NOT NULL,
		used_count INT NOT NULL DEFAULT 0,
		valid_from DATETIME NOT NULL,
		valid_until DATETIME NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		applicable_categories JSON NULL,
		applicable_products JSON NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		status VARCHAR(16) NOT NULL,
		is_paid TINYINT(1) NOT NULL DEFAULT 0,
		paid_at DATETIME NULL,
		subtotal DECIMAL(12,2) NOT NULL,
		discount DECIMAL(12,2) NOT NULL DEFAULT 0,
		coupon_code VARCHAR(64) NULL,
		total_amount DECIMAL(12,2) NOT NULL,
		shipping_address JSON NOT NULL,
		payment_method VARCHAR(32) NULL,
		payment_id VARCHAR(128) NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_orders_user (user_id, created_at),
		INDEX idx_orders_payment (payment_id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id BIGINT NOT NULL,
		product_id BIGINT NULL,
		name VARCHAR(255) NOT NULL,
		quantity INT NOT NULL,
		price DECIMAL(12,2) NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		message VARCHAR(512) NOT NULL,
		link VARCHAR(255) NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		INDEX idx_notifications_user (user_id, is_read, created_at),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_messages (
		id CHAR(36) PRIMARY KEY,
		kind VARCHAR(64) NOT NULL,
		payload JSON NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		next_attempt_at DATETIME NOT NULL,
		sent_at DATETIME NULL,
		failed_at DATETIME NULL,
		last_error TEXT NULL,
		created_at DATETIME NOT NULL,
		INDEX idx_outbox_due (sent_at, failed_at, next_attempt_at)
	)`,
	`CREATE TABLE IF NOT EXISTS assistant_messages (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		user_id BIGINT NOT NULL,
		user_message TEXT NOT NULL,
		reply TEXT NOT NULL,
		tokens_used INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		INDEX idx_assistant_user (user_id, created_at),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
