package storage

import (
	"database/sql"
	"os"
	"testing"
)

func mysqlTestDSN() string {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return dsn
	}
	return "root:root@tcp(localhost:3306)/grocery?parseTime=true"
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id CHAR(36) PRIMARY KEY,
		category_id CHAR(36) NOT NULL DEFAULT '',
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		stock INT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at DATETIME NULL
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id CHAR(36) PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL UNIQUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id CHAR(36) PRIMARY KEY,
		cart_id CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		quantity INT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_cart_product (cart_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id CHAR(36) PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		status VARCHAR(16) NOT NULL,
		total_amount DECIMAL(10,2) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id CHAR(36) PRIMARY KEY,
		order_id CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		quantity INT NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		KEY idx_order (order_id)
	)`,
}

func ensureSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
}
