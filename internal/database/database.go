package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// OpenDB initializes and returns the MySQL connection pool. The DSN comes
// from the DB_DSN environment variable.
func OpenDB() (*sql.DB, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN environment variable is not set")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Printf("Error connecting to database: %v", err)
		return nil, err
	}

	log.Println("Database connection pool established")
	return db, nil
}

// schema holds the CREATE TABLE statements, applied idempotently at boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		full_name VARCHAR(255) NOT NULL,
		role VARCHAR(32) NOT NULL DEFAULT 'user',
		plan_id VARCHAR(64) NOT NULL DEFAULT 'free',
		credits INT NOT NULL DEFAULT 3,
		subscription_status VARCHAR(32) NOT NULL DEFAULT 'active',
		is_email_verified TINYINT(1) NOT NULL DEFAULT 0,
		is_phone_verified TINYINT(1) NOT NULL DEFAULT 0,
		phone_number VARCHAR(64) NULL,
		company_name VARCHAR(255) NULL,
		country VARCHAR(64) NULL,
		email_code VARCHAR(16) NULL,
		phone_code VARCHAR(16) NULL,
		code_expiry DATETIME NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS discounts (
		user_id BIGINT NOT NULL PRIMARY KEY,
		is_active TINYINT(1) NOT NULL DEFAULT 0,
		rate DOUBLE NOT NULL,
		end_date DATETIME NOT NULL,
		CONSTRAINT fk_discount_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS plans (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		price VARCHAR(32) NOT NULL,
		tier INT NOT NULL DEFAULT 0,
		credits INT NOT NULL DEFAULT 0,
		features TEXT NOT NULL,
		popular TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analysis_history (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		result_json JSON NOT NULL,
		created_at DATETIME NOT NULL,
		INDEX idx_history_user (user_id, created_at),
		CONSTRAINT fk_history_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id VARCHAR(36) NOT NULL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		plan_name VARCHAR(255) NOT NULL,
		amount VARCHAR(32) NOT NULL,
		status VARCHAR(32) NOT NULL,
		created_at DATETIME NOT NULL,
		INDEX idx_invoice_user (user_id, created_at),
		CONSTRAINT fk_invoice_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS site_content (
		content_key VARCHAR(128) NOT NULL PRIMARY KEY,
		body JSON NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
}

// EnsureSchema creates the tables if they do not exist yet.
func EnsureSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
