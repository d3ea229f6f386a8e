// Package dbtest opens throwaway SQLite databases shaped like the Postgres
// schema so repository code can be exercised without a server.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// schema mirrors pkg/migrate/migrations with SQLite types. IDs have no
// default because SQLite lacks gen_random_uuid(); callers set them.
var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		bar_name TEXT,
		location TEXT,
		timezone TEXT,
		plan TEXT NOT NULL DEFAULT 'none',
		subscription_status TEXT,
		square_connected BOOLEAN NOT NULL DEFAULT 0,
		onboarding_complete BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE square_connections (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		merchant_id TEXT NOT NULL,
		location_id TEXT,
		expires_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT square_connections_user_id_key UNIQUE (user_id)
	)`,
	`CREATE TABLE staff_members (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		square_employee_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT staff_members_user_employee_key UNIQUE (user_id, square_employee_id)
	)`,
	`CREATE TABLE transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		square_transaction_id TEXT NOT NULL,
		date DATE NOT NULL,
		hour INTEGER NOT NULL,
		total_amount INTEGER NOT NULL,
		item_count INTEGER NOT NULL,
		staff_id TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		CONSTRAINT transactions_user_square_key UNIQUE (user_id, square_transaction_id)
	)`,
	`CREATE TABLE transaction_items (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		item_name TEXT NOT NULL,
		category TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		gross_amount INTEGER NOT NULL,
		CONSTRAINT transaction_items_txn_name_key UNIQUE (transaction_id, item_name)
	)`,
	`CREATE TABLE weekly_reports (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		week_start DATE NOT NULL,
		week_end DATE NOT NULL,
		report_html TEXT NOT NULL,
		report_text TEXT NOT NULL,
		used_sample_data BOOLEAN NOT NULL DEFAULT 0,
		generated_at DATETIME NOT NULL,
		CONSTRAINT weekly_reports_user_week_key UNIQUE (user_id, week_start)
	)`,
	`CREATE TABLE chat_messages (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
}

// Open returns a fresh in-memory database with every table created. Each
// call gets its own database, so tests never see each other's rows.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()[:8]
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// one connection keeps concurrent writers from tripping SQLITE_LOCKED
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
