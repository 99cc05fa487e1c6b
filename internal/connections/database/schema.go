package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// The three collections are deliberately unconnected: cross-references
// (table_id, current_bill_id, order_ids) are plain id fields and the
// application layer maintains consistency across them.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tables (
		id TEXT PRIMARY KEY,
		number INT NOT NULL UNIQUE,
		seats INT NOT NULL,
		is_occupied BOOLEAN NOT NULL DEFAULT FALSE,
		current_bill_id TEXT,
		locked_by TEXT,
		locked_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		waiter TEXT NOT NULL,
		order_ids JSONB NOT NULL DEFAULT '[]',
		total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		paid_at TIMESTAMPTZ,
		payment_method TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS bills_table_status_idx ON bills (table_id, status)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		table_id TEXT NOT NULL,
		waiter TEXT NOT NULL,
		items JSONB NOT NULL DEFAULT '[]',
		total_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
		status TEXT NOT NULL
	)`,
}

// Migrate creates the tables/bills/orders collections.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// defaultFloor mirrors the provisioning seed: table numbers with their
// seat counts.
var defaultFloor = map[int]int{
	1: 2, 2: 2, 3: 4, 4: 4, 5: 4, 6: 6, 7: 6, 8: 8,
}

// SeedTables provisions the default dining floor when the tables
// collection is empty. Tables persist indefinitely once created.
func SeedTables(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tables`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count tables: %w", err)
	}
	if count > 0 {
		return nil
	}
	for number, seats := range defaultFloor {
		_, err := db.ExecContext(ctx, `
			INSERT INTO tables (id, number, seats) VALUES ($1, $2, $3)
			ON CONFLICT (number) DO NOTHING
		`, uuid.NewString(), number, seats)
		if err != nil {
			return fmt.Errorf("failed to seed table %d: %w", number, err)
		}
	}
	return nil
}
