package repository

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates the accounts-service tables when they do not exist.
// The unique index on transactions.request_id is what makes ledger appends
// idempotent under concurrent duplicate delivery: the losing insert fails
// and the caller falls back to the read path.
func EnsureSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id             TEXT PRIMARY KEY,
			tax_id         TEXT NOT NULL UNIQUE,
			account_number TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL,
			password_hash  TEXT NOT NULL,
			status         TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			request_id TEXT NOT NULL UNIQUE,
			amount     NUMERIC(15,2) NOT NULL CHECK (amount > 0),
			type       TEXT NOT NULL CHECK (type IN ('C', 'D')),
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_id ON transactions (account_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to ensure accounts schema: %w", err)
		}
	}
	return nil
}
