package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ferrobank/platform/shared/models"
	"github.com/lib/pq"
)

// ErrDuplicateTransfer is returned when an insert loses the unique-constraint
// race on request_id. The caller falls back to the replay read path.
var ErrDuplicateTransfer = errors.New("transfer request id already recorded")

// TransferRepository persists saga state. The transfer row is the saga's only
// durable log: status plus the derived per-step idempotency keys downstream
// are what make the saga safe to retry.
type TransferRepository struct {
	db *sql.DB
}

func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// EnsureSchema creates the transfers table when it does not exist.
func EnsureSchema(db *sql.DB) error {
	stmt := `
		CREATE TABLE IF NOT EXISTS transfers (
			id                         TEXT PRIMARY KEY,
			request_id                 TEXT NOT NULL UNIQUE,
			origin_account_number      TEXT NOT NULL,
			destination_account_number TEXT NOT NULL,
			amount                     NUMERIC(15,2) NOT NULL CHECK (amount > 0),
			status                     TEXT NOT NULL,
			failure_reason             TEXT,
			created_at                 TIMESTAMPTZ NOT NULL,
			updated_at                 TIMESTAMPTZ NOT NULL
		)`
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("failed to ensure transfers schema: %w", err)
	}
	return nil
}

func (r *TransferRepository) Create(ctx context.Context, transfer *models.Transfer) error {
	query := `
		INSERT INTO transfers (id, request_id, origin_account_number, destination_account_number,
			amount, status, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		transfer.ID, transfer.RequestID, transfer.OriginAccountNumber,
		transfer.DestinationAccountNumber, transfer.Amount, transfer.Status,
		nullString(transfer.FailureReason), transfer.CreatedAt, transfer.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateTransfer
	}
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}
	return nil
}

// GetByRequestID returns the transfer for an idempotency key, or nil when the
// key has never been seen.
func (r *TransferRepository) GetByRequestID(ctx context.Context, requestID string) (*models.Transfer, error) {
	query := `
		SELECT id, request_id, origin_account_number, destination_account_number,
			amount, status, failure_reason, created_at, updated_at
		FROM transfers
		WHERE request_id = $1
	`
	var transfer models.Transfer
	var failureReason sql.NullString
	err := r.db.QueryRowContext(ctx, query, requestID).Scan(
		&transfer.ID, &transfer.RequestID, &transfer.OriginAccountNumber,
		&transfer.DestinationAccountNumber, &transfer.Amount, &transfer.Status,
		&failureReason, &transfer.CreatedAt, &transfer.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	if failureReason.Valid {
		transfer.FailureReason = failureReason.String
	}
	return &transfer, nil
}

// UpdateStatus moves a pending transfer into a new state. The WHERE clause
// refuses to touch rows already in a terminal state.
func (r *TransferRepository) UpdateStatus(ctx context.Context, transfer *models.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $2, failure_reason = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query,
		transfer.ID, transfer.Status, nullString(transfer.FailureReason), transfer.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("transfer %s is not pending", transfer.ID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
