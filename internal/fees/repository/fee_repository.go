package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ferrobank/platform/shared/models"
	"github.com/lib/pq"
)

// ErrDuplicateFee is returned when an insert loses the unique-constraint race
// on transfer_request_id. At most one fee ever exists per transfer.
var ErrDuplicateFee = errors.New("fee already applied for this transfer")

// FeeRepository persists applied fees. Rows are immutable.
type FeeRepository struct {
	db *sql.DB
}

func NewFeeRepository(db *sql.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

// EnsureSchema creates the fees table when it does not exist.
func EnsureSchema(db *sql.DB) error {
	stmt := `
		CREATE TABLE IF NOT EXISTS fees (
			id                  TEXT PRIMARY KEY,
			transfer_request_id TEXT NOT NULL UNIQUE,
			account_number      TEXT NOT NULL,
			transfer_amount     NUMERIC(15,2) NOT NULL CHECK (transfer_amount > 0),
			fee_amount          NUMERIC(15,2) NOT NULL CHECK (fee_amount > 0),
			applied_at          TIMESTAMPTZ NOT NULL
		)`
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("failed to ensure fees schema: %w", err)
	}
	return nil
}

func (r *FeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	query := `
		INSERT INTO fees (id, transfer_request_id, account_number, transfer_amount, fee_amount, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		fee.ID, fee.TransferRequestID, fee.AccountNumber,
		fee.TransferAmount, fee.FeeAmount, fee.AppliedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateFee
	}
	if err != nil {
		return fmt.Errorf("failed to create fee: %w", err)
	}
	return nil
}

// GetByTransferRequestID returns the fee for a transfer, or nil when none has
// been applied.
func (r *FeeRepository) GetByTransferRequestID(ctx context.Context, transferRequestID string) (*models.Fee, error) {
	query := `
		SELECT id, transfer_request_id, account_number, transfer_amount, fee_amount, applied_at
		FROM fees
		WHERE transfer_request_id = $1
	`
	var fee models.Fee
	err := r.db.QueryRowContext(ctx, query, transferRequestID).Scan(
		&fee.ID, &fee.TransferRequestID, &fee.AccountNumber,
		&fee.TransferAmount, &fee.FeeAmount, &fee.AppliedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fee: %w", err)
	}
	return &fee, nil
}

// ListByAccountNumber returns all fees charged to an account, newest first.
func (r *FeeRepository) ListByAccountNumber(ctx context.Context, accountNumber string) ([]models.Fee, error) {
	query := `
		SELECT id, transfer_request_id, account_number, transfer_amount, fee_amount, applied_at
		FROM fees
		WHERE account_number = $1
		ORDER BY applied_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list fees: %w", err)
	}
	defer rows.Close()

	var fees []models.Fee
	for rows.Next() {
		var fee models.Fee
		if err := rows.Scan(
			&fee.ID, &fee.TransferRequestID, &fee.AccountNumber,
			&fee.TransferAmount, &fee.FeeAmount, &fee.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fee: %w", err)
		}
		fees = append(fees, fee)
	}
	return fees, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
