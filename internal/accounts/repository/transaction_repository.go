package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ferrobank/platform/shared/models"
)

// ErrDuplicateRequest is returned when an insert loses the unique-constraint
// race on request_id. The caller falls back to the replay read path.
var ErrDuplicateRequest = errors.New("request id already recorded")

// TransactionRepository handles the append-only ledger. Entries are immutable:
// there is no update or delete, and balance is always derived by summation.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, request_id, amount, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		transaction.ID, transaction.AccountID, transaction.RequestID,
		transaction.Amount, transaction.Type, transaction.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateRequest
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByRequestID returns the recorded entry for an idempotency key, or nil
// when the key has never been seen.
func (r *TransactionRepository) GetByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	query := `
		SELECT id, account_id, request_id, amount, type, created_at
		FROM transactions
		WHERE request_id = $1
	`
	var transaction models.Transaction
	err := r.db.QueryRowContext(ctx, query, requestID).Scan(
		&transaction.ID, &transaction.AccountID, &transaction.RequestID,
		&transaction.Amount, &transaction.Type, &transaction.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &transaction, nil
}

// BalanceByAccountID derives the balance: sum(credits) - sum(debits).
// Zero when the account has no ledger entries.
func (r *TransactionRepository) BalanceByAccountID(ctx context.Context, accountID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'C' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE account_id = $1
	`
	var balance float64
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to compute balance: %w", err)
	}
	return balance, nil
}
