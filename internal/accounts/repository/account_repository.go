package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/models"
	"github.com/lib/pq"
)

// AccountRepository handles all account state against the PostgreSQL write
// store (source of truth). Balance is never stored on the account row.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, tax_id, account_number, name, password_hash, status, created_at, updated_at`

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, tax_id, account_number, name, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.TaxID, account.AccountNumber, account.Name,
		account.PasswordHash, account.Status, account.CreatedAt, account.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return errs.New(errs.DuplicateAccount, "an account already exists for this tax ID")
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_number = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, accountNumber))
}

// GetByLogin resolves an account by tax ID or account number, whichever
// matches. Used by login only.
func (r *AccountRepository) GetByLogin(ctx context.Context, login string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE tax_id = $1 OR account_number = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, login))
}

func (r *AccountRepository) ExistsByTaxID(ctx context.Context, taxID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE tax_id = $1`, taxID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check tax ID: %w", err)
	}
	return count > 0, nil
}

func (r *AccountRepository) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE account_number = $1`, accountNumber).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check account number: %w", err)
	}
	return count > 0, nil
}

// UpdateStatus persists a status flip. Account number, tax ID and credentials
// are immutable; this is the only mutation accounts support.
func (r *AccountRepository) UpdateStatus(ctx context.Context, account *models.Account) error {
	query := `UPDATE accounts SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, account.ID, account.Status, account.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return errs.New(errs.InvalidAccount, "account not found")
	}
	return nil
}

func (r *AccountRepository) scanOne(row *sql.Row) (*models.Account, error) {
	var account models.Account
	err := row.Scan(
		&account.ID, &account.TaxID, &account.AccountNumber, &account.Name,
		&account.PasswordHash, &account.Status, &account.CreatedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
