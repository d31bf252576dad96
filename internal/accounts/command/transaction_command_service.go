package command

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ferrobank/platform/internal/accounts/repository"
	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/events"
	"github.com/ferrobank/platform/shared/models"
	"github.com/google/uuid"
)

// AccountStore is the account lookup surface the transaction processor needs.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error)
}

// TransactionStore is the append-only ledger surface.
type TransactionStore interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByRequestID(ctx context.Context, requestID string) (*models.Transaction, error)
	BalanceByAccountID(ctx context.Context, accountID string) (float64, error)
}

// BalanceCache invalidates cached balance views after a ledger append.
type BalanceCache interface {
	Invalidate(ctx context.Context, accountNumber string)
}

// TransactionCommandService validates and appends credit/debit entries.
// Appends are idempotent on the request ID: a replay returns the recorded
// outcome with the current balance and never touches the ledger again.
type TransactionCommandService struct {
	accounts     AccountStore
	transactions TransactionStore
	balances     BalanceCache
}

func NewTransactionCommandService(accounts AccountStore, transactions TransactionStore, balances BalanceCache) *TransactionCommandService {
	return &TransactionCommandService{
		accounts:     accounts,
		transactions: transactions,
		balances:     balances,
	}
}

func (s *TransactionCommandService) PostTransaction(ctx context.Context, cmd cqrs.PostTransactionCommand) (*models.TransactionResult, error) {
	if cmd.RequestID == "" {
		return nil, errs.New(errs.InvalidRequestID, "request ID must not be empty")
	}

	// Idempotency: a known request ID short-circuits to the recorded outcome.
	existing, err := s.transactions.GetByRequestID(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.replay(ctx, existing)
	}

	if cmd.Type != models.TransactionCredit && cmd.Type != models.TransactionDebit {
		return nil, errs.New(errs.InvalidType, "transaction type must be 'C' (credit) or 'D' (debit)")
	}
	if cmd.Amount <= 0 {
		return nil, errs.New(errs.InvalidValue, "amount must be greater than zero")
	}
	if cmd.AccountNumber == "" {
		return nil, errs.New(errs.InvalidAccount, "account number is required")
	}

	account, err := s.accounts.GetByAccountNumber(ctx, cmd.AccountNumber)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errs.New(errs.InvalidAccount, "account not found")
	}
	if !account.IsActive() {
		return nil, errs.New(errs.InactiveAccount, "account is inactive")
	}

	if cmd.Type == models.TransactionDebit {
		balance, err := s.transactions.BalanceByAccountID(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if balance < cmd.Amount {
			return nil, errs.New(errs.InsufficientFunds,
				fmt.Sprintf("insufficient funds: balance %.2f, required %.2f", balance, cmd.Amount))
		}
	}

	transaction := &models.Transaction{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		RequestID: cmd.RequestID,
		Amount:    cmd.Amount,
		Type:      cmd.Type,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.transactions.Create(ctx, transaction); err != nil {
		if err == repository.ErrDuplicateRequest {
			// Lost the unique-constraint race against a concurrent duplicate.
			recorded, readErr := s.transactions.GetByRequestID(ctx, cmd.RequestID)
			if readErr != nil {
				return nil, readErr
			}
			if recorded == nil {
				return nil, fmt.Errorf("duplicate request %s not readable after insert conflict", cmd.RequestID)
			}
			return s.replay(ctx, recorded)
		}
		return nil, err
	}

	newBalance, err := s.transactions.BalanceByAccountID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	s.balances.Invalidate(ctx, account.AccountNumber)

	return &models.TransactionResult{
		TransactionID: transaction.ID,
		AccountNumber: account.AccountNumber,
		Amount:        transaction.Amount,
		Type:          transaction.Type,
		NewBalance:    newBalance,
		CreatedAt:     transaction.CreatedAt,
	}, nil
}

// replay rebuilds the result of a previously recorded transaction. The
// balance is recomputed; everything else is returned as recorded.
func (s *TransactionCommandService) replay(ctx context.Context, transaction *models.Transaction) (*models.TransactionResult, error) {
	account, err := s.accounts.GetByID(ctx, transaction.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errs.New(errs.InvalidAccount, "account not found")
	}
	balance, err := s.transactions.BalanceByAccountID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &models.TransactionResult{
		TransactionID: transaction.ID,
		AccountNumber: account.AccountNumber,
		Amount:        transaction.Amount,
		Type:          transaction.Type,
		NewBalance:    balance,
		CreatedAt:     transaction.CreatedAt,
	}, nil
}

// HandleFeeAppliedEvent debits the flat fee announced by the fees service.
// The debit's idempotency key is derived from the transfer's request ID, so
// redelivery of the same fee event can never double-debit.
func (s *TransactionCommandService) HandleFeeAppliedEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.FeeApplied {
		return nil
	}
	var data events.FeeAppliedEvent
	if err := events.DecodeData(event, &data); err != nil {
		return err
	}

	result, err := s.PostTransaction(ctx, cqrs.PostTransactionCommand{
		RequestID:     data.RequestID + "-fee",
		AccountNumber: data.AccountNumber,
		Amount:        data.FeeAmount,
		Type:          models.TransactionDebit,
	})
	if err != nil {
		switch errs.Code(err) {
		case errs.InvalidAccount, errs.InactiveAccount:
			// Accepted behavior: the fee is dropped, not retried.
			log.Printf("Skipping fee debit for account %s: %v", data.AccountNumber, err)
			return nil
		}
		return fmt.Errorf("failed to debit fee for account %s: %w", data.AccountNumber, err)
	}

	log.Printf("Fee of %.2f debited from account %s (new balance %.2f)",
		data.FeeAmount, data.AccountNumber, result.NewBalance)
	return nil
}
