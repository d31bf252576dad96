package query

import (
	"context"
	"time"

	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/models"
)

// AccountReader resolves accounts for read-side queries.
type AccountReader interface {
	GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error)
}

// LedgerReader derives balances from the ledger.
type LedgerReader interface {
	BalanceByAccountID(ctx context.Context, accountID string) (float64, error)
}

// BalanceViewCache is the Redis-backed read model for balances.
type BalanceViewCache interface {
	Get(ctx context.Context, accountNumber string) (*models.BalanceView, bool)
	Cache(ctx context.Context, view *models.BalanceView)
}

// AccountQueryService serves balance reads. The cache is a convenience only;
// every miss recomputes the balance from the ledger and warms the cache.
type AccountQueryService struct {
	accounts AccountReader
	ledger   LedgerReader
	balances BalanceViewCache
}

func NewAccountQueryService(accounts AccountReader, ledger LedgerReader, balances BalanceViewCache) *AccountQueryService {
	return &AccountQueryService{accounts: accounts, ledger: ledger, balances: balances}
}

func (s *AccountQueryService) GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (*models.BalanceView, error) {
	if q.AccountNumber == "" {
		return nil, errs.New(errs.InvalidAccount, "account number is required")
	}

	account, err := s.accounts.GetByAccountNumber(ctx, q.AccountNumber)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errs.New(errs.InvalidAccount, "account not found")
	}
	if !account.IsActive() {
		return nil, errs.New(errs.InactiveAccount, "account is inactive")
	}

	if view, ok := s.balances.Get(ctx, q.AccountNumber); ok {
		return view, nil
	}

	balance, err := s.ledger.BalanceByAccountID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	view := &models.BalanceView{
		AccountNumber: account.AccountNumber,
		HolderName:    account.Name,
		Balance:       balance,
		AsOf:          time.Now().UTC(),
	}
	s.balances.Cache(ctx, view)
	return view, nil
}
