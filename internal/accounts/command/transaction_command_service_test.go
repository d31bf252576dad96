package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ferrobank/platform/internal/accounts/repository"
	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/events"
	"github.com/ferrobank/platform/shared/models"
)

// ---- in-memory fakes ----

type fakeAccountStore struct {
	accounts map[string]*models.Account // keyed by account number
}

func newFakeAccountStore(accounts ...*models.Account) *fakeAccountStore {
	s := &fakeAccountStore{accounts: map[string]*models.Account{}}
	for _, a := range accounts {
		s.accounts[a.AccountNumber] = a
	}
	return s
}

func (s *fakeAccountStore) GetByID(ctx context.Context, id string) (*models.Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (s *fakeAccountStore) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	return s.accounts[accountNumber], nil
}

type fakeLedger struct {
	entries    []*models.Transaction
	createErr  error
	balanceErr error
}

func (l *fakeLedger) Create(ctx context.Context, transaction *models.Transaction) error {
	if l.createErr != nil {
		return l.createErr
	}
	for _, e := range l.entries {
		if e.RequestID == transaction.RequestID {
			return repository.ErrDuplicateRequest
		}
	}
	l.entries = append(l.entries, transaction)
	return nil
}

func (l *fakeLedger) GetByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	for _, e := range l.entries {
		if e.RequestID == requestID {
			return e, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) BalanceByAccountID(ctx context.Context, accountID string) (float64, error) {
	if l.balanceErr != nil {
		return 0, l.balanceErr
	}
	balance := 0.0
	for _, e := range l.entries {
		if e.AccountID != accountID {
			continue
		}
		if e.Type == models.TransactionCredit {
			balance += e.Amount
		} else {
			balance -= e.Amount
		}
	}
	return balance, nil
}

type fakeBalanceCache struct {
	invalidated []string
}

func (c *fakeBalanceCache) Invalidate(ctx context.Context, accountNumber string) {
	c.invalidated = append(c.invalidated, accountNumber)
}

// ---- test data ----

func activeAccount() *models.Account {
	return &models.Account{
		ID:            "acc-1",
		AccountNumber: "1234567890",
		Name:          "Ana Souza",
		Status:        models.AccountActive,
	}
}

func seededLedger(accountID string, credits ...float64) *fakeLedger {
	l := &fakeLedger{}
	for i, amount := range credits {
		l.entries = append(l.entries, &models.Transaction{
			ID:        "seed-" + string(rune('a'+i)),
			AccountID: accountID,
			RequestID: "seed-req-" + string(rune('a'+i)),
			Amount:    amount,
			Type:      models.TransactionCredit,
			CreatedAt: time.Now().UTC(),
		})
	}
	return l
}

// ---- tests ----

func TestPostTransactionValidation(t *testing.T) {
	tests := []struct {
		name         string
		cmd          cqrs.PostTransactionCommand
		expectedCode string
	}{
		{
			name:         "empty request ID",
			cmd:          cqrs.PostTransactionCommand{AccountNumber: "1234567890", Amount: 10, Type: models.TransactionCredit},
			expectedCode: errs.InvalidRequestID,
		},
		{
			name:         "unknown type",
			cmd:          cqrs.PostTransactionCommand{RequestID: "r1", AccountNumber: "1234567890", Amount: 10, Type: "X"},
			expectedCode: errs.InvalidType,
		},
		{
			name:         "zero amount",
			cmd:          cqrs.PostTransactionCommand{RequestID: "r1", AccountNumber: "1234567890", Amount: 0, Type: models.TransactionCredit},
			expectedCode: errs.InvalidValue,
		},
		{
			name:         "negative amount",
			cmd:          cqrs.PostTransactionCommand{RequestID: "r1", AccountNumber: "1234567890", Amount: -5, Type: models.TransactionDebit},
			expectedCode: errs.InvalidValue,
		},
		{
			name:         "empty account number",
			cmd:          cqrs.PostTransactionCommand{RequestID: "r1", Amount: 10, Type: models.TransactionCredit},
			expectedCode: errs.InvalidAccount,
		},
		{
			name:         "account not found",
			cmd:          cqrs.PostTransactionCommand{RequestID: "r1", AccountNumber: "9999999999", Amount: 10, Type: models.TransactionCredit},
			expectedCode: errs.InvalidAccount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeLedger{}
			svc := NewTransactionCommandService(newFakeAccountStore(activeAccount()), ledger, &fakeBalanceCache{})
			_, err := svc.PostTransaction(context.Background(), tt.cmd)
			if errs.Code(err) != tt.expectedCode {
				t.Errorf("expected code %s, got %v", tt.expectedCode, err)
			}
			if len(ledger.entries) != 0 {
				t.Errorf("expected no ledger append, got %d entries", len(ledger.entries))
			}
		})
	}
}

func TestPostTransactionCreditAndDebit(t *testing.T) {
	account := activeAccount()
	ledger := &fakeLedger{}
	cache := &fakeBalanceCache{}
	svc := NewTransactionCommandService(newFakeAccountStore(account), ledger, cache)

	credit, err := svc.PostTransaction(context.Background(), cqrs.PostTransactionCommand{
		RequestID: "req-c1", AccountNumber: account.AccountNumber, Amount: 100, Type: models.TransactionCredit,
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if credit.NewBalance != 100 {
		t.Errorf("expected balance 100 after credit, got %.2f", credit.NewBalance)
	}

	debit, err := svc.PostTransaction(context.Background(), cqrs.PostTransactionCommand{
		RequestID: "req-d1", AccountNumber: account.AccountNumber, Amount: 30, Type: models.TransactionDebit,
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if debit.NewBalance != 70 {
		t.Errorf("expected balance 70 after debit, got %.2f", debit.NewBalance)
	}
	if len(ledger.entries) != 2 {
		t.Errorf("expected 2 ledger entries, got %d", len(ledger.entries))
	}
	if len(cache.invalidated) != 2 {
		t.Errorf("expected 2 cache invalidations, got %d", len(cache.invalidated))
	}
}

func TestPostTransactionInsufficientFunds(t *testing.T) {
	account := activeAccount()
	ledger := seededLedger(account.ID, 50)
	svc := NewTransactionCommandService(newFakeAccountStore(account), ledger, &fakeBalanceCache{})

	_, err := svc.PostTransaction(context.Background(), cqrs.PostTransactionCommand{
		RequestID: "req-d1", AccountNumber: account.AccountNumber, Amount: 50.01, Type: models.TransactionDebit,
	})
	if errs.Code(err) != errs.InsufficientFunds {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %v", err)
	}
	if len(ledger.entries) != 1 {
		t.Errorf("failed debit must not append, got %d entries", len(ledger.entries))
	}

	// An exact-balance debit is allowed.
	result, err := svc.PostTransaction(context.Background(), cqrs.PostTransactionCommand{
		RequestID: "req-d2", AccountNumber: account.AccountNumber, Amount: 50, Type: models.TransactionDebit,
	})
	if err != nil {
		t.Fatalf("exact-balance debit: %v", err)
	}
	if result.NewBalance != 0 {
		t.Errorf("expected balance 0, got %.2f", result.NewBalance)
	}
}

func TestPostTransactionInactiveAccount(t *testing.T) {
	account := activeAccount()
	account.Status = models.AccountInactive
	ledger := &fakeLedger{}
	svc := NewTransactionCommandService(newFakeAccountStore(account), ledger, &fakeBalanceCache{})

	_, err := svc.PostTransaction(context.Background(), cqrs.PostTransactionCommand{
		RequestID: "req-1", AccountNumber: account.AccountNumber, Amount: 10, Type: models.TransactionCredit,
	})
	if errs.Code(err) != errs.InactiveAccount {
		t.Fatalf("expected INACTIVE_ACCOUNT, got %v", err)
	}
	if len(ledger.entries) != 0 {
		t.Errorf("expected no ledger append, got %d entries", len(ledger.entries))
	}
}

func TestPostTransactionIdempotentReplay(t *testing.T) {
	account := activeAccount()
	ledger := &fakeLedger{}
	svc := NewTransactionCommandService(newFakeAccountStore(account), ledger, &fakeBalanceCache{})

	cmd := cqrs.PostTransactionCommand{
		RequestID: "req-once", AccountNumber: account.AccountNumber, Amount: 25, Type: models.TransactionCredit,
	}
	first, err := svc.PostTransaction(context.Background(), cmd)
	if err != nil {
		t.Fatalf("first post: %v", err)
	}

	for i := 0; i < 5; i++ {
		replayed, err := svc.PostTransaction(context.Background(), cmd)
		if err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
		if replayed.TransactionID != first.TransactionID {
			t.Errorf("replay returned a different transaction: %s vs %s", replayed.TransactionID, first.TransactionID)
		}
		if replayed.NewBalance != 25 {
			t.Errorf("replay balance %.2f, want 25", replayed.NewBalance)
		}
	}
	if len(ledger.entries) != 1 {
		t.Errorf("expected a single ledger entry after replays, got %d", len(ledger.entries))
	}
}

func TestPostTransactionDuplicateInsertRace(t *testing.T) {
	// The request ID is unknown at read time, but the insert reports a
	// duplicate: the service must fall back to the recorded entry.
	account := activeAccount()
	recorded := &models.Transaction{
		ID: "txn-existing", AccountID: account.ID, RequestID: "req-race",
		Amount: 40, Type: models.TransactionCredit, CreatedAt: time.Now().UTC(),
	}
	ledger := &racingLedger{fakeLedger: fakeLedger{}, recorded: recorded}
	svc := NewTransactionCommandService(newFakeAccountStore(account), ledger, &fakeBalanceCache{})

	result, err := svc.PostTransaction(context.Background(), cqrs.PostTransactionCommand{
		RequestID: "req-race", AccountNumber: account.AccountNumber, Amount: 40, Type: models.TransactionCredit,
	})
	if err != nil {
		t.Fatalf("expected replay after duplicate insert, got %v", err)
	}
	if result.TransactionID != "txn-existing" {
		t.Errorf("expected recorded transaction txn-existing, got %s", result.TransactionID)
	}
}

// racingLedger simulates a concurrent writer winning the unique-constraint
// race: reads miss until the insert fails, then the recorded row appears.
type racingLedger struct {
	fakeLedger
	recorded *models.Transaction
	inserted bool
}

func (l *racingLedger) Create(ctx context.Context, transaction *models.Transaction) error {
	l.inserted = true
	return repository.ErrDuplicateRequest
}

func (l *racingLedger) GetByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	if !l.inserted {
		return nil, nil
	}
	if requestID == l.recorded.RequestID {
		return l.recorded, nil
	}
	return nil, nil
}

func feeEvent(requestID, accountNumber string, amount float64) events.Event {
	return events.Event{
		Type:      events.FeeApplied,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"requestId":     requestID,
			"accountNumber": accountNumber,
			"feeAmount":     amount,
		},
	}
}

func TestHandleFeeAppliedEvent(t *testing.T) {
	account := activeAccount()
	ledger := seededLedger(account.ID, 500)
	svc := NewTransactionCommandService(newFakeAccountStore(account), ledger, &fakeBalanceCache{})

	if err := svc.HandleFeeAppliedEvent(context.Background(), feeEvent("tr-001", account.AccountNumber, 2.00)); err != nil {
		t.Fatalf("fee debit: %v", err)
	}

	entry, _ := ledger.GetByRequestID(context.Background(), "tr-001-fee")
	if entry == nil {
		t.Fatal("expected fee debit recorded under derived key tr-001-fee")
	}
	if entry.Type != models.TransactionDebit || entry.Amount != 2.00 {
		t.Errorf("unexpected fee entry: type=%s amount=%.2f", entry.Type, entry.Amount)
	}

	// Redelivery of the same event replays the recorded debit.
	if err := svc.HandleFeeAppliedEvent(context.Background(), feeEvent("tr-001", account.AccountNumber, 2.00)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(ledger.entries) != 2 { // seed credit + one fee debit
		t.Errorf("expected 2 ledger entries after redelivery, got %d", len(ledger.entries))
	}
}

func TestHandleFeeAppliedEventSkipsBadAccounts(t *testing.T) {
	inactive := activeAccount()
	inactive.Status = models.AccountInactive
	ledger := &fakeLedger{}
	svc := NewTransactionCommandService(newFakeAccountStore(inactive), ledger, &fakeBalanceCache{})

	// Unknown and inactive accounts are accepted and dropped, not retried.
	if err := svc.HandleFeeAppliedEvent(context.Background(), feeEvent("tr-002", "9999999999", 2.00)); err != nil {
		t.Errorf("unknown account should not propagate: %v", err)
	}
	if err := svc.HandleFeeAppliedEvent(context.Background(), feeEvent("tr-003", inactive.AccountNumber, 2.00)); err != nil {
		t.Errorf("inactive account should not propagate: %v", err)
	}
	if len(ledger.entries) != 0 {
		t.Errorf("expected no ledger appends, got %d", len(ledger.entries))
	}
}

func TestHandleFeeAppliedEventPropagatesTransientErrors(t *testing.T) {
	account := activeAccount()
	ledger := seededLedger(account.ID, 500)
	ledger.createErr = errors.New("connection reset")
	svc := NewTransactionCommandService(newFakeAccountStore(account), ledger, &fakeBalanceCache{})

	// Transient failures must bubble up so the message is redelivered.
	if err := svc.HandleFeeAppliedEvent(context.Background(), feeEvent("tr-004", account.AccountNumber, 2.00)); err == nil {
		t.Error("expected transient error to propagate for redelivery")
	}
}

func TestHandleFeeAppliedEventIgnoresOtherTypes(t *testing.T) {
	account := activeAccount()
	ledger := &fakeLedger{}
	svc := NewTransactionCommandService(newFakeAccountStore(account), ledger, &fakeBalanceCache{})

	event := events.Event{Type: events.TransferRealized, Timestamp: time.Now().UTC()}
	if err := svc.HandleFeeAppliedEvent(context.Background(), event); err != nil {
		t.Errorf("unrelated event types must be ignored: %v", err)
	}
	if len(ledger.entries) != 0 {
		t.Errorf("expected no ledger appends, got %d", len(ledger.entries))
	}
}
