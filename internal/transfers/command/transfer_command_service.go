package command

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ferrobank/platform/internal/transfers/repository"
	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/events"
	"github.com/ferrobank/platform/shared/models"
	"github.com/google/uuid"
)

// TransferStore persists saga state.
type TransferStore interface {
	Create(ctx context.Context, transfer *models.Transfer) error
	GetByRequestID(ctx context.Context, requestID string) (*models.Transfer, error)
	UpdateStatus(ctx context.Context, transfer *models.Transfer) error
}

// AccountsGateway is the transaction-processor contract on the accounts
// service. All three calls are idempotent on their request ID.
type AccountsGateway interface {
	MakeDebit(ctx context.Context, requestID, accountNumber string, amount float64, bearerToken string) (*models.TransactionResult, error)
	MakeCredit(ctx context.Context, requestID, accountNumber string, amount float64, bearerToken string) (*models.TransactionResult, error)
	GetBalance(ctx context.Context, accountNumber, bearerToken string) (*models.BalanceView, error)
}

// EventPublisher emits events onto a stream.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// TransferCommandService coordinates the debit-then-credit saga.
//
// Each step uses an idempotency key derived from the transfer's own key
// ({key}-debit, {key}-credit, {key}-compensation), so if the coordinator
// retries a step after a crash the ledger's idempotency guard prevents
// double-application. The transfer row's unique request_id makes the whole
// saga safe to retry end-to-end from the client.
type TransferCommandService struct {
	transfers TransferStore
	accounts  AccountsGateway
	publisher EventPublisher
}

func NewTransferCommandService(transfers TransferStore, accounts AccountsGateway, publisher EventPublisher) *TransferCommandService {
	return &TransferCommandService{
		transfers: transfers,
		accounts:  accounts,
		publisher: publisher,
	}
}

func (s *TransferCommandService) CreateTransfer(ctx context.Context, cmd cqrs.CreateTransferCommand) (*models.TransferView, error) {
	if cmd.RequestID == "" {
		return nil, errs.New(errs.InvalidRequestID, "request ID must not be empty")
	}
	if cmd.OriginAccountNumber == "" || cmd.DestinationAccountNumber == "" {
		return nil, errs.New(errs.InvalidAccount, "origin and destination account numbers are required")
	}
	if cmd.OriginAccountNumber == cmd.DestinationAccountNumber {
		return nil, errs.New(errs.InvalidOperation, "origin and destination accounts must differ")
	}
	if cmd.Amount <= 0 {
		return nil, errs.New(errs.InvalidValue, "amount must be greater than zero")
	}
	if cmd.OriginAccountID == "" {
		return nil, errs.New(errs.UserUnauthorized, "caller identity could not be resolved")
	}

	// Whole-saga idempotency: a known request ID returns the recorded state
	// verbatim, whether pending or terminal. No step is re-executed.
	existing, err := s.transfers.GetByRequestID(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Printf("Transfer %s already processed (status %s)", cmd.RequestID, existing.Status)
		return transferToView(existing), nil
	}

	// Best-effort destination pre-check. Validation failures abort before any
	// mutation; anything else (timeout, transient) is logged and ignored —
	// the authoritative check happens at credit time.
	if _, err := s.accounts.GetBalance(ctx, cmd.DestinationAccountNumber, cmd.BearerToken); err != nil {
		switch errs.Code(err) {
		case errs.InvalidAccount, errs.InactiveAccount:
			return nil, err
		default:
			log.Printf("Could not pre-validate destination %s: %v", cmd.DestinationAccountNumber, err)
		}
	}

	now := time.Now().UTC()
	transfer := &models.Transfer{
		ID:                       uuid.NewString(),
		RequestID:                cmd.RequestID,
		OriginAccountNumber:      cmd.OriginAccountNumber,
		DestinationAccountNumber: cmd.DestinationAccountNumber,
		Amount:                   cmd.Amount,
		Status:                   models.TransferPending,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.transfers.Create(ctx, transfer); err != nil {
		if err == repository.ErrDuplicateTransfer {
			// Lost the unique-constraint race against a concurrent duplicate.
			recorded, readErr := s.transfers.GetByRequestID(ctx, cmd.RequestID)
			if readErr != nil {
				return nil, readErr
			}
			if recorded == nil {
				return nil, fmt.Errorf("duplicate transfer %s not readable after insert conflict", cmd.RequestID)
			}
			return transferToView(recorded), nil
		}
		return nil, err
	}

	// Step 1: debit the origin. On failure nothing was moved, so there is
	// nothing to compensate.
	if _, err := s.accounts.MakeDebit(ctx, cmd.RequestID+"-debit", cmd.OriginAccountNumber, cmd.Amount, cmd.BearerToken); err != nil {
		log.Printf("Debit failed for transfer %s: %v", cmd.RequestID, err)
		s.finish(ctx, transfer, models.TransferFailed, fmt.Sprintf("debit failed: %v", err))
		return nil, errs.New(errs.TransferFailed, fmt.Sprintf("transfer failed: %v", err))
	}
	log.Printf("Debited %.2f from account %s for transfer %s", cmd.Amount, cmd.OriginAccountNumber, cmd.RequestID)

	// Step 2: credit the destination. On failure the debit must be undone.
	if err := s.creditDestination(ctx, cmd, transfer); err != nil {
		return nil, err
	}

	s.finish(ctx, transfer, models.TransferCompleted, "")
	log.Printf("Transfer %s completed: %.2f from %s to %s",
		cmd.RequestID, cmd.Amount, cmd.OriginAccountNumber, cmd.DestinationAccountNumber)

	// Fire-and-forget: a publish failure never rolls back a completed
	// transfer, it only delays the fee.
	if err := s.publisher.Publish(ctx, events.TransferEventsStream, events.TransferRealized, events.TransferRealizedEvent{
		RequestID:      cmd.RequestID,
		AccountNumber:  cmd.OriginAccountNumber,
		TransferAmount: cmd.Amount,
	}); err != nil {
		log.Printf("Failed to publish transfer.realized for %s (transfer remains completed): %v", cmd.RequestID, err)
	}

	return transferToView(transfer), nil
}

// creditDestination runs the credit leg and, on failure, the compensation
// leg. It returns nil only when the credit succeeded.
func (s *TransferCommandService) creditDestination(ctx context.Context, cmd cqrs.CreateTransferCommand, transfer *models.Transfer) error {
	_, creditErr := s.accounts.MakeCredit(ctx, cmd.RequestID+"-credit", cmd.DestinationAccountNumber, cmd.Amount, cmd.BearerToken)
	if creditErr == nil {
		return nil
	}
	log.Printf("Credit failed for transfer %s, compensating origin %s: %v",
		cmd.RequestID, cmd.OriginAccountNumber, creditErr)

	// Compensation: credit the origin back for the same amount.
	_, compErr := s.accounts.MakeCredit(ctx, cmd.RequestID+"-compensation", cmd.OriginAccountNumber, cmd.Amount, cmd.BearerToken)
	if compErr != nil {
		// The one unrecoverable state: funds left the origin and could not
		// be returned. Operators must reconcile by hand.
		log.Printf("CRITICAL: compensation failed for transfer %s on account %s, manual reconciliation required: %v",
			cmd.RequestID, cmd.OriginAccountNumber, compErr)
		s.finish(ctx, transfer, models.TransferFailed,
			fmt.Sprintf("credit failed: %v; compensation failed: %v", creditErr, compErr))
	} else {
		log.Printf("Compensation succeeded for transfer %s: origin %s restored", cmd.RequestID, cmd.OriginAccountNumber)
		s.finish(ctx, transfer, models.TransferCompensated, fmt.Sprintf("credit failed: %v", creditErr))
	}

	return errs.New(errs.TransferFailed, fmt.Sprintf("transfer failed: %v", creditErr))
}

// finish persists the transfer's final status. A persistence failure here is
// logged rather than propagated: the ledger already reflects the true
// movements, and the row can be reconciled from the step keys.
func (s *TransferCommandService) finish(ctx context.Context, transfer *models.Transfer, status models.TransferStatus, reason string) {
	transfer.Status = status
	transfer.FailureReason = reason
	transfer.UpdatedAt = time.Now().UTC()
	if err := s.transfers.UpdateStatus(ctx, transfer); err != nil {
		log.Printf("Failed to persist status %s for transfer %s: %v", status, transfer.RequestID, err)
	}
}

func transferToView(t *models.Transfer) *models.TransferView {
	return &models.TransferView{
		TransferID:               t.ID,
		RequestID:                t.RequestID,
		OriginAccountNumber:      t.OriginAccountNumber,
		DestinationAccountNumber: t.DestinationAccountNumber,
		Amount:                   t.Amount,
		Status:                   t.Status,
		CreatedAt:                t.CreatedAt,
	}
}
