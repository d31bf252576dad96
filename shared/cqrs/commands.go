package cqrs

import "github.com/ferrobank/platform/shared/models"

type RegisterAccountCommand struct {
	TaxID    string
	Name     string
	Password string
}

type LoginCommand struct {
	// Login accepts either the tax ID or the account number.
	Login    string
	Password string
}

type DeactivateAccountCommand struct {
	AccountID string
	Password  string
}

// PostTransactionCommand appends a single credit or debit to an account's
// ledger. RequestID is the caller-supplied idempotency key: replays with the
// same key return the recorded outcome without a second append.
type PostTransactionCommand struct {
	RequestID     string
	AccountNumber string
	Amount        float64
	Type          models.TransactionType
}

// CreateTransferCommand starts the debit-then-credit saga. Origin identity is
// resolved from the bearer token at the boundary and passed in explicitly;
// the raw token rides along only so it can be forwarded to the accounts API.
type CreateTransferCommand struct {
	RequestID                string
	OriginAccountID          string
	OriginAccountNumber      string
	DestinationAccountNumber string
	Amount                   float64
	BearerToken              string
}
