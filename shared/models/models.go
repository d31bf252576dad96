package models

import "time"

type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

type TransactionType string

const (
	TransactionCredit TransactionType = "C"
	TransactionDebit  TransactionType = "D"
)

type TransferStatus string

const (
	TransferPending     TransferStatus = "pending"
	TransferCompleted   TransferStatus = "completed"
	TransferFailed      TransferStatus = "failed"
	TransferCompensated TransferStatus = "compensated"
)

// IsTerminal reports whether a transfer has reached a final state.
// Terminal transfers accept no further status changes.
func (s TransferStatus) IsTerminal() bool {
	return s == TransferCompleted || s == TransferFailed || s == TransferCompensated
}

type Account struct {
	ID            string        `json:"id"`
	TaxID         string        `json:"-"`
	AccountNumber string        `json:"accountNumber"`
	Name          string        `json:"name"`
	PasswordHash  string        `json:"-"`
	Status        AccountStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdTimestamp"`
	UpdatedAt     time.Time     `json:"updatedTimestamp"`
}

func (a *Account) IsActive() bool {
	return a.Status == AccountActive
}

// Transaction is a single immutable ledger entry. The account balance is
// never stored; it is always derived as sum(credits) - sum(debits).
type Transaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"-"`
	RequestID string          `json:"requestId"`
	Amount    float64         `json:"amount"`
	Type      TransactionType `json:"type"`
	CreatedAt time.Time       `json:"createdTimestamp"`
}

type Transfer struct {
	ID                       string         `json:"id"`
	RequestID                string         `json:"requestId"`
	OriginAccountNumber      string         `json:"originAccountNumber"`
	DestinationAccountNumber string         `json:"destinationAccountNumber"`
	Amount                   float64        `json:"amount"`
	Status                   TransferStatus `json:"status"`
	FailureReason            string         `json:"failureReason,omitempty"`
	CreatedAt                time.Time      `json:"createdTimestamp"`
	UpdatedAt                time.Time      `json:"updatedTimestamp"`
}

// Fee records the flat charge applied to a completed transfer. The transfer
// request ID is unique, enforcing at most one fee per transfer.
type Fee struct {
	ID                string    `json:"id"`
	TransferRequestID string    `json:"transferRequestId"`
	AccountNumber     string    `json:"accountNumber"`
	TransferAmount    float64   `json:"transferAmount"`
	FeeAmount         float64   `json:"feeAmount"`
	AppliedAt         time.Time `json:"appliedTimestamp"`
}
