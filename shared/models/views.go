package models

import "time"

// BalanceView is the read-optimised projection returned by balance queries.
// Balance is recomputed from the ledger at read time; AsOf records when.
type BalanceView struct {
	AccountNumber string    `json:"accountNumber"`
	HolderName    string    `json:"holderName"`
	Balance       float64   `json:"balance"`
	AsOf          time.Time `json:"asOf"`
}

// TransactionResult is the outcome of posting a ledger entry. On idempotent
// replay it describes the originally recorded entry with the current balance.
type TransactionResult struct {
	TransactionID string          `json:"transactionId"`
	AccountNumber string          `json:"accountNumber"`
	Amount        float64         `json:"amount"`
	Type          TransactionType `json:"type"`
	NewBalance    float64         `json:"newBalance"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// TransferView is the caller-facing projection of a transfer. It is returned
// verbatim on idempotent replays of the same transfer request.
type TransferView struct {
	TransferID               string         `json:"transferId"`
	RequestID                string         `json:"requestId"`
	OriginAccountNumber      string         `json:"originAccountNumber"`
	DestinationAccountNumber string         `json:"destinationAccountNumber"`
	Amount                   float64        `json:"amount"`
	Status                   TransferStatus `json:"status"`
	CreatedAt                time.Time      `json:"createdAt"`
}
