package cqrs

// ---------- Account queries ----------

// GetBalanceQuery computes an account's balance from its ledger.
type GetBalanceQuery struct {
	AccountNumber string
}

// ---------- Transfer queries ----------

// GetTransferQuery fetches a transfer by its idempotency key, subject to the
// requesting account being the transfer's origin.
type GetTransferQuery struct {
	RequestID               string
	RequestingAccountNumber string
}

// ---------- Fee queries ----------

// GetFeeQuery fetches the fee applied to a single transfer.
type GetFeeQuery struct {
	TransferRequestID string
}

// ListFeesQuery fetches all fees charged to an account.
type ListFeesQuery struct {
	AccountNumber string
}
