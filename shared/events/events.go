package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types
const (
	TransferRealized = "transfer.realized"
	FeeApplied       = "fee.applied"
)

// Stream names
const (
	TransferEventsStream = "transfer.events"
	FeeEventsStream      = "fee.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// TransferRealizedEvent is published after a transfer saga reaches Completed.
// RequestID is the transfer's idempotency key; consumers use it to apply the
// fee at most once.
type TransferRealizedEvent struct {
	RequestID      string  `json:"requestId"`
	AccountNumber  string  `json:"accountNumber"`
	TransferAmount float64 `json:"transferAmount"`
}

// FeeAppliedEvent is published once a fee has been persisted for a transfer.
// RequestID carries the originating transfer key so the downstream debit can
// derive a stable idempotency key from it.
type FeeAppliedEvent struct {
	RequestID     string  `json:"requestId"`
	AccountNumber string  `json:"accountNumber"`
	FeeAmount     float64 `json:"feeAmount"`
}

// DecodeData re-marshals the event payload into v. Payloads arrive as
// map[string]any after the envelope round-trips through JSON.
func DecodeData(event Event, v any) error {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if err := json.Unmarshal(dataBytes, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s event: %w", event.Type, err)
	}
	return nil
}
