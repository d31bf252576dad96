package consumer

import (
	"context"
	"log"
	"time"

	"github.com/ferrobank/platform/internal/fees/repository"
	"github.com/ferrobank/platform/shared/events"
	"github.com/ferrobank/platform/shared/models"
	"github.com/google/uuid"
)

// FeeStore persists fees and answers duplicate checks.
type FeeStore interface {
	Create(ctx context.Context, fee *models.Fee) error
	GetByTransferRequestID(ctx context.Context, transferRequestID string) (*models.Fee, error)
}

// EventPublisher emits events onto a stream.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// FeeConsumer applies a flat fee for every completed transfer. Delivery is
// at-least-once, so the handler must tolerate replays: the fee row's unique
// transfer_request_id is the dedupe line.
type FeeConsumer struct {
	fees      FeeStore
	publisher EventPublisher
	flatFee   float64
}

func NewFeeConsumer(fees FeeStore, publisher EventPublisher, flatFee float64) *FeeConsumer {
	return &FeeConsumer{fees: fees, publisher: publisher, flatFee: flatFee}
}

// HandleTransferRealized records the fee for a completed transfer and emits a
// fee.applied event. Returning an error leaves the message unacknowledged so
// the stream redelivers it.
func (c *FeeConsumer) HandleTransferRealized(ctx context.Context, event events.Event) error {
	var data events.TransferRealizedEvent
	if err := events.DecodeData(event, &data); err != nil {
		return err
	}
	if data.RequestID == "" || data.AccountNumber == "" {
		log.Printf("Dropping malformed %s event: missing request ID or account number", event.Type)
		return nil
	}

	existing, err := c.fees.GetByTransferRequestID(ctx, data.RequestID)
	if err != nil {
		return err
	}
	if existing != nil {
		// Redelivery. The fee is recorded but the previous attempt may have
		// died before publishing, so publish again: the downstream debit is
		// idempotent on its derived key.
		log.Printf("Fee already applied for transfer %s, re-announcing", data.RequestID)
		return c.publishApplied(ctx, existing)
	}

	fee := &models.Fee{
		ID:                uuid.NewString(),
		TransferRequestID: data.RequestID,
		AccountNumber:     data.AccountNumber,
		TransferAmount:    data.TransferAmount,
		FeeAmount:         c.flatFee,
		AppliedAt:         time.Now().UTC(),
	}
	if err := c.fees.Create(ctx, fee); err != nil {
		if err == repository.ErrDuplicateFee {
			// Concurrent delivery already recorded it.
			log.Printf("Fee for transfer %s recorded by a concurrent delivery, skipping", data.RequestID)
			return nil
		}
		return err
	}
	log.Printf("Applied fee of %.2f to account %s for transfer %s", fee.FeeAmount, fee.AccountNumber, fee.TransferRequestID)

	// A publish failure leaves the message unacknowledged; the retry takes
	// the re-announce path above.
	return c.publishApplied(ctx, fee)
}

func (c *FeeConsumer) publishApplied(ctx context.Context, fee *models.Fee) error {
	return c.publisher.Publish(ctx, events.FeeEventsStream, events.FeeApplied, events.FeeAppliedEvent{
		RequestID:     fee.TransferRequestID,
		AccountNumber: fee.AccountNumber,
		FeeAmount:     fee.FeeAmount,
	})
}
