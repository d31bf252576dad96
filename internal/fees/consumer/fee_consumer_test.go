package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ferrobank/platform/internal/fees/repository"
	"github.com/ferrobank/platform/shared/events"
	"github.com/ferrobank/platform/shared/models"
)

// ---- in-memory fakes ----

type fakeFeeStore struct {
	fees      map[string]*models.Fee // keyed by transfer request ID
	createErr error
}

func newFakeFeeStore() *fakeFeeStore {
	return &fakeFeeStore{fees: map[string]*models.Fee{}}
}

func (s *fakeFeeStore) Create(ctx context.Context, fee *models.Fee) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.fees[fee.TransferRequestID]; exists {
		return repository.ErrDuplicateFee
	}
	s.fees[fee.TransferRequestID] = fee
	return nil
}

func (s *fakeFeeStore) GetByTransferRequestID(ctx context.Context, transferRequestID string) (*models.Fee, error) {
	return s.fees[transferRequestID], nil
}

type publishedEvent struct {
	stream    string
	eventType string
	data      any
}

type fakePublisher struct {
	published  []publishedEvent
	publishErr error
}

func (p *fakePublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.published = append(p.published, publishedEvent{stream, eventType, data})
	return nil
}

func realizedEvent(requestID, accountNumber string, amount float64) events.Event {
	return events.Event{
		Type:      events.TransferRealized,
		Timestamp: time.Now().UTC(),
		Data: map[string]any{
			"requestId":      requestID,
			"accountNumber":  accountNumber,
			"transferAmount": amount,
		},
	}
}

// ---- tests ----

func TestHandleTransferRealized(t *testing.T) {
	store := newFakeFeeStore()
	publisher := &fakePublisher{}
	consumer := NewFeeConsumer(store, publisher, 2.00)

	if err := consumer.HandleTransferRealized(context.Background(), realizedEvent("tr-001", "1111111111", 100)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	fee := store.fees["tr-001"]
	if fee == nil {
		t.Fatal("fee not recorded")
	}
	if fee.FeeAmount != 2.00 || fee.AccountNumber != "1111111111" || fee.TransferAmount != 100 {
		t.Errorf("unexpected fee: %+v", fee)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(publisher.published))
	}
	if publisher.published[0].stream != events.FeeEventsStream || publisher.published[0].eventType != events.FeeApplied {
		t.Errorf("unexpected event: %+v", publisher.published[0])
	}
	applied := publisher.published[0].data.(events.FeeAppliedEvent)
	if applied.RequestID != "tr-001" || applied.FeeAmount != 2.00 {
		t.Errorf("unexpected event payload: %+v", applied)
	}
}

func TestHandleTransferRealizedRedelivery(t *testing.T) {
	store := newFakeFeeStore()
	publisher := &fakePublisher{}
	consumer := NewFeeConsumer(store, publisher, 2.00)

	event := realizedEvent("tr-002", "1111111111", 100)
	for i := 0; i < 3; i++ {
		if err := consumer.HandleTransferRealized(context.Background(), event); err != nil {
			t.Fatalf("delivery %d: %v", i, err)
		}
	}

	// One fee row regardless of redeliveries; each delivery may re-announce,
	// the downstream debit is keyed on the transfer ID.
	if len(store.fees) != 1 {
		t.Errorf("expected a single fee, got %d", len(store.fees))
	}
	for _, p := range publisher.published {
		applied := p.data.(events.FeeAppliedEvent)
		if applied.RequestID != "tr-002" {
			t.Errorf("unexpected request ID %s", applied.RequestID)
		}
	}
}

func TestHandleTransferRealizedPublishFailureRedelivers(t *testing.T) {
	store := newFakeFeeStore()
	publisher := &fakePublisher{publishErr: errors.New("stream unavailable")}
	consumer := NewFeeConsumer(store, publisher, 2.00)

	event := realizedEvent("tr-003", "1111111111", 100)
	if err := consumer.HandleTransferRealized(context.Background(), event); err == nil {
		t.Fatal("expected publish failure to propagate for redelivery")
	}
	if store.fees["tr-003"] == nil {
		t.Fatal("fee must be recorded even when publish fails")
	}

	// The retry announces the already-recorded fee.
	publisher.publishErr = nil
	if err := consumer.HandleTransferRealized(context.Background(), event); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(store.fees) != 1 {
		t.Errorf("expected a single fee after retry, got %d", len(store.fees))
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 event after retry, got %d", len(publisher.published))
	}
}

func TestHandleTransferRealizedConcurrentDuplicate(t *testing.T) {
	// The read misses but the insert reports a duplicate: another consumer
	// won the race, this delivery is a no-op.
	store := newFakeFeeStore()
	store.createErr = repository.ErrDuplicateFee
	publisher := &fakePublisher{}
	consumer := NewFeeConsumer(store, publisher, 2.00)

	if err := consumer.HandleTransferRealized(context.Background(), realizedEvent("tr-004", "1111111111", 100)); err != nil {
		t.Fatalf("expected duplicate insert to be swallowed, got %v", err)
	}
	if len(publisher.published) != 0 {
		t.Errorf("duplicate loser must not publish, got %d events", len(publisher.published))
	}
}

func TestHandleTransferRealizedMalformedEvent(t *testing.T) {
	store := newFakeFeeStore()
	publisher := &fakePublisher{}
	consumer := NewFeeConsumer(store, publisher, 2.00)

	event := events.Event{Type: events.TransferRealized, Timestamp: time.Now().UTC(), Data: map[string]any{}}
	if err := consumer.HandleTransferRealized(context.Background(), event); err != nil {
		t.Fatalf("malformed events are dropped, not retried: %v", err)
	}
	if len(store.fees) != 0 || len(publisher.published) != 0 {
		t.Error("malformed event must not record or publish anything")
	}
}

func TestHandleTransferRealizedStoreFailure(t *testing.T) {
	store := newFakeFeeStore()
	store.createErr = errors.New("connection reset")
	consumer := NewFeeConsumer(store, &fakePublisher{}, 2.00)

	if err := consumer.HandleTransferRealized(context.Background(), realizedEvent("tr-005", "1111111111", 100)); err == nil {
		t.Fatal("expected store failure to propagate for redelivery")
	}
}
