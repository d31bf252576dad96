package query

import (
	"context"

	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/models"
)

// TransferReader fetches transfers by idempotency key.
type TransferReader interface {
	GetByRequestID(ctx context.Context, requestID string) (*models.Transfer, error)
}

// TransferQueryService serves transfer reads. Callers only see transfers
// originating from their own account.
type TransferQueryService struct {
	transfers TransferReader
}

func NewTransferQueryService(transfers TransferReader) *TransferQueryService {
	return &TransferQueryService{transfers: transfers}
}

func (s *TransferQueryService) GetTransfer(ctx context.Context, q cqrs.GetTransferQuery) (*models.Transfer, error) {
	transfer, err := s.transfers.GetByRequestID(ctx, q.RequestID)
	if err != nil {
		return nil, err
	}
	// A transfer belonging to another account is indistinguishable from a
	// missing one: no existence leak.
	if transfer == nil || transfer.OriginAccountNumber != q.RequestingAccountNumber {
		return nil, errs.New(errs.InvalidRequestID, "transfer not found")
	}
	return transfer, nil
}
