package query

import (
	"context"

	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/models"
)

// FeeReader fetches applied fees.
type FeeReader interface {
	GetByTransferRequestID(ctx context.Context, transferRequestID string) (*models.Fee, error)
	ListByAccountNumber(ctx context.Context, accountNumber string) ([]models.Fee, error)
}

type FeeQueryService struct {
	fees FeeReader
}

func NewFeeQueryService(fees FeeReader) *FeeQueryService {
	return &FeeQueryService{fees: fees}
}

func (s *FeeQueryService) GetFee(ctx context.Context, q cqrs.GetFeeQuery) (*models.Fee, error) {
	if q.TransferRequestID == "" {
		return nil, errs.New(errs.InvalidRequestID, "transfer request ID must not be empty")
	}
	fee, err := s.fees.GetByTransferRequestID(ctx, q.TransferRequestID)
	if err != nil {
		return nil, err
	}
	if fee == nil {
		return nil, errs.New(errs.InvalidRequestID, "no fee applied for this transfer")
	}
	return fee, nil
}

func (s *FeeQueryService) ListFees(ctx context.Context, q cqrs.ListFeesQuery) ([]models.Fee, error) {
	if q.AccountNumber == "" {
		return nil, errs.New(errs.InvalidAccount, "account number must not be empty")
	}
	fees, err := s.fees.ListByAccountNumber(ctx, q.AccountNumber)
	if err != nil {
		return nil, err
	}
	if fees == nil {
		fees = []models.Fee{}
	}
	return fees, nil
}
