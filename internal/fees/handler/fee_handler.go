package handler

import (
	"context"
	"net/http"

	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/middleware"
	"github.com/ferrobank/platform/shared/models"
	"github.com/gin-gonic/gin"
)

// FeeQuerier defines the read-side operations used by FeeHandler.
type FeeQuerier interface {
	GetFee(ctx context.Context, q cqrs.GetFeeQuery) (*models.Fee, error)
	ListFees(ctx context.Context, q cqrs.ListFeesQuery) ([]models.Fee, error)
}

type FeeHandler struct {
	queries FeeQuerier
}

func NewFeeHandler(queries FeeQuerier) *FeeHandler {
	return &FeeHandler{queries: queries}
}

// GetFee returns the fee applied to one of the caller's transfers.
func (h *FeeHandler) GetFee(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondWithDomainError(c, errs.New(errs.InvalidToken, "missing identity"))
		return
	}

	fee, err := h.queries.GetFee(c.Request.Context(), cqrs.GetFeeQuery{
		TransferRequestID: c.Param("requestId"),
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	// Fees charged to another account look exactly like missing ones.
	if fee.AccountNumber != identity.AccountNumber {
		middleware.RespondWithDomainError(c, errs.New(errs.InvalidRequestID, "no fee applied for this transfer"))
		return
	}
	c.JSON(http.StatusOK, fee)
}

// ListFees returns every fee charged to the caller's account.
func (h *FeeHandler) ListFees(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondWithDomainError(c, errs.New(errs.InvalidToken, "missing identity"))
		return
	}

	fees, err := h.queries.ListFees(c.Request.Context(), cqrs.ListFeesQuery{
		AccountNumber: identity.AccountNumber,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fees": fees})
}
