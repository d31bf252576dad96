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

// TransferCommander defines the write-side operations used by TransferHandler.
type TransferCommander interface {
	CreateTransfer(ctx context.Context, cmd cqrs.CreateTransferCommand) (*models.TransferView, error)
}

// TransferQuerier defines the read-side operations used by TransferHandler.
type TransferQuerier interface {
	GetTransfer(ctx context.Context, q cqrs.GetTransferQuery) (*models.Transfer, error)
}

type TransferHandler struct {
	commands TransferCommander
	queries  TransferQuerier
}

func NewTransferHandler(commands TransferCommander, queries TransferQuerier) *TransferHandler {
	return &TransferHandler{commands: commands, queries: queries}
}

type CreateTransferRequest struct {
	RequestID                string  `json:"requestId" validate:"required"`
	DestinationAccountNumber string  `json:"destinationAccountNumber" validate:"required,len=10,numeric"`
	Amount                   float64 `json:"amount" validate:"required,gt=0"`
}

func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondWithDomainError(c, errs.New(errs.InvalidToken, "missing identity"))
		return
	}
	bearerToken, _ := middleware.GetBearerToken(c)

	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.CreateTransfer(c.Request.Context(), cqrs.CreateTransferCommand{
		RequestID:                req.RequestID,
		OriginAccountID:          identity.AccountID,
		OriginAccountNumber:      identity.AccountNumber,
		DestinationAccountNumber: req.DestinationAccountNumber,
		Amount:                   req.Amount,
		BearerToken:              bearerToken,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *TransferHandler) GetTransfer(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondWithDomainError(c, errs.New(errs.InvalidToken, "missing identity"))
		return
	}

	transfer, err := h.queries.GetTransfer(c.Request.Context(), cqrs.GetTransferQuery{
		RequestID:               c.Param("requestId"),
		RequestingAccountNumber: identity.AccountNumber,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfer)
}
