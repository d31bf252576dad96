package handler

import (
	"context"
	"net/http"

	"github.com/ferrobank/platform/internal/accounts/command"
	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/middleware"
	"github.com/ferrobank/platform/shared/models"
	"github.com/gin-gonic/gin"
)

// AccountCommander defines the account lifecycle operations used by AccountHandler.
type AccountCommander interface {
	Register(ctx context.Context, cmd cqrs.RegisterAccountCommand) (*command.RegisterResult, error)
	Login(ctx context.Context, cmd cqrs.LoginCommand) (*command.LoginResult, error)
	Deactivate(ctx context.Context, cmd cqrs.DeactivateAccountCommand) (*models.Account, error)
}

// TransactionCommander defines the ledger write operations used by AccountHandler.
type TransactionCommander interface {
	PostTransaction(ctx context.Context, cmd cqrs.PostTransactionCommand) (*models.TransactionResult, error)
}

// BalanceQuerier defines the read-side operations used by AccountHandler.
type BalanceQuerier interface {
	GetBalance(ctx context.Context, q cqrs.GetBalanceQuery) (*models.BalanceView, error)
}

type AccountHandler struct {
	accounts     AccountCommander
	transactions TransactionCommander
	queries      BalanceQuerier
}

func NewAccountHandler(accounts AccountCommander, transactions TransactionCommander, queries BalanceQuerier) *AccountHandler {
	return &AccountHandler{accounts: accounts, transactions: transactions, queries: queries}
}

type RegisterRequest struct {
	TaxID    string `json:"taxId" validate:"required"`
	Name     string `json:"name" validate:"required,min=2"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type DeactivateRequest struct {
	Password string `json:"password" validate:"required"`
}

type PostTransactionRequest struct {
	RequestID     string  `json:"requestId" validate:"required"`
	AccountNumber string  `json:"accountNumber"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Type          string  `json:"type" validate:"required,oneof=C D"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	result, err := h.accounts.Register(c.Request.Context(), cqrs.RegisterAccountCommand{
		TaxID:    req.TaxID,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), cqrs.LoginCommand{
		Login:    req.Login,
		Password: req.Password,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AccountHandler) Deactivate(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondWithDomainError(c, errs.New(errs.InvalidToken, "missing identity"))
		return
	}

	var req DeactivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.accounts.Deactivate(c.Request.Context(), cqrs.DeactivateAccountCommand{
		AccountID: identity.AccountID,
		Password:  req.Password,
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accountNumber": account.AccountNumber, "status": account.Status})
}

func (h *AccountHandler) PostTransaction(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondWithDomainError(c, errs.New(errs.InvalidToken, "missing identity"))
		return
	}

	var req PostTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	accountNumber := req.AccountNumber
	if accountNumber == "" {
		accountNumber = identity.AccountNumber
	}
	// Debits are restricted to the caller's own account; credits may target
	// any account (that is how transfers land funds on the destination).
	if req.Type == "D" && accountNumber != identity.AccountNumber {
		middleware.RespondWithDomainError(c,
			errs.New(errs.InvalidOperation, "debits are only allowed on your own account"))
		return
	}

	result, err := h.transactions.PostTransaction(c.Request.Context(), cqrs.PostTransactionCommand{
		RequestID:     req.RequestID,
		AccountNumber: accountNumber,
		Amount:        req.Amount,
		Type:          models.TransactionType(req.Type),
	})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AccountHandler) GetBalance(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		middleware.RespondWithDomainError(c, errs.New(errs.InvalidToken, "missing identity"))
		return
	}

	accountNumber := c.Query("accountNumber")
	if accountNumber == "" {
		accountNumber = identity.AccountNumber
	}

	view, err := h.queries.GetBalance(c.Request.Context(), cqrs.GetBalanceQuery{AccountNumber: accountNumber})
	if err != nil {
		middleware.RespondWithDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
