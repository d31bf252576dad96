package command

import (
	"context"
	"time"

	"github.com/ferrobank/platform/shared/cqrs"
	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/middleware"
	"github.com/ferrobank/platform/shared/models"
	"github.com/ferrobank/platform/shared/utils"
	"github.com/google/uuid"
)

// maxNumberAttempts bounds account number generation: after this many
// consecutive collisions registration fails rather than looping.
const maxNumberAttempts = 10

const tokenTTL = 24 * time.Hour

// AccountWriteStore is the registration/lifecycle surface of the account store.
type AccountWriteStore interface {
	AccountStore
	Create(ctx context.Context, account *models.Account) error
	GetByLogin(ctx context.Context, login string) (*models.Account, error)
	ExistsByTaxID(ctx context.Context, taxID string) (bool, error)
	ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error)
	UpdateStatus(ctx context.Context, account *models.Account) error
}

// AccountCommandService owns account registration, login and deactivation.
type AccountCommandService struct {
	accounts AccountWriteStore
}

func NewAccountCommandService(accounts AccountWriteStore) *AccountCommandService {
	return &AccountCommandService{accounts: accounts}
}

type RegisterResult struct {
	AccountID     string `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
}

type LoginResult struct {
	Token         string    `json:"token"`
	AccountID     string    `json:"accountId"`
	AccountNumber string    `json:"accountNumber"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func (s *AccountCommandService) Register(ctx context.Context, cmd cqrs.RegisterAccountCommand) (*RegisterResult, error) {
	taxID := utils.NormalizeTaxID(cmd.TaxID)
	if !utils.ValidateTaxID(taxID) {
		return nil, errs.New(errs.InvalidDocument, "tax ID failed check-digit validation")
	}
	if cmd.Name == "" {
		return nil, errs.New(errs.InvalidValue, "name must not be empty")
	}

	exists, err := s.accounts.ExistsByTaxID(ctx, taxID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errs.New(errs.DuplicateAccount, "an account already exists for this tax ID")
	}

	accountNumber, err := s.generateAccountNumber(ctx)
	if err != nil {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:            uuid.NewString(),
		TaxID:         taxID,
		AccountNumber: accountNumber,
		Name:          cmd.Name,
		PasswordHash:  passwordHash,
		Status:        models.AccountActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	return &RegisterResult{AccountID: account.ID, AccountNumber: account.AccountNumber}, nil
}

// generateAccountNumber draws random 10-digit candidates until one is free,
// failing after maxNumberAttempts consecutive collisions.
func (s *AccountCommandService) generateAccountNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		candidate := utils.GenerateAccountNumber()
		taken, err := s.accounts.ExistsByAccountNumber(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", errs.New(errs.AccountNumberGenerationFailed,
		"could not generate a unique account number, try again")
}

// Login verifies credentials and issues a bearer token. The same error is
// returned for an unknown login and a wrong password.
func (s *AccountCommandService) Login(ctx context.Context, cmd cqrs.LoginCommand) (*LoginResult, error) {
	account, err := s.accounts.GetByLogin(ctx, cmd.Login)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errs.New(errs.UserUnauthorized, "invalid login or password")
	}
	if !account.IsActive() {
		return nil, errs.New(errs.InactiveAccount, "account is inactive")
	}
	if !utils.CheckPassword(cmd.Password, account.PasswordHash) {
		return nil, errs.New(errs.UserUnauthorized, "invalid login or password")
	}

	token, expiresAt, err := middleware.GenerateToken(account.ID, account.AccountNumber, tokenTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:         token,
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		ExpiresAt:     expiresAt,
	}, nil
}

// Deactivate flips the account to inactive after re-checking the password.
// The transition is one-way; inactive accounts accept no transactions.
func (s *AccountCommandService) Deactivate(ctx context.Context, cmd cqrs.DeactivateAccountCommand) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, errs.New(errs.InvalidAccount, "account not found")
	}
	if !account.IsActive() {
		return nil, errs.New(errs.InactiveAccount, "account is already inactive")
	}
	if !utils.CheckPassword(cmd.Password, account.PasswordHash) {
		return nil, errs.New(errs.UserUnauthorized, "invalid password")
	}

	account.Status = models.AccountInactive
	account.UpdatedAt = time.Now().UTC()
	if err := s.accounts.UpdateStatus(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}
