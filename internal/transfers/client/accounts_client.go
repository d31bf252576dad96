package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ferrobank/platform/shared/errs"
	"github.com/ferrobank/platform/shared/models"
)

// AccountsClient calls the accounts service over HTTP. Every call carries a
// per-request timeout; once a call is in flight the coordinator cannot tell
// "rejected" from "lost", so timeouts surface as ordinary failures and take
// the same compensation path as a business rejection.
type AccountsClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewAccountsClient(baseURL string, timeout time.Duration) *AccountsClient {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &AccountsClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type transactionRequest struct {
	RequestID     string  `json:"requestId"`
	AccountNumber string  `json:"accountNumber"`
	Amount        float64 `json:"amount"`
	Type          string  `json:"type"`
}

// MakeDebit posts a debit against accountNumber using the given idempotency key.
func (c *AccountsClient) MakeDebit(ctx context.Context, requestID, accountNumber string, amount float64, bearerToken string) (*models.TransactionResult, error) {
	return c.postTransaction(ctx, transactionRequest{
		RequestID:     requestID,
		AccountNumber: accountNumber,
		Amount:        amount,
		Type:          string(models.TransactionDebit),
	}, bearerToken)
}

// MakeCredit posts a credit against accountNumber using the given idempotency key.
func (c *AccountsClient) MakeCredit(ctx context.Context, requestID, accountNumber string, amount float64, bearerToken string) (*models.TransactionResult, error) {
	return c.postTransaction(ctx, transactionRequest{
		RequestID:     requestID,
		AccountNumber: accountNumber,
		Amount:        amount,
		Type:          string(models.TransactionCredit),
	}, bearerToken)
}

func (c *AccountsClient) postTransaction(ctx context.Context, body transactionRequest, bearerToken string) (*models.TransactionResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transactions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var result models.TransactionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("invalid transaction response: %w", err)
	}
	return &result, nil
}

// GetBalance reads the balance of accountNumber. The accounts service rejects
// missing and inactive accounts, which is what makes this usable as the
// saga's best-effort destination pre-check.
func (c *AccountsClient) GetBalance(ctx context.Context, accountNumber, bearerToken string) (*models.BalanceView, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/balance?accountNumber="+accountNumber, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var view models.BalanceView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return nil, fmt.Errorf("invalid balance response: %w", err)
	}
	return &view, nil
}

// decodeError turns an accounts-service error response back into a domain
// error, preserving the original errorCode where one is present.
func decodeError(resp *http.Response) error {
	var domainErr errs.Error
	if err := json.NewDecoder(resp.Body).Decode(&domainErr); err == nil && domainErr.Code != "" {
		return &domainErr
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errs.New(errs.UserUnauthorized, "accounts service rejected the bearer token")
	}
	return errs.New(errs.AccountsUnavailable,
		fmt.Sprintf("accounts service returned status %d", resp.StatusCode))
}

func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.New(errs.AccountsTimeout, "accounts service call timed out")
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.New(errs.AccountsTimeout, "accounts service call timed out")
	}
	return errs.New(errs.AccountsUnavailable, fmt.Sprintf("accounts service unreachable: %v", err))
}
