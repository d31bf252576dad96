package errs

import "errors"

// Error codes surfaced to API clients in the errorCode field.
const (
	InvalidAccount   = "INVALID_ACCOUNT"
	InvalidValue     = "INVALID_VALUE"
	InvalidType      = "INVALID_TYPE"
	InvalidRequestID = "INVALID_REQUEST_ID"
	InvalidDocument  = "INVALID_DOCUMENT"
	InvalidOperation = "INVALID_OPERATION"
	InvalidStatus    = "INVALID_STATUS"
	InvalidToken     = "INVALID_TOKEN"
	UserUnauthorized = "USER_UNAUTHORIZED"

	InactiveAccount   = "INACTIVE_ACCOUNT"
	InsufficientFunds = "INSUFFICIENT_FUNDS"
	DuplicateAccount  = "DUPLICATE_ACCOUNT"

	AccountNumberGenerationFailed = "ACCOUNT_NUMBER_GENERATION_FAILED"

	TransferFailed = "TRANSFER_FAILED"

	AccountsUnavailable = "ACCOUNTS_UNAVAILABLE"
	AccountsTimeout     = "ACCOUNTS_TIMEOUT"
)

// Error is a domain error carrying a machine-readable code alongside the
// human-readable message. Handlers map codes onto HTTP statuses.
type Error struct {
	Code    string `json:"errorCode"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Code extracts the domain error code from err, unwrapping as needed.
// Returns an empty string when err carries no domain code.
func Code(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	return Code(err) == code
}
