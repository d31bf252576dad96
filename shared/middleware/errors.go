package middleware

import (
	"log"
	"net/http"

	"github.com/ferrobank/platform/shared/errs"
	"github.com/gin-gonic/gin"
)

// RespondWithDomainError maps a domain error onto an HTTP response with an
// {errorCode, message} body. Errors without a domain code are treated as
// internal faults: logged in full, surfaced as a generic 500.
func RespondWithDomainError(c *gin.Context, err error) {
	code := errs.Code(err)
	if code == "" {
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"errorCode": "INTERNAL_ERROR",
			"message":   "An unexpected error occurred",
		})
		return
	}

	status := http.StatusBadRequest
	switch code {
	case errs.UserUnauthorized, errs.InvalidToken:
		status = http.StatusUnauthorized
	case errs.InsufficientFunds:
		status = http.StatusUnprocessableEntity
	case errs.AccountNumberGenerationFailed, errs.AccountsUnavailable, errs.AccountsTimeout:
		log.Printf("infrastructure error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		status = http.StatusInternalServerError
	}

	c.JSON(status, errs.New(code, err.Error()))
}
