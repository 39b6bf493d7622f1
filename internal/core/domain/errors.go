package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// ErrConflict is returned by guarded writes whose precondition no longer holds.
// Callers treat it as "already handled".
var ErrConflict = errors.New("conditional update conflict")

// ErrCallbackNotFound is returned when an inbox row does not exist.
var ErrCallbackNotFound = errors.New("gateway callback not found")

const (
	ErrCodeInvalidPhone         = "INVALID_PHONE"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeInvalidCoins         = "INVALID_COINS"
	ErrCodeConfig               = "CONFIG_ERROR"
	ErrCodeToken                = "TOKEN_ERROR"
	ErrCodeNetwork              = "NETWORK_ERROR"
	ErrCodeParse                = "PARSE_ERROR"
	ErrCodeSTKFailed            = "STK_FAILED"
	ErrCodeServer               = "SERVER_ERROR"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeVersionConflict      = "VERSION_CONFLICT"
)

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %d: must be at least 1", amount),
	}
}

func NewAmountOutOfRangeError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s: too large", amount),
	}
}

func NewInvalidCoinsError(coins int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidCoins,
		Message: fmt.Sprintf("invalid coins %d: must be at least 1", coins),
	}
}

func NewInvalidPhoneError(phone string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidPhone,
		Message: fmt.Sprintf("invalid phone number %q", phone),
	}
}

func NewInvalidTransitionError(from, to PaymentStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		Err:     ErrConflict,
	}
}

func NewPaymentNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment %s not found", id),
	}
}

func NewRateLimitedError(key string) *DomainError {
	return &DomainError{
		Code:    ErrCodeRateLimited,
		Message: fmt.Sprintf("too many payment requests for %s, try again later", key),
	}
}

func NewInsufficientBalanceError(userID string, balance, requested int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInsufficientBalance,
		Message: fmt.Sprintf("user %s has %d coins, %d requested", userID, balance, requested),
	}
}

func NewVersionConflictError(userID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeVersionConflict,
		Message: fmt.Sprintf("ledger account %s was modified concurrently", userID),
		Err:     ErrConflict,
	}
}

func NewValidationError(msg string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

func NewServerError(err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeServer,
		Message: "internal server error",
		Err:     err,
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ErrorCode extracts the code of a DomainError, or SERVER_ERROR for anything else.
func ErrorCode(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.Code
	}
	return ErrCodeServer
}
