package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies a kind of ledger failure
type ErrorCode string

// Failure kinds surfaced by the ledger. Business rule violations
// (insufficient funds, invalid amounts and such) are non-fatal and the caller
// decides whether to retry. StoreUnavailable indicates an infrastructure
// failure of the underlying storage.
const (
	CodeAccountNotFound      ErrorCode = "AccountNotFound"
	CodeAccountAlreadyExists ErrorCode = "AccountAlreadyExists"
	CodeInsufficientFunds    ErrorCode = "InsufficientFunds"
	CodeInvalidAmount        ErrorCode = "InvalidAmount"
	CodeInvalidTransfer      ErrorCode = "InvalidTransfer"
	CodeStoreUnavailable     ErrorCode = "StoreUnavailable"
	CodeClosed               ErrorCode = "Closed"
	CodeBusy                 ErrorCode = "Busy"
)

// Error is a typed ledger failure
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", e.Code, e.Message)
}

// NewError creates a typed ledger error with a formatted message
func NewError(code ErrorCode, format string, args ...interface{}) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns a code of a given error looking through wrappings.
// Errors that carry no explicit code are treated as StoreUnavailable.
func CodeOf(err error) ErrorCode {
	if typed, ok := errors.Cause(err).(*Error); ok {
		return typed.Code
	}
	return CodeStoreUnavailable
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
