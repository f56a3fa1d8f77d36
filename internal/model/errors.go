package model

import (
	"errors"
	"fmt"
)

// Code classifies a ledger error.
type Code string

const (
	CodeValidation     Code = "VALIDATION"
	CodeInvariant      Code = "INVARIANT_VIOLATION"
	CodeConflict       Code = "CONFLICT"
	CodeDivisionByZero Code = "DIVISION_BY_ZERO"
	CodeNotFound       Code = "NOT_FOUND"
)

// Reasons narrow a code down to a specific failure.
const (
	ReasonInvalidAmount       = "invalid_amount"
	ReasonInvalidCurrency     = "invalid_currency"
	ReasonInvalidOperation    = "invalid_operation"
	ReasonSelfTransfer        = "self_transfer"
	ReasonCurrencyMismatch    = "currency_mismatch"
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonHasBalance          = "has_balance"
	ReasonAlreadyRemoved      = "already_removed"
	ReasonAlreadyActive       = "already_active"
	ReasonInactive            = "inactive"
	ReasonInvalidTransition   = "invalid_transition"
	ReasonWalletNotFound      = "wallet_not_found"
	ReasonTransactionNotFound = "transaction_not_found"
)

// Error is the ledger error type. Errors compare with errors.Is by Code, and
// by Reason when the target sets one.
type Error struct {
	Code     Code
	Reason   string
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Reason != "" && t.Reason != e.Reason {
		return false
	}
	if t.Code == e.Code {
		return true
	}
	// division by zero is the narrow case of an invalid argument
	return t.Code == CodeValidation && e.Code == CodeDivisionByZero && t.Reason == ""
}

var (
	ErrValidation         = &Error{Code: CodeValidation}
	ErrInvariantViolation = &Error{Code: CodeInvariant}
	ErrConflict           = &Error{Code: CodeConflict}
	ErrDivisionByZero     = &Error{Code: CodeDivisionByZero}
	ErrNotFound           = &Error{Code: CodeNotFound}

	ErrInvalidAmount       = &Error{Code: CodeValidation, Reason: ReasonInvalidAmount}
	ErrInvalidCurrency     = &Error{Code: CodeValidation, Reason: ReasonInvalidCurrency}
	ErrInvalidOperation    = &Error{Code: CodeValidation, Reason: ReasonInvalidOperation}
	ErrSelfTransfer        = &Error{Code: CodeValidation, Reason: ReasonSelfTransfer}
	ErrCurrencyMismatch    = &Error{Code: CodeConflict, Reason: ReasonCurrencyMismatch}
	ErrInsufficientFunds   = &Error{Code: CodeInvariant, Reason: ReasonInsufficientBalance}
	ErrWalletHasBalance    = &Error{Code: CodeInvariant, Reason: ReasonHasBalance}
	ErrWalletInactive      = &Error{Code: CodeInvariant, Reason: ReasonInactive}
	ErrInvalidTransition   = &Error{Code: CodeInvariant, Reason: ReasonInvalidTransition}
	ErrWalletNotFound      = &Error{Code: CodeNotFound, Reason: ReasonWalletNotFound}
	ErrTransactionNotFound = &Error{Code: CodeNotFound, Reason: ReasonTransactionNotFound}
)

func newError(code Code, reason string, format string, args ...any) *Error {
	return &Error{Code: code, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func validationError(reason string, format string, args ...any) *Error {
	return newError(CodeValidation, reason, format, args...)
}

func invariantError(reason string, format string, args ...any) *Error {
	return newError(CodeInvariant, reason, format, args...)
}

// WalletNotFound reports a missing wallet id.
func WalletNotFound(id string) error {
	e := newError(CodeNotFound, ReasonWalletNotFound, "wallet %q not found", id)
	e.Metadata = map[string]string{"walletId": id}
	return e
}

// TransactionNotFound reports a missing transaction id.
func TransactionNotFound(id string) error {
	e := newError(CodeNotFound, ReasonTransactionNotFound, "transaction %q not found", id)
	e.Metadata = map[string]string{"transactionId": id}
	return e
}

// CodeOf returns the ledger code carried by err, or "" for foreign errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// ReasonOf returns the reason carried by err, or "".
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
